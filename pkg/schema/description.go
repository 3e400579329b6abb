package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Description is a WaveJSON waveform document.
// Agents and the CLI provide it as JSON; the core only consumes the flattened
// signal list produced by Flatten.
type Description struct {
	Signal []SignalEntry   `json:"signal"`
	Config *DiagramConfig  `json:"config,omitempty"`
	Edge   []string        `json:"edge,omitempty"` // arrows between nodes; not rendered
	Head   json.RawMessage `json:"head,omitempty"`
	Foot   json.RawMessage `json:"foot,omitempty"`
}

// DiagramConfig holds document-level rendering hints.
type DiagramConfig struct {
	HScale float64 `json:"hscale,omitempty"` // multiplies the cycle width
}

// MaxCycles bounds the decoded length of one signal, period included.
const MaxCycles = 1 << 16

// Signal describes one waveform row.
type Signal struct {
	Name   string     `json:"name"`
	Wave   string     `json:"wave"`
	Data   DataLabels `json:"data,omitempty"`
	Period int        `json:"period,omitempty"` // cycles per wave character (default: 1)
	Phase  float64    `json:"phase,omitempty"`  // shifts the wave left by this many cycles
	Node   string     `json:"node,omitempty"`   // arrow anchors; not rendered
}

// Group is a named, ordered collection of signal entries.
type Group struct {
	Name    string
	Entries []SignalEntry
}

// SignalEntry is one element of the signal array: a signal object, a group
// (nested array whose first element is the group name) or a spacer ({}).
type SignalEntry struct {
	Signal *Signal
	Group  *Group
}

// Spacer reports whether the entry is an empty row.
func (e SignalEntry) Spacer() bool {
	return e.Signal == nil && e.Group == nil
}

// UnmarshalJSON decodes an object, a group array, or an empty object.
func (e *SignalEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty signal entry")
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("signal group: %w", err)
		}
		g := &Group{}
		for i, raw := range items {
			if i == 0 {
				var name string
				if json.Unmarshal(raw, &name) == nil {
					g.Name = name
					continue
				}
			}
			var child SignalEntry
			if err := json.Unmarshal(raw, &child); err != nil {
				return fmt.Errorf("signal group %q entry %d: %w", g.Name, i, err)
			}
			g.Entries = append(g.Entries, child)
		}
		e.Group = g
		return nil

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil // spacer
		}
		var s Signal
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		e.Signal = &s
		return nil

	default:
		return fmt.Errorf("signal entry must be an object or an array, got %s", string(data[:1]))
	}
}

// MarshalJSON encodes the entry back to its WaveJSON form.
func (e SignalEntry) MarshalJSON() ([]byte, error) {
	switch {
	case e.Signal != nil:
		return json.Marshal(e.Signal)
	case e.Group != nil:
		items := make([]any, 0, len(e.Group.Entries)+1)
		items = append(items, e.Group.Name)
		for _, child := range e.Group.Entries {
			items = append(items, child)
		}
		return json.Marshal(items)
	default:
		return []byte("{}"), nil
	}
}

// DataLabels is the ordered label list of a data-bus signal. WaveJSON allows
// both an array of strings and a single whitespace-separated string.
type DataLabels []string

// UnmarshalJSON accepts an array (strings or numbers) or a string.
func (d *DataLabels) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = strings.Fields(s)
		return nil
	}

	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("data must be a string or an array: %w", err)
	}
	labels := make([]string, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			labels[i] = v
		case nil:
			labels[i] = ""
		default:
			labels[i] = fmt.Sprint(v)
		}
	}
	*d = labels
	return nil
}

// FlatSignal is one row of a flattened description.
type FlatSignal struct {
	Signal *Signal // nil for spacer rows
	Group  string  // name of the innermost enclosing group
	Index  int     // row index
}

// Spacer reports whether the row is empty.
func (f FlatSignal) Spacer() bool {
	return f.Signal == nil
}

// Flatten returns the rows of the description in document order, with
// groups expanded in place.
func (d *Description) Flatten() []FlatSignal {
	if d == nil {
		return nil
	}
	var rows []FlatSignal
	var walk func(entries []SignalEntry, group string)
	walk = func(entries []SignalEntry, group string) {
		for _, e := range entries {
			switch {
			case e.Group != nil:
				walk(e.Group.Entries, e.Group.Name)
			case e.Signal != nil:
				rows = append(rows, FlatSignal{Signal: e.Signal, Group: group, Index: len(rows)})
			default:
				rows = append(rows, FlatSignal{Group: group, Index: len(rows)})
			}
		}
	}
	walk(d.Signal, "")
	return rows
}

// HScale returns the horizontal scale factor, defaulting to 1.
func (d *Description) HScale() float64 {
	if d == nil || d.Config == nil || d.Config.HScale <= 0 {
		return 1
	}
	return d.Config.HScale
}

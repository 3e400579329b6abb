package wave

import (
	"github.com/rendis/wavetikz/pkg/schema"
)

// Trace is a decoded signal: its cycle states, the labels its data segments
// refer to, and the gap indices it declared.
type Trace struct {
	Name     string                 `json:"name"`
	Group    string                 `json:"group,omitempty"`
	Phase    float64                `json:"phase,omitempty"`
	States   []CycleState           `json:"states"`
	Labels   []string               `json:"labels,omitempty"`
	Gaps     []int                  `json:"gaps,omitempty"`
	Segments int                    `json:"segments"`
	Warnings []*schema.GrammarError `json:"warnings,omitempty"`
}

// Len returns the number of cycles.
func (t *Trace) Len() int {
	return len(t.States)
}

// Label returns the label of a data segment, or "" when the segment has no
// corresponding label.
func (t *Trace) Label(segment int) string {
	if segment < 0 || segment >= len(t.Labels) {
		return ""
	}
	return t.Labels[segment]
}

// Options tune decoding of a single signal.
type Options struct {
	// Period stretches every wave character over this many cycles.
	// Values below 1 are treated as 1.
	Period int
	// Group is copied onto the trace.
	Group string
	// Phase is copied onto the trace; the renderer applies it.
	Phase float64
}

// Decode decodes a wave string with the default options.
func Decode(name, wave string, labels []string) (*Trace, error) {
	return DecodeWithOptions(name, wave, labels, Options{})
}

// DecodeWithOptions converts a wave string into a Trace. It returns a
// *schema.GrammarError for unknown symbols, for a continuation with no
// predecessor, and when the wave stretched by period exceeds
// schema.MaxCycles. Running out of data labels is not an error; it is recorded in
// Trace.Warnings and the segment renders with an empty label.
func DecodeWithOptions(name, wave string, labels []string, opts Options) (*Trace, error) {
	period := opts.Period
	if period < 1 {
		period = 1
	}
	// Compare by division so a huge period cannot overflow.
	if period > schema.MaxCycles || len(wave) > schema.MaxCycles/period {
		return nil, &schema.GrammarError{Signal: name, Reason: schema.ReasonPeriodOutOfRange}
	}

	d := &decoder{
		trace: &Trace{
			Name:   name,
			Group:  opts.Group,
			Phase:  opts.Phase,
			Labels: labels,
			States: make([]CycleState, 0, len(wave)*period),
		},
		period: period,
	}

	for pos := 0; pos < len(wave); pos++ {
		if err := d.step(wave[pos], pos); err != nil {
			return nil, err
		}
	}
	return d.trace, nil
}

// decoder is the left-to-right scan state. last is the most recent emitted
// state; hasLast is false until the first cycle is produced.
type decoder struct {
	trace   *Trace
	period  int
	last    CycleState
	hasLast bool
	segment int
}

func (d *decoder) step(c byte, pos int) error {
	switch c {
	case '|':
		d.addGap()
		return nil

	case '.':
		if !d.hasLast {
			return d.fail(schema.ReasonMissingPredecessor, c, pos)
		}
		d.emit(d.last.Continue())
		return nil
	}

	st, ok := symbolState(c)
	if !ok {
		return d.fail(schema.ReasonUnknownSymbol, c, pos)
	}
	if st.Kind == KindData {
		st.Segment = d.segment
		if d.segment >= len(d.trace.Labels) {
			d.trace.Warnings = append(d.trace.Warnings, &schema.GrammarError{
				Signal:   d.trace.Name,
				Reason:   schema.ReasonLabelsExhausted,
				Symbol:   string(c),
				Position: pos,
			})
		}
		d.segment++
		d.trace.Segments = d.segment
	}
	d.emit(st)
	return nil
}

// emit appends st followed by the period padding.
func (d *decoder) emit(st CycleState) {
	d.trace.States = append(d.trace.States, st)
	for i := 1; i < d.period; i++ {
		d.trace.States = append(d.trace.States, st.Continue())
	}
	d.last = st
	d.hasLast = true
}

func (d *decoder) addGap() {
	idx := len(d.trace.States)
	if n := len(d.trace.Gaps); n > 0 && d.trace.Gaps[n-1] == idx {
		return
	}
	d.trace.Gaps = append(d.trace.Gaps, idx)
}

func (d *decoder) fail(reason schema.GrammarReason, c byte, pos int) error {
	return &schema.GrammarError{
		Signal:   d.trace.Name,
		Reason:   reason,
		Symbol:   string(c),
		Position: pos,
	}
}

// symbolState maps a non-structural wave character to its state.
func symbolState(c byte) (CycleState, bool) {
	st := CycleState{Segment: NoSegment, Style: c}
	switch c {
	case 'p', 'P':
		st.Kind = KindClockPositive
		st.Emphasis = c == 'P'
	case 'n', 'N':
		st.Kind = KindClockNegative
		st.Emphasis = c == 'N'
	case '1', 'h', 'H':
		st.Kind = KindHigh
		st.Emphasis = c == 'H'
	case '0', 'l', 'L':
		st.Kind = KindLow
		st.Emphasis = c == 'L'
	case 'x':
		st.Kind = KindUndefined
	case 'z':
		st.Kind = KindHighZ
	case 'u':
		st.Kind = KindPullUp
	case 'd':
		st.Kind = KindPullDown
	case '=', '2', '3', '4', '5', '6', '7', '8', '9':
		st.Kind = KindData
	default:
		return CycleState{}, false
	}
	st.Resolved = st.Kind
	return st, true
}

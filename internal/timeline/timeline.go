// Package timeline aligns decoded signal traces on a shared cycle grid.
package timeline

import (
	"fmt"
	"sort"

	"github.com/rendis/wavetikz/internal/wave"
	"github.com/rendis/wavetikz/pkg/schema"
)

// Row is one horizontal lane of the diagram. Spacer rows have no trace.
type Row struct {
	Name   string
	Group  string
	Trace  *wave.Trace
	States []wave.CycleState // padded to Timeline.Cycles
}

// Spacer reports whether the row is empty.
func (r *Row) Spacer() bool {
	return r.Trace == nil
}

// Label returns the label of a data segment of this row.
func (r *Row) Label(segment int) string {
	if r.Trace == nil {
		return ""
	}
	return r.Trace.Label(segment)
}

// Timeline holds every row aligned to a common cycle index plus the set of
// gap columns shared by all rows.
type Timeline struct {
	Rows     []*Row
	Cycles   int
	Gaps     []int
	Geometry schema.Geometry

	gapSet map[int]struct{}
}

// Build folds decoded traces into a Timeline. A nil trace is a spacer row.
// Every trace is padded to the longest one by holding its last state; an
// empty trace becomes undefined for the whole width. The gap set is the union
// of the gaps declared by any trace.
func Build(traces []*wave.Trace, geom schema.Geometry) (*Timeline, error) {
	if err := geom.Validate(); err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}

	tl := &Timeline{
		Rows:     make([]*Row, 0, len(traces)),
		Geometry: geom,
		gapSet:   make(map[int]struct{}),
	}

	for _, tr := range traces {
		if tr != nil && tr.Len() > tl.Cycles {
			tl.Cycles = tr.Len()
		}
	}

	for _, tr := range traces {
		if tr == nil {
			tl.Rows = append(tl.Rows, &Row{})
			continue
		}
		for _, g := range tr.Gaps {
			tl.gapSet[g] = struct{}{}
		}
		tl.Rows = append(tl.Rows, &Row{
			Name:   tr.Name,
			Group:  tr.Group,
			Trace:  tr,
			States: pad(tr.States, tl.Cycles),
		})
	}

	tl.Gaps = make([]int, 0, len(tl.gapSet))
	for g := range tl.gapSet {
		tl.Gaps = append(tl.Gaps, g)
	}
	sort.Ints(tl.Gaps)

	return tl, nil
}

// pad copies states and extends them to n cycles.
func pad(states []wave.CycleState, n int) []wave.CycleState {
	out := make([]wave.CycleState, len(states), n)
	copy(out, states)
	if len(out) == n {
		return out
	}

	var fill wave.CycleState
	if len(out) == 0 {
		first := wave.Undefined()
		out = append(out, first)
		fill = first.Continue()
	} else {
		fill = out[len(out)-1].Continue()
	}
	for len(out) < n {
		out = append(out, fill)
	}
	return out
}

// IsGap reports whether column k carries a timeline break.
func (t *Timeline) IsGap(k int) bool {
	_, ok := t.gapSet[k]
	return ok
}

// State returns the state of row r at cycle i.
func (t *Timeline) State(r, i int) wave.CycleState {
	return t.Rows[r].States[i]
}

// SignalRows counts the rows that carry a trace.
func (t *Timeline) SignalRows() int {
	n := 0
	for _, r := range t.Rows {
		if !r.Spacer() {
			n++
		}
	}
	return n
}

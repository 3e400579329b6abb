package diagram

import (
	"math"

	"github.com/rendis/wavetikz/internal/timeline"
	"github.com/rendis/wavetikz/internal/wave"
)

// phasedStates returns the states a row is rendered from and its phase. A
// positive phase shifts the wave that many cycles to the left, so the row is
// extended by holding its last state long enough to still fill the grid once
// shifted.
func phasedStates(row *timeline.Row) ([]wave.CycleState, float64) {
	phase := 0.0
	if row.Trace != nil && row.Trace.Phase > 0 {
		phase = row.Trace.Phase
	}
	if phase == 0 || len(row.States) == 0 {
		return row.States, 0
	}

	extra := int(math.Ceil(phase))
	states := make([]wave.CycleState, len(row.States), len(row.States)+extra)
	copy(states, row.States)
	hold := states[len(states)-1].Continue()
	for range extra {
		states = append(states, hold)
	}
	return states, phase
}

// shiftRow moves grid-space primitives phase cycles to the left and clips
// them to the visible columns [0, cycles]. Primitives left without any
// visible part are dropped.
func shiftRow(prims []Primitive, phase float64, cycles int) []Primitive {
	maxX := float64(cycles)
	out := prims[:0]
	for _, p := range prims {
		for i := range p.Points {
			p.Points[i].X -= phase
		}
		p.Cycle = clampCycle(int(math.Floor(float64(p.Cycle)-phase)), cycles)

		switch p.Kind {
		case PrimitiveText:
			if x := p.Points[0].X; x < 0 || x > maxX {
				continue
			}
		case PrimitiveRegion:
			p.Points = clipPolygon(p.Points, 0, maxX)
			if len(p.Points) < 3 || zeroWidth(p.Points) {
				continue
			}
		case PrimitivePath:
			first := p.Points[0]
			p.Points, p.Moves = clipPath(p, 0, maxX)
			if len(p.Points) == 0 {
				continue
			}
			if p.Points[0] != first {
				p.Arrow = false
			}
		}
		out = append(out, p)
	}
	return out
}

func zeroWidth(pts []Point) bool {
	for _, pt := range pts[1:] {
		if pt.X != pts[0].X {
			return false
		}
	}
	return true
}

func clampCycle(c, cycles int) int {
	if c < 0 {
		return 0
	}
	if cycles > 0 && c >= cycles {
		return cycles - 1
	}
	return c
}

// clipPath clips every subpath of p to lo <= x <= hi. A subpath that leaves
// and re-enters the slab is split.
func clipPath(p Primitive, lo, hi float64) ([]Point, []int) {
	var (
		points []Point
		moves  []int
	)
	for _, sub := range p.Strokes() {
		var cur []Point
		flush := func() {
			if len(cur) >= 2 {
				if len(points) > 0 {
					moves = append(moves, len(points))
				}
				points = append(points, cur...)
			}
			cur = nil
		}
		for i := 0; i+1 < len(sub); i++ {
			a, b, ok := clipSegment(sub[i], sub[i+1], lo, hi)
			if !ok {
				flush()
				continue
			}
			if len(cur) == 0 || cur[len(cur)-1] != a {
				flush()
				cur = append(cur, a)
			}
			cur = append(cur, b)
		}
		flush()
	}
	return points, moves
}

// clipSegment clips a-b to lo <= x <= hi. ok is false when nothing of the
// segment is visible.
func clipSegment(a, b Point, lo, hi float64) (Point, Point, bool) {
	if (a.X < lo && b.X < lo) || (a.X > hi && b.X > hi) {
		return a, b, false
	}
	at := func(x float64) Point {
		t := (x - a.X) / (b.X - a.X)
		return Point{X: x, Y: a.Y + t*(b.Y-a.Y)}
	}
	ca, cb := a, b
	switch {
	case a.X < lo:
		ca = at(lo)
	case a.X > hi:
		ca = at(hi)
	}
	switch {
	case b.X < lo:
		cb = at(lo)
	case b.X > hi:
		cb = at(hi)
	}
	if ca == cb && a != b {
		return a, b, false
	}
	return ca, cb, true
}

// clipPolygon is Sutherland-Hodgman against the two vertical edges of the
// slab.
func clipPolygon(poly []Point, lo, hi float64) []Point {
	poly = clipEdge(poly, func(p Point) bool { return p.X >= lo }, lo)
	return clipEdge(poly, func(p Point) bool { return p.X <= hi }, hi)
}

func clipEdge(poly []Point, inside func(Point) bool, x float64) []Point {
	if len(poly) == 0 {
		return nil
	}
	cross := func(a, b Point) Point {
		t := (x - a.X) / (b.X - a.X)
		return Point{X: x, Y: a.Y + t*(b.Y-a.Y)}
	}
	var out []Point
	prev := poly[len(poly)-1]
	for _, cur := range poly {
		switch {
		case inside(cur) && inside(prev):
			out = append(out, cur)
		case inside(cur):
			out = append(out, cross(prev, cur), cur)
		case inside(prev):
			out = append(out, cross(prev, cur))
		}
		prev = cur
	}
	return out
}

package diagram

import (
	"github.com/rendis/wavetikz/internal/timeline"
	"github.com/rendis/wavetikz/internal/wave"
	"github.com/rendis/wavetikz/pkg/schema"
)

// run is a non-continuation cycle-state extended by its continuations.
// It covers cycles [start, end).
type run struct {
	start, end int
	state      wave.CycleState
	kind       wave.Kind
}

// band reports whether the run is drawn as a two-rail band.
func (r *run) band() bool {
	return r.kind == wave.KindData || r.kind == wave.KindUndefined
}

// runsOf merges continuations into the preceding state.
func runsOf(states []wave.CycleState) []run {
	runs := make([]run, 0, len(states))
	for i, st := range states {
		if i > 0 && st.IsContinuation() {
			runs[len(runs)-1].end = i + 1
			continue
		}
		runs = append(runs, run{start: i, end: i + 1, state: st, kind: st.Effective()})
	}
	return runs
}

// levels returns the level a state enters and leaves its run at. Clocks
// enter on one rail and leave on the other; bands and high-z sit on the
// middle line. ok is false for kinds that have no rendering rule.
func levels(k wave.Kind) (entry, exit float64, ok bool) {
	switch k {
	case wave.KindHigh, wave.KindPullUp:
		return 1, 1, true
	case wave.KindLow, wave.KindPullDown:
		return -1, -1, true
	case wave.KindHighZ, wave.KindUndefined, wave.KindData:
		return 0, 0, true
	case wave.KindClockPositive:
		return -1, 1, true
	case wave.KindClockNegative:
		return 1, -1, true
	}
	return 0, 0, false
}

// shape is the geometry drawn at the boundary between two runs.
type shape int

const (
	shapeNone  shape = iota
	shapeCross       // band into band
	shapeClose       // band into a level: >
	shapeOpen        // level into a band: <
	shapeStep        // level into a different level
	shapeSlow        // into or out of high-z or a pull: a curve
)

// slowSteps is how many segments approximate a slow transition's curve.
const slowSteps = 8

// slow reports whether k settles slowly, as high-z and pulled lines do.
func slow(k wave.Kind) bool {
	return k == wave.KindHighZ || k == wave.KindPullUp || k == wave.KindPullDown
}

// busFills maps data-bus characters to band fills.
var busFills = map[byte]Fill{
	'=': FillBus,
	'2': FillBus,
	'3': FillYellow,
	'4': FillOrange,
	'5': FillBlue,
	'6': FillCyan,
	'7': FillGreen,
	'8': FillViolet,
	'9': FillRed,
}

// TransitionRenderer turns the rows of a timeline into grid-space
// primitives: X in cycles, Y in levels.
type TransitionRenderer struct {
	tl   *timeline.Timeline
	half float64 // half the transition width, in cycles
}

// NewTransitionRenderer creates a renderer for tl.
func NewTransitionRenderer(tl *timeline.Timeline) *TransitionRenderer {
	g := tl.Geometry
	return &TransitionRenderer{
		tl:   tl,
		half: g.TransitionWidth / (2 * g.CycleWidth),
	}
}

// RenderRow renders row r left to right. Each run produces its own
// primitives followed by the transition at its right boundary. A row with a
// phase is rendered past the grid, shifted left and clipped. A cycle-state
// kind without a rendering rule is a defect and yields a GEOMETRY_ERROR.
func (tr *TransitionRenderer) RenderRow(r int) ([]Primitive, error) {
	row := tr.tl.Rows[r]
	if row.Spacer() {
		return nil, nil
	}

	states, phase := phasedStates(row)
	runs := runsOf(states)
	for i := range runs {
		if _, _, ok := levels(runs[i].kind); !ok {
			return nil, schema.NewErrorf(schema.ErrCodeGeometry,
				"no rendering rule for %s state at cycle %d", runs[i].kind, runs[i].start).
				WithSignal(row.Name).
				WithDetails(map[string]any{"row": r, "cycle": runs[i].start, "kind": runs[i].kind.String()})
		}
	}

	var out []Primitive
	for i := range runs {
		var prev, next *run
		if i > 0 {
			prev = &runs[i-1]
		}
		if i+1 < len(runs) {
			next = &runs[i+1]
		}
		cur := &runs[i]
		left := tr.shapeAt(prev, cur)
		right := tr.shapeAt(cur, next)

		out = append(out, tr.segment(r, row, cur, prev, next, left, right)...)
		if right != shapeNone {
			out = append(out, tr.transition(r, cur, next, right))
		}
	}
	if phase > 0 {
		out = shiftRow(out, phase, tr.tl.Cycles)
	}
	return out, nil
}

// Breaks returns one break per gap column. Y spans the whole diagram: +1
// is the top of the first row and -1 the bottom of the last.
func (tr *TransitionRenderer) Breaks() []Primitive {
	out := make([]Primitive, 0, len(tr.tl.Gaps))
	for _, k := range tr.tl.Gaps {
		x := float64(k)
		out = append(out, Primitive{
			Kind:   PrimitiveBreak,
			Role:   RoleGap,
			Row:    -1,
			Cycle:  k,
			Points: []Point{{x, 1}, {x, -1}},
			Glyph:  tr.tl.Geometry.GapGlyph,
		})
	}
	return out
}

// shapeAt decides what to draw where a meets b. Nothing is drawn at the
// start of the row, at a gap column, or between identical non-data states.
func (tr *TransitionRenderer) shapeAt(a, b *run) shape {
	if a == nil || b == nil {
		return shapeNone
	}
	boundary := b.start
	if boundary == 0 || tr.tl.IsGap(boundary) {
		return shapeNone
	}
	if a.kind == b.kind && a.kind != wave.KindData {
		return shapeNone
	}

	switch {
	case a.band() && b.band():
		return shapeCross
	case a.band():
		return shapeClose
	case b.band():
		return shapeOpen
	case b.kind == wave.KindClockPositive || b.kind == wave.KindClockNegative:
		// the clock edge itself joins the levels
		return shapeNone
	}

	_, exit, _ := levels(a.kind)
	entry, _, _ := levels(b.kind)
	if exit == entry {
		return shapeNone
	}
	if slow(a.kind) || slow(b.kind) {
		return shapeSlow
	}
	return shapeStep
}

// segment draws the body of one run.
func (tr *TransitionRenderer) segment(r int, row *timeline.Row, cur, prev, next *run, left, right shape) []Primitive {
	s, e := float64(cur.start), float64(cur.end)
	entry, exit, _ := levels(cur.kind)

	switch cur.kind {
	case wave.KindClockPositive, wave.KindClockNegative:
		out := []Primitive{{
			Kind:   PrimitivePath,
			Role:   RoleEdge,
			Row:    r,
			Cycle:  cur.start,
			Points: []Point{{s, entry}, {s, exit}, {s + 1, exit}},
			Stroke: StrokeSolid,
			Arrow:  cur.state.Emphasis,
		}}
		if cur.end > cur.start+1 {
			out = append(out, Primitive{
				Kind:   PrimitivePath,
				Role:   RoleLevel,
				Row:    r,
				Cycle:  cur.start + 1,
				Points: []Point{{s + 1, exit}, {e, exit}},
				Stroke: StrokeSolid,
			})
		}
		return out

	case wave.KindUndefined, wave.KindData:
		return tr.band(r, row, cur, prev, next, left, right)
	}

	if left == shapeSlow {
		// the curve reaches the level one transition width in
		s += 2 * tr.half
	}
	return []Primitive{{
		Kind:   PrimitivePath,
		Role:   RoleLevel,
		Row:    r,
		Cycle:  cur.start,
		Points: []Point{{s, entry}, {e, entry}},
		Stroke: levelStroke(cur.kind),
	}}
}

// band draws a filled two-rail band. A sloped end narrows to an apex on the
// neighbour's level so the band meets the transition drawn at that boundary.
func (tr *TransitionRenderer) band(r int, row *timeline.Row, cur, prev, next *run, left, right shape) []Primitive {
	s, e := float64(cur.start), float64(cur.end)
	xl, xr := s, e
	if left != shapeNone {
		xl += tr.half
	}
	if right != shapeNone {
		xr -= tr.half
	}

	poly := []Point{{xl, 1}, {xr, 1}}
	if right != shapeNone {
		entry, _, _ := levels(next.kind)
		poly = append(poly, Point{e, entry})
	}
	poly = append(poly, Point{xr, -1}, Point{xl, -1})
	if left != shapeNone {
		_, exit, _ := levels(prev.kind)
		poly = append(poly, Point{s, exit})
	}

	fill := FillHatch
	if cur.kind == wave.KindData {
		fill = busFills[cur.state.Style]
		if fill == FillNone {
			fill = FillBus
		}
	}

	out := []Primitive{
		{
			Kind:   PrimitiveRegion,
			Role:   RoleBand,
			Row:    r,
			Cycle:  cur.start,
			Points: poly,
			Stroke: StrokeNone,
			Fill:   fill,
		},
		{
			Kind:   PrimitivePath,
			Role:   RoleBand,
			Row:    r,
			Cycle:  cur.start,
			Points: []Point{{xl, 1}, {xr, 1}, {xl, -1}, {xr, -1}},
			Moves:  []int{2},
			Stroke: StrokeSolid,
		},
	}

	if cur.kind == wave.KindData {
		if label := row.Label(cur.state.Segment); label != "" {
			out = append(out, Primitive{
				Kind:   PrimitiveText,
				Role:   RoleLabel,
				Row:    r,
				Cycle:  cur.start,
				Points: []Point{{(s + e) / 2, 0}},
				Text:   label,
				Align:  AlignCenter,
			})
		}
	}
	return out
}

// transition draws the boundary shape between cur and next. It belongs to
// the last cycle of cur.
func (tr *TransitionRenderer) transition(r int, cur, next *run, sh shape) Primitive {
	b := float64(next.start)
	h := tr.half
	_, la, _ := levels(cur.kind)
	lb, _, _ := levels(next.kind)

	p := Primitive{
		Kind:   PrimitivePath,
		Role:   RoleTransition,
		Row:    r,
		Cycle:  next.start - 1,
		Stroke: StrokeSolid,
	}
	switch sh {
	case shapeCross:
		p.Points = []Point{{b - h, 1}, {b + h, -1}, {b - h, -1}, {b + h, 1}}
		p.Moves = []int{2}
	case shapeClose:
		p.Points = []Point{{b - h, 1}, {b, lb}, {b - h, -1}}
	case shapeOpen:
		p.Points = []Point{{b + h, 1}, {b, la}, {b + h, -1}}
	case shapeStep:
		p.Points = []Point{{b, la}, {b, lb}}
		p.Arrow = next.state.Emphasis
	case shapeSlow:
		p.Points = slowCurve(b, la, b+2*h, lb)
		p.Stroke = levelStroke(next.kind)
	}
	return p
}

func levelStroke(k wave.Kind) Stroke {
	if k == wave.KindPullUp || k == wave.KindPullDown {
		return StrokeDotted
	}
	return StrokeSolid
}

// slowCurve samples the cubic from (x0, y0) to (x1, y1) that leaves
// horizontally and bends onto y1 a fifth of the way across.
func slowCurve(x0, y0, x1, y1 float64) []Point {
	c := x0 + 0.2*(x1-x0)
	pts := make([]Point, 0, slowSteps+1)
	for i := 0; i <= slowSteps; i++ {
		t := float64(i) / slowSteps
		u := 1 - t
		// control points: (x0, y0), (x0, y0), (c, y1), (x1, y1)
		x := (u*u*u+3*u*u*t)*x0 + 3*u*t*t*c + t*t*t*x1
		y := (u*u*u+3*u*u*t)*y0 + (3*u*t*t+t*t*t)*y1
		pts = append(pts, Point{X: x, Y: y})
	}
	return pts
}

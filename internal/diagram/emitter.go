package diagram

import (
	"sort"

	"github.com/rendis/wavetikz/internal/timeline"
	"github.com/rendis/wavetikz/pkg/schema"
)

// Emitter places grid-space primitives on the page and orders them.
type Emitter struct {
	geom   schema.Geometry
	rows   int
	cycles int
	prims  []Primitive
}

// NewEmitter creates an emitter for a grid of rows by cycles.
func NewEmitter(geom schema.Geometry, rows, cycles int) *Emitter {
	return &Emitter{geom: geom, rows: rows, cycles: cycles}
}

// height is the distance from the top of the first row to the bottom of
// the last one.
func (e *Emitter) height() float64 {
	if e.rows == 0 {
		return 0
	}
	return float64(e.rows)*e.geom.RowPitch() - e.geom.RowGap
}

// place converts a grid point on row r to absolute coordinates.
func (e *Emitter) place(p Point, r int) Point {
	top := float64(r) * e.geom.RowPitch()
	return Point{
		X: p.X * e.geom.CycleWidth,
		Y: top + (1-p.Y)/2*e.geom.RowHeight,
	}
}

// Add places prims and queues them for output.
func (e *Emitter) Add(prims ...Primitive) {
	for _, p := range prims {
		if p.Kind == PrimitiveBreak {
			e.prims = append(e.prims, e.breakGlyph(p))
			continue
		}
		placed := make([]Point, len(p.Points))
		for i, pt := range p.Points {
			placed[i] = e.place(pt, p.Row)
		}
		p.Points = placed
		e.prims = append(e.prims, p)
	}
}

// AddLabels queues the signal and group name labels to the left of the wave.
func (e *Emitter) AddLabels(tl *timeline.Timeline) {
	if !e.geom.ShowNames {
		return
	}
	x := -e.geom.LabelGap
	group := ""
	for r, row := range tl.Rows {
		if row.Spacer() {
			continue
		}
		top := float64(r) * e.geom.RowPitch()
		if row.Group != group && row.Group != "" {
			e.prims = append(e.prims, Primitive{
				Kind:   PrimitiveText,
				Role:   RoleGroup,
				Row:    r,
				Cycle:  -1,
				Points: []Point{{x, top - e.geom.RowGap/2}},
				Text:   row.Group,
				Align:  AlignRight,
			})
		}
		group = row.Group
		if row.Name == "" {
			continue
		}
		e.prims = append(e.prims, Primitive{
			Kind:   PrimitiveText,
			Role:   RoleName,
			Row:    r,
			Cycle:  -1,
			Points: []Point{{x, top + e.geom.RowHeight/2}},
			Text:   row.Name,
			Align:  AlignRight,
		})
	}
}

// breakGlyph expands a break into its glyph, spanning every row plus half a
// row gap above and below.
func (e *Emitter) breakGlyph(p Primitive) Primitive {
	x := float64(p.Cycle) * e.geom.CycleWidth
	top := -e.geom.RowGap / 2
	bottom := e.height() + e.geom.RowGap/2

	out := p
	out.Row = -1
	switch p.Glyph {
	case schema.GapGlyphLine:
		out.Points = []Point{{x, top}, {x, bottom}}
		out.Stroke = StrokeDashed
		out.Fill = FillNone
	default:
		w := e.geom.TransitionWidth
		s := w / 2
		out.Glyph = schema.GapGlyphSlash
		out.Points = []Point{
			{x - w/2 - s, bottom},
			{x - w/2 + s, top},
			{x + w/2 + s, top},
			{x + w/2 - s, bottom},
		}
		out.Stroke = StrokeSolid
		out.Fill = FillWhite
	}
	return out
}

// Diagram sorts the queued primitives and returns the finished diagram.
//
// Order: labels first (cycle -1), then cycle by cycle. Within a cycle the
// breaks at that column come first, then rows top to bottom, each row in
// generation order. A break at column k therefore follows everything
// attributed to cycle k-1 and precedes everything of cycle k.
func (e *Emitter) Diagram() *Diagram {
	prims := make([]Primitive, len(e.prims))
	copy(prims, e.prims)

	rank := func(p Primitive) int {
		if p.Kind == PrimitiveBreak {
			return 0
		}
		return 1
	}
	sort.SliceStable(prims, func(i, j int) bool {
		a, b := prims[i], prims[j]
		if a.Cycle != b.Cycle {
			return a.Cycle < b.Cycle
		}
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra < rb
		}
		return a.Row < b.Row
	})

	return &Diagram{
		Primitives: prims,
		Rows:       e.rows,
		Cycles:     e.cycles,
		Width:      float64(e.cycles) * e.geom.CycleWidth,
		Height:     e.height(),
		Geometry:   e.geom,
	}
}

package diagram

import "github.com/rendis/wavetikz/pkg/schema"

// PrimitiveKind classifies a drawing primitive.
type PrimitiveKind string

const (
	PrimitivePath   PrimitiveKind = "path"
	PrimitiveRegion PrimitiveKind = "region"
	PrimitiveText   PrimitiveKind = "text"
	PrimitiveBreak  PrimitiveKind = "break"
)

// Role tells writers which part of the waveform a primitive depicts.
type Role string

const (
	RoleName       Role = "name"
	RoleGroup      Role = "group"
	RoleLevel      Role = "level"
	RoleEdge       Role = "edge"
	RoleTransition Role = "transition"
	RoleBand       Role = "band"
	RoleLabel      Role = "label"
	RoleGap        Role = "gap"
)

// Stroke is the line style of a path.
type Stroke string

const (
	StrokeSolid  Stroke = "solid"
	StrokeDotted Stroke = "dotted"
	StrokeDashed Stroke = "dashed"
	StrokeNone   Stroke = "none"
)

// Fill is the fill style of a region or break glyph.
type Fill string

const (
	FillNone   Fill = ""
	FillHatch  Fill = "hatch"
	FillBus    Fill = "bus"
	FillYellow Fill = "yellow"
	FillOrange Fill = "orange"
	FillBlue   Fill = "blue"
	FillCyan   Fill = "cyan"
	FillGreen  Fill = "green"
	FillViolet Fill = "violet"
	FillRed    Fill = "red"
	FillWhite  Fill = "white"
)

// Align is the horizontal anchor of a text label.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Point is a 2D coordinate. Before emission X is in cycles and Y in levels
// (+1 high, 0 middle, -1 low); after emission both are absolute lengths with
// Y growing downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Primitive is one drawing instruction.
//
// Row is the signal row the primitive belongs to, -1 for breaks that span
// every row. Cycle is the cycle the primitive is attributed to for ordering;
// labels to the left of the wave use -1.
type Primitive struct {
	Kind   PrimitiveKind        `json:"kind"`
	Role   Role                 `json:"role"`
	Row    int                  `json:"row"`
	Cycle  int                  `json:"cycle"`
	Points []Point              `json:"points,omitempty"`
	Moves  []int                `json:"moves,omitempty"` // indices in Points that start a new subpath
	Stroke Stroke               `json:"stroke,omitempty"`
	Fill   Fill                 `json:"fill,omitempty"`
	Arrow  bool                 `json:"arrow,omitempty"` // arrow marker on the first segment
	Text   string               `json:"text,omitempty"`
	Align  Align                `json:"align,omitempty"`
	Glyph  schema.GapGlyphStyle `json:"glyph,omitempty"`
}

// Strokes returns the polylines a writer should stroke. For paths these are
// Points split at Moves; for a slash break they are the two slanted sides of
// the band; a line break is a single rule. Regions and text have none.
func (p Primitive) Strokes() [][]Point {
	switch p.Kind {
	case PrimitivePath:
		var out [][]Point
		start := 0
		for _, m := range p.Moves {
			if m > start && m <= len(p.Points) {
				out = append(out, p.Points[start:m])
				start = m
			}
		}
		if start < len(p.Points) {
			out = append(out, p.Points[start:])
		}
		return out
	case PrimitiveBreak:
		if p.Glyph == schema.GapGlyphSlash && len(p.Points) == 4 {
			return [][]Point{
				{p.Points[0], p.Points[1]},
				{p.Points[3], p.Points[2]},
			}
		}
		if len(p.Points) >= 2 {
			return [][]Point{p.Points[:2]}
		}
	}
	return nil
}

// Diagram is the ordered output of one translation.
type Diagram struct {
	Primitives []Primitive     `json:"primitives"`
	Rows       int             `json:"rows"`
	Cycles     int             `json:"cycles"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Geometry   schema.Geometry `json:"geometry"`
}

// Count returns how many primitives of the given kind the diagram holds.
func (d *Diagram) Count(kind PrimitiveKind) int {
	n := 0
	for _, p := range d.Primitives {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the primitives with the given role, in output order.
func (d *Diagram) Filter(role Role) []Primitive {
	var out []Primitive
	for _, p := range d.Primitives {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

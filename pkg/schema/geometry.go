package schema

// GapGlyphStyle selects how a timeline gap is drawn.
type GapGlyphStyle string

const (
	GapGlyphSlash GapGlyphStyle = "slash" // two parallel diagonal strokes over a white band
	GapGlyphLine  GapGlyphStyle = "line"  // single dashed vertical rule
)

// Geometry is the global grid configuration shared by every row.
// Lengths are in abstract units; writers choose the physical unit.
type Geometry struct {
	CycleWidth      float64       `json:"cycle_width"`
	RowHeight       float64       `json:"row_height"`
	RowGap          float64       `json:"row_gap"`
	TransitionWidth float64       `json:"transition_width"`
	LabelGap        float64       `json:"label_gap"`
	GapGlyph        GapGlyphStyle `json:"gap_glyph_style"`
	ShowNames       bool          `json:"show_names"`
}

// DefaultGeometry returns the geometry used when the caller provides none.
func DefaultGeometry() Geometry {
	return Geometry{
		CycleWidth:      2,
		RowHeight:       1,
		RowGap:          0.5,
		TransitionWidth: 0.3,
		LabelGap:        0.5,
		GapGlyph:        GapGlyphSlash,
		ShowNames:       true,
	}
}

// Validate checks that all lengths are positive and the glyph is known.
func (g Geometry) Validate() error {
	r := &ValidationResult{}
	if g.CycleWidth <= 0 {
		r.AddError("cycle_width", ErrCodeValidation, "cycle_width must be positive")
	}
	if g.RowHeight <= 0 {
		r.AddError("row_height", ErrCodeValidation, "row_height must be positive")
	}
	if g.RowGap < 0 {
		r.AddError("row_gap", ErrCodeValidation, "row_gap must not be negative")
	}
	if g.TransitionWidth <= 0 {
		r.AddError("transition_width", ErrCodeValidation, "transition_width must be positive")
	} else if g.CycleWidth > 0 && g.TransitionWidth > g.CycleWidth/2 {
		r.AddError("transition_width", ErrCodeValidation, "transition_width must not exceed half a cycle")
	}
	if g.LabelGap < 0 {
		r.AddError("label_gap", ErrCodeValidation, "label_gap must not be negative")
	}
	switch g.GapGlyph {
	case GapGlyphSlash, GapGlyphLine:
	default:
		r.AddError("gap_glyph_style", ErrCodeValidation, "gap_glyph_style must be slash or line")
	}
	return r.ToError()
}

// Scaled returns a copy with the cycle width multiplied by hscale.
func (g Geometry) Scaled(hscale float64) Geometry {
	if hscale > 0 {
		g.CycleWidth *= hscale
	}
	return g
}

// RowPitch is the vertical distance between the tops of adjacent rows.
func (g Geometry) RowPitch() float64 {
	return g.RowHeight + g.RowGap
}

package diagram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wavetikz/internal/timeline"
	"github.com/rendis/wavetikz/internal/wave"
	"github.com/rendis/wavetikz/pkg/schema"
)

func TestRenderRowClock(t *testing.T) {
	prims := renderRow(t, sig{name: "clk", wave: "p..."})

	require.Len(t, prims, 2)
	assert.Equal(t, RoleEdge, prims[0].Role)
	assert.Equal(t, []Point{{0, -1}, {0, 1}, {1, 1}}, prims[0].Points)
	assert.False(t, prims[0].Arrow)

	assert.Equal(t, RoleLevel, prims[1].Role)
	assert.Equal(t, []Point{{1, 1}, {4, 1}}, prims[1].Points)
	assert.Equal(t, 1, prims[1].Cycle)
}

func TestRenderRowEmphasisedClock(t *testing.T) {
	prims := renderRow(t, sig{name: "clk", wave: "N"})
	require.Len(t, prims, 1)
	assert.True(t, prims[0].Arrow)
	assert.Equal(t, []Point{{0, 1}, {0, -1}, {1, -1}}, prims[0].Points)
}

func TestRenderRowIdenticalLevelsHaveNoTransition(t *testing.T) {
	for _, w := range []string{"00", "11", "xx", "pp", "zz"} {
		t.Run(w, func(t *testing.T) {
			prims := renderRow(t, sig{name: "s", wave: w})
			assert.Empty(t, byRole(prims, RoleTransition))
		})
	}
}

func TestRenderRowLevelChangeHasOneTransition(t *testing.T) {
	prims := renderRow(t, sig{name: "s", wave: "01"})
	trans := byRole(prims, RoleTransition)
	require.Len(t, trans, 1)
	assert.Equal(t, []Point{{1, -1}, {1, 1}}, trans[0].Points)
	assert.Equal(t, 0, trans[0].Cycle)

	levelPaths := byRole(prims, RoleLevel)
	require.Len(t, levelPaths, 2)
	assert.Equal(t, []Point{{0, -1}, {1, -1}}, levelPaths[0].Points)
	assert.Equal(t, []Point{{1, 1}, {2, 1}}, levelPaths[1].Points)
}

func TestRenderRowEmphasisedStep(t *testing.T) {
	prims := renderRow(t, sig{name: "s", wave: "lH"})
	trans := byRole(prims, RoleTransition)
	require.Len(t, trans, 1)
	assert.True(t, trans[0].Arrow)
}

func TestRenderRowDataBus(t *testing.T) {
	prims := renderRow(t, sig{name: "data", wave: "x===.", labels: []string{"a", "b", "c"}})

	labels := byRole(prims, RoleLabel)
	require.Len(t, labels, 3)
	assert.Equal(t, "a", labels[0].Text)
	assert.Equal(t, "b", labels[1].Text)
	assert.Equal(t, "c", labels[2].Text)
	assert.Equal(t, []Point{{1.5, 0}}, labels[0].Points)
	assert.Equal(t, []Point{{2.5, 0}}, labels[1].Points)
	assert.Equal(t, []Point{{4, 0}}, labels[2].Points)
	for _, l := range labels {
		assert.Equal(t, AlignCenter, l.Align)
	}

	// x→a, a→b, b→c are band-to-band crossings
	trans := byRole(prims, RoleTransition)
	require.Len(t, trans, 3)
	for _, tr := range trans {
		assert.Equal(t, []int{2}, tr.Moves)
		assert.Len(t, tr.Points, 4)
	}

	regions := byRole(prims, RoleBand)
	var fills []Fill
	for _, p := range regions {
		if p.Kind == PrimitiveRegion {
			fills = append(fills, p.Fill)
		}
	}
	assert.Equal(t, []Fill{FillHatch, FillBus, FillBus, FillBus}, fills)
}

func TestRenderRowMissingLabelRendersNoText(t *testing.T) {
	prims := renderRow(t, sig{name: "d", wave: "===", labels: []string{"a", "b"}})
	labels := byRole(prims, RoleLabel)
	require.Len(t, labels, 2)
	assert.Equal(t, "a", labels[0].Text)
	assert.Equal(t, "b", labels[1].Text)

	var regions int
	for _, p := range prims {
		if p.Kind == PrimitiveRegion {
			regions++
		}
	}
	assert.Equal(t, 3, regions)
}

func TestRenderRowBusColours(t *testing.T) {
	prims := renderRow(t, sig{name: "d", wave: "3459", labels: []string{"a", "b", "c", "d"}})
	var fills []Fill
	for _, p := range prims {
		if p.Kind == PrimitiveRegion {
			fills = append(fills, p.Fill)
		}
	}
	assert.Equal(t, []Fill{FillYellow, FillOrange, FillBlue, FillRed}, fills)
}

func TestRenderRowBandShapes(t *testing.T) {
	h := schema.DefaultGeometry().TransitionWidth / (2 * schema.DefaultGeometry().CycleWidth)

	t.Run("level into band opens", func(t *testing.T) {
		prims := renderRow(t, sig{name: "s", wave: "1x"})
		trans := byRole(prims, RoleTransition)
		require.Len(t, trans, 1)
		assert.Equal(t, []Point{{1 + h, 1}, {1, 1}, {1 + h, -1}}, trans[0].Points)

		region := byRole(prims, RoleBand)[0]
		require.Equal(t, PrimitiveRegion, region.Kind)
		assert.Equal(t, []Point{{1 + h, 1}, {2, 1}, {2, -1}, {1 + h, -1}, {1, 1}}, region.Points)
	})

	t.Run("band into level closes", func(t *testing.T) {
		prims := renderRow(t, sig{name: "s", wave: "x0"})
		trans := byRole(prims, RoleTransition)
		require.Len(t, trans, 1)
		assert.Equal(t, []Point{{1 - h, 1}, {1, -1}, {1 - h, -1}}, trans[0].Points)
	})

	t.Run("band into clock closes on the clock entry level", func(t *testing.T) {
		prims := renderRow(t, sig{name: "s", wave: "xp"})
		trans := byRole(prims, RoleTransition)
		require.Len(t, trans, 1)
		assert.Equal(t, Point{1, -1}, trans[0].Points[1])
	})

	t.Run("level into clock is covered by the edge", func(t *testing.T) {
		prims := renderRow(t, sig{name: "s", wave: "1n0"})
		assert.Empty(t, byRole(prims, RoleTransition))
	})
}

func TestRenderRowPullAndHighZ(t *testing.T) {
	prims := renderRow(t, sig{name: "s", wave: "zud"})
	levelPaths := byRole(prims, RoleLevel)
	require.Len(t, levelPaths, 3)
	assert.Equal(t, StrokeSolid, levelPaths[0].Stroke)
	assert.Equal(t, 0.0, levelPaths[0].Points[0].Y)
	assert.Equal(t, StrokeDotted, levelPaths[1].Stroke)
	assert.Equal(t, StrokeDotted, levelPaths[2].Stroke)
	assert.Len(t, byRole(prims, RoleTransition), 2)
}

func TestRenderRowSlowTransitions(t *testing.T) {
	h := schema.DefaultGeometry().TransitionWidth / (2 * schema.DefaultGeometry().CycleWidth)

	tests := []struct {
		wave     string
		from, to float64
		stroke   Stroke
	}{
		{"1z", 1, 0, StrokeSolid},
		{"0z", -1, 0, StrokeSolid},
		{"z1", 0, 1, StrokeSolid},
		{"0u", -1, 1, StrokeDotted},
		{"1d", 1, -1, StrokeDotted},
		{"u0", 1, -1, StrokeSolid},
		{"pz", 1, 0, StrokeSolid},
	}
	for _, tt := range tests {
		t.Run(tt.wave, func(t *testing.T) {
			prims := renderRow(t, sig{name: "s", wave: tt.wave})
			trans := byRole(prims, RoleTransition)
			require.Len(t, trans, 1)
			tr := trans[0]
			assert.Equal(t, tt.stroke, tr.Stroke)
			assert.False(t, tr.Arrow)

			require.Greater(t, len(tr.Points), 2, "a slow transition is a curve, not a step")
			assert.Equal(t, Point{1, tt.from}, tr.Points[0])
			assert.Equal(t, Point{1 + 2*h, tt.to}, tr.Points[len(tr.Points)-1])
			for i := 1; i < len(tr.Points); i++ {
				assert.Greater(t, tr.Points[i].X, tr.Points[i-1].X, "the curve advances in x")
			}

			last := prims[len(prims)-1]
			require.Equal(t, RoleLevel, last.Role)
			assert.Equal(t, Point{1 + 2*h, tt.to}, last.Points[0], "the next level starts where the curve ends")
		})
	}
}

func TestRenderRowSlowAndStepPointCounts(t *testing.T) {
	prims := renderRow(t, sig{name: "s", wave: "ud"})
	trans := byRole(prims, RoleTransition)
	require.Len(t, trans, 1)
	assert.Len(t, trans[0].Points, slowSteps+1)

	prims = renderRow(t, sig{name: "s", wave: "10"})
	trans = byRole(prims, RoleTransition)
	require.Len(t, trans, 1)
	assert.Len(t, trans[0].Points, 2)
}

func TestRenderRowSuppressesTransitionAtGap(t *testing.T) {
	prims := renderRow(t, sig{name: "s", wave: "0|1"})
	assert.Empty(t, byRole(prims, RoleTransition))
	assert.Len(t, byRole(prims, RoleLevel), 2)
}

func TestRenderRowSpacer(t *testing.T) {
	tl := buildTimeline(t, schema.DefaultGeometry(), sig{name: "a", wave: "01"}, sig{})
	prims, err := NewTransitionRenderer(tl).RenderRow(1)
	require.NoError(t, err)
	assert.Empty(t, prims)
}

func TestRenderRowUnhandledKindIsGeometryError(t *testing.T) {
	tl, err := timeline.Build([]*wave.Trace{{
		Name: "broken",
		States: []wave.CycleState{
			{Kind: wave.KindLow, Resolved: wave.KindLow, Segment: wave.NoSegment},
			{Kind: wave.KindGap, Resolved: wave.KindGap, Segment: wave.NoSegment},
		},
	}}, schema.DefaultGeometry())
	require.NoError(t, err)

	_, err = NewTransitionRenderer(tl).RenderRow(0)
	require.Error(t, err)

	var werr *schema.WaveError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, schema.ErrCodeGeometry, werr.Code)
	assert.Equal(t, "broken", werr.Signal)

	_, err = Build(tl)
	require.Error(t, err)
	assert.True(t, errors.As(err, &werr))
}

func TestBreaks(t *testing.T) {
	tl := buildTimeline(t, schema.DefaultGeometry(),
		sig{name: "a", wave: "01|01"},
		sig{name: "b", wave: "0101"},
	)
	breaks := NewTransitionRenderer(tl).Breaks()
	require.Len(t, breaks, 1)
	assert.Equal(t, 2, breaks[0].Cycle)
	assert.Equal(t, -1, breaks[0].Row)
	assert.Equal(t, schema.GapGlyphSlash, breaks[0].Glyph)
}

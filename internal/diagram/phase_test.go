package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/wavetikz/pkg/schema"
)

func assertVisible(t *testing.T, prims []Primitive, cycles int) {
	t.Helper()
	for _, p := range prims {
		for _, pt := range p.Points {
			assert.GreaterOrEqual(t, pt.X, 0.0, "%s %+v", p.Role, p.Points)
			assert.LessOrEqual(t, pt.X, float64(cycles), "%s %+v", p.Role, p.Points)
		}
		assert.GreaterOrEqual(t, p.Cycle, 0)
		assert.Less(t, p.Cycle, cycles)
	}
}

func TestPhaseHalfCycle(t *testing.T) {
	prims := renderRow(t, sig{name: "s", wave: "01", phase: 0.5})
	assertVisible(t, prims, 2)

	levels := byRole(prims, RoleLevel)
	require.Len(t, levels, 2)
	assert.Equal(t, []Point{{0, -1}, {0.5, -1}}, levels[0].Points)
	assert.Equal(t, []Point{{0.5, 1}, {2, 1}}, levels[1].Points)

	trans := byRole(prims, RoleTransition)
	require.Len(t, trans, 1)
	assert.Equal(t, []Point{{0.5, -1}, {0.5, 1}}, trans[0].Points)
	assert.Equal(t, 0, trans[0].Cycle)
}

func TestPhaseWholeCycle(t *testing.T) {
	prims := renderRow(t, sig{name: "s", wave: "01", phase: 1})
	assertVisible(t, prims, 2)

	levels := byRole(prims, RoleLevel)
	require.Len(t, levels, 1, "the low cycle is shifted out of view")
	assert.Equal(t, []Point{{0, 1}, {2, 1}}, levels[0].Points)

	trans := byRole(prims, RoleTransition)
	require.Len(t, trans, 1)
	assert.Equal(t, []Point{{0, -1}, {0, 1}}, trans[0].Points)
}

func TestPhaseZeroIsUnchanged(t *testing.T) {
	plain := renderRow(t, sig{name: "s", wave: "x=.1p", labels: []string{"a"}})
	zero := renderRow(t, sig{name: "s", wave: "x=.1p", labels: []string{"a"}, phase: 0})
	assert.Equal(t, plain, zero)
}

func TestPhaseClipsBands(t *testing.T) {
	prims := renderRow(t, sig{name: "bus", wave: "=.=", labels: []string{"a", "b"}, phase: 0.5})
	assertVisible(t, prims, 3)

	regions := byRole(prims, RoleBand)
	require.NotEmpty(t, regions)
	first := regions[0]
	require.Equal(t, PrimitiveRegion, first.Kind)
	assert.Equal(t, 0.0, first.Points[0].X)

	labels := byRole(prims, RoleLabel)
	require.Len(t, labels, 2)
	assert.Equal(t, Point{0.5, 0}, labels[0].Points[0])
	assert.Equal(t, Point{2.5, 0}, labels[1].Points[0])
}

func TestPhaseDropsClippedArrow(t *testing.T) {
	prims := renderRow(t, sig{name: "clk", wave: "Pp", phase: 0.5})
	edges := byRole(prims, RoleEdge)
	require.Len(t, edges, 2)
	assert.False(t, edges[0].Arrow)
	assert.Equal(t, []Point{{0, 1}, {0.5, 1}}, edges[0].Points)
}

func TestPhaseRowWithGapStaysInBounds(t *testing.T) {
	tl := buildTimeline(t, schema.DefaultGeometry(),
		sig{name: "clk", wave: "p.....|..."},
		sig{name: "data", wave: "x.345x|=.x", labels: []string{"a", "b", "c", "d"}, phase: 0.25},
	)
	prims, err := NewTransitionRenderer(tl).RenderRow(1)
	require.NoError(t, err)
	require.NotEmpty(t, prims)
	assertVisible(t, prims, tl.Cycles)
}

func TestPhaseASCII(t *testing.T) {
	tl := buildTimeline(t, schema.DefaultGeometry(), sig{name: "s", wave: "01", phase: 0.5})
	assert.Equal(t, "__╱‾‾‾‾‾", string(asciiRow(tl, tl.Rows[0])))
}

func TestClipPolygon(t *testing.T) {
	square := []Point{{-1, 1}, {1, 1}, {1, -1}, {-1, -1}}
	assert.Equal(t, []Point{{0, 1}, {1, 1}, {1, -1}, {0, -1}}, clipPolygon(square, 0, 2))
	assert.Empty(t, clipPolygon(square, 2, 3))
}

func TestClipPathSplitsSubpaths(t *testing.T) {
	p := Primitive{
		Kind:   PrimitivePath,
		Points: []Point{{-1, 1}, {1, -1}, {-1, -1}, {1, 1}},
		Moves:  []int{2},
	}
	pts, moves := clipPath(p, 0, 2)
	assert.Equal(t, []Point{{0, 0}, {1, -1}, {0, 0}, {1, 1}}, pts)
	assert.Equal(t, []int{2}, moves)
}

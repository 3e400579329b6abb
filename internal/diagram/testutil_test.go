package diagram

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rendis/wavetikz/internal/timeline"
	"github.com/rendis/wavetikz/internal/wave"
	"github.com/rendis/wavetikz/pkg/schema"
)

// sig is a test signal: name, wave string, labels and phase.
type sig struct {
	name   string
	wave   string
	labels []string
	phase  float64
}

func buildTimeline(t *testing.T, geom schema.Geometry, sigs ...sig) *timeline.Timeline {
	t.Helper()
	traces := make([]*wave.Trace, len(sigs))
	for i, s := range sigs {
		if s.name == "" && s.wave == "" {
			continue // spacer
		}
		tr, err := wave.DecodeWithOptions(s.name, s.wave, s.labels, wave.Options{Phase: s.phase})
		require.NoError(t, err)
		traces[i] = tr
	}
	tl, err := timeline.Build(traces, geom)
	require.NoError(t, err)
	return tl
}

func buildDiagram(t *testing.T, sigs ...sig) *Diagram {
	t.Helper()
	d, err := Build(buildTimeline(t, schema.DefaultGeometry(), sigs...))
	require.NoError(t, err)
	return d
}

func renderRow(t *testing.T, s sig) []Primitive {
	t.Helper()
	tl := buildTimeline(t, schema.DefaultGeometry(), s)
	prims, err := NewTransitionRenderer(tl).RenderRow(0)
	require.NoError(t, err)
	return prims
}

func byRole(prims []Primitive, role Role) []Primitive {
	var out []Primitive
	for _, p := range prims {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

package diagram

import (
	"fmt"

	"github.com/rendis/wavetikz/internal/timeline"
)

// Build renders every row of the timeline and emits the ordered diagram.
// Any row failure aborts the whole build: geometry is only meaningful once
// every row has been laid out.
func Build(tl *timeline.Timeline) (*Diagram, error) {
	renderer := NewTransitionRenderer(tl)
	emitter := NewEmitter(tl.Geometry, len(tl.Rows), tl.Cycles)

	emitter.AddLabels(tl)
	for r := range tl.Rows {
		prims, err := renderer.RenderRow(r)
		if err != nil {
			return nil, fmt.Errorf("diagram: row %d: %w", r, err)
		}
		emitter.Add(prims...)
	}
	emitter.Add(renderer.Breaks()...)

	return emitter.Diagram(), nil
}

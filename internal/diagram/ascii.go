package diagram

import (
	"math"
	"strings"

	"github.com/rendis/wavetikz/internal/timeline"
	"github.com/rendis/wavetikz/internal/wave"
)

// asciiCell is the number of characters one cycle occupies.
const asciiCell = 4

// RenderASCII renders a timeline as a monospace text preview, one line per
// row, with "//" at every gap column.
func RenderASCII(tl *timeline.Timeline) string {
	nameWidth := 0
	for _, row := range tl.Rows {
		if n := len([]rune(row.Name)); n > nameWidth {
			nameWidth = n
		}
	}

	var b strings.Builder
	for _, row := range tl.Rows {
		b.WriteString(row.Name)
		b.WriteString(strings.Repeat(" ", nameWidth-len([]rune(row.Name))))
		b.WriteString(" │")

		if row.Spacer() {
			b.WriteByte('\n')
			continue
		}

		line := asciiRow(tl, row)
		for i := 0; i < tl.Cycles; i++ {
			if tl.IsGap(i) {
				b.WriteString("//")
			}
			b.WriteString(string(line[i*asciiCell : (i+1)*asciiCell]))
		}
		if tl.IsGap(tl.Cycles) {
			b.WriteString("//")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// asciiRow returns exactly Cycles*asciiCell runes for one row. A phase
// shifts the row left by the nearest whole character.
func asciiRow(tl *timeline.Timeline, row *timeline.Row) []rune {
	states, phase := phasedStates(row)
	runs := runsOf(states)
	out := make([]rune, 0, len(states)*asciiCell)
	for i := range runs {
		var prev *run
		if i > 0 && !tl.IsGap(runs[i].start) {
			prev = &runs[i-1]
		}
		out = append(out, asciiRun(row, &runs[i], prev)...)
	}
	shift := int(math.Round(phase * asciiCell))
	return out[shift : shift+tl.Cycles*asciiCell]
}

func asciiRun(row *timeline.Row, cur, prev *run) []rune {
	n := (cur.end - cur.start) * asciiCell
	fill := func(r rune) []rune {
		s := make([]rune, n)
		for i := range s {
			s[i] = r
		}
		return s
	}

	var prevExit float64
	if prev != nil {
		_, prevExit, _ = levels(prev.kind)
	}

	switch cur.kind {
	case wave.KindHigh:
		s := fill('‾')
		if prev != nil && prevExit < 1 {
			s[0] = '╱'
		}
		return s
	case wave.KindLow:
		s := fill('_')
		if prev != nil && prevExit > -1 {
			s[0] = '╲'
		}
		return s
	case wave.KindClockPositive:
		s := fill('‾')
		s[0] = '╱'
		return s
	case wave.KindClockNegative:
		s := fill('_')
		s[0] = '╲'
		return s
	case wave.KindHighZ:
		return fill('─')
	case wave.KindPullUp:
		return fill('\'')
	case wave.KindPullDown:
		return fill('.')
	case wave.KindData:
		s := fill('=')
		s[0] = '|'
		label := []rune(row.Label(cur.state.Segment))
		for i := 0; i < len(label) && i+1 < n; i++ {
			s[i+1] = label[i]
		}
		return s
	default:
		return fill('x')
	}
}

package diagram

import (
	"fmt"
	"strconv"
	"strings"
)

// TikZOptions control the TikZ writer.
type TikZOptions struct {
	// Unit is the TeX length one geometry unit maps to. Default: 1em.
	Unit string
	// Standalone wraps the picture in a compilable standalone document.
	Standalone bool
}

// tikzFills maps region fills to TikZ fill options.
var tikzFills = map[Fill]string{
	FillHatch:  "pattern=north east lines, pattern color=gray",
	FillBus:    "white",
	FillYellow: "yellow!40",
	FillOrange: "orange!40",
	FillBlue:   "blue!25",
	FillCyan:   "cyan!25",
	FillGreen:  "green!30",
	FillViolet: "violet!30",
	FillRed:    "red!30",
	FillWhite:  "white",
}

// RenderTikZ writes the diagram as a tikzpicture. The picture uses a
// downward y axis so emitted coordinates are used unchanged. It needs the
// patterns and decorations.markings libraries.
func RenderTikZ(d *Diagram, opts TikZOptions) string {
	unit := opts.Unit
	if unit == "" {
		unit = "1em"
	}

	var b strings.Builder
	if opts.Standalone {
		b.WriteString("\\documentclass[tikz]{standalone}\n")
		b.WriteString("\\usetikzlibrary{patterns,decorations.markings}\n")
		b.WriteString("\\begin{document}\n")
	}

	b.WriteString(fmt.Sprintf("\\begin{tikzpicture}[x=%s, y=-%s, line join=round,\n", unit, unit))
	b.WriteString("  wave arrow/.style={postaction={decorate}, decoration={markings, mark=at position 0.6 with {\\arrow{stealth}}}}]\n")

	for _, p := range d.Primitives {
		switch p.Kind {
		case PrimitivePath:
			writeTikZPath(&b, p)
		case PrimitiveRegion:
			if opt, ok := tikzFills[p.Fill]; ok {
				b.WriteString(fmt.Sprintf("  \\fill[%s] %s -- cycle;\n", opt, tikzPolyline(p.Points)))
			}
		case PrimitiveText:
			writeTikZNode(&b, p)
		case PrimitiveBreak:
			writeTikZBreak(&b, p)
		}
	}

	b.WriteString("\\end{tikzpicture}\n")
	if opts.Standalone {
		b.WriteString("\\end{document}\n")
	}
	return b.String()
}

func writeTikZPath(b *strings.Builder, p Primitive) {
	style := tikzStroke(p.Stroke)
	strokes := p.Strokes()
	parts := make([]string, 0, len(strokes))
	for _, s := range strokes {
		parts = append(parts, tikzPolyline(s))
	}
	b.WriteString(fmt.Sprintf("  \\draw%s %s;\n", style, strings.Join(parts, " ")))

	if p.Arrow && len(p.Points) >= 2 {
		b.WriteString(fmt.Sprintf("  \\draw[wave arrow] %s;\n", tikzPolyline(p.Points[:2])))
	}
}

func writeTikZNode(b *strings.Builder, p Primitive) {
	if len(p.Points) == 0 {
		return
	}
	anchor := ""
	switch p.Align {
	case AlignRight:
		anchor = "[anchor=east]"
	case AlignLeft:
		anchor = "[anchor=west]"
	}
	b.WriteString(fmt.Sprintf("  \\node%s at %s {%s};\n", anchor, tikzPoint(p.Points[0]), escapeTeX(p.Text)))
}

func writeTikZBreak(b *strings.Builder, p Primitive) {
	if p.Fill != FillNone && len(p.Points) > 2 {
		b.WriteString(fmt.Sprintf("  \\fill[%s] %s -- cycle;\n", tikzFills[p.Fill], tikzPolyline(p.Points)))
	}
	style := tikzStroke(p.Stroke)
	for _, s := range p.Strokes() {
		b.WriteString(fmt.Sprintf("  \\draw%s %s;\n", style, tikzPolyline(s)))
	}
}

func tikzStroke(s Stroke) string {
	switch s {
	case StrokeDotted:
		return "[dotted]"
	case StrokeDashed:
		return "[dashed]"
	}
	return ""
}

func tikzPolyline(pts []Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = tikzPoint(p)
	}
	return strings.Join(parts, " -- ")
}

func tikzPoint(p Point) string {
	return "(" + tikzNum(p.X) + "," + tikzNum(p.Y) + ")"
}

// tikzNum formats a coordinate with at most four decimals and no trailing
// zeros, so float noise never reaches the output.
func tikzNum(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

var texEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`%`, `\%`,
	`_`, `\_`,
	`^`, `\^{}`,
	`~`, `\~{}`,
)

func escapeTeX(s string) string {
	return texEscaper.Replace(s)
}

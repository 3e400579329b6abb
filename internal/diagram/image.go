package diagram

import (
	"image"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/rendis/wavetikz/pkg/schema"
)

// maxImageSide bounds either side of a PNG preview, in pixels.
const maxImageSide = 16384

// ImageOptions control the raster preview.
type ImageOptions struct {
	Scale  float64 // pixels per geometry unit (default: 20)
	Margin float64 // blank border in pixels (default: 10)
}

func (o ImageOptions) withDefaults() ImageOptions {
	if o.Scale <= 0 {
		o.Scale = 20
	}
	if o.Margin <= 0 {
		o.Margin = 10
	}
	return o
}

var imageFills = map[Fill]string{
	FillBus:    "#ffffff",
	FillYellow: "#fff2a8",
	FillOrange: "#ffd8a8",
	FillBlue:   "#bcd4ff",
	FillCyan:   "#bff3f3",
	FillGreen:  "#c8f0c0",
	FillViolet: "#e0c8f0",
	FillRed:    "#ffc8c8",
	FillWhite:  "#ffffff",
}

// RenderImage rasterises the diagram with gg.
func RenderImage(d *Diagram, opts ImageOptions) (image.Image, error) {
	opts = opts.withDefaults()

	measure := gg.NewContext(1, 1)
	labelWidth := 0.0
	for _, p := range d.Primitives {
		if p.Kind == PrimitiveText && p.Align == AlignRight {
			w, _ := measure.MeasureString(p.Text)
			labelWidth = math.Max(labelWidth, w+d.Geometry.LabelGap*opts.Scale)
		}
	}

	originX := opts.Margin + labelWidth
	originY := opts.Margin + d.Geometry.RowGap*opts.Scale
	width := int(math.Ceil(originX + d.Width*opts.Scale + opts.Margin))
	height := int(math.Ceil(originY + (d.Height+d.Geometry.RowGap)*opts.Scale + opts.Margin))
	if width > maxImageSide || height > maxImageSide {
		return nil, schema.NewErrorf(schema.ErrCodeRender,
			"image of %dx%d pixels exceeds the %d pixel limit", width, height, maxImageSide)
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetLineWidth(1.5)

	px := func(p Point) (float64, float64) {
		return originX + p.X*opts.Scale, originY + p.Y*opts.Scale
	}
	polygon := func(pts []Point) {
		dc.NewSubPath()
		for i, p := range pts {
			x, y := px(p)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
	}
	polyline := func(pts []Point) {
		for i, p := range pts {
			x, y := px(p)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
	}
	stroke := func(s Stroke) {
		switch s {
		case StrokeDotted:
			dc.SetDash(2, 3)
		case StrokeDashed:
			dc.SetDash(6, 4)
		default:
			dc.SetDash()
		}
		dc.SetRGB(0, 0, 0)
		dc.Stroke()
		dc.SetDash()
	}

	for _, p := range d.Primitives {
		switch p.Kind {
		case PrimitiveRegion:
			if p.Fill == FillHatch {
				hatch(dc, p.Points, px, opts.Scale)
				continue
			}
			if hex, ok := imageFills[p.Fill]; ok {
				polygon(p.Points)
				dc.SetHexColor(hex)
				dc.Fill()
			}

		case PrimitivePath:
			for _, s := range p.Strokes() {
				polyline(s)
			}
			stroke(p.Stroke)
			if p.Arrow && len(p.Points) >= 2 {
				arrowHead(dc, px, p.Points[0], p.Points[1])
			}

		case PrimitiveBreak:
			if hex, ok := imageFills[p.Fill]; ok && len(p.Points) > 2 {
				polygon(p.Points)
				dc.SetHexColor(hex)
				dc.Fill()
			}
			for _, s := range p.Strokes() {
				polyline(s)
			}
			stroke(p.Stroke)

		case PrimitiveText:
			if len(p.Points) == 0 {
				continue
			}
			x, y := px(p.Points[0])
			ax := 0.5
			switch p.Align {
			case AlignRight:
				ax = 1
			case AlignLeft:
				ax = 0
			}
			dc.SetRGB(0, 0, 0)
			dc.DrawStringAnchored(p.Text, x, y, ax, 0.35)
		}
	}

	return dc.Image(), nil
}

// EncodePNG renders the diagram and writes it as PNG.
func EncodePNG(w io.Writer, d *Diagram, opts ImageOptions) error {
	img, err := RenderImage(d, opts)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	return dc.EncodePNG(w)
}

// hatch fills a polygon with light diagonal lines.
func hatch(dc *gg.Context, pts []Point, px func(Point) (float64, float64), scale float64) {
	if len(pts) == 0 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	dc.NewSubPath()
	for i, p := range pts {
		x, y := px(p)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
	dc.Clip()

	step := math.Max(scale/4, 3)
	h := maxY - minY
	for x := minX - h; x < maxX; x += step {
		dc.DrawLine(x, maxY, x+h, minY)
	}
	dc.SetRGB(0.55, 0.55, 0.55)
	dc.SetLineWidth(1)
	dc.Stroke()
	dc.SetLineWidth(1.5)
	dc.ResetClip()
}

// arrowHead draws a small filled triangle at the middle of a→b.
func arrowHead(dc *gg.Context, px func(Point) (float64, float64), a, b Point) {
	x1, y1 := px(a)
	x2, y2 := px(b)
	angle := math.Atan2(y2-y1, x2-x1)
	mx, my := (x1+x2)/2, (y1+y2)/2
	const size = 5.0

	dc.MoveTo(mx+size*math.Cos(angle), my+size*math.Sin(angle))
	dc.LineTo(mx+size*math.Cos(angle+2.5), my+size*math.Sin(angle+2.5))
	dc.LineTo(mx+size*math.Cos(angle-2.5), my+size*math.Sin(angle-2.5))
	dc.ClosePath()
	dc.SetRGB(0, 0, 0)
	dc.Fill()
}

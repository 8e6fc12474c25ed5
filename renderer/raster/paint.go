package raster

import (
	"image"

	"github.com/fogleman/gg"

	"github.com/ByLCY/qlabel/layout"
)

// Paint draws placed lines onto dst. Boxes come from a previous Measure
// call; nothing is measured again.
func Paint(dst *image.RGBA, placements []layout.Placement) error {
	ts := newTypesetter()
	defer ts.close()

	dc := gg.NewContextForRGBA(dst)
	for _, p := range placements {
		l := p.Line
		ink := l.Tint.Color()
		if l.Inverted {
			r := p.Background
			dc.SetColor(ink)
			dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
			dc.Fill()
			ink = layout.White
		}
		if l.Todo {
			drawCheckbox(dc, p.Checkbox, l.Tint)
		}
		if l.Text == "" {
			continue
		}
		face, err := ts.face(l.Font, l.Size)
		if err != nil {
			return err
		}
		dc.SetFontFace(face)
		dc.SetColor(ink)
		dc.DrawString(l.Text, float64(p.Origin.X), float64(p.Origin.Y))
	}
	return nil
}

func drawCheckbox(dc *gg.Context, r image.Rectangle, tint layout.Tint) {
	side := float64(r.Dx())
	stroke := max(side/10, 1)
	x, y := float64(r.Min.X)+stroke/2, float64(r.Min.Y)+stroke/2
	w, h := side-stroke, float64(r.Dy())-stroke
	dc.DrawRoundedRectangle(x, y, w, h, side/5)
	dc.SetColor(layout.White)
	dc.FillPreserve()
	dc.SetColor(tint.Color())
	dc.SetLineWidth(stroke)
	dc.Stroke()
}

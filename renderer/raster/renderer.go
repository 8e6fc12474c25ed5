package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/ByLCY/qlabel/fonts"
	"github.com/ByLCY/qlabel/layout"
	"github.com/ByLCY/qlabel/renderer"
)

// FontSource provides the font used for otherwise empty labels.
type FontSource interface {
	DefaultFont() (*fonts.Font, error)
}

// Renderer turns label specs into bitmaps. It holds configuration only and
// is safe for concurrent use.
type Renderer struct {
	Content     layout.ContentGenerator
	Fonts       FontSource
	DefaultSize int
	// Preview is used by Render, which implements renderer.Renderer.
	Preview bool
}

var _ renderer.Renderer = (*Renderer)(nil)

// GenerateOptions select between preview and print output.
type GenerateOptions struct {
	// Preview turns the canvas upright for people when the label leaves the
	// printer sideways. Print jobs never set it.
	Preview bool
}

// Layout computes the geometry of spec.
func (r *Renderer) Layout(spec layout.Spec) (*layout.Result, error) {
	opts := layout.BuildOptions{
		Measurer:    Measurer{},
		Content:     r.Content,
		DefaultSize: r.DefaultSize,
	}
	if r.Fonts != nil {
		f, err := r.Fonts.DefaultFont()
		if err != nil {
			return nil, fmt.Errorf("default font: %w", err)
		}
		opts.DefaultFont = f
	}
	if opts.DefaultSize < 1 {
		opts.DefaultSize = 40
	}
	return layout.Build(spec, opts)
}

// Generate lays out and composites spec.
func (r *Renderer) Generate(spec layout.Spec, opts GenerateOptions) (image.Image, *layout.Result, error) {
	res, err := r.Layout(spec)
	if err != nil {
		return nil, nil, err
	}
	img, err := Compose(res, opts.Preview)
	if err != nil {
		return nil, res, err
	}
	return img, res, nil
}

// Render implements renderer.Renderer and returns PNG bytes.
func (r *Renderer) Render(res *layout.Result) ([]byte, error) {
	img, err := Compose(res, r.Preview)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

// Compose paints a layout result onto a white canvas, turns it for
// previews when needed and draws the border last.
func Compose(res *layout.Result, preview bool) (image.Image, error) {
	if res == nil {
		return nil, errors.New("raster: nil layout result")
	}
	canvas := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(layout.White), image.Point{}, draw.Src)

	if res.Content != nil {
		b := res.Content.Bounds()
		dst := image.Rectangle{Min: res.ContentAt, Max: res.ContentAt.Add(b.Size())}
		draw.Draw(canvas, dst, res.Content, b.Min, draw.Over)
	}
	if res.WantsText {
		if err := Paint(canvas, res.Placements); err != nil {
			return nil, err
		}
	}

	var out image.Image = canvas
	if preview && layout.NeedsPreviewRotation(res.Orientation, res.Media) {
		out = imaging.Rotate270(canvas)
	}
	return drawBorder(out, res.Border)
}

func drawBorder(img image.Image, b layout.Border) (image.Image, error) {
	r, ok, err := layout.BorderRect(b, img.Bounds().Dx(), img.Bounds().Dy())
	if err != nil || !ok {
		return img, err
	}
	dc := gg.NewContextForImage(img)
	t := float64(b.Thickness)
	x, y := float64(r.Min.X)+t/2, float64(r.Min.Y)+t/2
	w, h := float64(r.Dx())-t, float64(r.Dy())-t
	if b.Radius > 0 {
		dc.DrawRoundedRectangle(x, y, w, h, float64(b.Radius))
	} else {
		dc.DrawRectangle(x, y, w, h)
	}
	dc.SetColor(b.Tint.Color())
	dc.SetLineWidth(t)
	dc.Stroke()
	return dc.Image(), nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

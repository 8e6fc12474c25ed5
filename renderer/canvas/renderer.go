// Package canvasrenderer exports a laid out label as a PDF page at its
// physical size via github.com/tdewolff/canvas.
package canvasrenderer

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/qlabel/fonts"
	"github.com/ByLCY/qlabel/layout"
	"github.com/ByLCY/qlabel/renderer"
	"github.com/ByLCY/qlabel/renderer/raster"
)

// Renderer draws layout results as PDF. Text, frames and checkboxes stay
// vectors; the content bitmap is embedded at device resolution.
type Renderer struct {
	dpi     float64
	preview bool
	meta    Meta

	fontMu       sync.Mutex
	fontFamilies map[fontKey]*fontFamilyEntry
}

var _ renderer.Renderer = (*Renderer)(nil)

type fontKey struct {
	family, style, path string
}

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Meta is written into the PDF info dictionary.
type Meta struct {
	Title   string
	Subject string
	Creator string
}

// Options configures the renderer.
type Options struct {
	// DPI is the resolution the layout was computed for; 300 when zero.
	DPI int
	// Preview turns sideways labels upright, like the PNG preview does.
	Preview bool
	Meta    Meta
}

// NewRenderer creates a PDF renderer.
func NewRenderer(opts Options) *Renderer {
	dpi := float64(opts.DPI)
	if dpi <= 0 {
		dpi = layout.DPI
	}
	meta := opts.Meta
	if meta.Creator == "" {
		meta.Creator = "qlabel"
	}
	return &Renderer{
		dpi:          dpi,
		preview:      opts.Preview,
		meta:         meta,
		fontFamilies: map[fontKey]*fontFamilyEntry{},
	}
}

// Render renders the result into a single page PDF.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, errors.New("render pdf: nil layout result")
	}
	if _, _, err := layout.BorderRect(result.Border, result.Width, result.Height); err != nil {
		return nil, err
	}

	// a turned preview is the raster composite on a turned page
	if r.preview && layout.NeedsPreviewRotation(result.Orientation, result.Media) {
		return r.renderBitmap(result)
	}

	w, h := r.mm(result.Width), r.mm(result.Height)
	var buf bytes.Buffer
	writer := pdf.New(&buf, w, h, nil)
	r.applyMeta(writer)

	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)

	ctx.SetFillColor(canvas.White)
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.DrawPath(0, 0, canvas.Rectangle(w, h))

	if result.Content != nil {
		ctx.DrawImage(r.mm(result.ContentAt.X), r.mm(result.ContentAt.Y), result.Content, canvas.DPMM(r.dpi/layout.MmPerInch))
	}
	if result.WantsText {
		if err := r.drawPlacements(ctx, result.Placements); err != nil {
			return nil, err
		}
	}
	r.drawBorder(ctx, result.Border, result.Width, result.Height)

	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) renderBitmap(result *layout.Result) ([]byte, error) {
	img, err := raster.Compose(result, true)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := r.mm(b.Dx()), r.mm(b.Dy())

	var buf bytes.Buffer
	writer := pdf.New(&buf, w, h, nil)
	r.applyMeta(writer)
	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)
	ctx.DrawImage(0, 0, img, canvas.DPMM(r.dpi/layout.MmPerInch))
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF) {
	writer.SetInfo(r.meta.Title, r.meta.Subject, "label", "", r.meta.Creator)
}

func (r *Renderer) drawPlacements(ctx *canvas.Context, placements []layout.Placement) error {
	for _, p := range placements {
		l := p.Line
		ink := l.Tint.Color()
		if l.Inverted {
			bg := p.Background
			ctx.SetFillColor(ink)
			ctx.SetStrokeColor(canvas.Transparent)
			ctx.DrawPath(r.mm(bg.Min.X), r.mm(bg.Min.Y), canvas.Rectangle(r.mm(bg.Dx()), r.mm(bg.Dy())))
			ink = layout.White
		}
		if l.Todo {
			r.drawCheckbox(ctx, p, l.Tint.Color())
		}
		if l.Text == "" {
			continue
		}
		face, err := r.fontFace(l.Font, r.pt(l.Size), ink)
		if err != nil {
			return err
		}
		line := canvas.NewTextLine(face, l.Text, canvas.Left)
		ctx.DrawText(r.mm(p.Origin.X), r.mm(p.Origin.Y), line)
	}
	return nil
}

func (r *Renderer) drawCheckbox(ctx *canvas.Context, p layout.Placement, ink color.Color) {
	box := p.Checkbox
	side := r.mm(box.Dx())
	stroke := max(side/10, r.mm(1))
	ctx.SetFillColor(canvas.White)
	ctx.SetStrokeColor(ink)
	ctx.SetStrokeWidth(stroke)
	ctx.DrawPath(r.mm(box.Min.X)+stroke/2, r.mm(box.Min.Y)+stroke/2,
		canvas.RoundedRectangle(side-stroke, r.mm(box.Dy())-stroke, side/5))
}

func (r *Renderer) drawBorder(ctx *canvas.Context, b layout.Border, width, height int) {
	rect, ok, err := layout.BorderRect(b, width, height)
	if err != nil || !ok {
		return
	}
	t := r.mm(b.Thickness)
	w, h := r.mm(rect.Dx())-t, r.mm(rect.Dy())-t
	var path *canvas.Path
	if b.Radius > 0 {
		path = canvas.RoundedRectangle(w, h, r.mm(b.Radius))
	} else {
		path = canvas.Rectangle(w, h)
	}
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(b.Tint.Color())
	ctx.SetStrokeWidth(t)
	ctx.DrawPath(r.mm(rect.Min.X)+t/2, r.mm(rect.Min.Y)+t/2, path)
}

func (r *Renderer) fontFace(font *fonts.Font, size float64, col color.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(size, col, style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font *fonts.Font) (*canvas.FontFamily, canvas.FontStyle, error) {
	if font == nil || len(font.Data()) == 0 {
		return nil, canvas.FontRegular, errors.New("render pdf: font not loaded")
	}
	key := fontKey{family: font.Family, style: font.Style, path: font.Path}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}
	style := parseFontStyle(font.Style)
	family := canvas.NewFontFamily(font.Family)
	if err := family.LoadFont(font.Data(), 0, style); err != nil {
		return nil, canvas.FontRegular, fmt.Errorf("load font %s %s: %w", font.Family, font.Style, err)
	}
	entry := &fontFamilyEntry{family: family, style: style}
	r.fontFamilies[key] = entry
	return family, style, nil
}

func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(style)
	var result canvas.FontStyle
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	default:
		result = canvas.FontRegular
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

// mm converts device dots to millimetres.
func (r *Renderer) mm(dots int) float64 { return float64(dots) * layout.MmPerInch / r.dpi }

// pt converts a font size in dots to points.
func (r *Renderer) pt(dots int) float64 { return float64(dots) * 72 / r.dpi }

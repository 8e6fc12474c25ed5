package designer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/qlabel/config"
	"github.com/ByLCY/qlabel/content"
	"github.com/ByLCY/qlabel/fonts"
	"github.com/ByLCY/qlabel/layout"
	"github.com/ByLCY/qlabel/logging"
	"github.com/ByLCY/qlabel/media"
	"github.com/ByLCY/qlabel/printer"
	"github.com/ByLCY/qlabel/ql"
	canvasrenderer "github.com/ByLCY/qlabel/renderer/canvas"
	"github.com/ByLCY/qlabel/renderer/raster"
)

// FontSource resolves fonts by family and style. *fonts.Registry and
// *fonts.Store implement it.
type FontSource interface {
	Lookup(family, style string) (*fonts.Font, error)
	DefaultFont() (*fonts.Font, error)
}

// Service renders previews and print jobs. It holds configuration only and
// is safe for concurrent use.
type Service struct {
	cfg      config.Config
	model    media.Model
	fonts    FontSource
	renderer *raster.Renderer

	now       func() time.Time
	transport func(device string) (printer.Transport, error)
	status    printer.Opener
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for {{datetime}} when a request carries no
// timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTransport replaces ql.Open for print jobs.
func WithTransport(f func(device string) (printer.Transport, error)) Option {
	return func(s *Service) { s.transport = f }
}

// WithStatusOpener replaces ql.Open for status probes.
func WithStatusOpener(o printer.Opener) Option {
	return func(s *Service) { s.status = o }
}

// NewService validates cfg and prepares the renderer.
func NewService(cfg config.Config, fs FontSource, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := cfg.Model()
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:   cfg,
		model: model,
		fonts: fs,
		renderer: &raster.Renderer{
			Content:     content.NewGenerator(),
			Fonts:       fs,
			DefaultSize: cfg.Label.FontSize,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Label is a request resolved against the catalogues.
type Label struct {
	Spec    layout.Spec
	Media   media.Label
	HighRes bool
}

// DPI is the resolution the label is laid out at.
func (l *Label) DPI() int {
	if l.HighRes {
		return layout.DPIHigh
	}
	return layout.DPI
}

// PrintRotation is how a canvas must be turned for the print head.
func PrintRotation(o layout.Orientation, f media.FormFactor) ql.Rotation {
	switch {
	case f.DieCut():
		return ql.RotateAuto
	case o == layout.Rotated:
		return ql.Rotate90
	default:
		return ql.RotateNone
	}
}

// Dither reports whether the printed bitmap should be dithered. Only 1-bit
// image content is sent as is.
func (l *Label) Dither() bool {
	c := l.Spec.Content
	return !(c.Kind == layout.KindImage && c.ImageMode == layout.ModeBlackWhite)
}

// Barcodes lists the supported code names, QR first.
func (s *Service) Barcodes() []string { return content.Symbologies() }

// BuildLabel validates req and turns it into a layout spec. counter feeds
// {{counter}}.
func (s *Service) BuildLabel(req *Request, counter int) (*Label, error) {
	if req == nil {
		return nil, validation("Empty request")
	}
	cfg := s.cfg.Label

	size := firstNonEmpty(req.LabelSize, cfg.Size)
	lbl, err := media.LookupLabel(size)
	if err != nil {
		return nil, &Error{Kind: KindLookup, Message: "Unknown label_size", Err: err}
	}
	orientation, err := layout.ParseOrientation(firstNonEmpty(req.Orientation, cfg.Orientation))
	if err != nil {
		return nil, validation(err.Error())
	}

	kind, err := printKind(req.PrintType)
	if err != nil {
		return nil, err
	}
	if len(req.Image) > 0 && kind != layout.KindImage {
		return nil, validation(fmt.Sprintf("An image was uploaded but print_type is %q", req.PrintType))
	}

	tint, err := parseTint(req.PrintColor)
	if err != nil {
		return nil, err
	}
	borderTint, err := parseTint(req.BorderColor)
	if err != nil {
		return nil, err
	}

	lines, err := s.lines(req.Text)
	if err != nil {
		return nil, err
	}

	c := layout.Content{
		Kind:      kind,
		Symbology: firstNonEmpty(strings.ToUpper(req.BarcodeType), "QR"),
		QR: layout.QROptions{
			BoxSize:    positiveOr(req.QRCodeSize, cfg.QRSize),
			Correction: firstNonEmpty(strings.ToUpper(req.QRCodeCorrection), "L"),
		},
		Threshold: s.cfg.Image.BWThreshold,
	}
	if req.ImageBWThreshold != nil {
		c.Threshold = *req.ImageBWThreshold
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return nil, validation("image_bw_threshold must be between 0 and 100")
	}
	if c.ImageMode, err = layout.ParseImageMode(firstNonEmpty(req.ImageMode, s.cfg.Image.Mode)); err != nil {
		return nil, validation(err.Error())
	}
	if kind == layout.KindImage {
		if len(req.Image) == 0 {
			return nil, validation("No image supplied")
		}
		if s.cfg.Label.MaxImageBytes > 0 && int64(len(req.Image)) > s.cfg.Label.MaxImageBytes {
			return nil, tooLarge("Image is too large")
		}
		if c.Image, err = content.Decode(req.Image, req.ImageName); err != nil {
			return nil, classify(err)
		}
	}

	highRes := req.HighRes
	width, height := lbl.Printable(highRes)
	if height > width {
		width, height = height, width
	}
	if orientation == layout.Rotated {
		width, height = height, width
	}

	margin := cfg.Margin(layout.DPI)
	override(&margin.Top, req.MarginTop)
	override(&margin.Bottom, req.MarginBottom)
	override(&margin.Left, req.MarginLeft)
	override(&margin.Right, req.MarginRight)

	border := layout.Border{
		Thickness: cfg.BorderThickness,
		Radius:    req.BorderRoundness,
		InsetX:    req.BorderDistanceX,
		InsetY:    req.BorderDistanceY,
		Tint:      borderTint,
	}
	override(&border.Thickness, req.BorderThickness)

	ts := s.now()
	if req.Timestamp > 0 {
		ts = time.Unix(req.Timestamp, 0)
	}

	spec := layout.Spec{
		Width:       width,
		Height:      height,
		Content:     c,
		Orientation: orientation,
		Media:       lbl.FormFactor,
		Margin:      margin,
		Lines:       lines,
		Fit:         req.ImageFit == nil || *req.ImageFit,
		Border:      border,
		Tint:        tint,
		Counter:     counter,
		Timestamp:   ts,
	}
	if err := s.applyRedPolicy(&spec, lbl); err != nil {
		return nil, err
	}
	return &Label{Spec: spec, Media: lbl, HighRes: highRes}, nil
}

func (s *Service) lines(in []TextLine) ([]layout.Line, error) {
	cfg := s.cfg.Label
	out := make([]layout.Line, 0, len(in))
	for _, tl := range in {
		if tl.Size == nil {
			return nil, validation("Font size is required")
		}
		if *tl.Size < 1 {
			return nil, validation("Font size must be at least 1")
		}
		text := norm.NFC.String(tl.Text)
		if utf8.RuneCountInString(text) > cfg.MaxTextLength {
			return nil, tooLarge("Text is too long")
		}
		align, err := layout.ParseAlign(firstNonEmpty(tl.Align, "center"))
		if err != nil {
			return nil, validation(err.Error())
		}
		tint, err := parseTint(tl.Color)
		if err != nil {
			return nil, err
		}
		f, err := s.font(tl.Family, tl.Style)
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, layout.Line{
			Text:        text,
			Font:        f,
			Size:        *tl.Size,
			Align:       align,
			LineSpacing: positiveOr(tl.LineSpacing, cfg.LineSpacing),
			Tint:        tint,
			Inverted:    tl.Inverted,
			Todo:        tl.Todo,
		})
	}
	return out, nil
}

func (s *Service) font(family, style string) (*fonts.Font, error) {
	if family == "" {
		def, err := s.fonts.DefaultFont()
		if err != nil || style == "" {
			return def, err
		}
		family = def.Family
	}
	return s.fonts.Lookup(family, style)
}

// applyRedPolicy handles red on a printer or tape without a red plane.
func (s *Service) applyRedPolicy(spec *layout.Spec, lbl media.Label) error {
	if lbl.Red && s.model.TwoColor {
		return nil
	}
	usesRed := spec.Tint == layout.TintRed || spec.Border.Tint == layout.TintRed ||
		(spec.Content.Kind == layout.KindImage && spec.Content.ImageMode == layout.ModeRedBlack)
	for _, l := range spec.Lines {
		usesRed = usesRed || l.Tint == layout.TintRed
	}
	if !usesRed {
		return nil
	}
	if strings.EqualFold(s.cfg.Printer.RedPolicy, config.RedReject) {
		return validation(fmt.Sprintf("Red printing needs a two-color printer and red tape (%s, label %s)", s.model.ID, lbl.ID))
	}
	logging.Logger().Debug("red content printed black", "model", s.model.ID, "label", lbl.ID)
	spec.Tint = layout.TintBlack
	spec.Border.Tint = layout.TintBlack
	if spec.Content.ImageMode == layout.ModeRedBlack {
		spec.Content.ImageMode = layout.ModeGrayscale
	}
	for i := range spec.Lines {
		spec.Lines[i].Tint = layout.TintBlack
	}
	return nil
}

// Layout computes the geometry of a request without drawing it.
func (s *Service) Layout(req *Request) (*layout.Result, error) {
	lbl, err := s.BuildLabel(req, req.startCounter())
	if err != nil {
		return nil, err
	}
	res, err := s.renderer.Layout(lbl.Spec)
	return res, classify(err)
}

// Preview formats.
const (
	FormatPNG    = "png"
	FormatBase64 = "base64"
	FormatPDF    = "pdf"
)

// RenderPreview renders req as people will see it and returns the encoded
// preview with its content type.
func (s *Service) RenderPreview(req *Request, format string) ([]byte, string, error) {
	lbl, err := s.BuildLabel(req, req.startCounter())
	if err != nil {
		return nil, "", err
	}
	switch strings.ToLower(firstNonEmpty(format, FormatPNG)) {
	case FormatPNG, FormatBase64:
		img, _, err := s.renderer.Generate(lbl.Spec, raster.GenerateOptions{Preview: true})
		if err != nil {
			return nil, "", classify(err)
		}
		data, err := raster.EncodePNG(img)
		if err != nil {
			return nil, "", err
		}
		if strings.EqualFold(format, FormatBase64) {
			return []byte(base64.StdEncoding.EncodeToString(data)), "text/plain", nil
		}
		return data, "image/png", nil
	case FormatPDF:
		res, err := s.renderer.Layout(lbl.Spec)
		if err != nil {
			return nil, "", classify(err)
		}
		pdf := canvasrenderer.NewRenderer(canvasrenderer.Options{
			DPI:     lbl.DPI(),
			Preview: true,
			Meta:    canvasrenderer.Meta{Title: lbl.Media.Name},
		})
		data, err := pdf.Render(res)
		if err != nil {
			return nil, "", classify(err)
		}
		return data, "application/pdf", nil
	}
	return nil, "", validation(fmt.Sprintf("Unsupported return format: %s", format))
}

// RenderAndQueue renders req for the print head and appends it to q.
func (s *Service) RenderAndQueue(q *printer.Queue, req *Request, counter int, cut bool) error {
	lbl, err := s.BuildLabel(req, counter)
	if err != nil {
		return err
	}
	if q.Label().ID != lbl.Media.ID {
		return validation(fmt.Sprintf("Queue prints on %s, request wants %s", q.Label().ID, lbl.Media.ID))
	}
	img, _, err := s.renderer.Generate(lbl.Spec, raster.GenerateOptions{})
	if err != nil {
		return classify(err)
	}
	q.Enqueue(img, cut, lbl.HighRes,
		printer.WithDither(lbl.Dither()),
		printer.WithRotation(PrintRotation(lbl.Spec.Orientation, lbl.Spec.Media)),
	)
	return nil
}

// NewQueue creates a print queue for the label size of req. Label stock the
// configured printer cannot print on is a validation error.
func (s *Service) NewQueue(req *Request) (*printer.Queue, error) {
	lbl, err := media.LookupLabel(firstNonEmpty(req.LabelSize, s.cfg.Label.Size))
	if err != nil {
		return nil, &Error{Kind: KindLookup, Message: "Unknown label_size", Err: err}
	}
	if err := media.Compatible(s.model, lbl); err != nil {
		return nil, &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	var opts []printer.Option
	if s.transport != nil {
		opts = append(opts, printer.WithTransport(s.transport))
	}
	return printer.NewQueue(s.model, lbl, s.cfg.Printer.Device, opts...), nil
}

// Print renders PrintCount copies of req and sends them as one job. With
// CutOnce only the last copy is cut. Each copy gets its own counter value
// starting at CounterStart.
func (s *Service) Print(ctx context.Context, req *Request) (bool, error) {
	if req == nil {
		return false, validation("Empty request")
	}
	count := req.PrintCount
	if count == 0 {
		count = 1
	}
	if count < 1 {
		return false, validation("print_count must be greater than 0")
	}
	q, err := s.NewQueue(req)
	if err != nil {
		return false, err
	}
	for i := range count {
		cut := !req.CutOnce || i == count-1
		if err := s.RenderAndQueue(q, req, req.CounterStart+i, cut); err != nil {
			return false, err
		}
	}
	ok, err := q.Flush(ctx, s.cfg.Printer.Offline)
	if err != nil {
		return false, &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	return ok, nil
}

// ProbeStatus reports the state of the configured printer.
func (s *Service) ProbeStatus(ctx context.Context) printer.DeviceStatus {
	p := s.cfg.Printer
	return printer.Probe(ctx, p.Device, p.Offline, p.Model, s.status)
}

func printKind(s string) (layout.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return layout.KindText, nil
	case "qrcode":
		return layout.KindCode, nil
	case "qrcode_text":
		return layout.KindCodeText, nil
	case "image":
		return layout.KindImage, nil
	}
	return 0, validation(fmt.Sprintf("Unsupported print_type: %s", s))
}

func parseTint(s string) (layout.Tint, error) {
	t, err := layout.ParseTint(s)
	if err != nil {
		return 0, validation(err.Error())
	}
	return t, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func override(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

package designer

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/qlabel/config"
	"github.com/ByLCY/qlabel/fonts"
	"github.com/ByLCY/qlabel/layout"
	"github.com/ByLCY/qlabel/media"
	"github.com/ByLCY/qlabel/printer"
	"github.com/ByLCY/qlabel/ql"
)

var (
	registryOnce sync.Once
	registry     *fonts.Registry
	registryErr  error
)

func testFonts(t *testing.T) *fonts.Registry {
	t.Helper()
	registryOnce.Do(func() {
		registry, registryErr = fonts.NewRegistry(fonts.Options{
			DefaultFamily: fonts.FamilyGo,
			DefaultStyle:  "Regular",
		})
	})
	require.NoError(t, registryErr)
	return registry
}

var fixedNow = time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

func newService(t *testing.T, mutate func(*config.Config), opts ...Option) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.Printer.Offline = true
	if mutate != nil {
		mutate(&cfg)
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s, err := NewService(cfg, testFonts(t), opts...)
	require.NoError(t, err)
	return s
}

func size(n int) *int { return &n }

func textRequest(lines ...string) *Request {
	req := &Request{LabelSize: "62", PrintType: "text"}
	for _, l := range lines {
		req.Text = append(req.Text, TextLine{Text: l, Size: size(40), Align: "center"})
	}
	return req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewServiceRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Printer.Model = "QL-1"
	_, err := NewService(cfg, testFonts(t))
	assert.Error(t, err)
}

func TestBuildLabelErrors(t *testing.T) {
	s := newService(t, func(c *config.Config) {
		c.Label.MaxTextLength = 5
		c.Label.MaxImageBytes = 16
	})
	tests := []struct {
		name   string
		mutate func(*Request)
		kind   Kind
		msg    string
	}{
		{"size missing", func(r *Request) { r.Text[0].Size = nil }, KindValidation, "Font size is required"},
		{"size zero", func(r *Request) { r.Text[0].Size = size(0) }, KindValidation, "Font size must be at least 1"},
		{"alignment", func(r *Request) { r.Text[0].Align = "middle" }, KindValidation, "Unsupported alignment: middle"},
		{"print type", func(r *Request) { r.PrintType = "poster" }, KindValidation, "Unsupported print_type: poster"},
		{"image with text", func(r *Request) { r.Image = []byte("x") }, KindValidation, `An image was uploaded but print_type is "text"`},
		{"image missing", func(r *Request) { r.PrintType = "image" }, KindValidation, "No image supplied"},
		{"color", func(r *Request) { r.Text[0].Color = "blue" }, KindValidation, `unsupported color "blue"`},
		{"orientation", func(r *Request) { r.Orientation = "upside" }, KindValidation, `unsupported orientation "upside"`},
		{"threshold", func(r *Request) { r.ImageBWThreshold = size(120) }, KindValidation, "image_bw_threshold must be between 0 and 100"},
		{"label size", func(r *Request) { r.LabelSize = "63" }, KindLookup, "Unknown label_size"},
		{"font family", func(r *Request) { r.Text[0].Family = "Comic Sans" }, KindLookup, "Unknown font family: Comic Sans"},
		{"font style", func(r *Request) {
			r.Text[0].Family = fonts.FamilyGo
			r.Text[0].Style = "Condensed"
		}, KindLookup, "Unknown font style: Condensed for font Go"},
		{"text length", func(r *Request) { r.Text[0].Text = "abcdef" }, KindTooLarge, "Text is too long"},
		{"image size", func(r *Request) {
			r.PrintType = "image"
			r.Image = make([]byte, 17)
		}, KindTooLarge, "Image is too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := textRequest("abc")
			tt.mutate(req)
			_, err := s.BuildLabel(req, 0)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err), "kind of %v", err)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestTextLengthCountsCharacters(t *testing.T) {
	s := newService(t, func(c *config.Config) { c.Label.MaxTextLength = 3 })
	_, err := s.BuildLabel(textRequest("äöü"), 0)
	assert.NoError(t, err)
}

func TestBuildLabelDimensions(t *testing.T) {
	s := newService(t, nil)
	tests := []struct {
		size, orientation string
		width, height     int
	}{
		{"62", "standard", 696, 0},
		{"62", "rotated", 0, 696},
		{"29x90", "standard", 991, 306},
		{"29x90", "rotated", 306, 991},
	}
	for _, tt := range tests {
		t.Run(tt.size+" "+tt.orientation, func(t *testing.T) {
			req := textRequest("abc")
			req.LabelSize = tt.size
			req.Orientation = tt.orientation
			lbl, err := s.BuildLabel(req, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.width, lbl.Spec.Width)
			assert.Equal(t, tt.height, lbl.Spec.Height)
		})
	}
}

func TestBuildLabelDefaults(t *testing.T) {
	s := newService(t, func(c *config.Config) { c.Label.BorderThickness = 3 })
	req := textRequest("Hello", "World")
	req.MarginLeft = size(0)

	lbl, err := s.BuildLabel(req, 7)
	require.NoError(t, err)
	spec := lbl.Spec
	assert.Equal(t, layout.Margin{Top: 24, Bottom: 45, Left: 0, Right: 35}, spec.Margin)
	assert.Equal(t, 3, spec.Border.Thickness)
	assert.True(t, spec.Fit)
	assert.Equal(t, 7, spec.Counter)
	assert.Equal(t, fixedNow, spec.Timestamp)
	assert.Equal(t, "QR", spec.Content.Symbology)
	assert.Equal(t, layout.QROptions{BoxSize: 10, Correction: "L"}, spec.Content.QR)
	assert.Equal(t, layout.KindText, spec.Content.Kind)
	require.Len(t, spec.Lines, 2)
	for _, l := range spec.Lines {
		assert.Equal(t, 100, l.LineSpacing)
		assert.Equal(t, fonts.FamilyGo, l.Font.Family)
		assert.Equal(t, layout.AlignCenter, l.Align)
	}

	req.Timestamp = 1_700_000_000
	req.BorderThickness = size(0)
	req.ImageFit = new(bool)
	lbl, err = s.BuildLabel(req, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1_700_000_000, 0), lbl.Spec.Timestamp)
	assert.Zero(t, lbl.Spec.Border.Thickness)
	assert.False(t, lbl.Spec.Fit)
}

func TestBuildLabelStyleOnDefaultFamily(t *testing.T) {
	s := newService(t, nil)
	req := textRequest("abc")
	req.Text[0].Style = "Bold"
	lbl, err := s.BuildLabel(req, 0)
	require.NoError(t, err)
	assert.Equal(t, fonts.FamilyGo, lbl.Spec.Lines[0].Font.Family)
	assert.Equal(t, "Bold", lbl.Spec.Lines[0].Font.Style)
}

func TestBuildLabelNormalizesText(t *testing.T) {
	s := newService(t, nil)
	lbl, err := s.BuildLabel(textRequest("Cafe\u0301"), 0)
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9", lbl.Spec.Lines[0].Text)
}

func TestPrintTypes(t *testing.T) {
	s := newService(t, nil)
	for in, want := range map[string]layout.Kind{
		"":            layout.KindText,
		"text":        layout.KindText,
		"qrcode":      layout.KindCode,
		"qrcode_text": layout.KindCodeText,
	} {
		req := textRequest("abc")
		req.PrintType = in
		lbl, err := s.BuildLabel(req, 0)
		require.NoError(t, err, in)
		assert.Equal(t, want, lbl.Spec.Content.Kind, in)
	}
}

func redRequest() *Request {
	req := textRequest("alert")
	req.LabelSize = "62red"
	req.Text[0].Color = "red"
	req.BorderColor = "red"
	req.PrintColor = "#ff0000"
	return req
}

func TestRedPolicy(t *testing.T) {
	t.Run("two color printer keeps red", func(t *testing.T) {
		s := newService(t, func(c *config.Config) { c.Printer.Model = "QL-800" })
		lbl, err := s.BuildLabel(redRequest(), 0)
		require.NoError(t, err)
		assert.Equal(t, layout.TintRed, lbl.Spec.Lines[0].Tint)
		assert.Equal(t, layout.TintRed, lbl.Spec.Border.Tint)
		assert.Equal(t, layout.TintRed, lbl.Spec.Tint)
	})
	t.Run("downgrade on black printer", func(t *testing.T) {
		s := newService(t, nil)
		lbl, err := s.BuildLabel(redRequest(), 0)
		require.NoError(t, err)
		assert.Equal(t, layout.TintBlack, lbl.Spec.Lines[0].Tint)
		assert.Equal(t, layout.TintBlack, lbl.Spec.Border.Tint)
		assert.Equal(t, layout.TintBlack, lbl.Spec.Tint)
	})
	t.Run("downgrade without red tape", func(t *testing.T) {
		s := newService(t, func(c *config.Config) { c.Printer.Model = "QL-800" })
		req := redRequest()
		req.LabelSize = "62"
		lbl, err := s.BuildLabel(req, 0)
		require.NoError(t, err)
		assert.Equal(t, layout.TintBlack, lbl.Spec.Lines[0].Tint)
	})
	t.Run("reject", func(t *testing.T) {
		s := newService(t, func(c *config.Config) { c.Printer.RedPolicy = config.RedReject })
		_, err := s.BuildLabel(redRequest(), 0)
		assert.True(t, IsValidation(err), "got %v", err)
	})
	t.Run("red image mode", func(t *testing.T) {
		s := newService(t, nil)
		req := &Request{
			LabelSize: "62", PrintType: "image", ImageMode: "red_and_black",
			Image: pngBytes(t, 20, 10), ImageName: "red.png",
		}
		lbl, err := s.BuildLabel(req, 0)
		require.NoError(t, err)
		assert.Equal(t, layout.ModeGrayscale, lbl.Spec.Content.ImageMode)
	})
}

func TestImageRequest(t *testing.T) {
	s := newService(t, nil)
	req := &Request{
		LabelSize: "62", PrintType: "image", ImageMode: "black_and_white",
		ImageBWThreshold: size(40), Image: pngBytes(t, 30, 20), ImageName: "dot.png",
	}
	lbl, err := s.BuildLabel(req, 0)
	require.NoError(t, err)
	require.NotNil(t, lbl.Spec.Content.Image)
	assert.Equal(t, image.Pt(30, 20), lbl.Spec.Content.Image.Bounds().Size())
	assert.Equal(t, 40, lbl.Spec.Content.Threshold)
	assert.False(t, lbl.Dither())

	req.ImageMode = "grayscale"
	lbl, err = s.BuildLabel(req, 0)
	require.NoError(t, err)
	assert.True(t, lbl.Dither())

	req.Image = []byte("not an image")
	_, err = s.BuildLabel(req, 0)
	assert.True(t, IsValidation(err), "got %v", err)
}

func TestBarcodeContentError(t *testing.T) {
	s := newService(t, nil)
	req := textRequest("12345")
	req.PrintType = "qrcode"
	req.BarcodeType = "ean13"
	_, _, err := s.RenderPreview(req, FormatPNG)
	require.Error(t, err)
	assert.Equal(t, KindContent, KindOf(err), "got %v", err)
}

func TestPrintRotation(t *testing.T) {
	assert.Equal(t, ql.RotateNone, PrintRotation(layout.Standard, media.Endless))
	assert.Equal(t, ql.Rotate90, PrintRotation(layout.Rotated, media.Endless))
	assert.Equal(t, ql.RotateAuto, PrintRotation(layout.Standard, media.DieCut))
	assert.Equal(t, ql.RotateAuto, PrintRotation(layout.Rotated, media.RoundDieCut))
}

func TestRenderPreviewFormats(t *testing.T) {
	s := newService(t, nil)
	req := textRequest("Hello")

	data, ctype, err := s.RenderPreview(req, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", ctype)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 696, img.Bounds().Dx())

	enc, ctype, err := s.RenderPreview(req, FormatBase64)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", ctype)
	dec, err := base64.StdEncoding.DecodeString(string(enc))
	require.NoError(t, err)
	assert.Equal(t, data, dec)

	pdf, ctype, err := s.RenderPreview(req, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ctype)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, _, err = s.RenderPreview(req, "gif")
	assert.True(t, IsValidation(err))
	assert.EqualError(t, err, "Unsupported return format: gif")
}

func TestRenderPreviewRotatedEndless(t *testing.T) {
	s := newService(t, nil)
	req := textRequest("Hello")
	req.Orientation = "rotated"
	data, _, err := s.RenderPreview(req, FormatPNG)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	// shown as it comes out of the printer
	assert.Equal(t, 696, img.Bounds().Dx())
}

func TestLayout(t *testing.T) {
	s := newService(t, nil)
	res, err := s.Layout(textRequest("one", "two"))
	require.NoError(t, err)
	assert.Len(t, res.Placements, 2)
	assert.Equal(t, 696, res.Width)
	assert.Positive(t, res.Height)
}

type stubTransport struct {
	mu    sync.Mutex
	calls int
	data  []byte
	out   ql.Outcome
}

func (s *stubTransport) Send(_ context.Context, data []byte) (ql.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.data = data
	return s.out, nil
}

func (s *stubTransport) open(string) (printer.Transport, error) { return s, nil }

func TestRenderAndQueueCuts(t *testing.T) {
	s := newService(t, nil)
	req := textRequest("#{{counter}}")
	req.CutOnce = true
	q, err := s.NewQueue(req)
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, s.RenderAndQueue(q, req, i+1, i == 2))
	}
	entries := q.Entries()
	require.Len(t, entries, 3)
	assert.False(t, entries[0].Cut)
	assert.False(t, entries[1].Cut)
	assert.True(t, entries[2].Cut)
	for _, e := range entries {
		assert.Equal(t, ql.RotateNone, e.Rotate)
		assert.True(t, e.Dither)
		assert.Equal(t, 696, e.Canvas.Bounds().Dx())
	}
}

func TestRenderAndQueueLabelMismatch(t *testing.T) {
	s := newService(t, nil)
	q, err := s.NewQueue(&Request{LabelSize: "29x90"})
	require.NoError(t, err)
	err = s.RenderAndQueue(q, textRequest("abc"), 0, true)
	assert.True(t, IsValidation(err), "got %v", err)
	assert.Zero(t, q.Len())
}

func TestPrintOffline(t *testing.T) {
	tr := &stubTransport{}
	s := newService(t, nil, WithTransport(tr.open))
	req := textRequest("copy {{counter}}")
	req.PrintCount = 3
	ok, err := s.Print(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, tr.calls)
}

func TestPrintSendsOneJob(t *testing.T) {
	tr := &stubTransport{out: ql.Outcome{Printed: true, ReadyForNext: true, Confirmed: true}}
	s := newService(t, func(c *config.Config) {
		c.Printer.Offline = false
		c.Printer.Device = "tcp://printer"
	}, WithTransport(tr.open))

	req := textRequest("copy {{counter}}")
	req.PrintCount = 2
	ok, err := s.Print(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, tr.calls)
	// one job, two pages
	assert.Equal(t, 2, bytes.Count(tr.data, []byte{0x1b, 'i', 'z'}))
	assert.Equal(t, byte(0x1a), tr.data[len(tr.data)-1])

	tr.out = ql.Outcome{Printed: true}
	ok, err = s.Print(context.Background(), textRequest("again"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrintCount(t *testing.T) {
	s := newService(t, nil)
	req := textRequest("abc")
	req.PrintCount = -1
	ok, err := s.Print(context.Background(), req)
	assert.False(t, ok)
	assert.True(t, IsValidation(err), "got %v", err)

	req.PrintCount = 1
	req.LabelSize = "63"
	_, err = s.Print(context.Background(), req)
	assert.Equal(t, KindLookup, KindOf(err))
}

func TestPrintRejectsIncompatibleStock(t *testing.T) {
	tr := &stubTransport{}
	s := newService(t, nil, WithTransport(tr.open))
	req := textRequest("abc")
	req.LabelSize = "62red"

	ok, err := s.Print(context.Background(), req)
	assert.False(t, ok)
	assert.True(t, IsValidation(err), "got %v", err)
	assert.ErrorContains(t, err, "requires a two-color printer")
	assert.Zero(t, tr.calls)

	// the preview still renders, with red printed black
	_, _, err = s.RenderPreview(req, FormatPNG)
	assert.NoError(t, err)
}

func TestProbeStatusOffline(t *testing.T) {
	s := newService(t, func(c *config.Config) { c.Printer.Model = "QL-800" })
	st := s.ProbeStatus(context.Background())
	assert.Equal(t, "Offline", st.StatusType)
	assert.Equal(t, "QL-800", st.Model)
	assert.True(t, st.RedSupport)
}

type statusStub struct{ st *ql.Status }

func (s statusStub) Status(context.Context) (*ql.Status, error) { return s.st, nil }

func TestProbeStatusOnline(t *testing.T) {
	s := newService(t, func(c *config.Config) { c.Printer.Offline = false },
		WithStatusOpener(func(string) (printer.StatusReader, error) {
			return statusStub{&ql.Status{Model: "QL-700", StatusType: "Reply to status request", PhaseType: "Waiting to receive"}}, nil
		}))
	st := s.ProbeStatus(context.Background())
	assert.Equal(t, "QL-700", st.Model)
	assert.Empty(t, st.Errors)
}

func TestBarcodes(t *testing.T) {
	s := newService(t, nil)
	names := s.Barcodes()
	require.NotEmpty(t, names)
	assert.Equal(t, "QR", names[0])
}

func TestRenderPreviewConcurrent(t *testing.T) {
	s := newService(t, nil)
	want, _, err := s.RenderPreview(textRequest("same", "label"), FormatPNG)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := s.RenderPreview(textRequest("same", "label"), FormatPNG)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(want, got) {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`
label_size: 29x90
print_type: qrcode_text
orientation: rotated
margin_top: 10
text:
  - text: "https://example.com"
    size: 30
  - text: "{{counter}}"
    size: 50
    align: left
    inverted: true
print_count: 2
cut_once: true
`))
	require.NoError(t, err)
	assert.Equal(t, "29x90", req.LabelSize)
	assert.Equal(t, "qrcode_text", req.PrintType)
	require.NotNil(t, req.MarginTop)
	assert.Equal(t, 10, *req.MarginTop)
	assert.Nil(t, req.MarginBottom)
	require.Len(t, req.Text, 2)
	assert.True(t, req.Text[1].Inverted)
	assert.Equal(t, 50, *req.Text[1].Size)
	assert.Equal(t, 2, req.PrintCount)
	assert.True(t, req.CutOnce)

	_, err = ParseRequest([]byte("text: [\n"))
	assert.True(t, IsValidation(err))
}

func TestLoadRequestReadsImage(t *testing.T) {
	dir := t.TempDir()
	img := pngBytes(t, 4, 4)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), img, 0o644))
	path := filepath.Join(dir, "label.yaml")
	require.NoError(t, os.WriteFile(path, []byte("print_type: image\nimage: logo.png\n"), 0o644))

	req, err := LoadRequest(path)
	require.NoError(t, err)
	assert.Equal(t, img, req.Image)
	assert.Equal(t, "logo.png", req.ImageName)

	require.NoError(t, os.WriteFile(path, []byte("image: missing.png\n"), 0o644))
	_, err = LoadRequest(path)
	assert.Error(t, err)
}

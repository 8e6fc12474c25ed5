package content

import (
	"fmt"
	"image"
	"strings"
	"unicode"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/aztec"
	"github.com/boombuler/barcode/codabar"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/code93"
	"github.com/boombuler/barcode/datamatrix"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/pdf417"
	"github.com/boombuler/barcode/qr"
	"github.com/boombuler/barcode/twooffive"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
)

// symbology describes one supported code.
type symbology struct {
	name   string
	linear bool
	encode func(text string) (barcode.Barcode, error)
}

var symbologies = []symbology{
	{name: "QR"},
	{name: "EAN13", linear: true, encode: eanEncoder(12)},
	{name: "EAN8", linear: true, encode: eanEncoder(7)},
	{name: "CODE128", linear: true, encode: func(s string) (barcode.Barcode, error) { return code128.Encode(s) }},
	{name: "CODE39", linear: true, encode: func(s string) (barcode.Barcode, error) { return code39.Encode(s, false, true) }},
	{name: "CODE93", linear: true, encode: func(s string) (barcode.Barcode, error) { return code93.Encode(s, true, true) }},
	{name: "CODABAR", linear: true, encode: codabar.Encode},
	{name: "ITF", linear: true, encode: func(s string) (barcode.Barcode, error) { return twooffive.Encode(s, true) }},
	{name: "DATAMATRIX", encode: datamatrix.Encode},
	{name: "PDF417", encode: func(s string) (barcode.Barcode, error) { return pdf417.Encode(s, 2) }},
	{name: "AZTEC", encode: func(s string) (barcode.Barcode, error) { return aztec.Encode([]byte(s), 33, 0) }},
}

// Symbologies lists the supported code names, QR first.
func Symbologies() []string {
	out := make([]string, len(symbologies))
	for i, s := range symbologies {
		out[i] = s.name
	}
	return out
}

// normalizeSymbology folds "ean-13", "Code_128" and similar spellings.
func normalizeSymbology(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return unicode.ToUpper(r)
	}, name)
}

func lookupSymbology(name string) (symbology, error) {
	n := normalizeSymbology(name)
	for _, s := range symbologies {
		if s.name == n {
			return s, nil
		}
	}
	return symbology{}, encodeError(fmt.Sprintf("Unsupported barcode type: %s", name), nil)
}

// IsQR reports whether name selects a QR code.
func IsQR(name string) bool {
	return normalizeSymbology(name) == "QR"
}

// eanEncoder checks the payload length before encoding; the check digit is
// always computed, never supplied.
func eanEncoder(digits int) func(string) (barcode.Barcode, error) {
	return func(s string) (barcode.Barcode, error) {
		for _, r := range s {
			if r < '0' || r > '9' {
				return nil, encodeError("EAN code can only contain numbers.", nil)
			}
		}
		// a trailing check digit is verified by the encoder
		if len(s) != digits && len(s) != digits+1 {
			return nil, encodeError(fmt.Sprintf("EAN must have %d digits, received %d.", digits, len(s)), nil)
		}
		return ean.Encode(s)
	}
}

// BarcodeOptions control the rendering of codes other than QR.
type BarcodeOptions struct {
	// Module is the width of the narrowest bar in dots.
	Module int
	// Height of linear bars in dots.
	Height int
	// QuietZone is the blank space left and right, in modules.
	QuietZone int
	// CaptionSize is the font size of the text under linear codes; 0 hides it.
	CaptionSize float64
}

// DefaultBarcodeOptions suit 300 dpi print heads.
func DefaultBarcodeOptions() BarcodeOptions {
	return BarcodeOptions{Module: 3, Height: 150, QuietZone: 10, CaptionSize: 32}
}

// Barcode encodes text with the named symbology and renders it black on
// white.
func Barcode(name, text string, opts BarcodeOptions) (image.Image, error) {
	sym, err := lookupSymbology(name)
	if err != nil {
		return nil, err
	}
	if sym.encode == nil {
		return nil, encodeError(fmt.Sprintf("Unsupported barcode type: %s", name), nil)
	}
	if text == "" {
		return nil, encodeError("Barcode text must not be empty.", nil)
	}
	bc, err := sym.encode(text)
	if err != nil {
		if _, ok := err.(*Error); ok {
			return nil, err
		}
		return nil, encodeError(fmt.Sprintf("Cannot encode %q as %s: %v", text, sym.name, err), err)
	}
	module := max(opts.Module, 1)
	b := bc.Bounds()
	if !sym.linear {
		scaled, err := barcode.Scale(bc, b.Dx()*module, b.Dy()*module)
		if err != nil {
			return nil, encodeError(err.Error(), err)
		}
		return scaled, nil
	}

	bars, err := barcode.Scale(bc, b.Dx()*module, max(opts.Height, 1))
	if err != nil {
		return nil, encodeError(err.Error(), err)
	}
	return withCaption(bars, text, module*opts.QuietZone, opts.CaptionSize)
}

var captionFont = func() *opentype.Font {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		panic(err)
	}
	return f
}()

// withCaption pads the bars with a quiet zone and writes text beneath.
func withCaption(bars image.Image, text string, quiet int, size float64) (image.Image, error) {
	bw, bh := bars.Bounds().Dx(), bars.Bounds().Dy()
	w := bw + 2*quiet
	h := bh
	if size > 0 {
		h += int(size * 1.4)
	}
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(bars, quiet, 0)
	if size > 0 {
		face, err := opentype.NewFace(captionFont, &opentype.FaceOptions{Size: size, DPI: 72})
		if err != nil {
			return nil, err
		}
		defer face.Close()
		dc.SetFontFace(face)
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(text, float64(w)/2, float64(bh)+size*0.2, 0.5, 1)
	}
	return dc.Image(), nil
}

// QR encodes text as a QR code with each module box dots wide and no
// border. level is one of L, M, Q, H; anything else means L.
func QR(text string, level string, box int) (image.Image, error) {
	if text == "" {
		return nil, encodeError("QR code text must not be empty.", nil)
	}
	bc, err := qr.Encode(text, qrLevel(level), qr.Auto)
	if err != nil {
		return nil, encodeError(fmt.Sprintf("Cannot encode QR code: %v", err), err)
	}
	box = max(box, 1)
	n := bc.Bounds().Dx()
	scaled, err := barcode.Scale(bc, n*box, n*box)
	if err != nil {
		return nil, encodeError(err.Error(), err)
	}
	return scaled, nil
}

func qrLevel(s string) qr.ErrorCorrectionLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M":
		return qr.M
	case "Q":
		return qr.Q
	case "H":
		return qr.H
	default:
		return qr.L
	}
}

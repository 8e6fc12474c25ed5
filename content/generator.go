package content

import (
	"errors"
	"image"
	"strings"

	"github.com/ByLCY/qlabel/layout"
)

// Generator is the layout.ContentGenerator used for real labels.
type Generator struct {
	Barcode BarcodeOptions
}

// NewGenerator returns a generator with DefaultBarcodeOptions.
func NewGenerator() *Generator {
	return &Generator{Barcode: DefaultBarcodeOptions()}
}

var _ layout.ContentGenerator = (*Generator)(nil)

// Generate implements layout.ContentGenerator. A QR code encodes all lines;
// a barcode encodes the first line, which is then dropped from the text.
func (g *Generator) Generate(c layout.Content, lines []layout.Line, tint layout.Tint) (image.Image, []layout.Line, error) {
	switch c.Kind {
	case layout.KindImage:
		if c.Image == nil {
			return nil, lines, decodeError("No image supplied", nil)
		}
		return Convert(c.Image, c.ImageMode, c.Threshold), lines, nil

	case layout.KindCode, layout.KindCodeText:
		if IsQR(c.Symbology) || c.Symbology == "" {
			texts := make([]string, len(lines))
			for i, l := range lines {
				texts[i] = l.Text
			}
			img, err := QR(strings.Join(texts, "\n"), c.QR.Correction, c.QR.BoxSize)
			if err != nil {
				return nil, lines, err
			}
			return paint(img, tint), lines, nil
		}
		if len(lines) == 0 {
			return nil, lines, encodeError("Barcode text must not be empty.", nil)
		}
		img, err := Barcode(c.Symbology, lines[0].Text, g.Barcode)
		if err != nil {
			return nil, lines, err
		}
		return paint(img, tint), lines[1:], nil
	}
	return nil, lines, errors.New("content: text labels have no primary content")
}

func paint(img image.Image, tint layout.Tint) image.Image {
	if tint == layout.TintBlack {
		return img
	}
	return Tint(img, tint.Color())
}

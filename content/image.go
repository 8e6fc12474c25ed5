package content

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/qlabel/layout"
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Decode decodes an uploaded image. name is the upload's file name and is
// only used to check the extension; an empty name skips the check.
func Decode(data []byte, name string) (image.Image, error) {
	if name != "" && !imageExts[strings.ToLower(filepath.Ext(name))] {
		return nil, decodeError("Unsupported file type", nil)
	}
	if len(data) == 0 {
		return nil, decodeError("Truncated File Read", io.ErrUnexpectedEOF)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	_, _, cfgErr := image.DecodeConfig(bytes.NewReader(data))
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return nil, decodeError("Truncated File Read", err)
	case cfgErr == nil:
		// the header is intact, so the pixel data is cut short
		return nil, decodeError("Truncated File Read", err)
	case errors.Is(err, image.ErrFormat):
		return nil, decodeError("Unsupported file type", err)
	default:
		return nil, decodeError("Cannot decode image: "+err.Error(), err)
	}
}

// Convert applies an image mode. threshold is used by ModeBlackWhite and is
// a percentage of full brightness; pixels above it become white.
func Convert(img image.Image, mode layout.ImageMode, threshold int) image.Image {
	flat := flatten(img)
	switch mode {
	case layout.ModeColored:
		return flat
	case layout.ModeBlackWhite:
		cut := uint8(255 * clampPercent(threshold) / 100)
		return imaging.AdjustFunc(imaging.Grayscale(flat), func(c color.NRGBA) color.NRGBA {
			if c.R > cut {
				return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			return color.NRGBA{A: 255}
		})
	case layout.ModeRedBlack:
		return imaging.AdjustFunc(imaging.Grayscale(flat), duotone)
	default:
		return imaging.Grayscale(flat)
	}
}

// duotone maps dark tones to black, middle tones to red and light tones
// to white.
func duotone(c color.NRGBA) color.NRGBA {
	switch {
	case c.R < 85:
		return color.NRGBA{A: 255}
	case c.R < 170:
		return color.NRGBA{R: 255, A: 255}
	default:
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
}

// flatten composes img onto white so transparent areas print as paper.
func flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1)
}

// Tint recolours the dark pixels of a black and white bitmap.
func Tint(img image.Image, c color.Color) image.Image {
	r, g, bl, _ := c.RGBA()
	ink := color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: 255}
	return imaging.AdjustFunc(flatten(img), func(p color.NRGBA) color.NRGBA {
		if p.R < 128 {
			return ink
		}
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	})
}

func clampPercent(p int) int {
	return min(max(p, 0), 100)
}

// Package raster measures, paints and composites labels into bitmaps.
package raster

import (
	"errors"
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"github.com/ByLCY/qlabel/fonts"
	"github.com/ByLCY/qlabel/layout"
)

// typesetter owns the faces of a single measure or paint call. Faces keep
// glyph caches and must not be shared between goroutines.
type typesetter struct {
	faces map[faceKey]font.Face
}

type faceKey struct {
	font *fonts.Font
	size int
}

func newTypesetter() *typesetter {
	return &typesetter{faces: map[faceKey]font.Face{}}
}

func (ts *typesetter) face(f *fonts.Font, size int) (font.Face, error) {
	if f == nil || f.OpenType() == nil {
		return nil, errors.New("raster: font not loaded")
	}
	key := faceKey{font: f, size: size}
	if face, ok := ts.faces[key]; ok {
		return face, nil
	}
	// one dot per point, so Size is the font size in dots
	face, err := opentype.NewFace(f.OpenType(), &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("raster: face %s %s %d: %w", f.Family, f.Style, size, err)
	}
	ts.faces[key] = face
	return face, nil
}

func (ts *typesetter) close() {
	for _, f := range ts.faces {
		f.Close()
	}
}

// Measurer is the layout.Measurer backed by real font metrics.
type Measurer struct{}

var _ layout.Measurer = Measurer{}

// Measure implements layout.Measurer.
func (Measurer) Measure(lines []layout.Line) ([]layout.LineBox, error) {
	ts := newTypesetter()
	defer ts.close()

	metrics := make([]layout.LineMetrics, len(lines))
	for i, l := range lines {
		face, err := ts.face(l.Font, l.Size)
		if err != nil {
			return nil, err
		}
		ref, _ := font.BoundString(face, layout.ReferenceGlyphs)
		metrics[i] = layout.LineMetrics{
			Width:   font.MeasureString(face, layout.MeasureText(l)).Ceil(),
			Ascent:  (-ref.Min.Y).Ceil(),
			Descent: ref.Max.Y.Ceil(),
		}
	}
	return layout.Stack(lines, metrics), nil
}

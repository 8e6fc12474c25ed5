package layout

import (
	"image"

	"github.com/ByLCY/qlabel/fonts"
)

// BuildOptions supplies the collaborators Build needs.
type BuildOptions struct {
	Measurer Measurer
	Content  ContentGenerator
	// DefaultFont and DefaultSize are used for the blank line measured when
	// a label has neither text nor content, so the canvas never collapses.
	DefaultFont *fonts.Font
	DefaultSize int
}

// Measurer computes line boxes without drawing anything. Implementations
// must not share state between calls.
type Measurer interface {
	Measure(lines []Line) ([]LineBox, error)
}

// ContentGenerator produces the primary bitmap of a label and returns the
// lines that are left for the text pass.
type ContentGenerator interface {
	Generate(c Content, lines []Line, tint Tint) (image.Image, []Line, error)
}

// LineMetrics is what a Measurer knows about one line before stacking.
type LineMetrics struct {
	// Width is the advance of the text itself, without checkbox.
	Width int
	// Ascent and Descent come from the reference glyphs, not the text.
	Ascent  int
	Descent int
}

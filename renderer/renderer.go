package renderer

import "github.com/ByLCY/qlabel/layout"

// Renderer turns a layout result into an output file, e.g. PNG or PDF.
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

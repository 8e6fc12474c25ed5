package fonts

import (
	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Built-in family names. They are always available, so a label can be
// rendered on a host without any system fonts installed. "Go Mono" is
// folded into "Go" as the "Mono" styles.
const (
	FamilyGo         = "Go"
	FamilyLatinRoman = "Latin Modern Roman"
	FamilyLatinMono  = "Latin Modern Mono"
)

type embedded struct {
	family, style string
	data          []byte
}

func builtins() []embedded {
	return []embedded{
		{FamilyGo, "Regular", goregular.TTF},
		{FamilyGo, "Bold", gobold.TTF},
		{FamilyGo, "Italic", goitalic.TTF},
		{FamilyGo, "Bold Italic", gobolditalic.TTF},
		{"Go Mono", "Regular", gomono.TTF},
		{"Go Mono", "Bold", gomonobold.TTF},
		{FamilyLatinRoman, "Regular", lmroman10regular.TTF},
		{FamilyLatinRoman, "Bold", lmroman10bold.TTF},
		{FamilyLatinRoman, "Italic", lmroman10italic.TTF},
		{FamilyLatinRoman, "Bold Italic", lmroman10bolditalic.TTF},
		{FamilyLatinMono, "Regular", lmmono10regular.TTF},
	}
}

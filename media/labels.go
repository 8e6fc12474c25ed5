// Package media describes the label stock and printer models the raster
// codec knows about. All dimensions are in device dots at 300 dpi.
package media

import (
	"fmt"
	"sort"
	"strings"
)

// FormFactor is the physical shape of a label roll.
type FormFactor int

const (
	Endless FormFactor = iota
	DieCut
	RoundDieCut
)

func (f FormFactor) String() string {
	switch f {
	case Endless:
		return "endless"
	case DieCut:
		return "die-cut"
	case RoundDieCut:
		return "round-die-cut"
	default:
		return "unknown"
	}
}

func (f FormFactor) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// DieCut reports whether both dimensions of the form factor are fixed.
func (f FormFactor) DieCut() bool { return f == DieCut || f == RoundDieCut }

// Label is one entry of the label catalogue.
type Label struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	TapeWidth  int        `json:"tapeWidth"`  // mm
	TapeLength int        `json:"tapeLength"` // mm, 0 for endless
	FormFactor FormFactor `json:"formFactor"`
	// Printable area; the length is 0 for endless tape.
	DotsWidth  int `json:"dotsWidth"`
	DotsLength int `json:"dotsLength"`
	// RightMargin is the number of unused pins right of the printable area.
	RightMargin int  `json:"rightMargin"`
	FeedMargin  int  `json:"feedMargin"`
	Red         bool `json:"red"`
	WideOnly    bool `json:"wideOnly"`
}

// IsDieCut reports whether both label dimensions are fixed.
func (l Label) IsDieCut() bool { return l.FormFactor.DieCut() }

// Printable returns the printable area in dots, doubled for 600 dpi.
func (l Label) Printable(highRes bool) (width, length int) {
	width, length = l.DotsWidth, l.DotsLength
	if highRes {
		width, length = 2*width, 2*length
	}
	return width, length
}

var labels = []Label{
	{ID: "12", Name: "12mm endless", TapeWidth: 12, FormFactor: Endless, DotsWidth: 106, RightMargin: 29, FeedMargin: 35},
	{ID: "29", Name: "29mm endless", TapeWidth: 29, FormFactor: Endless, DotsWidth: 306, RightMargin: 6, FeedMargin: 35},
	{ID: "38", Name: "38mm endless", TapeWidth: 38, FormFactor: Endless, DotsWidth: 413, RightMargin: 12, FeedMargin: 35},
	{ID: "50", Name: "50mm endless", TapeWidth: 50, FormFactor: Endless, DotsWidth: 554, RightMargin: 12, FeedMargin: 35},
	{ID: "54", Name: "54mm endless", TapeWidth: 54, FormFactor: Endless, DotsWidth: 590, RightMargin: 0, FeedMargin: 35},
	{ID: "62", Name: "62mm endless", TapeWidth: 62, FormFactor: Endless, DotsWidth: 696, RightMargin: 12, FeedMargin: 35},
	{ID: "62red", Name: "62mm endless (black/red/white)", TapeWidth: 62, FormFactor: Endless, DotsWidth: 696, RightMargin: 12, FeedMargin: 35, Red: true},
	{ID: "102", Name: "102mm endless", TapeWidth: 102, FormFactor: Endless, DotsWidth: 1164, RightMargin: 12, FeedMargin: 35, WideOnly: true},
	{ID: "17x54", Name: "17mm x 54mm die-cut", TapeWidth: 17, TapeLength: 54, FormFactor: DieCut, DotsWidth: 165, DotsLength: 566},
	{ID: "17x87", Name: "17mm x 87mm die-cut", TapeWidth: 17, TapeLength: 87, FormFactor: DieCut, DotsWidth: 165, DotsLength: 956},
	{ID: "23x23", Name: "23mm x 23mm die-cut", TapeWidth: 23, TapeLength: 23, FormFactor: DieCut, DotsWidth: 202, DotsLength: 202, RightMargin: 42},
	{ID: "29x42", Name: "29mm x 42mm die-cut", TapeWidth: 29, TapeLength: 42, FormFactor: DieCut, DotsWidth: 306, DotsLength: 425, RightMargin: 6},
	{ID: "29x90", Name: "29mm x 90mm die-cut", TapeWidth: 29, TapeLength: 90, FormFactor: DieCut, DotsWidth: 306, DotsLength: 991, RightMargin: 6},
	{ID: "39x90", Name: "38mm x 90mm die-cut", TapeWidth: 38, TapeLength: 90, FormFactor: DieCut, DotsWidth: 413, DotsLength: 991, RightMargin: 12},
	{ID: "39x48", Name: "39mm x 48mm die-cut", TapeWidth: 39, TapeLength: 48, FormFactor: DieCut, DotsWidth: 425, DotsLength: 495, RightMargin: 6},
	{ID: "52x29", Name: "52mm x 29mm die-cut", TapeWidth: 52, TapeLength: 29, FormFactor: DieCut, DotsWidth: 578, DotsLength: 271},
	{ID: "54x29", Name: "54mm x 29mm die-cut", TapeWidth: 54, TapeLength: 29, FormFactor: DieCut, DotsWidth: 598, DotsLength: 271, RightMargin: 60},
	{ID: "60x86", Name: "60mm x 87mm die-cut", TapeWidth: 60, TapeLength: 87, FormFactor: DieCut, DotsWidth: 672, DotsLength: 954, RightMargin: 18},
	{ID: "62x29", Name: "62mm x 29mm die-cut", TapeWidth: 62, TapeLength: 29, FormFactor: DieCut, DotsWidth: 696, DotsLength: 271, RightMargin: 12},
	{ID: "62x100", Name: "62mm x 100mm die-cut", TapeWidth: 62, TapeLength: 100, FormFactor: DieCut, DotsWidth: 696, DotsLength: 1109, RightMargin: 12},
	{ID: "102x51", Name: "102mm x 51mm die-cut", TapeWidth: 102, TapeLength: 51, FormFactor: DieCut, DotsWidth: 1164, DotsLength: 526, RightMargin: 12, WideOnly: true},
	{ID: "102x152", Name: "102mm x 153mm die-cut", TapeWidth: 102, TapeLength: 153, FormFactor: DieCut, DotsWidth: 1164, DotsLength: 1660, RightMargin: 12, WideOnly: true},
	{ID: "d12", Name: "12mm round die-cut", TapeWidth: 12, TapeLength: 12, FormFactor: RoundDieCut, DotsWidth: 94, DotsLength: 94, RightMargin: 113, FeedMargin: 35},
	{ID: "d24", Name: "24mm round die-cut", TapeWidth: 24, TapeLength: 24, FormFactor: RoundDieCut, DotsWidth: 236, DotsLength: 236, RightMargin: 42},
	{ID: "d58", Name: "58mm round die-cut", TapeWidth: 58, TapeLength: 58, FormFactor: RoundDieCut, DotsWidth: 618, DotsLength: 618, RightMargin: 51},
}

var labelIndex = func() map[string]Label {
	m := make(map[string]Label, len(labels))
	for _, l := range labels {
		m[l.ID] = l
	}
	return m
}()

// LookupLabel returns the catalogue entry for id.
func LookupLabel(id string) (Label, error) {
	l, ok := labelIndex[strings.TrimSpace(id)]
	if !ok {
		return Label{}, fmt.Errorf("Unknown label_size %q", id)
	}
	return l, nil
}

// Labels returns the catalogue in declaration order.
func Labels() []Label {
	out := make([]Label, len(labels))
	copy(out, labels)
	return out
}

// LabelIDs returns the sorted identifiers, mostly for usage messages.
func LabelIDs() []string {
	ids := make([]string, 0, len(labels))
	for _, l := range labels {
		ids = append(ids, l.ID)
	}
	sort.Strings(ids)
	return ids
}

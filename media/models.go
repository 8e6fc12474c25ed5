package media

import (
	"fmt"
	"strings"
)

// Model describes the capabilities of one printer model.
type Model struct {
	ID string `json:"id"`
	// Pins is the width of the print head in dots; it fixes the raster row length.
	Pins        int  `json:"pins"`
	TwoColor    bool `json:"twoColor"`
	Compression bool `json:"compression"`
	ModeSwitch  bool `json:"modeSwitch"`
	Cutting     bool `json:"cutting"`
	// Invalidate is the number of zero bytes sent before initialisation.
	Invalidate int `json:"invalidate"`
}

// RowBytes is the size of one raster row.
func (m Model) RowBytes() int { return m.Pins / 8 }

// Wide reports whether the model takes 102mm and wider tape.
func (m Model) Wide() bool { return m.Pins > 720 }

var models = []Model{
	{ID: "QL-500", Pins: 720, Invalidate: 200},
	{ID: "QL-550", Pins: 720, Invalidate: 200, Cutting: true},
	{ID: "QL-560", Pins: 720, Invalidate: 200, Cutting: true},
	{ID: "QL-570", Pins: 720, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
	{ID: "QL-580N", Pins: 720, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
	{ID: "QL-600", Pins: 720, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
	{ID: "QL-650TD", Pins: 720, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
	{ID: "QL-700", Pins: 720, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
	{ID: "QL-710W", Pins: 720, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
	{ID: "QL-720NW", Pins: 720, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
	{ID: "QL-800", Pins: 720, Invalidate: 400, Cutting: true, ModeSwitch: true, TwoColor: true},
	{ID: "QL-810W", Pins: 720, Invalidate: 400, Cutting: true, ModeSwitch: true, TwoColor: true, Compression: true},
	{ID: "QL-820NWB", Pins: 720, Invalidate: 400, Cutting: true, ModeSwitch: true, TwoColor: true, Compression: true},
	{ID: "QL-1050", Pins: 1296, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
	{ID: "QL-1060N", Pins: 1296, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
	{ID: "QL-1100", Pins: 1296, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
	{ID: "QL-1110NWB", Pins: 1296, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
	{ID: "QL-1115NWB", Pins: 1296, Invalidate: 200, Cutting: true, ModeSwitch: true, Compression: true},
}

// LookupModel finds a model by identifier, ignoring case.
func LookupModel(id string) (Model, error) {
	for _, m := range models {
		if strings.EqualFold(m.ID, strings.TrimSpace(id)) {
			return m, nil
		}
	}
	return Model{}, fmt.Errorf("unknown printer model %q", id)
}

// Models returns all known models.
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// SupportsTwoColor reports whether the model can print black and red.
// Unknown models report false.
func SupportsTwoColor(id string) bool {
	m, err := LookupModel(id)
	return err == nil && m.TwoColor
}

// Compatible checks that a label can be printed on a model.
func Compatible(m Model, l Label) error {
	if l.WideOnly && !m.Wide() {
		return fmt.Errorf("label %s requires a wide printer, %s is not", l.ID, m.ID)
	}
	if l.Red && !m.TwoColor {
		return fmt.Errorf("label %s requires a two-color printer, %s is not", l.ID, m.ID)
	}
	return nil
}

package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// This file converts between device dots and physical lengths.

// Unit is the unit a length was written in.
type Unit int

const (
	UnitDots Unit = iota // device dots, the default for bare numbers
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
)

// Print head resolutions.
const (
	DPI       = 300
	DPIHigh   = 600
	MmPerInch = 25.4
	PtToMm    = MmPerInch / 72
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return "dots"
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToMM converts the length to millimeters; dots are taken at dpi.
func (l Length) ToMM(dpi int) float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * MmPerInch
	case UnitPT:
		return l.Value * PtToMm
	default:
		return DotsToMM(l.Value, dpi)
	}
}

// ToDots converts the length to whole dots at dpi, rounding to nearest.
func (l Length) ToDots(dpi int) int {
	if l.Unit == UnitDots {
		return int(math.Round(l.Value))
	}
	return MMToDots(l.ToMM(dpi), dpi)
}

// DotsToMM converts dots at dpi to millimeters.
func DotsToMM(dots float64, dpi int) float64 {
	return dots * MmPerInch / float64(dpi)
}

// MMToDots converts millimeters to whole dots at dpi.
func MMToDots(mm float64, dpi int) int {
	return int(math.Round(mm * float64(dpi) / MmPerInch))
}

// ParseLength parses "12", "12dots", "3mm", "0.5cm", "0.1in" or "8pt".
// A bare number is in dots.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, nil
	}
	unit := UnitDots
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"dots", UnitDots}, {"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("invalid length %q", value)
	}
	if f < 0 {
		return Length{}, fmt.Errorf("negative length %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + UnitToString(l.Unit)
}

// UnmarshalText lets lengths be written as strings in YAML.
func (l *Length) UnmarshalText(b []byte) error {
	parsed, err := ParseLength(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l Length) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

package layout

import (
	"math"
	"testing"
)

// TestDotsMmRoundTrip checks dots↔mm at both head resolutions.
func TestDotsMmRoundTrip(t *testing.T) {
	samples := []int{0, 1, 12, 106, 271, 696, 1164}
	for _, dpi := range []int{DPI, DPIHigh} {
		for _, dots := range samples {
			mm := DotsToMM(float64(dots), dpi)
			if back := MMToDots(mm, dpi); back != dots {
				t.Fatalf("dots→mm→dots at %d dpi: in=%d mm=%g back=%d", dpi, dots, mm, back)
			}
		}
	}
}

// TestLengthConversions covers every unit.
func TestLengthConversions(t *testing.T) {
	cases := []struct {
		in   string
		mm   float64
		dots int
	}{
		{"1in", 25.4, 300},
		{"2.54cm", 25.4, 300},
		{"72pt", 25.4, 300},
		{"10mm", 10, 118},
		{"300", 25.4, 300},
		{"12 dots", 12 * MmPerInch / DPI, 12},
	}
	for _, tc := range cases {
		l, err := ParseLength(tc.in)
		if err != nil {
			t.Fatalf("ParseLength(%q): %v", tc.in, err)
		}
		if got := l.ToMM(DPI); math.Abs(got-tc.mm) > 1e-9 {
			t.Fatalf("%s to mm: want %g, got %g", tc.in, tc.mm, got)
		}
		if got := l.ToDots(DPI); got != tc.dots {
			t.Fatalf("%s to dots: want %d, got %d", tc.in, tc.dots, got)
		}
	}
}

// TestParseLengthRejects covers malformed input.
func TestParseLengthRejects(t *testing.T) {
	for _, in := range []string{"abc", "-3mm", "mm", "1.2.3"} {
		if _, err := ParseLength(in); err == nil {
			t.Fatalf("ParseLength(%q): expected error", in)
		}
	}
	l, err := ParseLength("")
	if err != nil || !l.IsZero() {
		t.Fatalf("empty length: %v %v", l, err)
	}
}

// TestLengthText round-trips through the text encoding used by YAML.
func TestLengthText(t *testing.T) {
	var l Length
	if err := l.UnmarshalText([]byte("3mm")); err != nil {
		t.Fatal(err)
	}
	b, _ := l.MarshalText()
	if string(b) != "3mm" {
		t.Fatalf("marshal: got %q", b)
	}
}

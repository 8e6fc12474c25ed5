package layout

import (
	"image"
	"math"
)

// ReferenceGlyphs give every line the same vertical extent whether or not
// its text has accents or descenders.
const ReferenceGlyphs = "Äg"

// Spacing is the extra gap after a line, in dots. 100 percent adds nothing.
func Spacing(size, percent int) int {
	if percent == 0 {
		percent = 100
	}
	return int(math.Floor(float64(size*(percent-100)) / 100))
}

// TodoSide is the side length of the checkbox drawn before a todo line.
func TodoSide(size int) int {
	return int(math.Floor(0.8 * float64(size)))
}

// todoWidth is the horizontal space the checkbox and its gap take.
func todoWidth(l Line) int {
	if !l.Todo {
		return 0
	}
	side := TodoSide(l.Size)
	return side + side/4
}

// InvertShift is how far the background of an inverted line is moved up.
func InvertShift(size int) int {
	return int(math.Floor(0.1 * float64(size)))
}

// Stack turns per-line metrics into paragraph boxes. Spacing is inserted
// between lines, never after the last one.
func Stack(lines []Line, metrics []LineMetrics) []LineBox {
	boxes := make([]LineBox, len(metrics))
	y := 0
	for i, m := range metrics {
		b := LineBox{
			X0:       0,
			Y0:       y,
			X1:       todoWidth(lines[i]) + m.Width,
			Y1:       y + m.Ascent + m.Descent,
			Baseline: y + m.Ascent,
		}
		boxes[i] = b
		y = b.Y1
		if i < len(metrics)-1 {
			y += Spacing(lines[i].Size, lines[i].LineSpacing)
		}
	}
	return boxes
}

// MeasureText returns the string a Measurer should measure for a line.
// Empty lines are measured as a single space so they keep their slot.
func MeasureText(l Line) string {
	if l.Text == "" {
		return " "
	}
	return l.Text
}

// ParagraphExtent is the bounding box of all boxes.
func ParagraphExtent(boxes []LineBox) Extent {
	if len(boxes) == 0 {
		return Extent{}
	}
	e := Extent{MinX: boxes[0].X0, MinY: boxes[0].Y0, MaxX: boxes[0].X1, MaxY: boxes[0].Y1}
	for _, b := range boxes[1:] {
		e.MinX = min(e.MinX, b.X0)
		e.MinY = min(e.MinY, b.Y0)
		e.MaxX = max(e.MaxX, b.X1)
		e.MaxY = max(e.MaxY, b.Y1)
	}
	return e
}

// AnchorX is the x coordinate a line is aligned against. It depends on the
// whole paragraph so that every line of one label aligns the same way.
func AnchorX(a Align, e Extent) int {
	switch a {
	case AlignCenter:
		return e.MinX + e.Width()/2
	case AlignRight:
		return e.MaxX
	default:
		return e.MinX
	}
}

// PlaceLines positions measured lines on the canvas, with the paragraph's
// top-left corner at offset.
func PlaceLines(lines []Line, boxes []LineBox, offset image.Point) []Placement {
	ext := ParagraphExtent(boxes)
	out := make([]Placement, len(lines))
	for i, l := range lines {
		b := boxes[i]
		w := b.Width()
		anchor := AnchorX(l.Align, ext)
		var x int
		switch l.Align {
		case AlignCenter:
			x = anchor - w/2
		case AlignRight:
			x = anchor - w
		default:
			x = anchor
		}
		p := Placement{
			Line:   l,
			Box:    image.Rect(x, b.Y0, x+w, b.Y1).Add(offset),
			Origin: image.Pt(x+todoWidth(l), b.Baseline).Add(offset),
		}
		if l.Inverted {
			p.Background = p.Box.Sub(image.Pt(0, InvertShift(l.Size)))
		}
		if l.Todo {
			side := TodoSide(l.Size)
			top := b.Y0 + (b.Height()-side)/2
			p.Checkbox = image.Rect(x, top, x+side, top+side).Add(offset)
		}
		out[i] = p
	}
	return out
}

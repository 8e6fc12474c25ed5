package layout

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ByLCY/qlabel/binding"
	"github.com/ByLCY/qlabel/logging"
	"github.com/ByLCY/qlabel/media"
)

// ErrInvalidBorder is returned when the border inset leaves no rectangle.
var ErrInvalidBorder = errors.New("invalid border rectangle")

// Build computes the geometry of a label: content bitmap, canvas size and
// the position of every text line. It does not draw anything.
func Build(spec Spec, opts BuildOptions) (*Result, error) {
	lines := expandLines(spec)

	// 1. primary content
	var img image.Image
	if spec.Content.Kind != KindText {
		if opts.Content == nil {
			return nil, errors.New("layout: no content generator")
		}
		var err error
		img, lines, err = opts.Content.Generate(spec.Content, lines, spec.Tint)
		if err != nil {
			return nil, err
		}
		if img == nil {
			return nil, fmt.Errorf("layout: content generator returned no image for %s", spec.Content.Kind)
		}
	}

	width, height := spec.Width, spec.Height
	m := spec.Margin

	// 2. fit
	scale := 1.0
	imgW, imgH := 0, 0
	if img != nil {
		imgW, imgH = img.Bounds().Dx(), img.Bounds().Dy()
		if spec.Fit {
			maxW := max(width-m.Left-m.Right, 1)
			maxH := max(height-m.Top-m.Bottom, 1)
			scale = FitScale(spec.Orientation, spec.Media, maxW, maxH, imgW, imgH)
			if scale < 1 {
				imgW = max(int(float64(imgW)*scale), 1)
				imgH = max(int(float64(imgH)*scale), 1)
				img = imaging.Resize(img, imgW, imgH, imaging.Lanczos)
			}
			logging.Logger().Debug("fit content", "max_w", maxW, "max_h", maxH, "scale", scale, "w", imgW, "h", imgH)
		}
	}

	// 3. measure
	wants := WantsText(spec.Content.Kind, lines, img != nil)
	var boxes []LineBox
	if wants {
		if len(lines) == 0 {
			lines = []Line{{Font: opts.DefaultFont, Size: opts.DefaultSize, Align: AlignCenter, LineSpacing: 100}}
		}
		if err := checkLines(lines); err != nil {
			return nil, err
		}
		if opts.Measurer == nil {
			return nil, errors.New("layout: no measurer")
		}
		var err error
		boxes, err = opts.Measurer.Measure(lines)
		if err != nil {
			return nil, fmt.Errorf("measure text: %w", err)
		}
		if len(boxes) != len(lines) {
			return nil, fmt.Errorf("measure text: got %d boxes for %d lines", len(boxes), len(lines))
		}
	} else {
		lines = nil
	}
	ext := ParagraphExtent(boxes)
	textW, textH := ext.Width(), ext.Height()

	// 4. canvas size
	dieCut := spec.Media.DieCut()
	if !dieCut {
		if spec.Orientation == Standard {
			height = imgH + textH + m.Top + m.Bottom
		} else {
			width = imgW + textW + m.Left + m.Right
		}
	}
	width, height = max(width, 1), max(height, 1)

	// 5. offsets
	mixed := img != nil && wants
	var textAt, contentAt image.Point
	if spec.Orientation == Standard {
		if dieCut {
			textAt.Y = floorDiv(height-imgH-textH, 2) + floorDiv(m.Top-m.Bottom, 2)
		} else {
			textAt.Y = leading(m.Top, mixed)
		}
		textAt.Y += imgH
		textAt.X = max(floorDiv(width-textW, 2), 0)
		contentAt = image.Pt(floorDiv(width-imgW, 2), m.Top)
	} else {
		textAt.Y = floorDiv(height-textH, 2) + floorDiv(m.Top-m.Bottom, 2)
		if dieCut {
			textAt.X = max(floorDiv(width-imgW-textW, 2), 0)
		} else {
			textAt.X = leading(m.Left, mixed)
		}
		textAt.X += imgW
		contentAt = image.Pt(m.Left, floorDiv(height-imgH, 2))
	}

	res := &Result{
		Width:       width,
		Height:      height,
		Content:     img,
		ContentAt:   contentAt,
		Scale:       scale,
		WantsText:   wants,
		TextAt:      textAt,
		Lines:       lines,
		Boxes:       boxes,
		Extent:      ext,
		Orientation: spec.Orientation,
		Media:       spec.Media,
		Border:      spec.Border,
	}
	if wants {
		res.Placements = PlaceLines(lines, boxes, textAt)
	}
	return res, nil
}

// expandLines copies the lines with their placeholders substituted.
func expandLines(spec Spec) []Line {
	if len(spec.Lines) == 0 {
		return nil
	}
	ctx := binding.Context{Counter: spec.Counter, Now: spec.Timestamp}
	out := make([]Line, len(spec.Lines))
	for i, l := range spec.Lines {
		l.Text = binding.Expand(l.Text, ctx)
		out[i] = l
	}
	return out
}

func checkLines(lines []Line) error {
	for i, l := range lines {
		if l.Font == nil {
			return fmt.Errorf("layout: line %d has no font", i+1)
		}
		if l.Size < 1 {
			return fmt.Errorf("layout: line %d has font size %d", i+1, l.Size)
		}
	}
	return nil
}

// leading is the margin before text on endless media. Text following a
// code or image gets a quarter more room.
func leading(margin int, mixed bool) int {
	if mixed {
		return int(float64(margin) * 1.25)
	}
	return margin
}

// WantsText reports whether the text pass runs. Codes without text and
// images skip it; a label with neither content nor lines still measures a
// blank line so the canvas is never empty.
func WantsText(kind Kind, lines []Line, hasImage bool) bool {
	switch kind {
	case KindCode, KindImage:
		if hasImage {
			return false
		}
	}
	return len(lines) > 0 || !hasImage
}

// FitScale is the uniform factor that fits an image into the printable
// area. Endless media constrain only the fixed axis. The result never
// exceeds 1.
func FitScale(o Orientation, f media.FormFactor, maxW, maxH, imgW, imgH int) float64 {
	if imgW <= 0 || imgH <= 0 {
		return 1
	}
	sx := float64(maxW) / float64(imgW)
	sy := float64(maxH) / float64(imgH)
	var s float64
	switch {
	case f.DieCut():
		s = math.Min(sx, sy)
	case o == Standard:
		s = sx
	default:
		s = sy
	}
	return math.Min(s, 1)
}

// NeedsPreviewRotation reports whether a preview must be turned to match
// the way the label leaves the printer.
func NeedsPreviewRotation(o Orientation, f media.FormFactor) bool {
	return (o == Rotated && !f.DieCut()) || (o == Standard && f.DieCut())
}

// BorderRect is the rectangle a border is drawn on, for a canvas of the
// given size. ok is false when no border is configured.
func BorderRect(b Border, width, height int) (r image.Rectangle, ok bool, err error) {
	if b.Thickness <= 0 {
		return image.Rectangle{}, false, nil
	}
	r = image.Rectangle{
		Min: image.Pt(b.InsetX, b.InsetY),
		Max: image.Pt(width-b.InsetX, height-b.InsetY),
	}
	if r.Max.X < r.Min.X || r.Max.Y < r.Min.Y {
		return image.Rectangle{}, false, fmt.Errorf("%w: %v on %dx%d", ErrInvalidBorder, r, width, height)
	}
	return r, true, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

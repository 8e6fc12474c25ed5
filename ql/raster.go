// Package ql speaks the Brother QL raster protocol: it turns label bitmaps
// into a print job, asks the printer for its status and moves bytes over
// TCP or a device file.
package ql

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/ByLCY/qlabel/media"
)

// Rotation turns a canvas before it is rasterised.
type Rotation int

const (
	RotateNone Rotation = iota
	// Rotate90 turns the canvas 90 degrees counter-clockwise.
	Rotate90
	// RotateAuto turns die-cut canvases that were drawn lying on their side.
	RotateAuto
)

func (r Rotation) String() string {
	switch r {
	case Rotate90:
		return "90"
	case RotateAuto:
		return "auto"
	default:
		return "0"
	}
}

// DefaultThreshold is the brightness percentage below which a pixel prints.
const DefaultThreshold = 70

// PageOptions control how one canvas is encoded.
type PageOptions struct {
	Cut     bool
	HighRes bool
	Dither  bool
	Rotate  Rotation
	// Threshold is used when Dither is false; DefaultThreshold when zero.
	Threshold int
}

// Command bytes.
var (
	cmdInitialize    = []byte{0x1b, 0x40}
	cmdRasterMode    = []byte{0x1b, 0x69, 0x61, 0x01}
	cmdMediaQuality  = []byte{0x1b, 0x69, 0x7a}
	cmdVariousMode   = []byte{0x1b, 0x69, 0x4d}
	cmdCutEvery      = []byte{0x1b, 0x69, 0x41}
	cmdExpandedMode  = []byte{0x1b, 0x69, 0x4b}
	cmdMargin        = []byte{0x1b, 0x69, 0x64}
	cmdCompression   = []byte{0x4d, 0x02}
	cmdStatusRequest = []byte{0x1b, 0x69, 0x53}
)

const (
	printPage     = 0x0c
	printLastPage = 0x1a

	mediaContinuous = 0x0a
	mediaDieCut     = 0x0b
)

// Raster accumulates pages of one print job. It is not safe for
// concurrent use.
type Raster struct {
	model media.Model
	label media.Label
	// Compress enables PackBits row compression on models that support it.
	Compress bool

	buf   bytes.Buffer
	pages int
}

// NewRaster starts a job for the given printer model and label stock.
func NewRaster(model media.Model, label media.Label) (*Raster, error) {
	if err := media.Compatible(model, label); err != nil {
		return nil, err
	}
	return &Raster{model: model, label: label, Compress: model.Compression}, nil
}

// TwoColor reports whether pages are encoded with a red plane.
func (r *Raster) TwoColor() bool { return r.label.Red && r.model.TwoColor }

// Pages returns the number of pages added so far.
func (r *Raster) Pages() int { return r.pages }

// AddPage encodes one canvas as a page of the job.
func (r *Raster) AddPage(img image.Image, opts PageOptions) error {
	black, red, err := r.planes(img, opts)
	if err != nil {
		return err
	}
	if r.pages == 0 {
		r.buf.Write(make([]byte, r.model.Invalidate))
		r.buf.Write(cmdInitialize)
		if r.model.ModeSwitch {
			r.buf.Write(cmdRasterMode)
		}
	} else {
		r.buf.WriteByte(printPage)
	}
	r.writePageSetup(len(black), opts)
	r.writeRows(black, red)
	r.pages++
	return nil
}

// Bytes closes the job and returns the command stream. A job without pages
// is empty.
func (r *Raster) Bytes() []byte {
	if r.pages == 0 {
		return nil
	}
	out := make([]byte, r.buf.Len()+1)
	copy(out, r.buf.Bytes())
	out[len(out)-1] = printLastPage
	return out
}

func (r *Raster) writePageSetup(rows int, opts PageOptions) {
	b := &r.buf

	mtype := byte(mediaContinuous)
	if r.label.IsDieCut() {
		mtype = mediaDieCut
	}
	// quality, media type, width and length are valid
	b.Write(cmdMediaQuality)
	b.Write([]byte{0x80 | 0x40 | 0x08 | 0x04 | 0x02, mtype, byte(r.label.TapeWidth), byte(r.label.TapeLength)})
	b.Write(binary.LittleEndian.AppendUint32(nil, uint32(rows)))
	page := byte(0)
	if r.pages > 0 {
		page = 1
	}
	b.Write([]byte{page, 0x00})

	if r.model.Cutting {
		if opts.Cut {
			b.Write(cmdVariousMode)
			b.WriteByte(0x40)
			b.Write(cmdCutEvery)
			b.WriteByte(0x01)
		} else {
			b.Write(cmdVariousMode)
			b.WriteByte(0x00)
		}
	}

	var expanded byte
	if opts.Cut {
		expanded |= 1 << 3
	}
	if opts.HighRes {
		expanded |= 1 << 6
	}
	if r.TwoColor() {
		expanded |= 1
	}
	b.Write(cmdExpandedMode)
	b.WriteByte(expanded)

	b.Write(cmdMargin)
	b.Write(binary.LittleEndian.AppendUint16(nil, uint16(r.label.FeedMargin)))

	if r.compressed() {
		b.Write(cmdCompression)
	}
}

func (r *Raster) compressed() bool { return r.Compress && r.model.Compression }

func (r *Raster) writeRows(black, red [][]byte) {
	emit := func(cmd []byte, row []byte) {
		if r.compressed() {
			row = packBits(row)
		}
		r.buf.Write(cmd)
		r.buf.WriteByte(byte(len(row)))
		r.buf.Write(row)
	}
	for i, row := range black {
		if red == nil {
			emit([]byte{'g', 0x00}, row)
			continue
		}
		emit([]byte{'w', 0x01}, row)
		emit([]byte{'w', 0x02}, red[i])
	}
}

// planes turns a canvas into head-width rows of black and red dots. red is
// nil for single colour jobs.
func (r *Raster) planes(img image.Image, opts PageOptions) (black, red [][]byte, err error) {
	if img == nil || img.Bounds().Empty() {
		return nil, nil, errors.New("ql: empty canvas")
	}
	canvas := imaging.Clone(img)

	wantW, wantL := r.label.Printable(opts.HighRes)
	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	switch opts.Rotate {
	case Rotate90:
		canvas = imaging.Rotate90(canvas)
	case RotateAuto:
		if r.label.IsDieCut() && w == wantL && h == wantW && w != h {
			canvas = imaging.Rotate90(canvas)
		}
	}
	w, h = canvas.Bounds().Dx(), canvas.Bounds().Dy()

	if r.label.IsDieCut() {
		if w != wantW || h != wantL {
			return nil, nil, fmt.Errorf("ql: bad image dimensions %dx%d for label %s, expected %dx%d", w, h, r.label.ID, wantW, wantL)
		}
	} else if w != wantW {
		h = max(int(float64(h)*float64(wantW)/float64(w)), 1)
		w = wantW
		canvas = imaging.Resize(canvas, w, h, imaging.Lanczos)
	}
	if opts.HighRes {
		// the head stays at 300 dpi across the tape
		w = max(w/2, 1)
		canvas = imaging.Resize(canvas, w, h, imaging.Lanczos)
	}

	offset := r.model.Pins - w - r.label.RightMargin
	if offset < 0 {
		return nil, nil, fmt.Errorf("ql: label %s is %d dots wide, %s has %d pins", r.label.ID, w, r.model.ID, r.model.Pins)
	}

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	var redMask *image.Gray
	gray := imaging.Grayscale(canvas)
	if r.TwoColor() {
		redMask = extractRed(canvas, gray)
	}
	dots := monochrome(gray, opts.Dither, threshold)

	rowBytes := r.model.RowBytes()
	black = make([][]byte, h)
	if redMask != nil {
		red = make([][]byte, h)
	}
	for y := range h {
		black[y] = make([]byte, rowBytes)
		if red != nil {
			red[y] = make([]byte, rowBytes)
		}
		for x := range w {
			// rows are sent mirrored, right margin first
			col := r.label.RightMargin + w - 1 - x
			if dots.ColorIndexAt(x, y) == 1 {
				black[y][col/8] |= 0x80 >> (col % 8)
			}
			if redMask != nil && redMask.GrayAt(x, y).Y != 0 {
				red[y][col/8] |= 0x80 >> (col % 8)
			}
		}
	}
	return black, red, nil
}

var dotPalette = color.Palette{color.White, color.Black}

// monochrome maps gray levels to white (index 0) and black (index 1).
func monochrome(gray *image.NRGBA, dither bool, threshold int) *image.Paletted {
	b := gray.Bounds()
	out := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), dotPalette)
	if dither {
		draw.FloydSteinberg.Draw(out, out.Bounds(), gray, b.Min)
		return out
	}
	cut := 255 * min(max(threshold, 0), 100) / 100
	for y := range b.Dy() {
		for x := range b.Dx() {
			if int(gray.NRGBAAt(b.Min.X+x, b.Min.Y+y).R) < cut {
				out.SetColorIndex(x, y, 1)
			}
		}
	}
	return out
}

// extractRed marks strongly red pixels and whitens them in gray so they do
// not print black as well.
func extractRed(canvas, gray *image.NRGBA) *image.Gray {
	b := canvas.Bounds()
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		for x := range b.Dx() {
			c := canvas.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			if isRed(c) {
				mask.SetGray(x, y, color.Gray{Y: 0xff})
				gray.SetNRGBA(gray.Bounds().Min.X+x, gray.Bounds().Min.Y+y, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
			}
		}
	}
	return mask
}

func isRed(c color.NRGBA) bool {
	return c.R >= 160 && int(c.R)-int(c.G) >= 80 && int(c.R)-int(c.B) >= 80
}

// packBits is the TIFF PackBits run length encoding.
func packBits(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/128+1)
	for i := 0; i < len(src); {
		j := i + 1
		for j < len(src) && j-i < 128 && src[j] == src[i] {
			j++
		}
		if n := j - i; n >= 2 {
			out = append(out, byte(257-n), src[i])
			i = j
			continue
		}
		j = i + 1
		for j < len(src) && j-i < 128 && !(j+1 < len(src) && src[j] == src[j+1]) {
			j++
		}
		out = append(out, byte(j-i-1))
		out = append(out, src[i:j]...)
		i = j
	}
	return out
}

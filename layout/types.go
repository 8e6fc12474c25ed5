package layout

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/ByLCY/qlabel/fonts"
	"github.com/ByLCY/qlabel/media"
)

// This file holds the label description consumed by Build and the result
// shared by the raster renderer and the debug JSON dump.

// Align is the horizontal alignment of a text line within its paragraph.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// ParseAlign accepts left, center and right. Anything else is an error.
func ParseAlign(s string) (Align, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return AlignLeft, nil
	case "center", "centre":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return 0, fmt.Errorf("Unsupported alignment: %s", s)
}

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

func (a Align) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Tint is one of the two printable colours.
type Tint int

const (
	TintBlack Tint = iota
	TintRed
)

var (
	Black = color.RGBA{A: 0xff}
	Red   = color.RGBA{R: 0xff, A: 0xff}
	White = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Color returns the RGBA value painted for the tint.
func (t Tint) Color() color.RGBA {
	if t == TintRed {
		return Red
	}
	return Black
}

func (t Tint) String() string {
	if t == TintRed {
		return "red"
	}
	return "black"
}

func (t Tint) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// ParseTint accepts black and red, or the hex colours #000000 and #ff0000.
func ParseTint(s string) (Tint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "black", "#000000", "#000":
		return TintBlack, nil
	case "red", "#ff0000", "#f00":
		return TintRed, nil
	}
	return 0, fmt.Errorf("unsupported color %q", s)
}

// Orientation says whether the content runs along the label or across it.
type Orientation int

const (
	Standard Orientation = iota
	Rotated
)

// ParseOrientation accepts standard and rotated.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return Standard, nil
	case "rotated":
		return Rotated, nil
	}
	return 0, fmt.Errorf("unsupported orientation %q", s)
}

func (o Orientation) String() string {
	if o == Rotated {
		return "rotated"
	}
	return "standard"
}

func (o Orientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Kind selects the primary content of a label.
type Kind int

const (
	// KindText is text only.
	KindText Kind = iota
	// KindCode is a QR code or barcode without text.
	KindCode
	// KindCodeText is a QR code or barcode followed by the remaining text.
	KindCodeText
	// KindImage is a caller supplied bitmap.
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindCodeText:
		return "code+text"
	case KindImage:
		return "image"
	default:
		return "text"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ImageMode is the colour conversion applied to image content.
type ImageMode int

const (
	ModeGrayscale ImageMode = iota
	ModeBlackWhite
	ModeRedBlack
	ModeColored
)

// ParseImageMode accepts grayscale, black_and_white, red_and_black and colored.
func ParseImageMode(s string) (ImageMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "grayscale":
		return ModeGrayscale, nil
	case "black_and_white", "bw":
		return ModeBlackWhite, nil
	case "red_and_black", "red_black":
		return ModeRedBlack, nil
	case "colored", "color":
		return ModeColored, nil
	}
	return 0, fmt.Errorf("unsupported image mode %q", s)
}

func (m ImageMode) String() string {
	switch m {
	case ModeBlackWhite:
		return "black_and_white"
	case ModeRedBlack:
		return "red_and_black"
	case ModeColored:
		return "colored"
	default:
		return "grayscale"
	}
}

func (m ImageMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// QROptions tune QR code generation.
type QROptions struct {
	// BoxSize is the number of dots per module.
	BoxSize int `json:"boxSize"`
	// Correction is one of L, M, Q, H.
	Correction string `json:"correction"`
}

// Content is the primary payload of a label. Only the fields matching Kind
// are used.
type Content struct {
	Kind Kind `json:"kind"`
	// Symbology names the code for KindCode and KindCodeText, e.g. QR or EAN13.
	Symbology string      `json:"symbology,omitempty"`
	QR        QROptions   `json:"qr"`
	Image     image.Image `json:"-"`
	ImageMode ImageMode   `json:"imageMode"`
	// Threshold is the black/white cut-off in percent for ModeBlackWhite.
	Threshold int `json:"threshold,omitempty"`
}

// Line is one line of label text.
type Line struct {
	Text string      `json:"text"`
	Font *fonts.Font `json:"font"`
	Size int         `json:"size"`
	// Align is checked when the request is parsed, never while painting.
	Align Align `json:"align"`
	// LineSpacing is a percentage; 100 is single spacing.
	LineSpacing int  `json:"lineSpacing"`
	Tint        Tint `json:"tint"`
	Inverted    bool `json:"inverted,omitempty"`
	Todo        bool `json:"todo,omitempty"`
}

// Margin is measured in dots.
type Margin struct {
	Left   int `json:"left"`
	Right  int `json:"right"`
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

// Border describes the optional frame drawn around the finished canvas.
type Border struct {
	Thickness int  `json:"thickness"`
	Radius    int  `json:"radius"`
	InsetX    int  `json:"insetX"`
	InsetY    int  `json:"insetY"`
	Tint      Tint `json:"tint"`
}

// Spec is everything needed to render one label. It is built once per
// request and consumed by a single Build call.
type Spec struct {
	// Width and Height are in dots. On endless media the axis that follows
	// the content (height when Standard, width when Rotated) is derived.
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	Content     Content          `json:"content"`
	Orientation Orientation      `json:"orientation"`
	Media       media.FormFactor `json:"media"`
	Margin      Margin           `json:"margin"`
	Lines       []Line           `json:"lines"`
	Fit         bool             `json:"fit"`
	Border      Border           `json:"border"`
	// Tint colours generated QR codes and barcodes.
	Tint Tint `json:"tint"`
	// Counter and Timestamp feed {{counter}} and {{datetime}} placeholders.
	Counter   int       `json:"counter"`
	Timestamp time.Time `json:"timestamp"`
}

// LineBox is the measured box of one line in paragraph coordinates. The
// first line starts at y = 0; X0 is 0 for every line.
type LineBox struct {
	X0       int `json:"x0"`
	Y0       int `json:"y0"`
	X1       int `json:"x1"`
	Y1       int `json:"y1"`
	Baseline int `json:"baseline"`
}

// Width of the box.
func (b LineBox) Width() int { return b.X1 - b.X0 }

// Height of the box.
func (b LineBox) Height() int { return b.Y1 - b.Y0 }

// Extent is the bounding box of a whole paragraph.
type Extent struct {
	MinX int `json:"minX"`
	MinY int `json:"minY"`
	MaxX int `json:"maxX"`
	MaxY int `json:"maxY"`
}

// Width of the paragraph.
func (e Extent) Width() int { return e.MaxX - e.MinX }

// Height of the paragraph.
func (e Extent) Height() int { return e.MaxY - e.MinY }

// Placement is a measured line positioned on the canvas.
type Placement struct {
	Line Line `json:"line"`
	// Box is the line box including the checkbox area.
	Box image.Rectangle `json:"box"`
	// Origin is the left end of the text baseline.
	Origin image.Point `json:"origin"`
	// Background is filled behind inverted lines.
	Background image.Rectangle `json:"background,omitempty"`
	// Checkbox is drawn before todo lines.
	Checkbox image.Rectangle `json:"checkbox,omitempty"`
}

// Result is the computed geometry of one label.
type Result struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	Content   image.Image `json:"-"`
	ContentAt image.Point `json:"contentAt"`
	// Scale is the factor applied to the content when fitting; 1 otherwise.
	Scale float64 `json:"scale"`

	WantsText  bool        `json:"wantsText"`
	TextAt     image.Point `json:"textAt"`
	Lines      []Line      `json:"lines"`
	Boxes      []LineBox   `json:"boxes"`
	Extent     Extent      `json:"extent"`
	Placements []Placement `json:"placements"`

	Orientation Orientation      `json:"orientation"`
	Media       media.FormFactor `json:"media"`
	Border      Border           `json:"border"`
}

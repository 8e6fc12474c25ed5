// Package designer turns label requests into layout specs and drives the
// preview, print and status operations.
package designer

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Request describes one label as submitted by a user. Unset optional
// fields fall back to the configuration.
type Request struct {
	LabelSize   string `yaml:"label_size" json:"label_size"`
	PrintType   string `yaml:"print_type" json:"print_type"`
	Orientation string `yaml:"orientation" json:"orientation"`

	MarginTop    *int `yaml:"margin_top" json:"margin_top"`
	MarginBottom *int `yaml:"margin_bottom" json:"margin_bottom"`
	MarginLeft   *int `yaml:"margin_left" json:"margin_left"`
	MarginRight  *int `yaml:"margin_right" json:"margin_right"`

	BorderThickness *int   `yaml:"border_thickness" json:"border_thickness"`
	BorderRoundness int    `yaml:"border_roundness" json:"border_roundness"`
	BorderDistanceX int    `yaml:"border_distance_x" json:"border_distance_x"`
	BorderDistanceY int    `yaml:"border_distance_y" json:"border_distance_y"`
	BorderColor     string `yaml:"border_color" json:"border_color"`

	Text []TextLine `yaml:"text" json:"text"`

	BarcodeType      string `yaml:"barcode_type" json:"barcode_type"`
	QRCodeSize       int    `yaml:"qrcode_size" json:"qrcode_size"`
	QRCodeCorrection string `yaml:"qrcode_correction" json:"qrcode_correction"`

	ImageMode        string `yaml:"image_mode" json:"image_mode"`
	ImageBWThreshold *int   `yaml:"image_bw_threshold" json:"image_bw_threshold"`
	ImageFit         *bool  `yaml:"image_fit" json:"image_fit"`
	// ImageFile is read by LoadRequest relative to the request file.
	ImageFile string `yaml:"image" json:"-"`
	Image     []byte `yaml:"-" json:"-"`
	ImageName string `yaml:"image_name" json:"image_name"`

	PrintColor string `yaml:"print_color" json:"print_color"`
	// Timestamp in Unix seconds for {{datetime}}; 0 means now.
	Timestamp int64 `yaml:"timestamp" json:"timestamp"`
	HighRes   bool  `yaml:"high_res" json:"high_res"`

	PrintCount   int  `yaml:"print_count" json:"print_count"`
	CutOnce      bool `yaml:"cut_once" json:"cut_once"`
	CounterStart int  `yaml:"counter_start" json:"counter_start"`
}

// TextLine is one line of the request text.
type TextLine struct {
	Text   string `yaml:"text" json:"text"`
	Family string `yaml:"family" json:"family"`
	Style  string `yaml:"style" json:"style"`
	// Size is required; nil reports "Font size is required".
	Size        *int   `yaml:"size" json:"size"`
	Align       string `yaml:"align" json:"align"`
	LineSpacing int    `yaml:"line_spacing" json:"line_spacing"`
	Color       string `yaml:"color" json:"color"`
	Inverted    bool   `yaml:"inverted" json:"inverted"`
	Todo        bool   `yaml:"todo" json:"todo"`
}

func (r *Request) startCounter() int {
	if r == nil {
		return 0
	}
	return r.CounterStart
}

// ParseRequest decodes a YAML request.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, validationErr("Invalid request", err)
	}
	return &req, nil
}

// LoadRequest reads a YAML request file and the image it refers to.
func LoadRequest(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	req, err := ParseRequest(data)
	if err != nil {
		return nil, err
	}
	if req.ImageFile != "" {
		p := req.ImageFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		img, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		req.Image = img
		if req.ImageName == "" {
			req.ImageName = filepath.Base(p)
		}
	}
	return req, nil
}

func validationErr(msg string, err error) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf("%s: %v", msg, err), Err: err}
}

// Package config loads the label designer configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/qlabel/fonts"
	"github.com/ByLCY/qlabel/layout"
	"github.com/ByLCY/qlabel/media"
)

// Red policies for red content on hardware without a red plane.
const (
	RedDowngrade = "downgrade"
	RedReject    = "reject"
)

type Config struct {
	Printer PrinterConfig `yaml:"printer"`
	Label   LabelConfig   `yaml:"label"`
	Image   ImageConfig   `yaml:"image"`
	Fonts   FontsConfig   `yaml:"fonts"`
	Logging LoggingConfig `yaml:"logging"`
}

type PrinterConfig struct {
	Model string `yaml:"model"`
	// Device is tcp://host[:port], file:///path or a device path.
	Device    string `yaml:"device"`
	Offline   bool   `yaml:"offline"`
	RedPolicy string `yaml:"red_policy"`
}

type LabelConfig struct {
	Size        string        `yaml:"size"`
	Orientation string        `yaml:"orientation"`
	FontFamily  string        `yaml:"font_family"`
	FontStyle   string        `yaml:"font_style"`
	FontSize    int           `yaml:"font_size"`
	LineSpacing int           `yaml:"line_spacing"`
	QRSize      int           `yaml:"qr_size"`
	Margins     MarginsConfig `yaml:"margins"`
	// MaxTextLength is the longest accepted line, in characters.
	MaxTextLength int `yaml:"max_text_length"`
	// MaxImageBytes limits uploaded images.
	MaxImageBytes   int64 `yaml:"max_image_bytes"`
	BorderThickness int   `yaml:"border_thickness"`
}

// MarginsConfig accepts dots ("24") or physical lengths ("2mm").
type MarginsConfig struct {
	Top    layout.Length `yaml:"top"`
	Bottom layout.Length `yaml:"bottom"`
	Left   layout.Length `yaml:"left"`
	Right  layout.Length `yaml:"right"`
}

type ImageConfig struct {
	Mode        string `yaml:"mode"`
	BWThreshold int    `yaml:"bw_threshold"`
}

type FontsConfig struct {
	Folders    []string `yaml:"folders"`
	ScanSystem bool     `yaml:"scan_system"`
	// Watch reloads the registry when a folder changes.
	Watch bool `yaml:"watch"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	dots := func(v float64) layout.Length { return layout.Length{Value: v, Unit: layout.UnitDots} }
	return Config{
		Printer: PrinterConfig{
			Model:     "QL-500",
			Device:    "file:///dev/usb/lp0",
			RedPolicy: RedDowngrade,
		},
		Label: LabelConfig{
			Size:        "62",
			Orientation: "standard",
			FontFamily:  fonts.FamilyGo,
			FontStyle:   "Regular",
			FontSize:    70,
			LineSpacing: 100,
			QRSize:      10,
			Margins: MarginsConfig{
				Top: dots(24), Bottom: dots(45), Left: dots(35), Right: dots(35),
			},
			MaxTextLength: 10_000,
			MaxImageBytes: 16 << 20,
		},
		Image: ImageConfig{
			Mode:        "grayscale",
			BWThreshold: 70,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults, applies the environment and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from PRINTER_MODEL, PRINTER_PRINTER,
// PRINTER_OFFLINE, LABEL_DEFAULT_SIZE and LABEL_DEFAULT_ORIENTATION.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PRINTER_MODEL"); ok && v != "" {
		c.Printer.Model = v
	}
	if v, ok := lookup("PRINTER_PRINTER"); ok && v != "" {
		c.Printer.Device = v
	}
	if v, ok := lookup("PRINTER_OFFLINE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PRINTER_OFFLINE: %w", err)
		}
		c.Printer.Offline = b
	}
	if v, ok := lookup("LABEL_DEFAULT_SIZE"); ok && v != "" {
		c.Label.Size = v
	}
	if v, ok := lookup("LABEL_DEFAULT_ORIENTATION"); ok && v != "" {
		c.Label.Orientation = v
	}
	return nil
}

// Validate checks every setting that names something in the catalogues.
func (c Config) Validate() error {
	var errs []error
	if _, err := media.LookupModel(c.Printer.Model); err != nil {
		errs = append(errs, fmt.Errorf("printer.model: %w", err))
	}
	switch strings.ToLower(c.Printer.RedPolicy) {
	case RedDowngrade, RedReject:
	default:
		errs = append(errs, fmt.Errorf("printer.red_policy: unknown policy %q", c.Printer.RedPolicy))
	}
	if _, err := media.LookupLabel(c.Label.Size); err != nil {
		errs = append(errs, fmt.Errorf("label.size: %w", err))
	}
	if _, err := layout.ParseOrientation(c.Label.Orientation); err != nil {
		errs = append(errs, fmt.Errorf("label.orientation: %w", err))
	}
	if c.Label.FontSize < 1 {
		errs = append(errs, errors.New("label.font_size: must be at least 1"))
	}
	if c.Label.LineSpacing < 0 {
		errs = append(errs, errors.New("label.line_spacing: must not be negative"))
	}
	if c.Label.QRSize < 1 {
		errs = append(errs, errors.New("label.qr_size: must be at least 1"))
	}
	if c.Label.MaxTextLength < 1 {
		errs = append(errs, errors.New("label.max_text_length: must be at least 1"))
	}
	if c.Label.BorderThickness < 0 {
		errs = append(errs, errors.New("label.border_thickness: must not be negative"))
	}
	if _, err := layout.ParseImageMode(c.Image.Mode); err != nil {
		errs = append(errs, fmt.Errorf("image.mode: %w", err))
	}
	if c.Image.BWThreshold < 0 || c.Image.BWThreshold > 100 {
		errs = append(errs, errors.New("image.bw_threshold: must be between 0 and 100"))
	}
	return errors.Join(errs...)
}

// Margin converts the default margins to dots at dpi.
func (l LabelConfig) Margin(dpi int) layout.Margin {
	return layout.Margin{
		Top:    l.Margins.Top.ToDots(dpi),
		Bottom: l.Margins.Bottom.ToDots(dpi),
		Left:   l.Margins.Left.ToDots(dpi),
		Right:  l.Margins.Right.ToDots(dpi),
	}
}

// Model returns the configured printer model.
func (c Config) Model() (media.Model, error) {
	return media.LookupModel(c.Printer.Model)
}

// FontOptions builds the registry options.
func (c Config) FontOptions() fonts.Options {
	return fonts.Options{
		Dirs:          c.Fonts.Folders,
		SystemDirs:    c.Fonts.ScanSystem,
		DefaultFamily: c.Label.FontFamily,
		DefaultStyle:  c.Label.FontStyle,
	}
}

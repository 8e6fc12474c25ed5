// Package fonts maps a family and style name to a parsed font.
//
// A Registry is built once (embedded families plus any scanned directories)
// and never changes afterwards. Font files found on disk are parsed lazily
// the first time they are looked up.
package fonts

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/singleflight"

	"github.com/ByLCY/qlabel/logging"
)

// Font is a resolved family/style pair ready for face creation.
type Font struct {
	Family string `json:"family"`
	Style  string `json:"style"`
	// Path is empty for embedded fonts.
	Path string `json:"path,omitempty"`

	sfnt *opentype.Font
	data []byte
}

// OpenType returns the parsed font.
func (f *Font) OpenType() *opentype.Font { return f.sfnt }

// Data returns the raw font file.
func (f *Font) Data() []byte { return f.data }

// FamilyStyles lists the styles of one family, Book/Regular first.
type FamilyStyles struct {
	Family string   `json:"family"`
	Styles []string `json:"styles"`
}

// LookupError is returned when a family or style is not registered.
type LookupError struct {
	Family string
	Style  string
	// UnknownFamily distinguishes a missing family from a missing style.
	UnknownFamily bool
}

func (e *LookupError) Error() string {
	if e.UnknownFamily {
		return fmt.Sprintf("Unknown font family: %s", e.Family)
	}
	return fmt.Sprintf("Unknown font style: %s for font %s", e.Style, e.Family)
}

// source is where a face comes from: embedded bytes or a file path.
type source struct {
	data []byte
	path string
}

func (s source) key() string {
	if s.path != "" {
		return s.path
	}
	return fmt.Sprintf("embed:%p", s.data)
}

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	families map[string]map[string]source

	defaultFamily string
	defaultStyle  string

	group singleflight.Group
	cache sync.Map // source key -> *parsed
}

type parsed struct {
	font *opentype.Font
	data []byte
}

// Options configure NewRegistry.
type Options struct {
	// Dirs are scanned recursively for .ttf and .otf files.
	Dirs []string
	// SystemDirs adds the usual platform font directories to Dirs.
	SystemDirs bool
	// NoEmbedded leaves out the built-in families.
	NoEmbedded bool
	// DefaultFamily and DefaultStyle name the preferred default font.
	DefaultFamily string
	DefaultStyle  string
}

// NewRegistry scans the configured directories and fixes the default font.
func NewRegistry(opts Options) (*Registry, error) {
	families := map[string]map[string]source{}
	if !opts.NoEmbedded {
		for _, e := range builtins() {
			add(families, e.family, e.style, source{data: e.data})
		}
	}
	dirs := opts.Dirs
	if opts.SystemDirs {
		dirs = append(append([]string{}, dirs...), systemDirs()...)
	}
	for _, dir := range dirs {
		if err := scanDir(families, dir); err != nil {
			return nil, fmt.Errorf("scan fonts in %s: %w", dir, err)
		}
	}
	consolidate(families)
	if len(families) == 0 {
		return nil, errors.New("no fonts available")
	}

	r := &Registry{families: families}
	r.pickDefault(opts.DefaultFamily, opts.DefaultStyle)
	return r, nil
}

func add(families map[string]map[string]source, family, style string, src source) {
	styles, ok := families[family]
	if !ok {
		styles = map[string]source{}
		families[family] = styles
	}
	styles[style] = src
}

// pickDefault keeps the configured default when it exists and otherwise
// falls back to the first family and style in listing order.
func (r *Registry) pickDefault(family, style string) {
	if f, s, ok := r.resolve(family, style); ok {
		r.defaultFamily, r.defaultStyle = f, s
		return
	}
	first := r.List()[0]
	r.defaultFamily, r.defaultStyle = first.Family, first.Styles[0]
	if family != "" {
		logging.Logger().Warn("configured default font not found, using fallback",
			"family", family, "style", style,
			"fallback_family", r.defaultFamily, "fallback_style", r.defaultStyle)
	}
}

// resolve matches names exactly first and then case-insensitively.
func (r *Registry) resolve(family, style string) (string, string, bool) {
	fam, ok := matchKey(r.families, family)
	if !ok {
		return "", "", false
	}
	st, ok := matchKey(r.families[fam], style)
	if !ok {
		return fam, "", false
	}
	return fam, st, true
}

func matchKey[V any](m map[string]V, name string) (string, bool) {
	if _, ok := m[name]; ok {
		return name, true
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.EqualFold(k, name) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	// names differing only by case resolve to the same one every time
	sort.Strings(keys)
	return keys[0], true
}

// Default returns the default family and style.
func (r *Registry) Default() (family, style string) {
	return r.defaultFamily, r.defaultStyle
}

// DefaultFont resolves the default family and style.
func (r *Registry) DefaultFont() (*Font, error) {
	return r.Lookup(r.defaultFamily, r.defaultStyle)
}

// Lookup resolves a family and style. An empty style means the family's
// first listed style.
func (r *Registry) Lookup(family, style string) (*Font, error) {
	fam, ok := matchKey(r.families, family)
	if !ok {
		return nil, &LookupError{Family: family, Style: style, UnknownFamily: true}
	}
	if style == "" {
		style = sortStyles(r.families[fam])[0]
	}
	st, ok := matchKey(r.families[fam], style)
	if !ok {
		return nil, &LookupError{Family: fam, Style: style}
	}
	src := r.families[fam][st]
	p, err := r.load(src)
	if err != nil {
		return nil, fmt.Errorf("load font %s %s: %w", fam, st, err)
	}
	return &Font{Family: fam, Style: st, Path: src.path, sfnt: p.font, data: p.data}, nil
}

func (r *Registry) load(src source) (*parsed, error) {
	key := src.key()
	if p, ok := r.cache.Load(key); ok {
		return p.(*parsed), nil
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		data := src.data
		if data == nil {
			b, err := os.ReadFile(src.path)
			if err != nil {
				return nil, err
			}
			data = b
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, err
		}
		p := &parsed{font: f, data: data}
		r.cache.Store(key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*parsed), nil
}

// Families returns the family names sorted case-insensitively.
func (r *Registry) Families() []string {
	out := make([]string, 0, len(r.families))
	for f := range r.families {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i]), strings.ToLower(out[j])
		if a == b {
			return out[i] < out[j]
		}
		return a < b
	})
	return out
}

// List returns every family with its styles.
func (r *Registry) List() []FamilyStyles {
	fams := r.Families()
	out := make([]FamilyStyles, 0, len(fams))
	for _, f := range fams {
		out = append(out, FamilyStyles{Family: f, Styles: sortStyles(r.families[f])})
	}
	return out
}

func sortStyles(styles map[string]source) []string {
	var prio, rest []string
	for s := range styles {
		switch strings.ToLower(s) {
		case "book", "regular":
			prio = append(prio, s)
		default:
			rest = append(rest, s)
		}
	}
	sort.Strings(prio)
	sort.Slice(rest, func(i, j int) bool {
		a, b := strings.ToLower(rest[i]), strings.ToLower(rest[j])
		if a == b {
			return rest[i] < rest[j]
		}
		return a < b
	})
	return append(prio, rest...)
}

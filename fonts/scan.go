package fonts

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/image/font/sfnt"

	"github.com/ByLCY/qlabel/logging"
)

func systemDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return []string{"/Library/Fonts", "/System/Library/Fonts", filepath.Join(home, "Library/Fonts")}
	case "windows":
		return []string{`C:\Windows\Fonts`}
	default:
		return []string{
			"/usr/share/fonts",
			"/usr/local/share/fonts",
			filepath.Join(home, ".fonts"),
			filepath.Join(home, ".local/share/fonts"),
		}
	}
}

// isFontFile reports whether a file name looks like a scannable font.
func isFontFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ttf", ".otf":
		return true
	}
	return false
}

// scanDir walks dir and registers every font whose name table carries both
// a family and a subfamily. Missing directories are skipped.
func scanDir(families map[string]map[string]source, dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	var buf sfnt.Buffer
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtrees are not fatal
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || !isFontFile(d.Name()) {
			return nil
		}
		family, style, err := readNames(&buf, path)
		if err != nil {
			logging.Logger().Debug("skip font file", "path", path, "err", err)
			return nil
		}
		add(families, family, style, source{path: path})
		return nil
	})
}

func readNames(buf *sfnt.Buffer, path string) (family, style string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return "", "", err
	}
	if family, err = f.Name(buf, sfnt.NameIDFamily); err != nil {
		return "", "", err
	}
	if style, err = f.Name(buf, sfnt.NameIDSubfamily); err != nil {
		return "", "", err
	}
	if family == "" || style == "" {
		return "", "", errors.New("missing family or style name")
	}
	return family, style, nil
}

// consolidate folds child families into their parent: "DejaVu Sans
// Condensed" becomes the style "Condensed" (or "Condensed / Bold") of
// "DejaVu Sans".
func consolidate(families map[string]map[string]source) {
	names := make([]string, 0, len(families))
	for f := range families {
		names = append(names, f)
	}
	// longest first so nested children fold one level at a time
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	for _, child := range names {
		parent := ""
		for _, cand := range names {
			if cand == child || families[cand] == nil {
				continue
			}
			if strings.HasPrefix(child, cand+" ") && len(cand) > len(parent) {
				parent = cand
			}
		}
		if parent == "" {
			continue
		}
		extra := strings.TrimPrefix(child, parent+" ")
		for style, src := range families[child] {
			name := extra
			if style != "Regular" {
				name += " / " + style
			}
			families[parent][name] = src
		}
		delete(families, child)
	}
}

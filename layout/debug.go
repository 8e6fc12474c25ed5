package layout

import (
	"encoding/json"
	"io"
	"os"
)

// WriteDebugJSON dumps the computed geometry to path, or to stdout when
// path is "-".
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	if path == "-" {
		return EncodeDebugJSON(os.Stdout, res)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeDebugJSON(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeDebugJSON writes res as indented JSON.
func EncodeDebugJSON(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

package printer

import (
	"context"

	"github.com/ByLCY/qlabel/logging"
	"github.com/ByLCY/qlabel/media"
	"github.com/ByLCY/qlabel/ql"
)

// DeviceStatus is the state of a printer as shown to users.
type DeviceStatus struct {
	Errors        []string `json:"errors"`
	Path          string   `json:"path"`
	MediaCategory string   `json:"media_category"`
	MediaLength   int      `json:"media_length"`
	MediaType     string   `json:"media_type"`
	MediaWidth    int      `json:"media_width"`
	Model         string   `json:"model"`
	ModelCode     int      `json:"model_code"`
	PhaseType     string   `json:"phase_type"`
	SeriesCode    int      `json:"series_code"`
	Setting       int      `json:"setting"`
	StatusCode    int      `json:"status_code"`
	StatusType    string   `json:"status_type"`
	TapeColor     string   `json:"tape_color"`
	TextColor     string   `json:"text_color"`
	RedSupport    bool     `json:"red_support"`
}

// StatusReader asks a device for its status. ql.Conn implements it.
type StatusReader interface {
	Status(ctx context.Context) (*ql.Status, error)
}

// Opener connects to a device specifier.
type Opener func(device string) (StatusReader, error)

// Probe reports the status of device. Offline mode answers with the
// configured model without touching the device. Failures never escape;
// they end up in Errors.
func Probe(ctx context.Context, device string, offline bool, defaultModel string, open Opener) DeviceStatus {
	st := DeviceStatus{
		Errors:     []string{},
		Path:       device,
		Model:      "Unknown",
		PhaseType:  "Unknown",
		StatusType: "Unknown",
	}
	if offline {
		st.Model = defaultModel
		st.StatusType = "Offline"
		st.RedSupport = media.SupportsTwoColor(defaultModel)
		return st
	}
	if open == nil {
		open = func(device string) (StatusReader, error) { return ql.Open(device) }
	}

	conn, err := open(device)
	if err != nil {
		logging.Logger().Error("open printer", "device", device, "err", err)
		st.Errors = []string{err.Error()}
		return st
	}
	s, err := conn.Status(ctx)
	if err != nil {
		logging.Logger().Error("read printer status", "device", device, "err", err)
		st.Errors = []string{err.Error()}
		return st
	}

	st.Errors = append(st.Errors, s.Errors...)
	st.MediaCategory = s.MediaCategory
	st.MediaLength = s.MediaLength
	st.MediaType = s.MediaType
	st.MediaWidth = s.MediaWidth
	st.Model = s.Model
	st.ModelCode = int(s.ModelCode)
	st.PhaseType = s.PhaseType
	st.SeriesCode = int(s.SeriesCode)
	st.Setting = int(s.Setting)
	st.StatusCode = int(s.StatusCode)
	st.StatusType = s.StatusType
	st.TapeColor = s.TapeColor
	st.TextColor = s.TextColor
	st.RedSupport = media.SupportsTwoColor(s.Model)
	return st
}

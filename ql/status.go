package ql

import (
	"errors"
	"fmt"
)

// StatusSize is the length of a status reply.
const StatusSize = 32

// StatusRequest returns the command asking the printer for its status.
func StatusRequest() []byte {
	return append([]byte(nil), cmdStatusRequest...)
}

// Status is a decoded status reply.
type Status struct {
	SeriesCode    byte
	ModelCode     byte
	Model         string
	Errors        []string
	MediaWidth    int // mm
	MediaLength   int // mm, 0 for endless
	MediaType     string
	MediaCategory string
	Setting       byte
	StatusCode    byte
	StatusType    string
	PhaseType     string
	TapeColor     string
	TextColor     string
}

// Done reports a finished print.
func (s *Status) Done() bool { return s.StatusCode == 0x01 }

// Waiting reports that the printer accepts the next job.
func (s *Status) Waiting() bool { return s.PhaseType == "Waiting to receive" }

// ErrBadStatus is returned for replies that are not a status frame.
var ErrBadStatus = errors.New("invalid status reply")

var modelCodes = map[byte]string{
	0x4f: "QL-500",
	0x31: "QL-560",
	0x32: "QL-570",
	0x33: "QL-580N",
	0x51: "QL-650TD",
	0x35: "QL-700",
	0x36: "QL-710W",
	0x37: "QL-720NW",
	0x38: "QL-800",
	0x39: "QL-810W",
	0x41: "QL-820NWB",
	0x43: "QL-1100",
	0x44: "QL-1110NWB",
	0x45: "QL-1115NWB",
	0x50: "QL-1050",
	0x34: "QL-1060N",
}

var errorBits = [2][8]string{
	{
		"No media when printing",
		"End of media (die-cut size only)",
		"Tape cutter jam",
		"Not used",
		"Main unit in use (QL-560/650TD/1050)",
		"Printer turned off",
		"High-voltage adapter (not used)",
		"Fan doesn't work (QL-1050/1060N)",
	},
	{
		"Replace media error",
		"Expansion buffer full error",
		"Transmission / Communication error",
		"Communication buffer full error (not used)",
		"Cover opened while printing (Except QL-500)",
		"Cancel key (not used)",
		"Media cannot be fed (also when the media end is detected)",
		"System error",
	},
}

var mediaTypes = map[byte]string{
	0x00: "No media",
	0x0a: "Continuous length tape",
	0x0b: "Die-cut labels",
	0x4a: "Continuous length tape",
	0x4b: "Die-cut labels",
}

var statusTypes = map[byte]string{
	0x00: "Reply to status request",
	0x01: "Printing completed",
	0x02: "Error occurred",
	0x04: "Turned off",
	0x05: "Notification",
	0x06: "Phase change",
}

var phaseTypes = map[byte]string{
	0x00: "Waiting to receive",
	0x01: "Printing state",
}

var tapeColors = map[byte]string{
	0x01: "White",
	0x02: "Other",
	0x03: "Clear",
	0x04: "Red",
	0x05: "Blue",
	0x06: "Yellow",
	0x07: "Green",
	0x08: "Black",
	0x09: "Clear (White text)",
}

var textColors = map[byte]string{
	0x01: "White",
	0x04: "Red",
	0x05: "Blue",
	0x08: "Black",
	0x0a: "Gold",
}

// ParseStatus decodes a 32 byte status reply.
func ParseStatus(data []byte) (*Status, error) {
	if len(data) != StatusSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadStatus, len(data))
	}
	if data[0] != 0x80 || data[1] != 0x20 || data[2] != 'B' {
		return nil, fmt.Errorf("%w: header % x", ErrBadStatus, data[:3])
	}
	s := &Status{
		SeriesCode:  data[3],
		ModelCode:   data[4],
		MediaWidth:  int(data[10]),
		MediaLength: int(data[17]),
		Setting:     data[15],
		StatusCode:  data[18],
		Errors:      []string{},
	}
	s.Model = lookup(modelCodes, data[4], "Unknown")
	s.MediaType = lookup(mediaTypes, data[11], "Unknown")
	if data[11] != 0x00 {
		s.MediaCategory = "DK"
	}
	s.StatusType = lookup(statusTypes, data[18], "Unknown")
	s.PhaseType = lookup(phaseTypes, data[19], "Unknown")
	s.TapeColor = lookup(tapeColors, data[24], "")
	s.TextColor = lookup(textColors, data[25], "")
	for i, b := range [2]byte{data[8], data[9]} {
		for bit := range 8 {
			if b&(1<<bit) != 0 {
				s.Errors = append(s.Errors, errorBits[i][bit])
			}
		}
	}
	return s, nil
}

func lookup(m map[byte]string, key byte, fallback string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

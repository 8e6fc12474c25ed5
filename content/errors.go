// Package content produces the primary bitmap of a label: QR codes,
// barcodes and user supplied images.
package content

// Error is a user-facing content problem: a value a symbology cannot
// encode, an unknown symbology, or an image that cannot be decoded.
type Error struct {
	Op  string // "encode" or "decode"
	Msg string
	Err error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

func encodeError(msg string, err error) error {
	return &Error{Op: "encode", Msg: msg, Err: err}
}

func decodeError(msg string, err error) error {
	return &Error{Op: "decode", Msg: msg, Err: err}
}

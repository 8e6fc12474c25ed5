package designer

import (
	"errors"

	"github.com/ByLCY/qlabel/content"
	"github.com/ByLCY/qlabel/fonts"
	"github.com/ByLCY/qlabel/layout"
)

// Kind classifies errors shown to the user.
type Kind int

const (
	// KindValidation is a malformed or contradictory request.
	KindValidation Kind = iota + 1
	// KindLookup names a font, style or label size that does not exist.
	KindLookup
	// KindContent is a value the chosen code cannot encode.
	KindContent
	// KindTooLarge is text or an upload over the configured limit.
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindLookup:
		return "lookup"
	case KindContent:
		return "content"
	case KindTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// Error is a request problem with a message fit for the user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

func tooLarge(msg string) error { return &Error{Kind: KindTooLarge, Message: msg} }

// KindOf returns the kind of err, or 0 when err is not a request error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsTooLarge reports whether err is an over-limit error.
func IsTooLarge(err error) bool { return KindOf(err) == KindTooLarge }

// classify maps errors of the lower layers onto request errors. Anything
// it does not know is returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var (
		de *Error
		ce *content.Error
		le *fonts.LookupError
	)
	switch {
	case errors.As(err, &de):
		return err
	case errors.As(err, &le):
		return &Error{Kind: KindLookup, Message: le.Error(), Err: err}
	case errors.As(err, &ce):
		kind := KindContent
		if ce.Op == "decode" {
			kind = KindValidation
		}
		return &Error{Kind: kind, Message: ce.Msg, Err: err}
	case errors.Is(err, layout.ErrInvalidBorder):
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	return err
}

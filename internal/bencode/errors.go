package bencode

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInteger = errors.New("malformed integer")
	ErrMalformedLength  = errors.New("malformed length")
	ErrUnknownToken     = errors.New("unknown token")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrUnsortedKeys     = errors.New("unsorted keys")
	ErrInvalidKey       = errors.New("dictionary key is not a string")
	ErrTruncated        = errors.New("truncated input")
	ErrTrailingData     = errors.New("trailing data")
	ErrInvalidValue     = errors.New("invalid value")
	ErrTooDeep          = errors.New("nesting too deep")
)

// SyntaxError describes where decoding failed. It unwraps to its kind, so
// callers match it with errors.Is(err, ErrMalformedInteger) and friends.
type SyntaxError struct {
	Offset int
	Kind   error
	Msg    string

	// a second kind the failure also belongs to
	also error
}

func (e *SyntaxError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("bencode: %v at offset %d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("bencode: %v at offset %d: %s", e.Kind, e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() []error {
	if e.also != nil {
		return []error{e.Kind, e.also}
	}
	return []error{e.Kind}
}

func syntaxError(offset int, kind error, format string, args ...any) *SyntaxError {
	return &SyntaxError{Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

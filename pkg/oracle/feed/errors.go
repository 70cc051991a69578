package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates that a feed could not produce a usable quote.
	ErrUnavailable = errors.New("feed unavailable")
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrInvalidResponse indicates a malformed response from the source.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrInvalidPrice indicates a non-positive or unparseable price.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrUnknownSymbol indicates that the feed has no pair mapping for a symbol.
	ErrUnknownSymbol = errors.New("no pair mapping for symbol")
	// ErrInvalidConfig indicates that the feed configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownFeedType indicates an unregistered feed type.
	ErrUnknownFeedType = errors.New("unknown feed type")
)

// UnavailableError carries the failing source's identity and cause.
// It matches ErrUnavailable under errors.Is.
type UnavailableError struct {
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("feed %s unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches ErrUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func unavailable(source string, err error) error {
	return &UnavailableError{Source: source, Err: err}
}

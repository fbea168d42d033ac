// Package feed reads export records from an input stream.
package feed

import (
	"errors"
	"fmt"

	"github.com/justapithecus/strata/types"
)

// Reader yields records one at a time from an input stream. Next
// returns io.EOF once the stream is exhausted.
type Reader interface {
	Next() (*types.Record, error)
}

// ErrorKind classifies feed decoding errors.
type ErrorKind int

const (
	// ErrorPartial indicates a truncated or incomplete frame.
	ErrorPartial ErrorKind = iota
	// ErrorTooLarge indicates a frame exceeding MaxFrameSize.
	ErrorTooLarge
	// ErrorDecode indicates a payload that could not be decoded.
	ErrorDecode
)

// Error represents a feed decoding error.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFatal returns true if this error means the stream is unusable.
// Partial and oversized frames are fatal; decode errors are not, the
// frame was read correctly and the reader can continue.
func (e *Error) IsFatal() bool {
	return e.Kind == ErrorPartial || e.Kind == ErrorTooLarge
}

// IsFatalError returns true if the error is a fatal feed error.
func IsFatalError(err error) bool {
	var feedErr *Error
	if errors.As(err, &feedErr) {
		return feedErr.IsFatal()
	}
	return false
}

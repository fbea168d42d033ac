// Package sink defines the external sink contract consumed by the
// exporter, the shipped sink backends, and their error classification.
package sink

import (
	"errors"
	"fmt"
)

// Sentinel errors for sink failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrOpen indicates the destination could not be opened.
	ErrOpen = errors.New("sink open failed")

	// ErrWrite indicates a serialization or I/O failure while writing.
	ErrWrite = errors.New("sink write failed")

	// ErrClosed indicates an operation on an already-closed sink.
	// A second Close reports this rather than silently succeeding.
	ErrClosed = errors.New("sink already closed")

	// ErrUnknownFormat indicates an unsupported sink format.
	ErrUnknownFormat = errors.New("unknown sink format")
)

// OpError wraps an underlying error with sink operation context.
// It preserves the original error in the chain for errors.As inspection.
type OpError struct {
	// Kind is the sentinel error for classification.
	Kind error
	// Op is the operation that failed ("open", "write", "close").
	Op string
	// Address is the chunk destination involved.
	Address string
	// Err is the underlying error, if any.
	Err error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Address, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Address, e.Kind)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *OpError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func openErr(address string, err error) error {
	return &OpError{Kind: ErrOpen, Op: "open", Address: address, Err: err}
}

func writeErr(address string, err error) error {
	return &OpError{Kind: ErrWrite, Op: "write", Address: address, Err: err}
}

func closedErr(op, address string) error {
	return &OpError{Kind: ErrClosed, Op: op, Address: address}
}

package export

import (
	"errors"
	"fmt"
)

// Sentinel errors for exporter failure classification.
var (
	// ErrNotConfigured indicates missing or invalid exporter
	// configuration. Reported by Start before any sink is opened; the
	// run must not proceed.
	ErrNotConfigured = errors.New("exporter not configured")

	// ErrInvalidState indicates a lifecycle call out of order: Submit
	// before Start or after Finish, or Start/Finish called twice.
	// Always a programming error, never retried.
	ErrInvalidState = errors.New("invalid exporter state")
)

// ConfigError reports the configuration key that failed validation.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrNotConfigured, e.Key, e.Reason)
}

// Unwrap returns ErrNotConfigured for errors.Is chain traversal.
func (e *ConfigError) Unwrap() error {
	return ErrNotConfigured
}

// StateError reports a lifecycle operation attempted in the wrong state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%v: %s in state %s", ErrInvalidState, e.Op, e.State)
}

// Unwrap returns ErrInvalidState for errors.Is chain traversal.
func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

package uritemplate

import (
	"errors"
	"fmt"
)

// Sentinel errors for template failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrBadSyntax indicates a malformed placeholder in the template.
	ErrBadSyntax = errors.New("malformed template")

	// ErrUnknownPlaceholder indicates a placeholder name outside the
	// allowed set. Reported at compile time.
	ErrUnknownPlaceholder = errors.New("unknown placeholder")

	// ErrMissingParam indicates a placeholder with no usable value in
	// the parameter map. Reported at resolve time.
	ErrMissingParam = errors.New("missing parameter")
)

// Error wraps a template failure with its classification.
type Error struct {
	// Kind is the sentinel error for classification.
	Kind error
	// Template is the offending template text.
	Template string
	// Detail names the placeholder or describes the syntax problem.
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("template %q: %v: %s", e.Template, e.Kind, e.Detail)
}

// Unwrap returns the sentinel for errors.Is chain traversal.
func (e *Error) Unwrap() error {
	return e.Kind
}

package validator

import (
	"errors"
	"fmt"
)

// UnavailableError means checker infrastructure failed: the document could not
// be checked at all. The repair loop aborts on it rather than treating it as a
// non-conformant draft.
type UnavailableError struct {
	// Checker names the failing checker, "structural" or "semantic".
	Checker string

	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s checker unavailable: %v", e.Checker, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// NewUnavailable wraps a checker infrastructure failure.
func NewUnavailable(checker string, err error) *UnavailableError {
	return &UnavailableError{Checker: checker, Err: err}
}

// IsUnavailable reports whether err is a checker infrastructure failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

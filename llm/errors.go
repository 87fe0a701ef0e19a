package llm

import (
	"errors"
)

// Error types for classifying oracle transport errors.

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent error that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// OracleFailureError reports that the oracle was unreachable or returned
// output that could not be parsed into the stage's required structure.
// Distinct from a policy-level rejection: a REJECTED decision is data, an
// OracleFailureError is an infrastructure fault surfaced to the caller.
type OracleFailureError struct {
	// Stage is the pipeline stage whose oracle call failed.
	Stage string

	// Err is the underlying cause.
	Err error
}

func (e *OracleFailureError) Error() string {
	return "oracle failure in " + e.Stage + " stage: " + e.Err.Error()
}

func (e *OracleFailureError) Unwrap() error {
	return e.Err
}

// NewOracleFailure wraps an error as an oracle contract failure.
func NewOracleFailure(stage string, err error) error {
	return &OracleFailureError{Stage: stage, Err: err}
}

// IsOracleFailure returns true if the error is an oracle contract failure.
func IsOracleFailure(err error) bool {
	var of *OracleFailureError
	return errors.As(err, &of)
}

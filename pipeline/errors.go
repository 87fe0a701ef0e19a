package pipeline

import (
	"errors"
	"fmt"

	"github.com/Daham-Mustaf/semantic-policy-generation/validator"
)

// AttemptsExhausted means the repair loop reached its attempt budget without
// producing a conformant draft. The last report carries the violations that
// could not be repaired.
type AttemptsExhausted struct {
	PolicyID   string
	Attempts   int
	LastReport *validator.Report
}

func (e *AttemptsExhausted) Error() string {
	violations := 0
	if e.LastReport != nil {
		violations = len(e.LastReport.Violations)
	}
	return fmt.Sprintf("policy %s not conformant after %d attempt(s), %d violation(s) remain",
		e.PolicyID, e.Attempts, violations)
}

// IsAttemptsExhausted reports whether err is a repair budget failure.
func IsAttemptsExhausted(err error) bool {
	var ae *AttemptsExhausted
	return errors.As(err, &ae)
}

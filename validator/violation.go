// Package validator provides the structural shapes checker and the semantic
// operator/operand compatibility checker the repair loop runs against each
// draft, plus the violation report fed back into targeted regeneration.
package validator

import (
	"fmt"
	"sort"
	"strings"
)

// Kind distinguishes the two violation sources.
type Kind string

const (
	// KindStructural violations come from the shapes checker.
	KindStructural Kind = "structural"

	// KindSemantic violations come from the compatibility checker.
	KindSemantic Kind = "semantic"
)

// Violation is a single conformance failure. Violations are data, never
// errors: a well-functioning checker reporting violations has succeeded.
type Violation struct {
	Kind Kind `json:"kind"`

	// Constraint identifies the violated shape or compatibility rule.
	Constraint string `json:"constraint"`

	// Message is the human-readable explanation.
	Message string `json:"message"`

	// Node references the offending document element, e.g.
	// "rules[1].constraints[0]".
	Node string `json:"node"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s at %s: %s", v.Kind, v.Constraint, v.Node, v.Message)
}

// Report is the result of one checking pass over one draft. Checking an
// unchanged draft against unchanged shapes yields an identical report apart
// from the attempt number, which the loop stamps.
type Report struct {
	// PolicyID references the checked draft.
	PolicyID string `json:"policy_id"`

	// Violations in checker order: structural first, then semantic.
	Violations []Violation `json:"violations"`

	// Attempt is the 1-based repair loop attempt that produced this report.
	Attempt int `json:"attempt"`

	// Warnings carry non-fatal observations, e.g. semantic drift between
	// successive drafts. Warnings never affect conformance.
	Warnings []string `json:"warnings,omitempty"`
}

// Conformant reports whether the draft passed both checkers.
func (r *Report) Conformant() bool {
	return len(r.Violations) == 0
}

// ViolationsOfKind returns the violations of one kind in report order.
func (r *Report) ViolationsOfKind(kind Kind) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// FeedbackSection renders the exact violation list for the repair prompt:
// every violation with its constraint, node and message, grouped by
// constraint identifier. Never a summary.
func (r *Report) FeedbackSection() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Status**: INVALID - %d issue(s) detected\n\n", len(r.Violations))

	groups := map[string][]Violation{}
	var order []string
	for _, v := range r.Violations {
		if _, ok := groups[v.Constraint]; !ok {
			order = append(order, v.Constraint)
		}
		groups[v.Constraint] = append(groups[v.Constraint], v)
	}
	sort.Strings(order)

	for _, constraint := range order {
		fmt.Fprintf(&sb, "### %s\n", constraint)
		for i, v := range groups[constraint] {
			fmt.Fprintf(&sb, "%d. **Kind**: %s\n", i+1, v.Kind)
			fmt.Fprintf(&sb, "   **Node**: `%s`\n", v.Node)
			fmt.Fprintf(&sb, "   **Problem**: %s\n\n", v.Message)
		}
	}

	return sb.String()
}

// Package reasoner implements the conflict-detection taxonomy and decision
// protocol, the first stage of the pipeline. A requirement passes through six
// ordered detection phases; findings accumulate and the decision is derived
// from which phases fired, never taken on the oracle's word alone.
package reasoner

import (
	"fmt"
)

// Category is one of the six closed conflict classifications. New categories
// require a schema change here, not runtime registration.
type Category string

const (
	// CategoryVagueness flags unmeasurable or unboundedly broad scope terms.
	CategoryVagueness Category = "vagueness"

	// CategoryTemporal flags overlapping or contradictory time bounds.
	CategoryTemporal Category = "temporal"

	// CategorySpatial flags geographic scope contradictions across the
	// region containment hierarchy.
	CategorySpatial Category = "spatial"

	// CategoryActionHierarchy flags permission/prohibition pairs on actions
	// related by subsumption.
	CategoryActionHierarchy Category = "action_hierarchy"

	// CategoryRoleHierarchy flags inconsistent party specification across a
	// role hierarchy.
	CategoryRoleHierarchy Category = "role_hierarchy"

	// CategoryCircularDependency flags approval chains with no reachable
	// terminal grant state.
	CategoryCircularDependency Category = "circular_dependency"
)

// categoryPhases maps each category to its detection phase (1-6). Phases run
// in order but are independent and additive; no phase short-circuits another.
var categoryPhases = map[Category]int{
	CategoryVagueness:          1,
	CategoryTemporal:           2,
	CategorySpatial:            3,
	CategoryActionHierarchy:    4,
	CategoryRoleHierarchy:      5,
	CategoryCircularDependency: 6,
}

// IsValid reports whether the category is one of the six.
func (c Category) IsValid() bool {
	_, ok := categoryPhases[c]
	return ok
}

// Phase returns the detection phase for the category (0 for unknown).
func (c Category) Phase() int {
	return categoryPhases[c]
}

// Categories returns all categories in phase order.
func Categories() []Category {
	return []Category{
		CategoryVagueness, CategoryTemporal, CategorySpatial,
		CategoryActionHierarchy, CategoryRoleHierarchy, CategoryCircularDependency,
	}
}

// ParseCategory validates a category string from oracle output.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown conflict category: %q", s)
	}
	return c, nil
}

// Finding is a single detected conflict. Order of findings is detection
// order and carries no correctness weight.
type Finding struct {
	Category    Category `json:"category"`
	Explanation string   `json:"explanation"`

	// Evidence quotes the requirement spans that triggered the finding.
	Evidence []string `json:"evidence,omitempty"`

	// Suggestion is a concrete rewording that would clear the finding.
	Suggestion string `json:"suggestion,omitempty"`

	// Phase records which detection phase produced the finding.
	Phase int `json:"phase"`
}

// Irreconcilable reports whether the finding is a concrete contradiction.
// Vagueness is ambiguity without contradiction; everything else is.
func (f Finding) Irreconcilable() bool {
	return f.Category != CategoryVagueness
}

// Decision is the terminal outcome of a reasoning run.
type Decision string

const (
	// DecisionApproved means no findings; generation may proceed.
	DecisionApproved Decision = "APPROVED"

	// DecisionRejected means at least one irreconcilable contradiction.
	DecisionRejected Decision = "REJECTED"

	// DecisionNeedsInput means ambiguity without contradiction; the
	// requirement needs clarification, not a best-effort guess.
	DecisionNeedsInput Decision = "NEEDS_INPUT"
)

// DeriveDecision computes the decision from findings. Any finding from
// phases 2-6 is a concrete contradiction and forces REJECTED; vagueness-only
// findings yield NEEDS_INPUT; no findings yield APPROVED.
func DeriveDecision(findings []Finding) Decision {
	if len(findings) == 0 {
		return DecisionApproved
	}
	for _, f := range findings {
		if f.Irreconcilable() {
			return DecisionRejected
		}
	}
	return DecisionNeedsInput
}

// StructuredRequirement is the decomposition the oracle extracts while
// reasoning: the involved parties, actions, assets and constraint spans.
// Immutable once created; owned by the pipeline run.
type StructuredRequirement struct {
	Parties  []string `json:"parties,omitempty"`
	Actions  []string `json:"actions,omitempty"`
	Assets   []string `json:"assets,omitempty"`
	Temporal []string `json:"temporal,omitempty"`
	Spatial  []string `json:"spatial,omitempty"`
	Purposes []string `json:"purposes,omitempty"`
}

// Result is the complete output of one reasoning run.
type Result struct {
	Decision   Decision              `json:"decision"`
	Findings   []Finding             `json:"findings"`
	Structured StructuredRequirement `json:"structured_requirement"`

	// Reasoning is the oracle's free-text walk through the six phases,
	// retained for audit only.
	Reasoning string `json:"reasoning,omitempty"`
}

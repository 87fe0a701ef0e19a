package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Daham-Mustaf/semantic-policy-generation/generator"
	"github.com/Daham-Mustaf/semantic-policy-generation/llm"
	"github.com/Daham-Mustaf/semantic-policy-generation/model"
	"github.com/Daham-Mustaf/semantic-policy-generation/policy"
	"github.com/Daham-Mustaf/semantic-policy-generation/validator"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// State is the repair loop's position in the draft lifecycle.
type State string

const (
	// StateDrafted means a draft exists and has not been checked.
	StateDrafted State = "DRAFTED"

	// StateChecking means both checkers are running over the draft.
	StateChecking State = "CHECKING"

	// StateValid means the draft passed both checkers.
	StateValid State = "VALID"

	// StateInvalid means the draft failed at least one check.
	StateInvalid State = "INVALID"

	// StateRegenerating means a repair call is producing the next draft.
	StateRegenerating State = "REGENERATING"

	// StateDone is the terminal success state.
	StateDone State = "DONE"

	// StateFailed is the terminal failure state: attempts exhausted or
	// checker infrastructure down.
	StateFailed State = "FAILED"
)

// DefaultMaxAttempts bounds the validate-repair loop.
const DefaultMaxAttempts = 3

// DefaultCheckTimeout bounds one combined checking pass.
const DefaultCheckTimeout = 30 * time.Second

// Attempt records one pass through the loop: the draft that was checked and
// the report it produced. Attempt numbers are 1-based and strictly monotonic.
type Attempt struct {
	Number   int               `json:"number"`
	State    State             `json:"state"`
	Document *policy.Document  `json:"document"`
	Report   *validator.Report `json:"report"`
}

// Loop is the bounded validate-and-repair state machine. Every pass runs the
// structural checker, the semantic checker and the vocabulary grounding check
// over the full draft; a conformant draft terminates, a non-conformant draft
// on the final attempt fails, anything else triggers one repair call.
type Loop struct {
	oracle     llm.Oracle
	structural validator.StructuralChecker
	semantic   validator.SemanticChecker
	shapes     *validator.ShapeStore

	maxAttempts  int
	checkTimeout time.Duration

	logger  *slog.Logger
	metrics *Metrics
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxAttempts overrides the attempt budget.
func WithMaxAttempts(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithCheckTimeout overrides the per-pass checking timeout.
func WithCheckTimeout(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.checkTimeout = d
		}
	}
}

// WithCheckers replaces the built-in checkers.
func WithCheckers(structural validator.StructuralChecker, semantic validator.SemanticChecker) LoopOption {
	return func(l *Loop) {
		if structural != nil {
			l.structural = structural
		}
		if semantic != nil {
			l.semantic = semantic
		}
	}
}

// WithLoopLogger sets the logger.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithLoopMetrics sets the metrics sink.
func WithLoopMetrics(m *Metrics) LoopOption {
	return func(l *Loop) {
		l.metrics = m
	}
}

// NewLoop creates a repair loop with the built-in checkers.
func NewLoop(oracle llm.Oracle, shapes *validator.ShapeStore, opts ...LoopOption) *Loop {
	if shapes == nil {
		shapes = validator.NewShapeStore(validator.DefaultShapes())
	}
	l := &Loop{
		oracle:       oracle,
		structural:   validator.NewShapeChecker(),
		semantic:     validator.NewCompatChecker(),
		shapes:       shapes,
		maxAttempts:  DefaultMaxAttempts,
		checkTimeout: DefaultCheckTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drives the draft through the state machine. It returns the conformant
// document and the full attempt history. On failure the history still carries
// every attempt made; the error is an *AttemptsExhausted when the budget ran
// out, or a *validator.UnavailableError when checking itself failed.
func (l *Loop) Run(ctx context.Context, requirementText string, draft *policy.Document, vocab *odrl.Vocabulary) (*policy.Document, []Attempt, error) {
	shapes := l.shapes.Current()
	var history []Attempt
	var previous *policy.Document

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		l.logger.Debug("Checking draft",
			"policy_id", draft.UID,
			"attempt", attempt,
			"shapes_version", shapes.Version)

		report, err := l.check(ctx, draft, shapes, attempt, vocab)
		if err != nil {
			history = append(history, Attempt{Number: attempt, State: StateFailed, Document: draft})
			return nil, history, err
		}
		if previous != nil {
			report.Warnings = append(report.Warnings, driftWarnings(previous, draft)...)
		}

		if report.Conformant() {
			history = append(history, Attempt{Number: attempt, State: StateDone, Document: draft, Report: report})
			l.observeAttempts(attempt, true)
			l.logger.Info("Draft conformant",
				"policy_id", draft.UID,
				"attempt", attempt)
			return draft, history, nil
		}

		l.logger.Info("Draft non-conformant",
			"policy_id", draft.UID,
			"attempt", attempt,
			"violations", len(report.Violations))

		if attempt == l.maxAttempts {
			history = append(history, Attempt{Number: attempt, State: StateFailed, Document: draft, Report: report})
			l.observeAttempts(attempt, false)
			return nil, history, &AttemptsExhausted{
				PolicyID:   draft.UID,
				Attempts:   attempt,
				LastReport: report,
			}
		}

		history = append(history, Attempt{Number: attempt, State: StateRegenerating, Document: draft, Report: report})

		repaired, err := l.repair(ctx, requirementText, draft, report, vocab)
		if err != nil {
			return nil, history, err
		}
		previous = draft
		draft = repaired
	}

	// Unreachable: the final attempt always returns above.
	return nil, history, fmt.Errorf("repair loop exited without a terminal state")
}

// check runs both checkers and the grounding check under one timeout. Checker
// errors are infrastructure failures, wrapped as unavailable; violations are
// data collected into the report.
func (l *Loop) check(ctx context.Context, draft *policy.Document, shapes *validator.Shapes, attempt int, vocab *odrl.Vocabulary) (*validator.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, l.checkTimeout)
	defer cancel()

	structural, err := l.structural.Check(ctx, draft, shapes)
	if err != nil {
		return nil, validator.NewUnavailable("structural", err)
	}
	semantic, err := l.semantic.CheckSemantics(ctx, draft)
	if err != nil {
		return nil, validator.NewUnavailable("semantic", err)
	}

	violations := append(structural, semantic...)

	// The grounding check also runs on repaired drafts: repair must not
	// reopen the vocabulary closure the first draft was held to.
	if vocabErr := generator.Ground(draft, vocab); vocabErr != nil {
		for _, ref := range vocabErr.Unresolved {
			violations = append(violations, validator.Violation{
				Kind:       validator.KindSemantic,
				Constraint: "vocabulary-grounding",
				Message:    fmt.Sprintf("%s %q is not a declared vocabulary term", ref.Role, ref.Value),
				Node:       ref.Node,
			})
		}
	}

	return &validator.Report{
		PolicyID:   draft.UID,
		Violations: violations,
		Attempt:    attempt,
	}, nil
}

// repair asks the oracle for a corrected draft. The prompt carries the
// original requirement, the current draft and the exact violation list.
func (l *Loop) repair(ctx context.Context, requirementText string, draft *policy.Document, report *validator.Report, vocab *odrl.Vocabulary) (*policy.Document, error) {
	zero := 0.0
	resp, err := l.oracle.Complete(ctx, llm.Request{
		Capability:  model.CapabilityRepair.String(),
		Messages:    []llm.Message{{Role: "user", Content: RepairPrompt(requirementText, draft, report, vocab)}},
		Temperature: &zero,
	})
	if err != nil {
		return nil, llm.NewOracleFailure("repair", err)
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		return nil, llm.NewOracleFailure("repair", fmt.Errorf("no JSON object in repair response"))
	}
	repaired, err := policy.Parse([]byte(raw))
	if err != nil {
		return nil, llm.NewOracleFailure("repair", err)
	}

	// The identifier and timestamp survive repair; only rules may change.
	repaired.UID = draft.UID
	repaired.CreatedAt = draft.CreatedAt
	return repaired, nil
}

// driftWarnings compares rule signatures across successive drafts. Repair is
// meant to fix violations, not to rewrite the policy's meaning; signature
// changes are surfaced as warnings without affecting conformance.
func driftWarnings(previous, current *policy.Document) []string {
	prev := map[string]int{}
	for _, r := range previous.Rules {
		prev[r.Signature()]++
	}
	curr := map[string]int{}
	for _, r := range current.Rules {
		curr[r.Signature()]++
	}

	var warnings []string
	for _, r := range previous.Rules {
		sig := r.Signature()
		if curr[sig] < prev[sig] {
			warnings = append(warnings, fmt.Sprintf("repair dropped rule %s", sig))
			prev[sig] = curr[sig]
		}
	}
	for _, r := range current.Rules {
		sig := r.Signature()
		if prev[sig] < curr[sig] {
			warnings = append(warnings, fmt.Sprintf("repair introduced rule %s", sig))
			curr[sig] = prev[sig]
		}
	}
	return warnings
}

func (l *Loop) observeAttempts(attempts int, conformant bool) {
	if l.metrics == nil {
		return
	}
	l.metrics.ObserveRepairAttempts(attempts, conformant)
}

package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Daham-Mustaf/semantic-policy-generation/llm"
	"github.com/Daham-Mustaf/semantic-policy-generation/model"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// Reasoner runs the six-phase conflict detection protocol over a
// natural-language requirement.
type Reasoner struct {
	oracle llm.Oracle
	logger *slog.Logger

	// now is injectable so tests can pin the current date.
	now func() time.Time
}

// Option configures a Reasoner.
type Option func(*Reasoner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reasoner) {
		r.logger = logger
	}
}

// WithClock overrides the clock used for the current-date prompt field.
func WithClock(now func() time.Time) Option {
	return func(r *Reasoner) {
		r.now = now
	}
}

// New creates a Reasoner backed by the given oracle.
func New(oracle llm.Oracle, opts ...Option) *Reasoner {
	r := &Reasoner{
		oracle: oracle,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// oracleResult mirrors the JSON shape the reasoning prompt requests.
type oracleResult struct {
	Reasoning  string                `json:"reasoning"`
	Findings   []oracleFinding       `json:"findings"`
	Structured StructuredRequirement `json:"structured_requirement"`
}

type oracleFinding struct {
	Category    string   `json:"category"`
	Phase       int      `json:"phase"`
	Explanation string   `json:"explanation"`
	Evidence    []string `json:"evidence"`
	Suggestion  string   `json:"suggestion"`
}

// Reason executes conflict detection on a requirement. The vocabulary
// supplies the semantic context (role membership, region containment) the
// hierarchy phases need.
//
// Findings are data, never errors. The only error paths are an empty
// requirement and an oracle that fails or returns unparsable structure, both
// surfaced as llm.OracleFailureError.
func (r *Reasoner) Reason(ctx context.Context, requirementText string, vocab *odrl.Vocabulary) (*Result, error) {
	if requirementText == "" {
		return nil, llm.NewOracleFailure("reasoner", fmt.Errorf("requirement text is empty"))
	}

	currentDate := r.now().UTC().Format("2006-01-02")
	prompt := ReasoningPrompt(requirementText, currentDate, vocab)

	zero := 0.0
	resp, err := r.oracle.Complete(ctx, llm.Request{
		Capability:  model.CapabilityReasoning.String(),
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: &zero,
	})
	if err != nil {
		return nil, llm.NewOracleFailure("reasoner", err)
	}

	result, err := r.parseResponse(resp.Content)
	if err != nil {
		return nil, llm.NewOracleFailure("reasoner", err)
	}

	r.logger.Info("Reasoning complete",
		"decision", result.Decision,
		"findings", len(result.Findings))

	return result, nil
}

// parseResponse decodes the oracle output and derives the decision from the
// findings. Findings with unknown categories are dropped rather than failing
// the run; a partially parsable finding list is still a usable result.
func (r *Reasoner) parseResponse(content string) (*Result, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in reasoning response")
	}

	var parsed oracleResult
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse reasoning response: %w", err)
	}

	findings := make([]Finding, 0, len(parsed.Findings))
	for _, f := range parsed.Findings {
		category, err := ParseCategory(f.Category)
		if err != nil {
			r.logger.Warn("Dropping finding with unknown category",
				"category", f.Category,
				"explanation", f.Explanation)
			continue
		}
		phase := f.Phase
		if phase != category.Phase() {
			phase = category.Phase()
		}
		findings = append(findings, Finding{
			Category:    category,
			Explanation: f.Explanation,
			Evidence:    f.Evidence,
			Suggestion:  f.Suggestion,
			Phase:       phase,
		})
	}

	return &Result{
		Decision:   DeriveDecision(findings),
		Findings:   findings,
		Structured: parsed.Structured,
		Reasoning:  parsed.Reasoning,
	}, nil
}

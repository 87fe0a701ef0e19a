// Package pipeline orchestrates the three stages: conflict reasoning over the
// requirement, structural generation, and the bounded validate-and-repair
// loop. One Run processes one requirement in isolation.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Daham-Mustaf/semantic-policy-generation/generator"
	"github.com/Daham-Mustaf/semantic-policy-generation/llm"
	"github.com/Daham-Mustaf/semantic-policy-generation/policy"
	"github.com/Daham-Mustaf/semantic-policy-generation/reasoner"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// Status is the terminal status of a pipeline run.
type Status string

const (
	// StatusSuccess means a conformant policy document was produced.
	StatusSuccess Status = "success"

	// StatusRejected means reasoning found an irreconcilable contradiction;
	// generation never ran.
	StatusRejected Status = "rejected"

	// StatusNeedsInput means reasoning found ambiguity without contradiction
	// and the pipeline is configured to stop rather than guess.
	StatusNeedsInput Status = "needs_input"

	// StatusFailed means an infrastructure fault or an exhausted repair
	// budget ended the run without a verdict on the requirement itself.
	StatusFailed Status = "failed"
)

// Outcome is the complete record of one pipeline run.
type Outcome struct {
	RunID       string    `json:"run_id"`
	Requirement string    `json:"requirement"`
	Status      Status    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`

	// Reasoning is always present once the first stage completed.
	Reasoning *reasoner.Result `json:"reasoning,omitempty"`

	// Document and Turtle are set only on success.
	Document *policy.Document `json:"document,omitempty"`
	Turtle   string           `json:"turtle,omitempty"`

	// Attempts is the repair loop history, present whenever generation ran.
	Attempts []Attempt `json:"attempts,omitempty"`

	// Error describes the fault on StatusFailed.
	Error string `json:"error,omitempty"`
}

// Pipeline wires the three stages together.
type Pipeline struct {
	reasoner  *reasoner.Reasoner
	generator *generator.Generator
	loop      *Loop

	proceedOnNeedsInput bool

	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProceedOnNeedsInput lets generation run on a NEEDS_INPUT decision
// instead of stopping for clarification. Off by default.
func WithProceedOnNeedsInput(proceed bool) Option {
	return func(p *Pipeline) {
		p.proceedOnNeedsInput = proceed
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithClock overrides the run clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New assembles a pipeline from its three stages.
func New(r *reasoner.Reasoner, g *generator.Generator, loop *Loop, opts ...Option) *Pipeline {
	p := &Pipeline{
		reasoner:  r,
		generator: g,
		loop:      loop,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes one requirement end to end. The returned Outcome is always
// non-nil; the error is non-nil only for infrastructure faults (oracle
// failure, checker unavailable, exhausted repair budget), never for a
// rejected or needs-input requirement.
func (p *Pipeline) Run(ctx context.Context, requirementText string, vocab *odrl.Vocabulary) (*Outcome, error) {
	outcome := &Outcome{
		RunID:       "run_" + uuid.New().String()[:8],
		Requirement: requirementText,
		StartedAt:   p.now().UTC(),
	}
	logger := p.logger.With("run_id", outcome.RunID)

	finish := func(status Status, err error) (*Outcome, error) {
		outcome.Status = status
		outcome.FinishedAt = p.now().UTC()
		if err != nil {
			outcome.Error = err.Error()
		}
		p.metrics.ObserveRun(status)
		logger.Info("Run finished",
			"status", status,
			"duration", outcome.FinishedAt.Sub(outcome.StartedAt))
		return outcome, err
	}

	// Stage 1: conflict reasoning.
	reasonStart := p.now()
	result, err := p.reasoner.Reason(ctx, requirementText, vocab)
	p.metrics.ObserveStage("reasoner", p.now().Sub(reasonStart))
	if err != nil {
		p.observeOracleFailure(err)
		return finish(StatusFailed, err)
	}
	outcome.Reasoning = result

	switch result.Decision {
	case reasoner.DecisionRejected:
		logger.Info("Requirement rejected",
			"findings", len(result.Findings))
		return finish(StatusRejected, nil)
	case reasoner.DecisionNeedsInput:
		if !p.proceedOnNeedsInput {
			logger.Info("Requirement needs clarification",
				"findings", len(result.Findings))
			return finish(StatusNeedsInput, nil)
		}
		logger.Warn("Proceeding despite unresolved vagueness",
			"findings", len(result.Findings))
	}

	// Stage 2: structural generation with vocabulary grounding.
	genStart := p.now()
	draft, err := p.generator.Generate(ctx, requirementText, result.Structured, vocab)
	p.metrics.ObserveStage("generator", p.now().Sub(genStart))
	if err != nil {
		p.observeOracleFailure(err)
		return finish(StatusFailed, err)
	}

	// Stage 3: bounded validate-and-repair.
	loopStart := p.now()
	final, attempts, err := p.loop.Run(ctx, requirementText, draft, vocab)
	p.metrics.ObserveStage("validator", p.now().Sub(loopStart))
	outcome.Attempts = attempts
	if err != nil {
		p.observeOracleFailure(err)
		return finish(StatusFailed, err)
	}

	outcome.Document = final
	outcome.Turtle = final.Turtle()
	return finish(StatusSuccess, nil)
}

func (p *Pipeline) observeOracleFailure(err error) {
	var of *llm.OracleFailureError
	if errors.As(err, &of) {
		p.metrics.ObserveOracleFailure(of.Stage)
	}
}

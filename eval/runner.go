package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Daham-Mustaf/semantic-policy-generation/pipeline"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// CaseResult is the outcome of one case.
type CaseResult struct {
	CaseID   string            `json:"case_id"`
	Expected pipeline.Status   `json:"expected,omitempty"`
	Outcome  *pipeline.Outcome `json:"outcome"`
	Duration time.Duration     `json:"duration"`

	// Match reports whether the terminal status equals the expected status.
	// Always true for cases with no expectation.
	Match bool `json:"match"`
}

// Runner drives the pipeline over a dataset with bounded concurrency. Each
// case gets an isolated run; a failing case never affects its neighbors.
type Runner struct {
	pipeline    *pipeline.Pipeline
	concurrency int
	outputDir   string
	logger      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency bounds the number of parallel runs.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithOutputDir enables per-case JSON result files.
func WithOutputDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.outputDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner over the given pipeline.
func NewRunner(p *pipeline.Pipeline, opts ...RunnerOption) *Runner {
	r := &Runner{
		pipeline:    p,
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes every case and returns the results in dataset order. A
// cancelled context stops dispatching new cases; in-flight cases finish.
func (r *Runner) Run(ctx context.Context, cases []Case, vocab *odrl.Vocabulary) ([]CaseResult, error) {
	if r.outputDir != "" {
		if err := os.MkdirAll(r.outputDir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	results := make([]CaseResult, len(cases))
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return results, err
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return results, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, c Case) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.runCase(ctx, c, vocab)
		}(i, c)
	}

	wg.Wait()
	return results, nil
}

func (r *Runner) runCase(ctx context.Context, c Case, vocab *odrl.Vocabulary) CaseResult {
	start := time.Now()
	outcome, err := r.pipeline.Run(ctx, c.Requirement, vocab)
	duration := time.Since(start)

	if err != nil {
		r.logger.Warn("Case run faulted",
			"case_id", c.ID,
			"error", err)
	}

	result := CaseResult{
		CaseID:   c.ID,
		Expected: c.Expected,
		Outcome:  outcome,
		Duration: duration,
		Match:    c.Expected == "" || (outcome != nil && outcome.Status == c.Expected),
	}

	if r.outputDir != "" {
		r.writeResult(result)
	}
	return result
}

func (r *Runner) writeResult(result CaseResult) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		r.logger.Warn("Failed to marshal case result", "case_id", result.CaseID, "error", err)
		return
	}

	path := filepath.Join(r.outputDir, result.CaseID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		r.logger.Warn("Failed to write case result", "path", path, "error", err)
	}
}

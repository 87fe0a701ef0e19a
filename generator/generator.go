// Package generator implements the structural generation contract: it asks
// the oracle for a rights-expression document satisfying a fixed schema, then
// grounds every referenced term against the allowed vocabulary before the
// draft is handed to validation.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Daham-Mustaf/semantic-policy-generation/llm"
	"github.com/Daham-Mustaf/semantic-policy-generation/model"
	"github.com/Daham-Mustaf/semantic-policy-generation/policy"
	"github.com/Daham-Mustaf/semantic-policy-generation/reasoner"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// Generator drafts policy documents from structured requirements.
type Generator struct {
	oracle llm.Oracle
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithClock overrides the clock used for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a Generator backed by the given oracle.
func New(oracle llm.Oracle, opts ...Option) *Generator {
	g := &Generator{
		oracle: oracle,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a draft document for an approved requirement.
//
// Grounding failures (hallucinated terms) are recovered by exactly one
// immediate regeneration that lists the offending terms as negative
// constraints. That retry is independent of the validate-repair loop's
// attempt budget: it happens here, before validation ever runs. If the
// second draft still references undeclared terms, the VocabularyError is
// returned to the caller.
func (g *Generator) Generate(ctx context.Context, requirementText string, structured reasoner.StructuredRequirement, vocab *odrl.Vocabulary) (*policy.Document, error) {
	policyID := policy.NewPolicyID()

	doc, err := g.generateOnce(ctx, GenerationPrompt(requirementText, structured, vocab, policyID), policyID)
	if err != nil {
		return nil, err
	}

	vocabErr := Ground(doc, vocab)
	if vocabErr == nil {
		return doc, nil
	}

	g.logger.Warn("Draft references undeclared terms, regenerating once",
		"policy_id", policyID,
		"terms", vocabErr.Terms())

	doc, err = g.generateOnce(ctx, RegroundingPrompt(requirementText, structured, vocab, policyID, vocabErr), policyID)
	if err != nil {
		return nil, err
	}

	if vocabErr := Ground(doc, vocab); vocabErr != nil {
		return nil, vocabErr
	}
	return doc, nil
}

// generateOnce runs a single oracle call and parses the document.
func (g *Generator) generateOnce(ctx context.Context, prompt, policyID string) (*policy.Document, error) {
	zero := 0.0
	resp, err := g.oracle.Complete(ctx, llm.Request{
		Capability:  model.CapabilityGeneration.String(),
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: &zero,
	})
	if err != nil {
		return nil, llm.NewOracleFailure("generator", err)
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		return nil, llm.NewOracleFailure("generator", fmt.Errorf("no JSON object in generation response"))
	}

	doc, err := policy.Parse([]byte(raw))
	if err != nil {
		return nil, llm.NewOracleFailure("generator", err)
	}

	// The pipeline owns the identifier; the oracle merely echoes it.
	if doc.UID == "" {
		doc.UID = policyID
	}
	doc.CreatedAt = g.now().UTC()

	return doc, nil
}

// Ground checks every term the document references against the fixed core
// vocabulary and the per-run allowed terms. It runs before validation so
// hallucinated vocabulary is caught without consuming a repair attempt.
func Ground(doc *policy.Document, vocab *odrl.Vocabulary) *VocabularyError {
	var unresolved []policy.TermRef

	for _, ref := range doc.Terms() {
		switch ref.Role {
		case policy.TermAction:
			if _, ok := odrl.ParseAction(ref.Value); !ok {
				unresolved = append(unresolved, ref)
			}
		case policy.TermOperator:
			if !odrl.Operator(ref.Value).IsValid() {
				unresolved = append(unresolved, ref)
			}
		case policy.TermLeftOperand:
			if !odrl.LeftOperand(ref.Value).IsValid() {
				unresolved = append(unresolved, ref)
			}
		case policy.TermAsset:
			if !vocab.HasAsset(ref.Value) {
				unresolved = append(unresolved, ref)
			}
		case policy.TermParty:
			if !vocab.HasParty(ref.Value) {
				unresolved = append(unresolved, ref)
			}
		case policy.TermPurpose:
			if !vocab.HasPurpose(ref.Value) {
				unresolved = append(unresolved, ref)
			}
		case policy.TermRegion:
			if !vocab.HasRegion(ref.Value) {
				unresolved = append(unresolved, ref)
			}
		}
	}

	if len(unresolved) == 0 {
		return nil
	}
	return &VocabularyError{Unresolved: unresolved}
}

// VocabularyError reports terms used by a draft that are not declared in the
// allowed vocabulary. Recoverable by one scoped regeneration.
type VocabularyError struct {
	Unresolved []policy.TermRef
}

func (e *VocabularyError) Error() string {
	terms, _ := json.Marshal(e.Terms())
	return fmt.Sprintf("draft references %d undeclared term(s): %s", len(e.Unresolved), terms)
}

// Terms returns the distinct offending term values.
func (e *VocabularyError) Terms() []string {
	seen := map[string]struct{}{}
	var terms []string
	for _, ref := range e.Unresolved {
		if _, ok := seen[ref.Value]; ok {
			continue
		}
		seen[ref.Value] = struct{}{}
		terms = append(terms, ref.Value)
	}
	return terms
}

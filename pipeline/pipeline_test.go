package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daham-Mustaf/semantic-policy-generation/generator"
	"github.com/Daham-Mustaf/semantic-policy-generation/reasoner"
)

const approvedReasoning = `{
	"reasoning": "walked all six phases, nothing fired",
	"findings": [],
	"structured_requirement": {
		"parties": ["uc4_partner"],
		"actions": ["read"],
		"assets": ["traffic_dataset"]
	}
}`

const rejectedReasoning = `{
	"findings": [
		{"category": "temporal", "phase": 2, "explanation": "retention requires 10y, deletion after 2y"}
	],
	"structured_requirement": {}
}`

const vagueReasoning = `{
	"findings": [
		{"category": "vagueness", "explanation": "\"reasonable use\" is unmeasurable", "suggestion": "state a concrete usage bound"}
	],
	"structured_requirement": {}
}`

const groundedDraft = `{
	"title": "Dataset access",
	"rules": [
		{
			"kind": "permission",
			"action": "read",
			"target": "traffic_dataset",
			"assignee": "uc4_partner",
			"constraints": [
				{"left_operand": "purpose", "operator": "eq", "right_operand": "research"}
			]
		}
	]
}`

// newPipeline wires separate stub oracles per stage so call counts stay
// attributable.
func newPipeline(reasonOracle, genOracle, repairOracle *stubOracle, opts ...Option) *Pipeline {
	return New(
		reasoner.New(reasonOracle),
		generator.New(genOracle),
		NewLoop(repairOracle, nil),
		opts...,
	)
}

func TestPipelineSuccess(t *testing.T) {
	reasonOracle := &stubOracle{responses: []string{approvedReasoning}}
	genOracle := &stubOracle{responses: []string{groundedDraft}}
	repairOracle := &stubOracle{}

	p := newPipeline(reasonOracle, genOracle, repairOracle)
	outcome, err := p.Run(context.Background(), "Partners may read the dataset for research.", testVocab())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.True(t, len(outcome.RunID) > 4 && outcome.RunID[:4] == "run_")
	require.NotNil(t, outcome.Reasoning)
	assert.Equal(t, reasoner.DecisionApproved, outcome.Reasoning.Decision)
	require.NotNil(t, outcome.Document)
	assert.Contains(t, outcome.Turtle, "@prefix odrl:")
	require.Len(t, outcome.Attempts, 1)
	assert.Equal(t, StateDone, outcome.Attempts[0].State)
	assert.Empty(t, repairOracle.requests, "conformant first draft, no repair")
	assert.False(t, outcome.FinishedAt.Before(outcome.StartedAt))
}

func TestPipelineRejectedStopsBeforeGeneration(t *testing.T) {
	reasonOracle := &stubOracle{responses: []string{rejectedReasoning}}
	genOracle := &stubOracle{responses: []string{groundedDraft}}

	p := newPipeline(reasonOracle, genOracle, &stubOracle{})
	outcome, err := p.Run(context.Background(), "Keep 10 years, delete after 2.", testVocab())
	require.NoError(t, err, "a rejected requirement is a verdict, not a fault")

	assert.Equal(t, StatusRejected, outcome.Status)
	require.NotNil(t, outcome.Reasoning)
	require.Len(t, outcome.Reasoning.Findings, 1)
	assert.Equal(t, reasoner.CategoryTemporal, outcome.Reasoning.Findings[0].Category)
	assert.Nil(t, outcome.Document)
	assert.Empty(t, outcome.Attempts)
	assert.Empty(t, genOracle.requests, "generation never runs for a rejected requirement")
}

func TestPipelineNeedsInputStops(t *testing.T) {
	reasonOracle := &stubOracle{responses: []string{vagueReasoning}}
	genOracle := &stubOracle{responses: []string{groundedDraft}}

	p := newPipeline(reasonOracle, genOracle, &stubOracle{})
	outcome, err := p.Run(context.Background(), "Reasonable use is permitted.", testVocab())
	require.NoError(t, err)

	assert.Equal(t, StatusNeedsInput, outcome.Status)
	assert.Nil(t, outcome.Document)
	assert.Empty(t, genOracle.requests, "ambiguity blocks generation by default")
}

func TestPipelineProceedOnNeedsInput(t *testing.T) {
	reasonOracle := &stubOracle{responses: []string{vagueReasoning}}
	genOracle := &stubOracle{responses: []string{groundedDraft}}

	p := newPipeline(reasonOracle, genOracle, &stubOracle{}, WithProceedOnNeedsInput(true))
	outcome, err := p.Run(context.Background(), "Reasonable use is permitted.", testVocab())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, outcome.Status)
	require.NotNil(t, outcome.Document)
	assert.Equal(t, reasoner.DecisionNeedsInput, outcome.Reasoning.Decision,
		"the reasoning verdict survives even when generation proceeds")
}

func TestPipelineReasonerFault(t *testing.T) {
	reasonOracle := &stubOracle{err: errors.New("connection refused")}

	p := newPipeline(reasonOracle, &stubOracle{}, &stubOracle{})
	outcome, err := p.Run(context.Background(), "req", testVocab())
	require.Error(t, err)

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Error, "connection refused")
	assert.Nil(t, outcome.Reasoning)
}

func TestPipelineGenerationVocabularyFault(t *testing.T) {
	hallucinated := `{
		"rules": [
			{"kind": "permission", "action": "read", "target": "secret_dataset", "assignee": "uc4_partner"}
		]
	}`
	reasonOracle := &stubOracle{responses: []string{approvedReasoning}}
	// The generator's one regrounding retry fails too, so Generate itself
	// surfaces the vocabulary error before the loop starts.
	genOracle := &stubOracle{responses: []string{hallucinated, hallucinated}}

	p := newPipeline(reasonOracle, genOracle, &stubOracle{})
	outcome, err := p.Run(context.Background(), "req", testVocab())
	require.Error(t, err)

	var vocabErr *generator.VocabularyError
	assert.True(t, errors.As(err, &vocabErr))
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Len(t, genOracle.requests, 2, "one draft plus one regrounding retry")
}

func TestPipelineRepairExhaustionKeepsAttempts(t *testing.T) {
	// The first draft is grounded but semantically broken; repair never fixes
	// it, so the loop exhausts its budget with history intact.
	broken := `{
		"rules": [
			{
				"kind": "permission",
				"action": "read",
				"target": "traffic_dataset",
				"assignee": "uc4_partner",
				"constraints": [
					{"left_operand": "dateTime", "operator": "isAnyOf", "right_operand": "2026-12-31"}
				]
			}
		]
	}`
	reasonOracle := &stubOracle{responses: []string{approvedReasoning}}
	genOracle := &stubOracle{responses: []string{broken}}
	repairOracle := &stubOracle{responses: []string{broken}}

	p := New(
		reasoner.New(reasonOracle),
		generator.New(genOracle),
		NewLoop(repairOracle, nil, WithMaxAttempts(2)),
	)
	outcome, err := p.Run(context.Background(), "req", testVocab())
	require.Error(t, err)

	assert.True(t, IsAttemptsExhausted(err))
	assert.Equal(t, StatusFailed, outcome.Status)
	require.Len(t, outcome.Attempts, 2, "the full loop history survives the failure")
	assert.Equal(t, StateRegenerating, outcome.Attempts[0].State)
	assert.Equal(t, StateFailed, outcome.Attempts[1].State)
}

func TestPipelineClockStampsOutcome(t *testing.T) {
	fixed := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	reasonOracle := &stubOracle{responses: []string{rejectedReasoning}}

	p := newPipeline(reasonOracle, &stubOracle{}, &stubOracle{}, WithClock(func() time.Time { return fixed }))
	outcome, err := p.Run(context.Background(), "req", testVocab())
	require.NoError(t, err)

	assert.Equal(t, fixed, outcome.StartedAt)
	assert.Equal(t, fixed, outcome.FinishedAt)
}

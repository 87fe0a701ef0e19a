package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daham-Mustaf/semantic-policy-generation/llm"
	"github.com/Daham-Mustaf/semantic-policy-generation/policy"
	"github.com/Daham-Mustaf/semantic-policy-generation/validator"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// stubOracle returns canned responses in call order.
type stubOracle struct {
	responses []string
	err       error
	requests  []llm.Request
}

func (s *stubOracle) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	i := len(s.requests) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return &llm.Response{Content: s.responses[i]}, nil
}

// failingChecker simulates checker infrastructure going down.
type failingChecker struct{}

func (failingChecker) Check(context.Context, *policy.Document, *validator.Shapes) ([]validator.Violation, error) {
	return nil, errors.New("shapes backend unreachable")
}

func testVocab() *odrl.Vocabulary {
	return odrl.NewVocabulary(
		[]string{"uc4_partner"},
		[]string{"traffic_dataset"},
		[]string{"research"},
		[]string{"eu"},
	)
}

func conformantDraft() *policy.Document {
	return &policy.Document{
		UID: "policy_ab12cd34",
		Rules: []policy.Rule{
			{
				Kind:     policy.KindPermission,
				Action:   "read",
				Target:   "traffic_dataset",
				Assignee: "uc4_partner",
				Constraints: []policy.Constraint{
					{LeftOperand: "dateTime", Operator: "lteq", RightOperand: "2026-12-31"},
				},
			},
		},
	}
}

// brokenDraft fails the semantic checker: isAnyOf is not valid for dateTime.
func brokenDraft() *policy.Document {
	doc := conformantDraft()
	doc.Rules[0].Constraints[0].Operator = "isAnyOf"
	return doc
}

const repairedJSON = `{
	"uid": "policy_ab12cd34",
	"rules": [
		{
			"kind": "permission",
			"action": "read",
			"target": "traffic_dataset",
			"assignee": "uc4_partner",
			"constraints": [
				{"left_operand": "dateTime", "operator": "lteq", "right_operand": "2026-12-31"}
			]
		}
	]
}`

func TestLoopConformantFirstPass(t *testing.T) {
	oracle := &stubOracle{}
	loop := NewLoop(oracle, nil)

	final, history, err := loop.Run(context.Background(), "req", conformantDraft(), testVocab())
	require.NoError(t, err)

	assert.Equal(t, "policy_ab12cd34", final.UID)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Number)
	assert.Equal(t, StateDone, history[0].State)
	assert.True(t, history[0].Report.Conformant())
	assert.Empty(t, oracle.requests, "no repair call for a conformant draft")
}

func TestLoopRepairsThenSucceeds(t *testing.T) {
	oracle := &stubOracle{responses: []string{repairedJSON}}
	loop := NewLoop(oracle, nil)

	final, history, err := loop.Run(context.Background(), "the requirement text", brokenDraft(), testVocab())
	require.NoError(t, err)

	assert.Equal(t, "lteq", final.Rules[0].Constraints[0].Operator)
	require.Len(t, history, 2)
	assert.Equal(t, StateRegenerating, history[0].State)
	assert.Equal(t, StateDone, history[1].State)

	// The repair prompt carries the requirement, the draft and the exact
	// violations.
	require.Len(t, oracle.requests, 1)
	assert.Equal(t, "repair", oracle.requests[0].Capability)
	prompt := oracle.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "the requirement text")
	assert.Contains(t, prompt, "operator-compatibility")
	assert.Contains(t, prompt, "rules[0].constraints[0]")
	assert.Contains(t, prompt, "@prefix odrl:", "draft included as Turtle")
}

func TestLoopAttemptsMonotonic(t *testing.T) {
	// Oracle keeps returning the same broken draft; every attempt fails.
	brokenRaw := `{
		"uid": "policy_ab12cd34",
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
	oracle := &stubOracle{responses: []string{brokenRaw}}
	loop := NewLoop(oracle, nil, WithMaxAttempts(3))

	_, history, runErr := loop.Run(context.Background(), "req", brokenDraft(), testVocab())
	require.Error(t, runErr)

	require.Len(t, history, 3)
	for i, attempt := range history {
		assert.Equal(t, i+1, attempt.Number, "attempt numbers are 1-based and strictly monotonic")
		require.NotNil(t, attempt.Report)
		assert.Equal(t, i+1, attempt.Report.Attempt)
	}
	assert.Equal(t, StateFailed, history[2].State)
}

func TestLoopAttemptsExhausted(t *testing.T) {
	brokenRaw := `{"uid": "policy_ab12cd34", "rules": [{"kind": "permission", "action": "read", "target": "traffic_dataset", "constraints": [{"left_operand": "purpose", "operator": "lteq", "right_operand": "research"}]}]}`
	oracle := &stubOracle{responses: []string{brokenRaw}}
	loop := NewLoop(oracle, nil, WithMaxAttempts(2))

	_, _, err := loop.Run(context.Background(), "req", brokenDraft(), testVocab())
	require.Error(t, err)

	var exhausted *AttemptsExhausted
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 2, exhausted.Attempts)
	assert.Equal(t, "policy_ab12cd34", exhausted.PolicyID)
	require.NotNil(t, exhausted.LastReport)
	assert.NotEmpty(t, exhausted.LastReport.Violations, "the unrepairable violations survive in the last report")
	assert.Len(t, oracle.requests, 1, "no repair after the final attempt")
}

func TestLoopCheckerUnavailableAborts(t *testing.T) {
	oracle := &stubOracle{responses: []string{repairedJSON}}
	loop := NewLoop(oracle, nil, WithCheckers(failingChecker{}, nil))

	_, history, err := loop.Run(context.Background(), "req", conformantDraft(), testVocab())
	require.Error(t, err)

	assert.True(t, validator.IsUnavailable(err), "checker failure is infrastructure, not a violation")
	assert.Empty(t, oracle.requests, "no repair attempt on checker failure")
	require.Len(t, history, 1)
	assert.Equal(t, StateFailed, history[0].State)
}

func TestLoopGroundingHoldsOnRepairedDrafts(t *testing.T) {
	// The repair introduces a hallucinated asset; the next pass must flag it.
	hallucinated := `{
		"uid": "policy_ab12cd34",
		"rules": [
			{"kind": "permission", "action": "read", "target": "secret_dataset", "assignee": "uc4_partner"}
		]
	}`
	oracle := &stubOracle{responses: []string{hallucinated}}
	loop := NewLoop(oracle, nil, WithMaxAttempts(2))

	_, history, err := loop.Run(context.Background(), "req", brokenDraft(), testVocab())
	require.Error(t, err)

	last := history[len(history)-1]
	require.NotNil(t, last.Report)
	found := false
	for _, v := range last.Report.Violations {
		if v.Constraint == "vocabulary-grounding" {
			found = true
			assert.Contains(t, v.Message, "secret_dataset")
		}
	}
	assert.True(t, found, "expected a grounding violation, got %v", last.Report.Violations)
}

func TestLoopDriftWarning(t *testing.T) {
	// Repair fixes the violation but swaps the permission for a prohibition.
	drifted := `{
		"uid": "policy_ab12cd34",
		"rules": [
			{
				"kind": "prohibition",
				"action": "read",
				"target": "traffic_dataset",
				"assignee": "uc4_partner",
				"constraints": [
					{"left_operand": "dateTime", "operator": "lteq", "right_operand": "2026-12-31"}
				]
			}
		]
	}`
	oracle := &stubOracle{responses: []string{drifted}}
	loop := NewLoop(oracle, nil)

	final, history, err := loop.Run(context.Background(), "req", brokenDraft(), testVocab())
	require.NoError(t, err, "drift is a warning, never a failure")
	require.NotNil(t, final)

	last := history[len(history)-1]
	require.NotNil(t, last.Report)
	require.NotEmpty(t, last.Report.Warnings)
	assert.Contains(t, last.Report.Warnings[0], "permission|read|traffic_dataset|uc4_partner")
}

func TestLoopRepairPreservesIdentity(t *testing.T) {
	// Oracle answers with a different uid; the loop pins the original.
	renamed := `{
		"uid": "policy_other",
		"rules": [
			{
				"kind": "permission",
				"action": "read",
				"target": "traffic_dataset",
				"assignee": "uc4_partner",
				"constraints": [
					{"left_operand": "dateTime", "operator": "lteq", "right_operand": "2026-12-31"}
				]
			}
		]
	}`
	oracle := &stubOracle{responses: []string{renamed}}
	loop := NewLoop(oracle, nil)

	final, _, err := loop.Run(context.Background(), "req", brokenDraft(), testVocab())
	require.NoError(t, err)
	assert.Equal(t, "policy_ab12cd34", final.UID)
}

func TestLoopRepairOracleFailure(t *testing.T) {
	oracle := &stubOracle{err: fmt.Errorf("connection refused")}
	loop := NewLoop(oracle, nil)

	_, _, err := loop.Run(context.Background(), "req", brokenDraft(), testVocab())
	require.Error(t, err)
	assert.True(t, llm.IsOracleFailure(err))
}

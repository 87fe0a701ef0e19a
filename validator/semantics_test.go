package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daham-Mustaf/semantic-policy-generation/policy"
)

func docWithConstraint(c policy.Constraint) *policy.Document {
	return &policy.Document{
		UID: "policy_x",
		Rules: []policy.Rule{
			{
				Kind: policy.KindPermission, Action: "read",
				Target: "traffic_dataset", Assignee: "uc4_partner",
				Constraints: []policy.Constraint{c},
			},
		},
	}
}

func TestCompatCheckerValidConstraints(t *testing.T) {
	valid := []policy.Constraint{
		{LeftOperand: "dateTime", Operator: "lteq", RightOperand: "2026-12-31"},
		{LeftOperand: "count", Operator: "lt", RightOperand: "50"},
		{LeftOperand: "purpose", Operator: "isAnyOf", RightOperand: "research"},
		{LeftOperand: "spatial", Operator: "eq", RightOperand: "eu"},
		{LeftOperand: "elapsedTime", Operator: "lteq", RightOperand: "P30D"},
		{LeftOperand: "payAmount", Operator: "gteq", RightOperand: "99.50"},
	}

	for _, c := range valid {
		violations, err := NewCompatChecker().CheckSemantics(context.Background(), docWithConstraint(c))
		require.NoError(t, err)
		assert.Empty(t, violations, "constraint %+v", c)
	}
}

func TestCompatCheckerIncompatibleOperator(t *testing.T) {
	tests := []policy.Constraint{
		// Ordered operand with set membership operator.
		{LeftOperand: "dateTime", Operator: "isAnyOf", RightOperand: "2026-12-31"},
		// Named operand with comparison operator.
		{LeftOperand: "purpose", Operator: "lteq", RightOperand: "research"},
		{LeftOperand: "spatial", Operator: "gt", RightOperand: "eu"},
	}

	for _, c := range tests {
		violations, err := NewCompatChecker().CheckSemantics(context.Background(), docWithConstraint(c))
		require.NoError(t, err)
		require.Len(t, violations, 1, "constraint %+v", c)
		v := violations[0]
		assert.Equal(t, KindSemantic, v.Kind)
		assert.Equal(t, "operator-compatibility", v.Constraint)
		assert.Equal(t, "rules[0].constraints[0]", v.Node)
		assert.Contains(t, v.Message, "valid:", "message lists the compatible operators")
	}
}

func TestCompatCheckerDatatypes(t *testing.T) {
	tests := []struct {
		name       string
		constraint policy.Constraint
		wantIssue  bool
	}{
		{
			name:       "valid date",
			constraint: policy.Constraint{LeftOperand: "dateTime", Operator: "lteq", RightOperand: "2026-12-31"},
		},
		{
			name:       "malformed date",
			constraint: policy.Constraint{LeftOperand: "dateTime", Operator: "lteq", RightOperand: "end of 2026"},
			wantIssue:  true,
		},
		{
			name:       "malformed integer",
			constraint: policy.Constraint{LeftOperand: "count", Operator: "lteq", RightOperand: "fifty"},
			wantIssue:  true,
		},
		{
			name:       "valid duration",
			constraint: policy.Constraint{LeftOperand: "elapsedTime", Operator: "lteq", RightOperand: "P1Y6M"},
		},
		{
			name:       "malformed duration",
			constraint: policy.Constraint{LeftOperand: "elapsedTime", Operator: "lteq", RightOperand: "30 days"},
			wantIssue:  true,
		},
		{
			name:       "malformed decimal",
			constraint: policy.Constraint{LeftOperand: "payAmount", Operator: "eq", RightOperand: "ten euro"},
			wantIssue:  true,
		},
		{
			name: "declared datatype mismatch",
			constraint: policy.Constraint{
				LeftOperand: "count", Operator: "lteq", RightOperand: "5",
				Datatype: "http://www.w3.org/2001/XMLSchema#string",
			},
			wantIssue: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations, err := NewCompatChecker().CheckSemantics(context.Background(), docWithConstraint(tt.constraint))
			require.NoError(t, err)
			if tt.wantIssue {
				require.Len(t, violations, 1)
				assert.Equal(t, "operand-datatype", violations[0].Constraint)
			} else {
				assert.Empty(t, violations)
			}
		})
	}
}

func TestCompatCheckerSkipsUnknownTerms(t *testing.T) {
	// Unknown operands/operators are the structural checker's concern.
	violations, err := NewCompatChecker().CheckSemantics(context.Background(),
		docWithConstraint(policy.Constraint{LeftOperand: "velocity", Operator: "resembles", RightOperand: "fast"}))
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCompatCheckerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCompatChecker().CheckSemantics(ctx, conformantDocument())
	assert.Error(t, err)
}

package validator

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Daham-Mustaf/semantic-policy-generation/policy"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// Shapes is the externally supplied, versioned structural schema. The core
// never mutates shapes; reloading produces a fresh value.
type Shapes struct {
	// Version identifies the shapes revision, carried into run records.
	Version string `yaml:"version"`

	Policy     PolicyShape     `yaml:"policy"`
	Rule       RuleShape       `yaml:"rule"`
	Constraint ConstraintShape `yaml:"constraint"`
}

// PolicyShape declares document-level structure requirements.
type PolicyShape struct {
	RequireUID bool `yaml:"require_uid"`
	MinRules   int  `yaml:"min_rules"`
}

// RuleShape declares per-rule structure requirements.
type RuleShape struct {
	RequireAction   bool `yaml:"require_action"`
	RequireTarget   bool `yaml:"require_target"`
	RequireAssignee bool `yaml:"require_assignee"`
}

// ConstraintShape declares per-constraint structure requirements.
type ConstraintShape struct {
	RequireLeftOperand  bool `yaml:"require_left_operand"`
	RequireOperator     bool `yaml:"require_operator"`
	RequireRightOperand bool `yaml:"require_right_operand"`

	// EnforceCoreTerms additionally checks operands and operators against
	// the fixed core vocabulary.
	EnforceCoreTerms bool `yaml:"enforce_core_terms"`
}

// DefaultShapes returns the built-in shapes matching the ODRL core profile.
func DefaultShapes() *Shapes {
	return &Shapes{
		Version: "odrl-core-1",
		Policy:  PolicyShape{RequireUID: true, MinRules: 1},
		Rule:    RuleShape{RequireAction: true, RequireTarget: true},
		Constraint: ConstraintShape{
			RequireLeftOperand:  true,
			RequireOperator:     true,
			RequireRightOperand: true,
			EnforceCoreTerms:    true,
		},
	}
}

// LoadShapes reads a shapes YAML file.
func LoadShapes(path string) (*Shapes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shapes file: %w", err)
	}

	shapes := DefaultShapes()
	if err := yaml.Unmarshal(data, shapes); err != nil {
		return nil, fmt.Errorf("parse shapes file: %w", err)
	}
	return shapes, nil
}

// StructuralChecker runs a shape-based conformance check. Implementations
// must be deterministic: identical document and shapes yield an identical
// violation list. An error return means the checker infrastructure itself
// failed, not that the document is invalid.
type StructuralChecker interface {
	Check(ctx context.Context, doc *policy.Document, shapes *Shapes) ([]Violation, error)
}

// ShapeChecker is the built-in structural checker.
type ShapeChecker struct{}

// NewShapeChecker creates the built-in structural checker.
func NewShapeChecker() *ShapeChecker {
	return &ShapeChecker{}
}

// Check validates the document against the shapes. Every violation carries
// the shape identifier and the offending node so repair prompts can scope
// the edit precisely.
func (c *ShapeChecker) Check(ctx context.Context, doc *policy.Document, shapes *Shapes) ([]Violation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if shapes == nil {
		return nil, fmt.Errorf("shapes are required")
	}

	var violations []Violation
	add := func(constraint, node, message string) {
		violations = append(violations, Violation{
			Kind:       KindStructural,
			Constraint: constraint,
			Message:    message,
			Node:       node,
		})
	}

	if shapes.Policy.RequireUID && doc.UID == "" {
		add("policy-uid", "policy", "policy must declare a uid identifier")
	}
	if len(doc.Rules) < shapes.Policy.MinRules {
		add("policy-min-rules", "policy",
			fmt.Sprintf("policy must contain at least %d rule(s) (permission, prohibition or obligation), found %d",
				shapes.Policy.MinRules, len(doc.Rules)))
	}

	for i, rule := range doc.Rules {
		node := fmt.Sprintf("rules[%d]", i)

		if !rule.Kind.IsValid() {
			add("rule-kind", node,
				fmt.Sprintf("rule kind %q is not one of permission, prohibition, obligation", rule.Kind))
		}
		if shapes.Rule.RequireAction && rule.Action == "" {
			add("rule-action", node, "rule must reference an action")
		}
		if shapes.Rule.RequireTarget && rule.Target == "" {
			add("rule-target", node, "rule must reference a target asset")
		}
		if shapes.Rule.RequireAssignee && rule.Assignee == "" {
			add("rule-assignee", node, "rule must reference an assignee party")
		}

		for j, constraint := range rule.Constraints {
			cnode := fmt.Sprintf("%s.constraints[%d]", node, j)
			c.checkConstraint(constraint, cnode, shapes, add)
		}
	}

	return violations, nil
}

func (c *ShapeChecker) checkConstraint(constraint policy.Constraint, node string, shapes *Shapes, add func(constraint, node, message string)) {
	cfg := shapes.Constraint

	if cfg.RequireLeftOperand && constraint.LeftOperand == "" {
		add("constraint-left-operand", node, "constraint must declare a left operand")
	}
	if cfg.RequireOperator && constraint.Operator == "" {
		add("constraint-operator", node, "constraint must declare an operator")
	}
	if cfg.RequireRightOperand && constraint.RightOperand == "" {
		add("constraint-right-operand", node, "constraint must declare a right operand value")
	}

	if !cfg.EnforceCoreTerms {
		return
	}

	if constraint.LeftOperand != "" && !odrl.LeftOperand(constraint.LeftOperand).IsValid() {
		add("constraint-left-operand", node,
			fmt.Sprintf("left operand %q is not in the core vocabulary; valid: %s",
				constraint.LeftOperand, joinOperands()))
	}
	if constraint.Operator != "" && !odrl.Operator(constraint.Operator).IsValid() {
		add("constraint-operator", node,
			fmt.Sprintf("operator %q is not in the core vocabulary; valid: %s",
				constraint.Operator, joinOperators()))
	}
}

func joinOperands() string {
	out := ""
	for i, op := range odrl.LeftOperands() {
		if i > 0 {
			out += ", "
		}
		out += string(op)
	}
	return out
}

func joinOperators() string {
	out := ""
	for i, op := range odrl.Operators() {
		if i > 0 {
			out += ", "
		}
		out += string(op)
	}
	return out
}

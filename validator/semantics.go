package validator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Daham-Mustaf/semantic-policy-generation/policy"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// SemanticChecker runs operator/operand compatibility queries over the
// document's logical structure. Deterministic, like the structural checker.
type SemanticChecker interface {
	CheckSemantics(ctx context.Context, doc *policy.Document) ([]Violation, error)
}

// CompatChecker is the built-in semantic checker. It verifies each
// constraint's operator against its left operand's compatible-operator set
// and the right operand value against the operand's expected datatype.
type CompatChecker struct{}

// NewCompatChecker creates the built-in semantic checker.
func NewCompatChecker() *CompatChecker {
	return &CompatChecker{}
}

// xsdDurationPattern matches the lexical form of xsd:duration.
var xsdDurationPattern = regexp.MustCompile(`^-?P(\d+Y)?(\d+M)?(\d+D)?(T(\d+H)?(\d+M)?(\d+(\.\d+)?S)?)?$`)

// CheckSemantics queries every constraint in the document. Constraints with
// operands or operators outside the core vocabulary are skipped here; the
// structural checker already reports those.
func (c *CompatChecker) CheckSemantics(ctx context.Context, doc *policy.Document) ([]Violation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var violations []Violation
	add := func(constraint, node, message string) {
		violations = append(violations, Violation{
			Kind:       KindSemantic,
			Constraint: constraint,
			Message:    message,
			Node:       node,
		})
	}

	for i, rule := range doc.Rules {
		for j, constraint := range rule.Constraints {
			node := fmt.Sprintf("rules[%d].constraints[%d]", i, j)

			operand := odrl.LeftOperand(constraint.LeftOperand)
			operator := odrl.Operator(constraint.Operator)
			info, known := operand.Info()
			if !known || !operator.IsValid() {
				continue
			}

			if !operand.Compatible(operator) {
				compat := make([]string, len(info.Operators))
				for k, op := range info.Operators {
					compat[k] = string(op)
				}
				add("operator-compatibility", node,
					fmt.Sprintf("operator %q is not compatible with left operand %q (value type %s); valid: %s",
						operator, operand, info.Label, strings.Join(compat, ", ")))
			}

			if msg := checkDatatype(info, constraint); msg != "" {
				add("operand-datatype", node, msg)
			}
		}
	}

	return violations, nil
}

// checkDatatype verifies the right operand's lexical value against the left
// operand's expected datatype. Operands without a declared datatype accept
// any value.
func checkDatatype(info odrl.OperandInfo, constraint policy.Constraint) string {
	if info.Datatype == "" || constraint.RightOperand == "" {
		return ""
	}

	value := constraint.RightOperand
	switch info.Datatype {
	case odrl.XSDDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fmt.Sprintf("value %q is not a valid xsd:date (expected YYYY-MM-DD)", value)
		}
	case odrl.XSDInteger:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Sprintf("value %q is not a valid xsd:integer", value)
		}
	case odrl.XSDDecimal:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Sprintf("value %q is not a valid xsd:decimal", value)
		}
	case odrl.XSDDuration:
		if !xsdDurationPattern.MatchString(value) || value == "P" || value == "-P" {
			return fmt.Sprintf("value %q is not a valid xsd:duration", value)
		}
	}

	if constraint.Datatype != "" && constraint.Datatype != info.Datatype {
		return fmt.Sprintf("declared datatype %q does not match expected %q for operand %q",
			constraint.Datatype, info.Datatype, constraint.LeftOperand)
	}
	return ""
}

// Package policy defines the rights-expression document model produced by the
// generation stage and consumed by the validators.
//
// A Document is immutable once built: repair never edits a draft in place,
// regeneration produces a fresh Document and the previous draft is retained
// for diffing and audit.
package policy

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RuleKind distinguishes the three ODRL rule types.
type RuleKind string

const (
	KindPermission  RuleKind = "permission"
	KindProhibition RuleKind = "prohibition"
	KindObligation  RuleKind = "obligation"
)

// IsValid reports whether the kind is one of the three rule types.
func (k RuleKind) IsValid() bool {
	switch k {
	case KindPermission, KindProhibition, KindObligation:
		return true
	}
	return false
}

// Constraint restricts a rule by left operand, operator and value.
type Constraint struct {
	LeftOperand  string `json:"left_operand"`
	Operator     string `json:"operator"`
	RightOperand string `json:"right_operand"`
	// Datatype is the XSD datatype IRI of the right operand, empty for
	// plain string values.
	Datatype string `json:"datatype,omitempty"`
}

// Rule is a single permission, prohibition or obligation.
type Rule struct {
	Kind        RuleKind     `json:"kind"`
	Action      string       `json:"action"`
	Target      string       `json:"target"`
	Assignee    string       `json:"assignee,omitempty"`
	Assigner    string       `json:"assigner,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// Signature identifies the semantic core of a rule independent of its
// constraints. Used by the drift check to match rules across drafts.
func (r Rule) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s", r.Kind, r.Action, r.Target, r.Assignee)
}

// Document is a complete rights-expression document. This struct doubles as
// the oracle output schema for the generation stage.
type Document struct {
	// UID is the declared policy identifier (local name, not a full IRI).
	UID         string    `json:"uid"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Rules       []Rule    `json:"rules"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// NewPolicyID mints a short policy identifier.
func NewPolicyID() string {
	return "policy_" + uuid.New().String()[:8]
}

// Parse decodes a document from oracle JSON output.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse policy document: %w", err)
	}
	return &doc, nil
}

// RulesOfKind returns the rules of the given kind in document order.
func (d *Document) RulesOfKind(kind RuleKind) []Rule {
	var out []Rule
	for _, r := range d.Rules {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Terms returns every vocabulary-bearing term the document references:
// actions, targets, parties, left operands, operators, and the values of
// purpose and spatial constraints. Used by the grounding check.
func (d *Document) Terms() []TermRef {
	var refs []TermRef
	for i, r := range d.Rules {
		node := fmt.Sprintf("rules[%d]", i)
		refs = append(refs, TermRef{Node: node, Role: TermAction, Value: r.Action})
		refs = append(refs, TermRef{Node: node, Role: TermAsset, Value: r.Target})
		if r.Assignee != "" {
			refs = append(refs, TermRef{Node: node, Role: TermParty, Value: r.Assignee})
		}
		if r.Assigner != "" {
			refs = append(refs, TermRef{Node: node, Role: TermParty, Value: r.Assigner})
		}
		for j, c := range r.Constraints {
			cnode := fmt.Sprintf("%s.constraints[%d]", node, j)
			refs = append(refs, TermRef{Node: cnode, Role: TermLeftOperand, Value: c.LeftOperand})
			refs = append(refs, TermRef{Node: cnode, Role: TermOperator, Value: c.Operator})
			switch c.LeftOperand {
			case "purpose":
				refs = append(refs, TermRef{Node: cnode, Role: TermPurpose, Value: c.RightOperand})
			case "spatial":
				refs = append(refs, TermRef{Node: cnode, Role: TermRegion, Value: c.RightOperand})
			}
		}
	}
	return refs
}

// TermRole classifies where in the document a term appears.
type TermRole string

const (
	TermAction      TermRole = "action"
	TermAsset       TermRole = "asset"
	TermParty       TermRole = "party"
	TermLeftOperand TermRole = "left_operand"
	TermOperator    TermRole = "operator"
	TermPurpose     TermRole = "purpose"
	TermRegion      TermRole = "region"
)

// TermRef is one vocabulary-bearing term occurrence in a document.
type TermRef struct {
	Node  string
	Role  TermRole
	Value string
}

func (t TermRef) String() string {
	return fmt.Sprintf("%s %q at %s", t.Role, t.Value, t.Node)
}

// LocalName converts a free-text identifier to a local entity name:
// lowercase, spaces replaced with underscores.
func LocalName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

package generator

import (
	"fmt"
	"strings"

	"github.com/Daham-Mustaf/semantic-policy-generation/reasoner"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// GenerationPrompt returns the drafting prompt for an approved requirement.
// The schema it dictates is the JSON form of policy.Document.
func GenerationPrompt(requirementText string, structured reasoner.StructuredRequirement, vocab *odrl.Vocabulary, policyID string) string {
	return fmt.Sprintf(`# RIGHTS-EXPRESSION POLICY GENERATOR

You convert an approved data-usage requirement into a structured ODRL policy document.

**Policy ID:** %s

## REQUIREMENT

%s

## EXTRACTED STRUCTURE

%s

%s

## OUTPUT SCHEMA

Return ONLY valid JSON (no markdown, no backticks):

{
  "uid": "%s",
  "title": "Concise policy title",
  "description": "Clear explanation of what this policy allows or prohibits",
  "rules": [
    {
      "kind": "permission|prohibition|obligation",
      "action": "read",
      "target": "asset identifier from the vocabulary",
      "assignee": "party identifier from the vocabulary",
      "assigner": "party identifier from the vocabulary (optional)",
      "constraints": [
        {
          "left_operand": "dateTime",
          "operator": "lteq",
          "right_operand": "2025-12-31",
          "datatype": "http://www.w3.org/2001/XMLSchema#date"
        }
      ]
    }
  ]
}

## RULES

1. Declare at least one rule.
2. Every action, party, asset, purpose and region MUST come from the vocabulary above. Never invent terms.
3. Express temporal bounds with the dateTime operand and an xsd:date value, usage counts with the count operand and an xsd:integer value, purposes with the purpose operand, geography with the spatial operand.
4. Use only the listed constraint operators, and only operators compatible with the operand.
5. Use the provided uid exactly.

Generate the policy document now:`,
		policyID,
		requirementText,
		structuredSection(structured),
		vocabularySection(vocab),
		policyID)
}

// RegroundingPrompt returns the follow-up prompt after a grounding failure.
// The offending terms become explicit negative constraints.
func RegroundingPrompt(requirementText string, structured reasoner.StructuredRequirement, vocab *odrl.Vocabulary, policyID string, vocabErr *VocabularyError) string {
	var sb strings.Builder
	sb.WriteString(GenerationPrompt(requirementText, structured, vocab, policyID))
	sb.WriteString("\n\n## PREVIOUS ATTEMPT REJECTED\n\n")
	sb.WriteString("Your previous draft used terms that are NOT in the allowed vocabulary:\n")
	for _, ref := range vocabErr.Unresolved {
		fmt.Fprintf(&sb, "- %s\n", ref)
	}
	sb.WriteString("\nDo NOT use these terms again. Map each one to the closest declared vocabulary term, or drop the clause if no declared term expresses it.\n")
	return sb.String()
}

func structuredSection(structured reasoner.StructuredRequirement) string {
	var sb strings.Builder
	writeList := func(label string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(&sb, "- %s: %s\n", label, strings.Join(items, "; "))
		}
	}
	writeList("Parties", structured.Parties)
	writeList("Actions", structured.Actions)
	writeList("Assets", structured.Assets)
	writeList("Temporal", structured.Temporal)
	writeList("Spatial", structured.Spatial)
	writeList("Purposes", structured.Purposes)
	if sb.Len() == 0 {
		return "(no decomposition available)"
	}
	return sb.String()
}

// vocabularySection renders the complete allowed-term set, core and per-run.
func vocabularySection(vocab *odrl.Vocabulary) string {
	var sb strings.Builder
	sb.WriteString("## ALLOWED VOCABULARY\n\n")

	sb.WriteString("Actions: ")
	actions := odrl.Actions()
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString("\n")

	operators := odrl.Operators()
	ops := make([]string, len(operators))
	for i, o := range operators {
		ops[i] = string(o)
	}
	fmt.Fprintf(&sb, "Constraint operators: %s\n", strings.Join(ops, ", "))

	sb.WriteString("Constraint left operands and compatible operators:\n")
	for _, operand := range odrl.LeftOperands() {
		info, _ := operand.Info()
		compat := make([]string, len(info.Operators))
		for i, o := range info.Operators {
			compat[i] = string(o)
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", operand, info.Label, strings.Join(compat, ", "))
	}

	if vocab != nil {
		writeTerms := func(label string, terms []string) {
			if len(terms) > 0 {
				fmt.Fprintf(&sb, "%s: %s\n", label, strings.Join(terms, ", "))
			}
		}
		writeTerms("Parties", vocab.Parties)
		writeTerms("Assets", vocab.Assets)
		writeTerms("Purposes", vocab.Purposes)
		writeTerms("Regions", vocab.Regions)
	}

	return sb.String()
}

package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/Daham-Mustaf/semantic-policy-generation/policy"
	"github.com/Daham-Mustaf/semantic-policy-generation/validator"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// RepairPrompt builds the targeted regeneration prompt: the original
// requirement, the rejected draft in both serializations, and the exact
// violation list. The oracle is told to fix only what the report names.
func RepairPrompt(requirementText string, draft *policy.Document, report *validator.Report, vocab *odrl.Vocabulary) string {
	draftJSON, _ := json.MarshalIndent(draft, "", "  ")

	return fmt.Sprintf(`# POLICY REPAIR

Your previous policy draft failed validation. Produce a corrected draft.

## ORIGINAL REQUIREMENT

%s

## REJECTED DRAFT (JSON)

%s

## REJECTED DRAFT (Turtle rendering)

%s

## VALIDATION REPORT (attempt %d)

%s

## INSTRUCTIONS

1. Fix EVERY violation listed above. Each violation names the offending node.
2. Change nothing else: rules not named in the report must survive unchanged.
3. Keep the uid %q exactly.
4. Use only declared vocabulary terms: %s
5. Return ONLY the corrected JSON document, same schema as the rejected draft. No markdown, no commentary.

Corrected policy document:`,
		requirementText,
		draftJSON,
		draft.Turtle(),
		report.Attempt,
		report.FeedbackSection(),
		draft.UID,
		allowedTermsLine(vocab))
}

// allowedTermsLine is a compact per-run vocabulary reminder; the full tables
// were already in the generation prompt.
func allowedTermsLine(vocab *odrl.Vocabulary) string {
	if vocab == nil {
		return "core ODRL terms only"
	}
	return fmt.Sprintf("parties %v, assets %v, purposes %v, regions %v, plus the core actions, operands and operators",
		vocab.Parties, vocab.Assets, vocab.Purposes, vocab.Regions)
}

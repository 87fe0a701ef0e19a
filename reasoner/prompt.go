package reasoner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// ReasoningPrompt returns the single comprehensive conflict-detection prompt.
// The oracle works through the six phases in order and returns structured
// JSON; the decision it claims is advisory — the protocol re-derives it from
// the findings.
func ReasoningPrompt(requirementText, currentDate string, vocab *odrl.Vocabulary) string {
	return fmt.Sprintf(`# POLICY CONFLICT DETECTOR

**Current Date:** %s

You are an expert at detecting contradictions in natural-language data-usage policies. Analyze the policy text systematically through 6 phases, then report every issue found. Phases are independent: never stop at the first finding.

%s

## PHASE 1: VAGUENESS

Flag clauses whose scope terms are unmeasurable or unboundedly broad:
- Temporal: "urgent", "soon", "promptly", "eventually"
- Quality: "responsibly", "appropriately", "properly", "reasonable"
- Conditional: "when necessary", "if important", "as needed"
- Universal: "everyone", "anything", "all data", "any purpose" (without an enumerable scope)

## PHASE 2: TEMPORAL CONFLICTS

Flag:
1. Expired bounds: any end date before %s
2. Overlapping contradictions: a permission valid through a date combined with a prohibition starting before that date on the same action and asset
3. Impossible sequences: "available after 2027" + "must be used in 2026"

## PHASE 3: SPATIAL CONFLICTS

Flag geographic hierarchy violations using the region containment listed above: a permission at a broader region contradicted by a prohibition at a narrower contained region (or the reverse) for the same action and asset.

## PHASE 4: ACTION HIERARCHY CONFLICTS

Using the action hierarchy listed above, flag permission/prohibition pairs on actions related by subsumption for the same target and party, and the same action with both a permission and a prohibition.

## PHASE 5: ROLE AND PARTY CONFLICTS

Using the role membership listed above, flag inconsistent party specification: granting to a role's members while separately denying a specific member without qualification, or requiring and prohibiting across nested roles.

## PHASE 6: CIRCULAR DEPENDENCIES

Flag approval/obligation chains that reference each other such that no terminal grant state is reachable (access requires approval, approval requires verification, verification requires access).

## OUTPUT FORMAT

Return ONLY valid JSON (no markdown, no backticks):

{
  "reasoning": "walk through all 6 phases",
  "findings": [
    {
      "category": "vagueness|temporal|spatial|action_hierarchy|role_hierarchy|circular_dependency",
      "phase": 1,
      "explanation": "what contradicts what",
      "evidence": ["exact spans quoted from the policy text"],
      "suggestion": "concrete rewording that clears the issue"
    }
  ],
  "structured_requirement": {
    "parties": [], "actions": [], "assets": [],
    "temporal": [], "spatial": [], "purposes": []
  }
}

An empty findings array means no conflict was detected in any phase.

## POLICY TEXT TO ANALYZE

%s

Return your analysis now:`,
		currentDate,
		semanticContextSection(vocab),
		currentDate,
		requirementText)
}

// semanticContextSection renders the domain model the phases need: the
// action subsumption hierarchy, role membership and region containment.
func semanticContextSection(vocab *odrl.Vocabulary) string {
	var sb strings.Builder

	sb.WriteString("## SEMANTIC CONTEXT\n\n")
	sb.WriteString("Action hierarchy (parent subsumes child):\n")
	for _, a := range odrl.Actions() {
		if parent, ok := a.Parent(); ok {
			fmt.Fprintf(&sb, "- %s is a narrower form of %s\n", a, parent)
		}
	}

	if vocab == nil {
		return sb.String()
	}

	if len(vocab.RoleMembers) > 0 {
		sb.WriteString("\nRole membership:\n")
		roles := make([]string, 0, len(vocab.RoleMembers))
		for role := range vocab.RoleMembers {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		for _, role := range roles {
			fmt.Fprintf(&sb, "- %s contains: %s\n", role, strings.Join(vocab.RoleMembers[role], ", "))
		}
	}

	if len(vocab.RegionParents) > 0 {
		sb.WriteString("\nRegion containment:\n")
		regions := make([]string, 0, len(vocab.RegionParents))
		for region := range vocab.RegionParents {
			regions = append(regions, region)
		}
		sort.Strings(regions)
		for _, region := range regions {
			fmt.Fprintf(&sb, "- %s is inside %s\n", region, vocab.RegionParents[region])
		}
	}

	return sb.String()
}

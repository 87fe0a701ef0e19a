// Package model provides capability-based model selection for pipeline
// stages. Stages specify capabilities (reasoning, generation, repair) and the
// registry resolves them to configured models with fallback chains.
package model

// Capability represents a semantic capability for model selection.
// Instead of specifying "gpt-4o", callers specify "reasoning" or "repair".
type Capability string

const (
	// CapabilityReasoning is for conflict detection and decision making.
	CapabilityReasoning Capability = "reasoning"

	// CapabilityGeneration is for drafting rights-expression documents.
	CapabilityGeneration Capability = "generation"

	// CapabilityRepair is for targeted regeneration from violation feedback.
	CapabilityRepair Capability = "repair"

	// CapabilityFast is for quick responses, simple tasks.
	CapabilityFast Capability = "fast"
)

// StageCapabilities maps pipeline stages to their default capability.
var StageCapabilities = map[string]Capability{
	"reasoner":  CapabilityReasoning,
	"generator": CapabilityGeneration,
	"validator": CapabilityRepair,
}

// CapabilityForStage returns the default capability for a pipeline stage.
// Returns CapabilityFast as fallback for unknown stages.
func CapabilityForStage(stage string) Capability {
	if cap, ok := StageCapabilities[stage]; ok {
		return cap
	}
	return CapabilityFast
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityReasoning, CapabilityGeneration, CapabilityRepair, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for
// invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}

// Package model provides capability-based model selection for workflow
// steps. Callers specify what they need done (planning, reviewing,
// analysis) and the registry resolves that to configured endpoints with
// fallback chains and health tracking.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilityPlanning is for plan draft generation and refinement.
	CapabilityPlanning Capability = "planning"

	// CapabilityReviewing is for critique scoring of plan drafts.
	CapabilityReviewing Capability = "reviewing"

	// CapabilityAnalysis is for per-topic expert analysis.
	CapabilityAnalysis Capability = "analysis"

	// CapabilityFast is for quick, low-stakes completions.
	CapabilityFast Capability = "fast"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityPlanning, CapabilityReviewing, CapabilityAnalysis, CapabilityFast:
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
	cap := Capability(s)
	if cap.IsValid() {
		return cap
	}
	return ""
}

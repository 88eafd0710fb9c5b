// Package model provides capability-based model selection for the synthesis
// oracle. Callers specify capabilities (suggesting, messaging, critiquing)
// rather than model names, and the registry resolves them to available
// endpoints with fallback chains.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilitySuggesting is for cross-document update suggestions.
	CapabilitySuggesting Capability = "suggesting"

	// CapabilityDescribing is for project description artifacts.
	CapabilityDescribing Capability = "describing"

	// CapabilityMessaging is for internal and external messaging artifacts.
	CapabilityMessaging Capability = "messaging"

	// CapabilityCritiquing is for objection and improvement generation.
	CapabilityCritiquing Capability = "critiquing"

	// CapabilityFast is for quick responses, simple tasks.
	CapabilityFast Capability = "fast"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilitySuggesting, CapabilityDescribing, CapabilityMessaging, CapabilityCritiquing, CapabilityFast:
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

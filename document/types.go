// Package document defines document types, the canonical section Structure,
// and the structure extractor that turns raw document text into it.
package document

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Type identifies the kind of tracked document.
type Type string

const (
	// TypeRequirements is a product requirements document.
	TypeRequirements Type = "requirements"

	// TypePressRelease is a press-release/FAQ document.
	TypePressRelease Type = "press-release"

	// TypeStrategy is a strategy document.
	TypeStrategy Type = "strategy"

	// TypeTickets is a tracked-ticket collection.
	TypeTickets Type = "tickets"
)

// Types lists all document types in canonical order.
func Types() []Type {
	return []Type{TypeRequirements, TypePressRelease, TypeStrategy, TypeTickets}
}

// IsValid checks if a type string is a known document type.
func (t Type) IsValid() bool {
	switch t {
	case TypeRequirements, TypePressRelease, TypeStrategy, TypeTickets:
		return true
	}
	return false
}

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// ParseType converts a string to a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown document type: %s", s)
	}
	return t, nil
}

// expectedSections maps each type to its ordered expected section identifiers.
// Names are canonical (see CanonicalName).
var expectedSections = map[Type][]string{
	TypeRequirements: {"overview", "problem-statement", "solution", "requirements", "timeline", "success-metrics", "scope"},
	TypePressRelease: {"headline", "press-release", "frequently-asked-questions"},
	TypeStrategy:     {"vision", "approach", "business-value", "goals", "timeline"},
	TypeTickets:      {"tickets"},
}

// ExpectedSections returns the ordered expected section identifiers for a type.
// The returned slice is a copy.
func ExpectedSections(t Type) []string {
	src := expectedSections[t]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// TypeRule maps a locator glob pattern to a document type.
type TypeRule struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Type    Type   `yaml:"type" json:"type"`
}

// DefaultTypeRules returns locator patterns for common document naming
// conventions. Patterns use doublestar globs matched against the locator.
func DefaultTypeRules() []TypeRule {
	return []TypeRule{
		{Pattern: "**/prd*", Type: TypeRequirements},
		{Pattern: "**/requirements*", Type: TypeRequirements},
		{Pattern: "**/prfaq*", Type: TypePressRelease},
		{Pattern: "**/press-release*", Type: TypePressRelease},
		{Pattern: "**/strategy*", Type: TypeStrategy},
		{Pattern: "**/tickets*", Type: TypeTickets},
		{Pattern: "**/backlog*", Type: TypeTickets},
	}
}

// DetectType matches a locator against type rules, first match wins.
func DetectType(locator string, rules []TypeRule) (Type, bool) {
	for _, r := range rules {
		ok, err := doublestar.Match(r.Pattern, locator)
		if err != nil {
			continue
		}
		if ok {
			return r.Type, true
		}
	}
	return "", false
}

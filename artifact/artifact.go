// Package artifact generates project communication artifacts from the
// current structure of a project's connected documents. Every generator
// follows the same failure policy: ask the synthesis oracle, retry once with
// a stricter instruction when the output cannot be parsed, then fall back to
// a rule-based artifact flagged as degraded.
package artifact

import (
	"fmt"
	"time"

	"github.com/rbagg/ProjectAlignment/critique"
)

// Kind identifies an artifact type.
type Kind string

const (
	// KindDescription is the fixed-shape project description.
	KindDescription Kind = "description"

	// KindInternalMessage is the internal stakeholder brief or update.
	KindInternalMessage Kind = "internal-messaging"

	// KindExternalMessage is the customer-facing announcement.
	KindExternalMessage Kind = "external-messaging"
)

// Kinds returns all artifact kinds.
func Kinds() []Kind {
	return []Kind{KindDescription, KindInternalMessage, KindExternalMessage}
}

// IsValid reports whether the kind is known.
func (k Kind) IsValid() bool {
	switch k {
	case KindDescription, KindInternalMessage, KindExternalMessage:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind parses a string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown artifact kind: %s", s)
	}
	return k, nil
}

// Artifact is one generated artifact. Exactly one of the typed payloads is
// populated, matching Kind. Artifacts are replaced wholesale on each
// generation, never patched.
type Artifact struct {
	Kind        Kind      `json:"kind"`
	GeneratedAt time.Time `json:"generated_at"`

	// Degraded marks an artifact that was assembled by the rule-based
	// fallback after the synthesis oracle failed or was unavailable.
	Degraded bool `json:"degraded,omitempty"`

	Description *ProjectDescription `json:"description,omitempty"`
	Internal    *InternalMessage    `json:"internal,omitempty"`
	External    *ExternalMessage    `json:"external,omitempty"`

	// Objections and Improvements are attached by the critique overlay
	// after generation. Both are nonempty on any critiqued artifact.
	Objections   []critique.Objection   `json:"objections,omitempty"`
	Improvements []critique.Improvement `json:"improvements,omitempty"`
}

// ProjectDescription is a fixed-shape summary: exactly three sentences and
// exactly three paragraphs covering what the project is, the customer pain
// point, and the solution approach. The counts are a hard output contract.
type ProjectDescription struct {
	ThreeSentences  []string `json:"three_sentences"`
	ThreeParagraphs []string `json:"three_paragraphs"`
}

// InternalVariant discriminates the two internal message shapes.
type InternalVariant string

const (
	// VariantInitial is the first brief for a project with no prior
	// version history.
	VariantInitial InternalVariant = "initial"

	// VariantChangeDriven is an update message describing what changed
	// since the baseline.
	VariantChangeDriven InternalVariant = "change-driven"
)

// InternalMessage is the internal stakeholder message. The variant is chosen
// by the generator from whether a baseline version exists, never inferred
// from which fields happen to be set.
type InternalMessage struct {
	Variant InternalVariant `json:"variant"`
	Subject string          `json:"subject"`

	Initial *InitialBrief `json:"initial,omitempty"`
	Change  *ChangeUpdate `json:"change,omitempty"`
}

// InitialBrief carries the fields of a first-time internal brief.
type InitialBrief struct {
	WhatItIs  string `json:"what_it_is"`
	TeamNeeds string `json:"team_needs"`
}

// ChangeUpdate carries the fields of a change-driven internal update.
// TimelineImpact and TeamNeeds are optional.
type ChangeUpdate struct {
	WhatChanged    string `json:"what_changed"`
	CustomerImpact string `json:"customer_impact"`
	BusinessImpact string `json:"business_impact"`
	TimelineImpact string `json:"timeline_impact,omitempty"`
	TeamNeeds      string `json:"team_needs,omitempty"`
}

// ExternalMessage is the customer-facing announcement. Benefits is the only
// optional field.
type ExternalMessage struct {
	Headline     string `json:"headline"`
	PainPoint    string `json:"pain_point"`
	Solution     string `json:"solution"`
	Benefits     string `json:"benefits,omitempty"`
	CallToAction string `json:"call_to_action"`
}

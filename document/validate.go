package document

import (
	"fmt"
	"strings"
)

// ValidationReport carries advisory findings about an extracted Structure.
// Missing sections are suggestions, never errors: no document fails outright.
type ValidationReport struct {
	// PresentSections lists expected identifiers found in the document.
	PresentSections []string `json:"present_sections"`

	// SuggestedAdditions lists expected identifiers missing from the document.
	SuggestedAdditions []string `json:"suggested_additions"`

	// LengthSuggestions carries per-section expand/condense advisories.
	LengthSuggestions []LengthSuggestion `json:"length_suggestions,omitempty"`

	// OverallSuggestion is a short assessment of the document's fit.
	OverallSuggestion string `json:"overall_suggestion"`
}

// LengthSuggestion advises on the size of one section.
type LengthSuggestion struct {
	Section        string `json:"section"`
	Suggestion     string `json:"suggestion"` // consider_expanding or consider_condensing
	Value          int    `json:"value"`
	Recommendation string `json:"recommendation"`
}

// lengthBounds holds advisory min/max sizes for a section. For text sections
// the unit is characters, for list sections it is items.
type lengthBounds struct {
	min, max int
}

var suggestedLengths = map[Type]map[string]lengthBounds{
	TypeRequirements: {
		"overview":          {50, 2000},
		"problem-statement": {20, 1000},
		"solution":          {50, 2000},
		"requirements":      {50, 5000},
	},
	TypePressRelease: {
		"press-release":              {100, 2000},
		"frequently-asked-questions": {2, 30},
	},
	TypeStrategy: {
		"vision":         {20, 500},
		"approach":       {50, 1000},
		"business-value": {20, 1000},
	},
}

// minimumSuggested is the number of expected sections a document should have
// before the overall assessment stops recommending additions.
var minimumSuggested = map[Type]int{
	TypeRequirements: 3,
	TypePressRelease: 2,
	TypeStrategy:     2,
	TypeTickets:      1,
}

// Validate checks an extracted Structure against the expected sections for
// its type. Absence is advisory, not an error.
func Validate(s Structure, t Type) ValidationReport {
	expected := ExpectedSections(t)

	present := make([]string, 0, len(expected))
	missing := make([]string, 0, len(expected))
	for _, name := range expected {
		if c, ok := s.Get(name); ok && !isEmptyContent(c) {
			present = append(present, name)
		} else {
			missing = append(missing, name)
		}
	}

	report := ValidationReport{
		PresentSections:    present,
		SuggestedAdditions: missing,
		LengthSuggestions:  lengthSuggestions(s, t),
	}
	report.OverallSuggestion = overallSuggestion(t, report)
	return report
}

func isEmptyContent(c Content) bool {
	switch c.Kind {
	case KindText:
		return strings.TrimSpace(c.Text) == ""
	case KindList:
		return len(c.Items) == 0
	case KindMap:
		return len(c.Children) == 0
	}
	return true
}

func lengthSuggestions(s Structure, t Type) []LengthSuggestion {
	bounds := suggestedLengths[t]
	var out []LengthSuggestion
	for _, sec := range s.Sections {
		b, ok := bounds[sec.Name]
		if !ok {
			continue
		}
		value, unit := contentSize(sec.Content)
		switch {
		case value < b.min:
			out = append(out, LengthSuggestion{
				Section:        sec.Name,
				Suggestion:     "consider_expanding",
				Value:          value,
				Recommendation: fmt.Sprintf("Consider expanding to at least %d %s for better clarity", b.min, unit),
			})
		case value > b.max:
			out = append(out, LengthSuggestion{
				Section:        sec.Name,
				Suggestion:     "consider_condensing",
				Value:          value,
				Recommendation: fmt.Sprintf("Consider condensing to around %d %s for better readability", b.max, unit),
			})
		}
	}
	return out
}

func contentSize(c Content) (int, string) {
	switch c.Kind {
	case KindList:
		return len(c.Items), "items"
	case KindMap:
		return len(c.Children), "items"
	default:
		return len(c.Text), "characters"
	}
}

func overallSuggestion(t Type, r ValidationReport) string {
	label := strings.ToUpper(strings.ReplaceAll(string(t), "-", " "))
	if len(r.PresentSections) < minimumSuggested[t] {
		hints := r.SuggestedAdditions
		if len(hints) > 3 {
			hints = hints[:3]
		}
		return fmt.Sprintf("Document appears to be missing key sections for a %s. Consider adding some of the following: %s",
			label, strings.Join(hints, ", "))
	}
	if len(r.LengthSuggestions) > 0 {
		return "Document structure looks good, but some sections could be improved for better readability."
	}
	return fmt.Sprintf("Document structure appears to be a good fit for a %s.", label)
}

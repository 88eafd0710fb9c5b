// Package alignment proposes cross-document updates from section-level
// change records. The engine only proposes; it never mutates the documents
// it reads.
package alignment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbagg/ProjectAlignment/document"
	"github.com/rbagg/ProjectAlignment/llm"
	"github.com/rbagg/ProjectAlignment/version"
)

// Action describes what kind of update a suggestion asks for.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionReview Action = "review"
	ActionRemove Action = "remove"
)

// Artifact targets. Suggestions may target a generated artifact as well as a
// tracked document; artifact targets are always valid regardless of which
// documents the project tracks.
const (
	TargetDescription       = "description"
	TargetInternalMessaging = "internal-messaging"
	TargetExternalMessaging = "external-messaging"
)

// Suggestion is one proposed cross-document update. Key is stable across
// analysis runs: a newer suggestion with the same key supersedes the old one.
type Suggestion struct {
	Key         string        `json:"key"`
	Source      document.Type `json:"source"`
	Target      string        `json:"target"`
	Section     string        `json:"section"`
	Action      Action        `json:"action"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"created_at"`
}

// SuggestionKey builds the stable deduplication key.
func SuggestionKey(source document.Type, target, section string) string {
	return fmt.Sprintf("%s.%s.%s", source, target, section)
}

// implication maps a source document type to the targets its sections imply.
// Section "" applies to every section of the source; named sections add
// further targets on top of that.
type implication struct {
	Section string
	Targets []string
}

var implications = map[document.Type][]implication{
	document.TypeRequirements: {
		{Section: "", Targets: []string{string(document.TypeTickets)}},
		{Section: "problem-statement", Targets: []string{string(document.TypePressRelease)}},
		{Section: "success-metrics", Targets: []string{TargetExternalMessaging}},
	},
	document.TypeTickets: {
		{Section: "", Targets: []string{string(document.TypeRequirements)}},
	},
	document.TypePressRelease: {
		{Section: "", Targets: []string{string(document.TypeRequirements)}},
	},
	document.TypeStrategy: {
		{Section: "", Targets: []string{string(document.TypeRequirements), string(document.TypeTickets)}},
		{Section: "business-value", Targets: []string{TargetExternalMessaging}},
	},
}

// Oracle produces free text from a prompt. Optional: the engine is fully
// functional without one.
type Oracle interface {
	Synthesize(ctx context.Context, prompt string) (string, error)
}

// Engine turns a ChangeRecord into an ordered sequence of suggestions.
type Engine struct {
	logger *slog.Logger
	oracle Oracle
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithOracle enables oracle-refined suggestion descriptions. Refinement is
// best effort: any oracle failure keeps the rule-based descriptions.
func WithOracle(oracle Oracle) Option {
	return func(e *Engine) { e.oracle = oracle }
}

// NewEngine creates a suggestion engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Suggest emits suggestions for every added, modified, and removed section of
// the change record, in that group order, sections within a group in record
// order. Targets the project does not track are dropped and logged; artifact
// targets are always kept.
func (e *Engine) Suggest(ctx context.Context, tracked []document.Type, source document.Type, rec *version.ChangeRecord) []Suggestion {
	if rec == nil || rec.IsEmpty() {
		return nil
	}

	trackedSet := make(map[document.Type]bool, len(tracked))
	for _, t := range tracked {
		trackedSet[t] = true
	}

	now := time.Now().UTC()
	var suggestions []Suggestion

	emit := func(section string, action Action) {
		for _, target := range e.targetsFor(source, section) {
			if dt := document.Type(target); dt.IsValid() && !trackedSet[dt] {
				e.logger.Debug("dropping suggestion for untracked target",
					"source", source, "target", target, "section", section)
				continue
			}
			suggestions = append(suggestions, Suggestion{
				Key:         SuggestionKey(source, target, section),
				Source:      source,
				Target:      target,
				Section:     section,
				Action:      actionFor(action, target),
				Description: describe(source, target, section, actionFor(action, target)),
				CreatedAt:   now,
			})
		}
	}

	for _, name := range rec.Added {
		emit(name, ActionCreate)
	}
	for _, m := range rec.Modified {
		emit(m.Name, ActionUpdate)
	}
	for _, name := range rec.Removed {
		emit(name, ActionRemove)
	}

	if e.oracle != nil && len(suggestions) > 0 {
		e.refine(ctx, source, rec, suggestions)
	}

	return suggestions
}

// actionFor adjusts the action for artifact targets: a source-section removal
// asks for a review of generated messaging rather than a deletion, since the
// removal may have been a restructuring, not a retraction.
func actionFor(action Action, target string) Action {
	if action == ActionRemove && !document.Type(target).IsValid() {
		return ActionReview
	}
	return action
}

// targetsFor returns the implied targets for one section of a source type,
// in mapping order with the catch-all rule first.
func (e *Engine) targetsFor(source document.Type, section string) []string {
	var targets []string
	for _, imp := range implications[source] {
		if imp.Section == "" || imp.Section == section {
			targets = append(targets, imp.Targets...)
		}
	}
	return targets
}

func describe(source document.Type, target, section string, action Action) string {
	sectionTitle := section
	switch action {
	case ActionCreate:
		return fmt.Sprintf("Add coverage for the new %q section of the %s document to %s.", sectionTitle, source, targetPhrase(target))
	case ActionUpdate:
		return fmt.Sprintf("Update %s to reflect the changed %q section of the %s document.", targetPhrase(target), sectionTitle, source)
	case ActionReview:
		return fmt.Sprintf("Review %s: the %q section was removed from the %s document.", targetPhrase(target), sectionTitle, source)
	case ActionRemove:
		return fmt.Sprintf("Remove content in %s derived from the deleted %q section of the %s document.", targetPhrase(target), sectionTitle, source)
	}
	return fmt.Sprintf("Reconcile %s with the %q section of the %s document.", targetPhrase(target), sectionTitle, source)
}

func targetPhrase(target string) string {
	if document.Type(target).IsValid() {
		return fmt.Sprintf("the %s document", target)
	}
	return fmt.Sprintf("the %s artifact", target)
}

// refine asks the oracle for sharper one-line descriptions keyed by
// suggestion key. Best effort only: parse failures or missing keys leave the
// rule-based text in place.
func (e *Engine) refine(ctx context.Context, source document.Type, rec *version.ChangeRecord, suggestions []Suggestion) {
	prompt := refinementPrompt(source, rec, suggestions)

	out, err := e.oracle.Synthesize(ctx, prompt)
	if err != nil {
		e.logger.Warn("suggestion refinement failed, keeping rule-based descriptions", "error", err)
		return
	}

	var refined map[string]string
	if err := json.Unmarshal([]byte(llm.ExtractJSON(out)), &refined); err != nil {
		e.logger.Warn("suggestion refinement returned unparsable output", "error", err)
		return
	}

	for i := range suggestions {
		if desc, ok := refined[suggestions[i].Key]; ok && desc != "" {
			suggestions[i].Description = desc
		}
	}
}

func refinementPrompt(source document.Type, rec *version.ChangeRecord, suggestions []Suggestion) string {
	var b []byte
	b = append(b, "You are a product operations assistant keeping project documents consistent.\n\n"...)
	b = append(b, fmt.Sprintf("The %s document changed. Touched sections: %v.\n\n", source, rec.TouchedNames())...)
	b = append(b, "For each proposed update below, write one specific, actionable sentence describing what to change.\n\n"...)
	for _, s := range suggestions {
		b = append(b, fmt.Sprintf("- %s: %s %s (section %q)\n", s.Key, s.Action, s.Target, s.Section)...)
	}
	b = append(b, "\nRespond with a single JSON object mapping each key to its sentence. No other text.\n"...)
	return string(b)
}

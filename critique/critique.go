// Package critique is the overlay that challenges generated artifacts and
// raw document content with objections and improvement suggestions. It is a
// read-only pass: it never mutates what it critiques.
package critique

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbagg/ProjectAlignment/document"
	"github.com/rbagg/ProjectAlignment/llm"
)

// Objection is one critical challenge to the content under review. Impact
// and Question are optional.
type Objection struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	Impact      string `json:"impact,omitempty"`
	Question    string `json:"question,omitempty"`
}

// Improvement is one actionable suggestion. Rationale, MVVNote, and Benefit
// are optional. MVVNote describes the minimum viable version of the
// suggestion.
type Improvement struct {
	Title      string `json:"title"`
	Suggestion string `json:"suggestion"`
	Rationale  string `json:"rationale,omitempty"`
	MVVNote    string `json:"mvv_note,omitempty"`
	Benefit    string `json:"benefit,omitempty"`
}

// Result carries both critique passes over one piece of content. Both
// collections are nonempty for any input.
type Result struct {
	Objections   []Objection   `json:"objections"`
	Improvements []Improvement `json:"improvements"`
}

// Oracle is the synthesis capability the overlay calls. Implemented by
// llm.Bound.
type Oracle interface {
	Synthesize(ctx context.Context, prompt string) (string, error)
}

// Overlay produces objections and improvements for content, caching results
// by content hash so identical input critiqued twice in one generation cycle
// yields identical output.
type Overlay struct {
	oracle   Oracle
	logger   *slog.Logger
	observer func(cacheHit bool)

	mu    sync.RWMutex
	cache map[string]*Result
}

// Option configures an Overlay.
type Option func(*Overlay)

// WithOracle sets the synthesis oracle.
func WithOracle(o Oracle) Option {
	return func(ov *Overlay) { ov.oracle = o }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ov *Overlay) { ov.logger = logger }
}

// WithObserver sets a callback invoked once per Critique call with whether
// the result came from the cache.
func WithObserver(fn func(cacheHit bool)) Option {
	return func(ov *Overlay) { ov.observer = fn }
}

// NewOverlay creates an Overlay. Without an oracle every critique is the
// deterministic fallback set.
func NewOverlay(opts ...Option) *Overlay {
	ov := &Overlay{
		logger: slog.Default(),
		cache:  make(map[string]*Result),
	}
	for _, opt := range opts {
		opt(ov)
	}
	return ov
}

// Critique runs both passes over content. Objections and improvements are
// independent oracle calls over the same input; a pass that fails or yields
// zero items is replaced by the deterministic fallback so neither collection
// is ever empty.
func (ov *Overlay) Critique(ctx context.Context, content string) *Result {
	key := document.ContentHash([]byte(content))

	ov.mu.RLock()
	cached, ok := ov.cache[key]
	ov.mu.RUnlock()
	if ok {
		ov.observe(true)
		return cached
	}

	result := &Result{
		Objections:   ov.objections(ctx, content),
		Improvements: ov.improvements(ctx, content),
	}

	// Last writer wins; results are content-addressed and deterministic
	// enough that a concurrent duplicate is harmless.
	ov.mu.Lock()
	ov.cache[key] = result
	ov.mu.Unlock()

	ov.observe(false)
	return result
}

// Reset clears the cache. Called at the start of a new generation cycle.
func (ov *Overlay) Reset() {
	ov.mu.Lock()
	ov.cache = make(map[string]*Result)
	ov.mu.Unlock()
}

func (ov *Overlay) observe(hit bool) {
	if ov.observer != nil {
		ov.observer(hit)
	}
}

func (ov *Overlay) objections(ctx context.Context, content string) []Objection {
	var items []Objection
	if ov.synthesizeArray(ctx, objectionPrompt(content), &items) {
		items = filterObjections(items)
	}
	if len(items) == 0 {
		return fallbackObjections()
	}
	return items
}

func (ov *Overlay) improvements(ctx context.Context, content string) []Improvement {
	var items []Improvement
	if ov.synthesizeArray(ctx, improvementPrompt(content), &items) {
		items = filterImprovements(items)
	}
	if len(items) == 0 {
		return fallbackImprovements()
	}
	return items
}

func (ov *Overlay) synthesizeArray(ctx context.Context, prompt string, out any) bool {
	if ov.oracle == nil {
		return false
	}
	raw, err := ov.oracle.Synthesize(ctx, prompt)
	if err != nil {
		ov.logger.Warn("critique synthesis failed", slog.String("error", err.Error()))
		return false
	}
	extracted := llm.ExtractJSONArray(raw)
	if extracted == "" {
		ov.logger.Warn("no JSON array in critique response")
		return false
	}
	if err := json.Unmarshal([]byte(extracted), out); err != nil {
		ov.logger.Warn("malformed JSON in critique response", slog.String("error", err.Error()))
		return false
	}
	return true
}

func filterObjections(items []Objection) []Objection {
	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Title) != "" && strings.TrimSpace(it.Explanation) != "" {
			out = append(out, it)
		}
	}
	return out
}

func filterImprovements(items []Improvement) []Improvement {
	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Title) != "" && strings.TrimSpace(it.Suggestion) != "" {
			out = append(out, it)
		}
	}
	return out
}

// fallbackObjections are the deterministic items injected when the oracle
// yields nothing usable.
func fallbackObjections() []Objection {
	return []Objection{
		{
			Title:       "Success Metrics Missing",
			Explanation: "The content does not define specific success metrics or KPIs, so teams cannot tell what they are working toward or how success will be evaluated.",
			Question:    "What measurable outcome would prove this is working?",
		},
		{
			Title:       "Resource Requirements Not Addressed",
			Explanation: "The content does not outline the resources and time commitment required, which invites resistance when implementation demands unexpected effort.",
		},
		{
			Title:       "Alternative Approaches Not Considered",
			Explanation: "The content does not explain why this approach was chosen over alternatives, leaving the decision open to challenge.",
			Question:    "What would have to be true for a simpler approach to suffice?",
		},
	}
}

// fallbackImprovements are the deterministic items injected when the oracle
// yields nothing usable.
func fallbackImprovements() []Improvement {
	return []Improvement{
		{
			Title:      "Add Success Metrics",
			Suggestion: "Define three to five specific KPIs that will measure success, each with a target value.",
			Rationale:  "Without metrics, progress and completion are matters of opinion.",
			MVVNote:    "Start with a single primary metric and a measurement cadence.",
		},
		{
			Title:      "Sharpen Scope Boundaries",
			Suggestion: "Explicitly list what is not included, to prevent scope creep.",
			Benefit:    "Clear boundaries reduce feature creep and prevent avoidable delays.",
		},
		{
			Title:      "Specify Implementation Phases",
			Suggestion: "Break the work into concrete phases with a deliverable per milestone.",
			MVVNote:    "A two-phase split between a walking skeleton and the full build is enough to start.",
		},
	}
}

// Package impact classifies whether a project's accumulated document changes
// preserve its original focus or represent drift from the baseline.
package impact

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rbagg/ProjectAlignment/document"
	"github.com/rbagg/ProjectAlignment/version"
)

// Classification is the drift verdict for a project.
type Classification string

const (
	OnFocus  Classification = "on-focus"
	Drifting Classification = "drifting"
)

// Level grades how much has changed, independent of the drift verdict.
type Level string

const (
	LevelNone     Level = "none"
	LevelMinor    Level = "minor"
	LevelModerate Level = "moderate"
	LevelMajor    Level = "major"
)

// DefaultDriftThreshold is the cumulative touched-section ratio above which a
// project is classified as drifting.
const DefaultDriftThreshold = 0.5

// DocumentHistory is the analyzer's view of one tracked document: its first
// and most recent versions. Current may equal Baseline for a document with a
// single version.
type DocumentHistory struct {
	ID       string
	Type     document.Type
	Baseline *version.DocumentVersion
	Current  *version.DocumentVersion
}

// DocumentDrift is the per-document breakdown behind an assessment.
type DocumentDrift struct {
	DocumentID       string        `json:"document_id"`
	Type             document.Type `json:"type"`
	BaselineSequence int           `json:"baseline_sequence"`
	CurrentSequence  int           `json:"current_sequence"`
	Added            []string      `json:"added,omitempty"`
	Modified         []string      `json:"modified,omitempty"`
	Removed          []string      `json:"removed,omitempty"`
	// NewVocabulary lists added sections with no counterpart in the doc
	// type's expected identifiers or the baseline's section names. Any entry
	// here is a strong drift signal.
	NewVocabulary []string `json:"new_vocabulary,omitempty"`
	TouchedRatio  float64  `json:"touched_ratio"`
}

func (d DocumentDrift) touched() int {
	return len(d.Added) + len(d.Modified) + len(d.Removed)
}

// Assessment is the derived drift verdict for a project. It is recomputed on
// demand and never edited.
type Assessment struct {
	ProjectID      string          `json:"project_id"`
	Classification Classification  `json:"classification"`
	Level          Level           `json:"level"`
	Rationale      string          `json:"rationale"`
	Narrative      string          `json:"narrative,omitempty"`
	Documents      []DocumentDrift `json:"documents"`
	AssessedAt     time.Time       `json:"assessed_at"`
}

// Oracle produces free text from a prompt.
type Oracle interface {
	Synthesize(ctx context.Context, prompt string) (string, error)
}

// Analyzer computes drift assessments.
type Analyzer struct {
	threshold float64
	logger    *slog.Logger
	oracle    Oracle
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThreshold overrides the drift classification threshold.
func WithThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		if threshold > 0 {
			a.threshold = threshold
		}
	}
}

// WithLogger sets the analyzer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithOracle enables the optional narrative. The rationale itself stays
// deterministic so it always names the driving sections.
func WithOracle(oracle Oracle) Option {
	return func(a *Analyzer) { a.oracle = oracle }
}

// NewAnalyzer creates an analyzer with the default threshold.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{threshold: DefaultDriftThreshold, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assess computes the net drift of a project versus its baseline versions.
// Documents without a baseline are skipped.
func (a *Analyzer) Assess(ctx context.Context, projectID string, docs []DocumentHistory) *Assessment {
	assessment := &Assessment{
		ProjectID:  projectID,
		AssessedAt: time.Now().UTC(),
	}

	totalTouched := 0
	totalSections := 0
	for _, doc := range docs {
		if doc.Baseline == nil || doc.Current == nil {
			continue
		}
		drift := assessDocument(doc)
		assessment.Documents = append(assessment.Documents, drift)
		totalTouched += drift.touched()
		totalSections += sectionUniverse(doc)
	}

	ratio := 0.0
	if totalSections > 0 {
		ratio = float64(totalTouched) / float64(totalSections)
	}

	assessment.Level = levelFor(assessment.Documents)
	assessment.Classification, assessment.Rationale = a.classify(assessment.Documents, ratio)

	if a.oracle != nil && totalTouched > 0 {
		assessment.Narrative = a.narrate(ctx, assessment)
	}

	return assessment
}

func assessDocument(doc DocumentHistory) DocumentDrift {
	drift := DocumentDrift{
		DocumentID:       doc.ID,
		Type:             doc.Type,
		BaselineSequence: doc.Baseline.Sequence,
		CurrentSequence:  doc.Current.Sequence,
	}

	if doc.Current.Sequence == doc.Baseline.Sequence {
		return drift
	}

	d := version.Diff(doc.Baseline.Structure, doc.Current.Structure)
	drift.Added = d.Added
	drift.Modified = d.ModifiedNames()
	drift.Removed = d.Removed

	vocab := vocabulary(doc.Type, doc.Baseline.Structure)
	for _, name := range d.Added {
		if !vocab[name] {
			drift.NewVocabulary = append(drift.NewVocabulary, name)
		}
	}

	if n := sectionUniverse(doc); n > 0 {
		drift.TouchedRatio = float64(drift.touched()) / float64(n)
	}
	return drift
}

// vocabulary is the set of section names that do not count as new territory:
// the doc type's expected identifiers plus whatever the baseline already had.
func vocabulary(t document.Type, baseline document.Structure) map[string]bool {
	vocab := make(map[string]bool)
	for _, name := range document.ExpectedSections(t) {
		vocab[name] = true
	}
	for _, name := range baseline.Names() {
		vocab[name] = true
	}
	vocab[document.Unclassified] = true
	return vocab
}

// sectionUniverse counts the distinct section names across baseline and
// current, the denominator for the touched ratio.
func sectionUniverse(doc DocumentHistory) int {
	names := make(map[string]bool)
	for _, n := range doc.Baseline.Structure.Names() {
		names[n] = true
	}
	for _, n := range doc.Current.Structure.Names() {
		names[n] = true
	}
	return len(names)
}

// levelFor grades total change volume: none for no changes, minor for a few
// changes confined to one document, moderate for up to ten changes across two
// documents, major beyond that.
func levelFor(docs []DocumentDrift) Level {
	total := 0
	changedDocs := 0
	for _, d := range docs {
		if n := d.touched(); n > 0 {
			total += n
			changedDocs++
		}
	}

	switch {
	case total == 0:
		return LevelNone
	case total <= 3 && changedDocs <= 1:
		return LevelMinor
	case total <= 10 && changedDocs <= 2:
		return LevelModerate
	default:
		return LevelMajor
	}
}

func (a *Analyzer) classify(docs []DocumentDrift, ratio float64) (Classification, string) {
	var newVocab []string
	var touchedSections []string
	strategyCore := ""
	for _, d := range docs {
		for _, name := range d.NewVocabulary {
			newVocab = append(newVocab, fmt.Sprintf("%s/%s", d.Type, name))
		}
		for _, name := range append(append(append([]string{}, d.Added...), d.Modified...), d.Removed...) {
			touchedSections = append(touchedSections, fmt.Sprintf("%s/%s", d.Type, name))
		}
		if d.Type == document.TypeStrategy && strategyCore == "" {
			for _, name := range append(append([]string{}, d.Modified...), d.Removed...) {
				if name == "vision" || name == "approach" {
					strategyCore = name
					break
				}
			}
		}
	}
	sort.Strings(newVocab)

	if len(newVocab) > 0 {
		return Drifting, fmt.Sprintf(
			"New sections outside the project's original vocabulary: %s.",
			strings.Join(newVocab, ", "))
	}
	if strategyCore != "" {
		return Drifting, fmt.Sprintf(
			"The strategy document's %q section changed, which redefines the project's direction.", strategyCore)
	}
	if ratio > a.threshold {
		return Drifting, fmt.Sprintf(
			"%.0f%% of sections changed since the baseline (%s), exceeding the %.0f%% drift threshold.",
			ratio*100, strings.Join(touchedSections, ", "), a.threshold*100)
	}

	if len(touchedSections) == 0 {
		return OnFocus, "No sections have changed since the baseline."
	}
	return OnFocus, fmt.Sprintf(
		"Changes are confined to the project's original vocabulary: %s.",
		strings.Join(touchedSections, ", "))
}

// narrate asks the oracle for a short prose summary. Best effort: failures
// leave the narrative empty.
func (a *Analyzer) narrate(ctx context.Context, assessment *Assessment) string {
	var b strings.Builder
	b.WriteString("You are a product operations assistant.\n\n")
	fmt.Fprintf(&b, "A project is classified %q (%s impact). %s\n\n", assessment.Classification, assessment.Level, assessment.Rationale)
	b.WriteString("Changes per document:\n")
	for _, d := range assessment.Documents {
		fmt.Fprintf(&b, "- %s: added %v, modified %v, removed %v\n", d.Type, d.Added, d.Modified, d.Removed)
	}
	b.WriteString("\nWrite two sentences for the project owner explaining what shifted and what to verify. Plain prose, no preamble.\n")

	out, err := a.oracle.Synthesize(ctx, b.String())
	if err != nil {
		a.logger.Warn("impact narrative generation failed", "error", err)
		return ""
	}
	return strings.TrimSpace(out)
}

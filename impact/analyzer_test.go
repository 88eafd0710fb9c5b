package impact

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbagg/ProjectAlignment/document"
	"github.com/rbagg/ProjectAlignment/version"
)

func snapshot(seq int, sections ...document.Section) *version.DocumentVersion {
	return &version.DocumentVersion{
		Sequence:  seq,
		Structure: document.Structure{Sections: sections},
	}
}

func text(name, content string) document.Section {
	return document.Section{Name: name, Content: document.TextContent(content)}
}

func TestAssess_NoChanges(t *testing.T) {
	a := NewAnalyzer()
	base := snapshot(1, text("overview", "An overview."), text("solution", "A solution."))

	got := a.Assess(context.Background(), "proj-1", []DocumentHistory{
		{ID: "doc-1", Type: document.TypeRequirements, Baseline: base, Current: base},
	})

	assert.Equal(t, OnFocus, got.Classification)
	assert.Equal(t, LevelNone, got.Level)
	assert.Contains(t, got.Rationale, "No sections have changed")
}

func TestAssess_SingleExpectedAdditionStaysOnFocus(t *testing.T) {
	a := NewAnalyzer()
	baseline := snapshot(1, text("overview", "An overview."), text("solution", "A solution."))
	current := snapshot(2,
		text("overview", "An overview."),
		text("solution", "A solution."),
		text("success-metrics", "Drift detected within one cycle."),
	)

	got := a.Assess(context.Background(), "proj-1", []DocumentHistory{
		{ID: "doc-1", Type: document.TypeRequirements, Baseline: baseline, Current: current},
	})

	assert.Equal(t, OnFocus, got.Classification)
	assert.Equal(t, LevelMinor, got.Level)
	assert.Contains(t, got.Rationale, "success-metrics")
	require.Len(t, got.Documents, 1)
	assert.Empty(t, got.Documents[0].NewVocabulary)
	assert.InDelta(t, 1.0/3.0, got.Documents[0].TouchedRatio, 0.001)
}

func TestAssess_NewVocabularyDrifts(t *testing.T) {
	a := NewAnalyzer()
	baseline := snapshot(1, text("overview", "An overview."))
	current := snapshot(2,
		text("overview", "An overview."),
		text("monetization-experiments", "Try ads."),
	)

	got := a.Assess(context.Background(), "proj-1", []DocumentHistory{
		{ID: "doc-1", Type: document.TypeRequirements, Baseline: baseline, Current: current},
	})

	assert.Equal(t, Drifting, got.Classification)
	assert.Contains(t, got.Rationale, "monetization-experiments")
	require.Len(t, got.Documents, 1)
	assert.Equal(t, []string{"monetization-experiments"}, got.Documents[0].NewVocabulary)
}

func TestAssess_RatioAboveThresholdDrifts(t *testing.T) {
	a := NewAnalyzer()
	baseline := snapshot(1,
		text("overview", "v1"),
		text("problem-statement", "v1"),
		text("solution", "v1"),
	)
	current := snapshot(2,
		text("overview", "v2"),
		text("problem-statement", "v2"),
		text("solution", "v1"),
	)

	got := a.Assess(context.Background(), "proj-1", []DocumentHistory{
		{ID: "doc-1", Type: document.TypeRequirements, Baseline: baseline, Current: current},
	})

	assert.Equal(t, Drifting, got.Classification)
	assert.Contains(t, got.Rationale, "drift threshold")
	assert.Contains(t, got.Rationale, "overview")
	assert.Contains(t, got.Rationale, "problem-statement")
}

func TestAssess_StrategyVisionChangeDrifts(t *testing.T) {
	a := NewAnalyzer()
	baseline := snapshot(1,
		text("vision", "Be the fastest."),
		text("approach", "Native clients."),
		text("business-value", "Retention."),
		text("goals", "Ship Q3."),
	)
	current := snapshot(2,
		text("vision", "Be the cheapest."),
		text("approach", "Native clients."),
		text("business-value", "Retention."),
		text("goals", "Ship Q3."),
	)

	got := a.Assess(context.Background(), "proj-1", []DocumentHistory{
		{ID: "doc-1", Type: document.TypeStrategy, Baseline: baseline, Current: current},
	})

	assert.Equal(t, Drifting, got.Classification)
	assert.Contains(t, got.Rationale, "vision")
}

func TestAssess_CustomThreshold(t *testing.T) {
	a := NewAnalyzer(WithThreshold(0.9))
	baseline := snapshot(1, text("overview", "v1"), text("solution", "v1"))
	current := snapshot(2, text("overview", "v2"), text("solution", "v1"))

	got := a.Assess(context.Background(), "proj-1", []DocumentHistory{
		{ID: "doc-1", Type: document.TypeRequirements, Baseline: baseline, Current: current},
	})

	// 1 of 2 sections touched is below a 0.9 threshold.
	assert.Equal(t, OnFocus, got.Classification)
}

func TestAssess_Levels(t *testing.T) {
	many := func(seq int, marker string) *version.DocumentVersion {
		return snapshot(seq,
			text("overview", marker),
			text("problem-statement", marker),
			text("solution", marker),
			text("requirements", marker),
			text("timeline", marker),
			text("success-metrics", marker),
			text("scope", marker),
		)
	}

	tests := []struct {
		name string
		docs []DocumentHistory
		want Level
	}{
		{
			name: "minor for small single-document change",
			docs: []DocumentHistory{
				{ID: "d1", Type: document.TypeRequirements,
					Baseline: snapshot(1, text("overview", "v1"), text("solution", "v1")),
					Current:  snapshot(2, text("overview", "v2"), text("solution", "v1"))},
			},
			want: LevelMinor,
		},
		{
			name: "moderate for two documents",
			docs: []DocumentHistory{
				{ID: "d1", Type: document.TypeRequirements,
					Baseline: snapshot(1, text("overview", "v1")),
					Current:  snapshot(2, text("overview", "v2"))},
				{ID: "d2", Type: document.TypePressRelease,
					Baseline: snapshot(1, text("headline", "v1")),
					Current:  snapshot(2, text("headline", "v2"))},
			},
			want: LevelModerate,
		},
		{
			name: "major for broad churn",
			docs: []DocumentHistory{
				{ID: "d1", Type: document.TypeRequirements,
					Baseline: many(1, "v1"), Current: many(2, "v2")},
				{ID: "d2", Type: document.TypePressRelease,
					Baseline: snapshot(1, text("headline", "v1"), text("press-release", "v1")),
					Current:  snapshot(2, text("headline", "v2"), text("press-release", "v2"))},
				{ID: "d3", Type: document.TypeStrategy,
					Baseline: snapshot(1, text("goals", "v1")),
					Current:  snapshot(2, text("goals", "v2"))},
			},
			want: LevelMajor,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAnalyzer()
			got := a.Assess(context.Background(), "proj-1", tc.docs)
			assert.Equal(t, tc.want, got.Level)
		})
	}
}

func TestAssess_SkipsDocumentsWithoutBaseline(t *testing.T) {
	a := NewAnalyzer()
	got := a.Assess(context.Background(), "proj-1", []DocumentHistory{
		{ID: "doc-1", Type: document.TypeRequirements},
	})
	assert.Empty(t, got.Documents)
	assert.Equal(t, LevelNone, got.Level)
	assert.Equal(t, OnFocus, got.Classification)
}

type fakeOracle struct {
	response string
	err      error
}

func (f *fakeOracle) Synthesize(context.Context, string) (string, error) {
	return f.response, f.err
}

func TestAssess_OracleNarrative(t *testing.T) {
	a := NewAnalyzer(WithOracle(&fakeOracle{response: "Scope narrowed. Verify the ticket backlog.\n"}))
	baseline := snapshot(1, text("overview", "v1"), text("solution", "v1"))
	current := snapshot(2, text("overview", "v2"), text("solution", "v1"))

	got := a.Assess(context.Background(), "proj-1", []DocumentHistory{
		{ID: "doc-1", Type: document.TypeRequirements, Baseline: baseline, Current: current},
	})

	assert.Equal(t, "Scope narrowed. Verify the ticket backlog.", got.Narrative)
	assert.Contains(t, got.Rationale, "overview")
}

func TestAssess_OracleFailureLeavesNarrativeEmpty(t *testing.T) {
	a := NewAnalyzer(WithOracle(&fakeOracle{err: errors.New("oracle unreachable")}))
	baseline := snapshot(1, text("overview", "v1"))
	current := snapshot(2, text("overview", "v2"))

	got := a.Assess(context.Background(), "proj-1", []DocumentHistory{
		{ID: "doc-1", Type: document.TypeRequirements, Baseline: baseline, Current: current},
	})

	assert.Empty(t, got.Narrative)
	assert.NotEmpty(t, got.Rationale)
}

package artifact

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbagg/ProjectAlignment/document"
	"github.com/rbagg/ProjectAlignment/llm/testutil"
	"github.com/rbagg/ProjectAlignment/version"
)

func testSnapshot() Snapshot {
	return Snapshot{
		document.TypeRequirements: document.Structure{Sections: []document.Section{
			{Name: "overview", Content: document.TextContent("build a document alignment engine.")},
			{Name: "problem-statement", Content: document.TextContent("teams work from stale documents.")},
			{Name: "solution", Content: document.TextContent("tracking structural changes across documents.")},
		}},
		document.TypeStrategy: document.Structure{Sections: []document.Section{
			{Name: "business-value", Content: document.TextContent("fewer misaligned releases.")},
		}},
	}
}

func testRequest() Request {
	return Request{ProjectName: "Aligner", Snapshot: testSnapshot()}
}

func TestGenerate_UnknownKind(t *testing.T) {
	g := NewGenerator()
	_, err := g.Generate(context.Background(), Kind("poster"), testRequest())
	assert.Error(t, err)
}

func TestDescription_OracleOutput(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{`{
		"three_sentences": ["Aligner tracks documents.", "Teams drift apart.", "It flags the drift."],
		"three_paragraphs": ["What it is, at length.", "The problem, at length.", "The approach, at length."]
	}`}}
	g := NewGenerator(WithDescribeOracle(oracle))

	a, err := g.Generate(context.Background(), KindDescription, testRequest())
	require.NoError(t, err)

	assert.False(t, a.Degraded)
	require.NotNil(t, a.Description)
	assert.Equal(t, []string{"Aligner tracks documents.", "Teams drift apart.", "It flags the drift."},
		a.Description.ThreeSentences)
	assert.Len(t, a.Description.ThreeParagraphs, 3)
}

func TestDescription_CountContractEnforced(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"too many entries", `{
			"three_sentences": ["one.", "two.", "three.", "four.", "five."],
			"three_paragraphs": ["p1", "p2", "p3", "p4"]
		}`},
		{"too few entries", `{
			"three_sentences": ["only one."],
			"three_paragraphs": ["p1"]
		}`},
		{"empty strings ignored", `{
			"three_sentences": ["", "one.", "", "two.", "three.", "four."],
			"three_paragraphs": ["", "", "p1"]
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &testutil.MockOracle{Responses: []string{tt.response}}
			g := NewGenerator(WithDescribeOracle(oracle))

			a, err := g.Generate(context.Background(), KindDescription, testRequest())
			require.NoError(t, err)

			require.NotNil(t, a.Description)
			assert.Len(t, a.Description.ThreeSentences, 3)
			assert.Len(t, a.Description.ThreeParagraphs, 3)
			for _, s := range a.Description.ThreeSentences {
				assert.NotEmpty(t, s)
			}
			for _, p := range a.Description.ThreeParagraphs {
				assert.NotEmpty(t, p)
			}
		})
	}
}

func TestDescription_RetryThenDegrade(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{"not json", "still not json"}}
	g := NewGenerator(WithDescribeOracle(oracle))

	a, err := g.Generate(context.Background(), KindDescription, testRequest())
	require.NoError(t, err)

	assert.True(t, a.Degraded)
	assert.Equal(t, 2, oracle.Calls())
	require.NotNil(t, a.Description)
	assert.Len(t, a.Description.ThreeSentences, 3)
	assert.Len(t, a.Description.ThreeParagraphs, 3)

	// The retry carries the stricter instruction.
	prompts := oracle.Prompts()
	require.Len(t, prompts, 2)
	assert.NotContains(t, prompts[0], "nothing else")
	assert.Contains(t, prompts[1], "nothing else")
}

func TestDescription_RecoversOnRetry(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{
		"here is your description, hope it helps",
		`{"three_sentences": ["a.", "b.", "c."], "three_paragraphs": ["p1", "p2", "p3"]}`,
	}}
	g := NewGenerator(WithDescribeOracle(oracle))

	a, err := g.Generate(context.Background(), KindDescription, testRequest())
	require.NoError(t, err)

	assert.False(t, a.Degraded)
	assert.Equal(t, 2, oracle.Calls())
	assert.Equal(t, []string{"a.", "b.", "c."}, a.Description.ThreeSentences)
}

func TestDescription_NoOracleIsDegraded(t *testing.T) {
	g := NewGenerator()

	a, err := g.Generate(context.Background(), KindDescription, testRequest())
	require.NoError(t, err)

	assert.True(t, a.Degraded)
	require.NotNil(t, a.Description)
	assert.Len(t, a.Description.ThreeSentences, 3)
	assert.Len(t, a.Description.ThreeParagraphs, 3)
	// Rule-based output draws on actual section content.
	assert.Contains(t, a.Description.ThreeSentences[1], "stale documents")
}

func TestInternal_InitialVariantWithoutBaseline(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{`{
		"subject": "Internal Brief: Aligner",
		"what_it_is": "Aligner keeps project documents aligned.",
		"team_needs": "Connect your documents this sprint."
	}`}}
	g := NewGenerator(WithMessageOracle(oracle))

	req := testRequest()
	req.HasBaseline = false

	a, err := g.Generate(context.Background(), KindInternalMessage, req)
	require.NoError(t, err)

	require.NotNil(t, a.Internal)
	assert.Equal(t, VariantInitial, a.Internal.Variant)
	require.NotNil(t, a.Internal.Initial)
	assert.Nil(t, a.Internal.Change)
	assert.Equal(t, "Aligner keeps project documents aligned.", a.Internal.Initial.WhatItIs)
	assert.Contains(t, oracle.Prompts()[0], "first internal brief")
}

func TestInternal_ChangeDrivenVariantWithBaseline(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{`{
		"subject": "Internal Update: Aligner - Scope Update",
		"what_changed": "Success metrics were added to the requirements.",
		"customer_impact": "Customers get a measurable bar for the fix.",
		"business_impact": "We can now report progress against targets.",
		"timeline_impact": "No timeline change."
	}`}}
	g := NewGenerator(WithMessageOracle(oracle))

	req := testRequest()
	req.HasBaseline = true
	req.Changes = map[document.Type]*version.ChangeRecord{
		document.TypeRequirements: {
			Added:    []string{"success-metrics"},
			Modified: []version.ModifiedSection{},
			Removed:  []string{},
		},
	}

	a, err := g.Generate(context.Background(), KindInternalMessage, req)
	require.NoError(t, err)

	require.NotNil(t, a.Internal)
	assert.Equal(t, VariantChangeDriven, a.Internal.Variant)
	require.NotNil(t, a.Internal.Change)
	assert.Nil(t, a.Internal.Initial)
	assert.Equal(t, "No timeline change.", a.Internal.Change.TimelineImpact)
	assert.Contains(t, oracle.Prompts()[0], "success-metrics")
}

func TestInternal_MissingMandatoryFieldDegrades(t *testing.T) {
	// A change-driven response without business_impact is malformed.
	oracle := &testutil.MockOracle{Responses: []string{
		`{"subject": "s", "what_changed": "x", "customer_impact": "y"}`,
	}}
	g := NewGenerator(WithMessageOracle(oracle))

	req := testRequest()
	req.HasBaseline = true
	req.Changes = map[document.Type]*version.ChangeRecord{
		document.TypeRequirements: {Added: []string{"scope"}},
	}

	a, err := g.Generate(context.Background(), KindInternalMessage, req)
	require.NoError(t, err)

	assert.True(t, a.Degraded)
	require.NotNil(t, a.Internal.Change)
	assert.Contains(t, a.Internal.Change.WhatChanged, "scope")
	assert.NotEmpty(t, a.Internal.Change.CustomerImpact)
	assert.NotEmpty(t, a.Internal.Change.BusinessImpact)
}

func TestExternal_OracleOutput(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{`{
		"headline": "Stop shipping from stale documents",
		"pain_point": "Teams work from documents that silently diverge.",
		"solution": "Aligner tracks structural changes and flags drift.",
		"benefits": "Fewer misaligned releases.",
		"call_to_action": "Connect a document to see its drift."
	}`}}
	g := NewGenerator(WithMessageOracle(oracle))

	a, err := g.Generate(context.Background(), KindExternalMessage, testRequest())
	require.NoError(t, err)

	assert.False(t, a.Degraded)
	require.NotNil(t, a.External)
	assert.Equal(t, "Stop shipping from stale documents", a.External.Headline)
	assert.Equal(t, "Connect a document to see its drift.", a.External.CallToAction)
}

func TestExternal_BenefitsOptional(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{`{
		"headline": "h",
		"pain_point": "p",
		"solution": "s",
		"call_to_action": "c"
	}`}}
	g := NewGenerator(WithMessageOracle(oracle))

	a, err := g.Generate(context.Background(), KindExternalMessage, testRequest())
	require.NoError(t, err)

	assert.False(t, a.Degraded)
	assert.Empty(t, a.External.Benefits)
}

func TestExternal_MissingMandatoryFieldDegrades(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{
		`{"headline": "h", "solution": "s"}`,
		`{"headline": "h", "solution": "s"}`,
	}}
	g := NewGenerator(WithMessageOracle(oracle))

	a, err := g.Generate(context.Background(), KindExternalMessage, testRequest())
	require.NoError(t, err)

	assert.True(t, a.Degraded)
	require.NotNil(t, a.External)
	assert.NotEmpty(t, a.External.Headline)
	assert.NotEmpty(t, a.External.PainPoint)
	assert.NotEmpty(t, a.External.Solution)
	assert.NotEmpty(t, a.External.CallToAction)
}

func TestGenerate_FatalOracleErrorSkipsRetry(t *testing.T) {
	oracle := &testutil.MockOracle{Err: errors.New("boom")}
	g := NewGenerator(WithDescribeOracle(oracle))

	a, err := g.Generate(context.Background(), KindDescription, testRequest())
	require.NoError(t, err)

	assert.True(t, a.Degraded)
	// Generic errors are retried once; only fatal classifications short-circuit.
	assert.Equal(t, 2, oracle.Calls())
}

func TestArtifactRender(t *testing.T) {
	a := &Artifact{
		Kind: KindExternalMessage,
		External: &ExternalMessage{
			Headline:     "h",
			PainPoint:    "p",
			Solution:     "s",
			CallToAction: "c",
		},
	}

	rendered := a.Render()
	assert.Contains(t, rendered, "h")
	assert.Contains(t, rendered, "p")
	assert.NotContains(t, rendered, "\n\n\n")
}

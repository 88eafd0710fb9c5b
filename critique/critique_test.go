package critique

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbagg/ProjectAlignment/llm/testutil"
)

const sampleContent = "Project X is a tool that syncs documents. " +
	"Teams waste hours reconciling inconsistent documentation."

func TestCritique_OracleResults(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{
		`[{"title": "No Metrics", "explanation": "Success is not measurable.", "question": "How will you know it worked?"}]`,
		`[{"title": "Name the Baseline", "suggestion": "State the current reconciliation cost.", "benefit": "Makes the value concrete."}]`,
	}}
	ov := NewOverlay(WithOracle(oracle))

	result := ov.Critique(context.Background(), sampleContent)

	require.Len(t, result.Objections, 1)
	assert.Equal(t, "No Metrics", result.Objections[0].Title)
	assert.Equal(t, "How will you know it worked?", result.Objections[0].Question)

	require.Len(t, result.Improvements, 1)
	assert.Equal(t, "Name the Baseline", result.Improvements[0].Title)
	assert.Equal(t, 2, oracle.Calls())
}

func TestCritique_NeverEmpty(t *testing.T) {
	tests := []struct {
		name   string
		oracle Oracle
	}{
		{"no oracle", nil},
		{"oracle error", &testutil.MockOracle{Err: errors.New("unreachable")}},
		{"empty array", &testutil.MockOracle{Responses: []string{"[]", "[]"}}},
		{"prose response", &testutil.MockOracle{Responses: []string{"I cannot critique this.", "Sorry."}}},
		{"items missing required fields", &testutil.MockOracle{Responses: []string{
			`[{"impact": "high"}]`,
			`[{"rationale": "because"}]`,
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{}
			if tt.oracle != nil {
				opts = append(opts, WithOracle(tt.oracle))
			}
			ov := NewOverlay(opts...)

			result := ov.Critique(context.Background(), sampleContent)
			assert.NotEmpty(t, result.Objections)
			assert.NotEmpty(t, result.Improvements)
		})
	}
}

func TestCritique_FallbackNamesConcreteGaps(t *testing.T) {
	ov := NewOverlay()

	result := ov.Critique(context.Background(), sampleContent)

	titles := make([]string, 0, len(result.Objections))
	for _, o := range result.Objections {
		titles = append(titles, o.Title)
	}
	assert.Contains(t, titles, "Success Metrics Missing")
}

func TestCritique_CachesByContentHash(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{
		`[{"title": "A", "explanation": "a"}]`,
		`[{"title": "B", "suggestion": "b"}]`,
	}}

	var hits, misses int
	ov := NewOverlay(WithOracle(oracle), WithObserver(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}))

	first := ov.Critique(context.Background(), sampleContent)
	second := ov.Critique(context.Background(), sampleContent)

	assert.Same(t, first, second)
	assert.Equal(t, 2, oracle.Calls())
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestCritique_DistinctContentNotCached(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{
		`[{"title": "A", "explanation": "a"}]`,
	}}
	ov := NewOverlay(WithOracle(oracle))

	ov.Critique(context.Background(), "first content")
	ov.Critique(context.Background(), "second content")

	assert.Equal(t, 4, oracle.Calls())
}

func TestCritique_ResetClearsCache(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{
		`[{"title": "A", "explanation": "a"}]`,
	}}
	ov := NewOverlay(WithOracle(oracle))

	ov.Critique(context.Background(), sampleContent)
	ov.Reset()
	ov.Critique(context.Background(), sampleContent)

	assert.Equal(t, 4, oracle.Calls())
}

func TestCritique_ConcurrentSameContent(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{
		`[{"title": "A", "explanation": "a"}]`,
	}}
	ov := NewOverlay(WithOracle(oracle))

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ov.Critique(context.Background(), sampleContent)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.NotEmpty(t, r.Objections)
		assert.NotEmpty(t, r.Improvements)
	}
}

func TestCritique_PromptsCarryContent(t *testing.T) {
	oracle := &testutil.MockOracle{Responses: []string{
		`[{"title": "A", "explanation": "a"}]`,
		`[{"title": "B", "suggestion": "b"}]`,
	}}
	ov := NewOverlay(WithOracle(oracle))

	ov.Critique(context.Background(), sampleContent)

	prompts := oracle.Prompts()
	require.Len(t, prompts, 2)
	for _, p := range prompts {
		assert.Contains(t, p, sampleContent)
	}
}

package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_HandlerExposesCollectors(t *testing.T) {
	m := New()

	m.ObserveSync("requirements", "created")
	m.VersionsCreated.WithLabelValues("requirements").Inc()
	m.SuggestionsEmitted.WithLabelValues("requirements").Add(3)
	m.ObserveOracleCall("describing", "claude-haiku", 250*time.Millisecond, nil)
	m.ObserveCritiqueLookup(true)
	m.ObserveCritiqueLookup(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `alignment_syncs_total{doc_type="requirements",outcome="created"} 1`)
	assert.Contains(t, body, `alignment_suggestions_emitted_total{source="requirements"} 3`)
	assert.Contains(t, body, `alignment_oracle_calls_total{capability="describing",model="claude-haiku",outcome="ok"} 1`)
	assert.Contains(t, body, `alignment_critique_cache_lookups_total{result="hit"} 1`)
}

func TestMetrics_IsolatedRegistries(t *testing.T) {
	a := New()
	b := New()

	a.ObserveSync("tickets", "unchanged")

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.NotContains(t, rec.Body.String(), `doc_type="tickets"`)
}

func TestMetrics_ErrorOutcomes(t *testing.T) {
	m := New()
	m.ObserveOracleCall("messaging", "qwen", time.Second, assert.AnError)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(),
		`alignment_oracle_calls_total{capability="messaging",model="qwen",outcome="error"} 1`)
}

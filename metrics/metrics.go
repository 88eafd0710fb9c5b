// Package metrics exposes Prometheus collectors for the alignment engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector, registered on its own registry so tests can
// create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	SyncsTotal          *prometheus.CounterVec
	VersionsCreated     *prometheus.CounterVec
	SuggestionsEmitted  *prometheus.CounterVec
	ImpactAssessments   *prometheus.CounterVec
	ArtifactsGenerated  *prometheus.CounterVec
	OracleCalls         *prometheus.CounterVec
	OracleCallDuration  *prometheus.HistogramVec
	CritiqueCacheLookup *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SyncsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alignment_syncs_total",
			Help: "Document sync operations, by document type and outcome.",
		}, []string{"doc_type", "outcome"}),
		VersionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alignment_versions_created_total",
			Help: "Document versions appended to the version store.",
		}, []string{"doc_type"}),
		SuggestionsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alignment_suggestions_emitted_total",
			Help: "Alignment suggestions emitted, by source document type.",
		}, []string{"source"}),
		ImpactAssessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alignment_impact_assessments_total",
			Help: "Impact assessments computed, by classification.",
		}, []string{"classification"}),
		ArtifactsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alignment_artifacts_generated_total",
			Help: "Artifacts generated, by kind and degraded flag.",
		}, []string{"kind", "degraded"}),
		OracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alignment_oracle_calls_total",
			Help: "Synthesis oracle calls, by capability, model, and outcome.",
		}, []string{"capability", "model", "outcome"}),
		OracleCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alignment_oracle_call_duration_seconds",
			Help:    "Synthesis oracle call latency.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"capability"}),
		CritiqueCacheLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alignment_critique_cache_lookups_total",
			Help: "Critique overlay cache lookups, by result.",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.SyncsTotal,
		m.VersionsCreated,
		m.SuggestionsEmitted,
		m.ImpactAssessments,
		m.ArtifactsGenerated,
		m.OracleCalls,
		m.OracleCallDuration,
		m.CritiqueCacheLookup,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSync records one sync call. Outcome is one of "created",
// "unchanged", "error".
func (m *Metrics) ObserveSync(docType, outcome string) {
	m.SyncsTotal.WithLabelValues(docType, outcome).Inc()
}

// ObserveOracleCall adapts to llm.WithObserver.
func (m *Metrics) ObserveOracleCall(capability, model string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.OracleCalls.WithLabelValues(capability, model, outcome).Inc()
	m.OracleCallDuration.WithLabelValues(capability).Observe(duration.Seconds())
}

// ObserveCritiqueLookup adapts to critique.WithObserver.
func (m *Metrics) ObserveCritiqueLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CritiqueCacheLookup.WithLabelValues(result).Inc()
}

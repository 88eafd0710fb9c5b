package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rbagg/ProjectAlignment/alignment"
	"github.com/rbagg/ProjectAlignment/artifact"
	"github.com/rbagg/ProjectAlignment/critique"
	"github.com/rbagg/ProjectAlignment/document"
	"github.com/rbagg/ProjectAlignment/impact"
	"github.com/rbagg/ProjectAlignment/metrics"
	"github.com/rbagg/ProjectAlignment/version"
)

// Service exposes the core operations over the stores and engines. All
// processing is request/response: each call completes its work before
// returning, suspending only on oracle calls.
type Service struct {
	projects    *Store
	versions    *version.Store
	suggestions *alignment.Store

	engine    *alignment.Engine
	analyzer  *impact.Analyzer
	generator *artifact.Generator
	overlay   *critique.Overlay

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEngine sets the alignment suggestion engine.
func WithEngine(e *alignment.Engine) ServiceOption {
	return func(s *Service) { s.engine = e }
}

// WithAnalyzer sets the impact analyzer.
func WithAnalyzer(a *impact.Analyzer) ServiceOption {
	return func(s *Service) { s.analyzer = a }
}

// WithGenerator sets the artifact generator.
func WithGenerator(g *artifact.Generator) ServiceOption {
	return func(s *Service) { s.generator = g }
}

// WithOverlay sets the critique overlay.
func WithOverlay(o *critique.Overlay) ServiceOption {
	return func(s *Service) { s.overlay = o }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service. Engines not supplied via options default to
// rule-based instances without oracles.
func NewService(projects *Store, versions *version.Store, suggestions *alignment.Store, opts ...ServiceOption) *Service {
	s := &Service{
		projects:    projects,
		versions:    versions,
		suggestions: suggestions,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = alignment.NewEngine()
	}
	if s.analyzer == nil {
		s.analyzer = impact.NewAnalyzer()
	}
	if s.generator == nil {
		s.generator = artifact.NewGenerator()
	}
	if s.overlay == nil {
		s.overlay = critique.NewOverlay()
	}
	return s
}

// Connect registers a document of the given type under a project, creating
// the project on first connection. Reconnecting an already-tracked type
// updates its locator and keeps the stable document ID.
func (s *Service) Connect(ctx context.Context, projectID string, docType document.Type, locator string) (*Project, error) {
	if !docType.IsValid() {
		return nil, fmt.Errorf("unknown document type: %s", docType)
	}
	if locator == "" {
		return nil, fmt.Errorf("locator must not be empty")
	}

	p, err := s.projects.Get(ctx, projectID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		p = NewProject(projectID, "")
	default:
		return nil, err
	}

	if p.Archived {
		return nil, fmt.Errorf("project %s is archived", p.ID)
	}

	ref := p.attach(docType, locator)
	if err := s.projects.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("document connected",
		slog.String("project_id", p.ID),
		slog.String("document_id", ref.ID),
		slog.String("doc_type", string(docType)))

	return p, nil
}

// Sync processes new raw content for a document: HTML normalization,
// structure extraction, version recording, and an alignment suggestion pass
// over the resulting diff. The boolean is false when the content was
// unchanged and no version was created.
func (s *Service) Sync(ctx context.Context, documentID, rawText string) (*version.DocumentVersion, bool, error) {
	p, docType, err := s.projects.Resolve(ctx, documentID)
	if err != nil {
		return nil, false, err
	}

	normalized := document.NormalizeHTML(rawText)

	v, created, err := s.versions.Record(ctx, documentID, docType, normalized)
	if err != nil {
		s.observeSync(docType, "error")
		return nil, false, err
	}
	if !created {
		s.observeSync(docType, "unchanged")
		return v, false, nil
	}

	s.observeSync(docType, "created")
	if s.metrics != nil {
		s.metrics.VersionsCreated.WithLabelValues(string(docType)).Inc()
	}

	// A new version starts a new generation cycle: critique results cached
	// for the previous document state will never be asked for again.
	s.overlay.Reset()

	if v.Diff != nil && !v.Diff.IsEmpty() {
		suggestions := s.engine.Suggest(ctx, p.TrackedTypes(), docType, v.Diff)
		if len(suggestions) > 0 {
			if err := s.suggestions.Save(ctx, p.ID, suggestions); err != nil {
				// Suggestion persistence failure degrades the pass, it does
				// not fail the sync that produced the version.
				s.logger.Warn("failed to save suggestions",
					slog.String("project_id", p.ID),
					slog.String("error", err.Error()))
			} else if s.metrics != nil {
				s.metrics.SuggestionsEmitted.WithLabelValues(string(docType)).
					Add(float64(len(suggestions)))
			}
		}
	}

	s.logger.Info("document synced",
		slog.String("project_id", p.ID),
		slog.String("document_id", documentID),
		slog.Int("sequence", v.Sequence))

	return v, true, nil
}

// GetSuggestions returns the project's unresolved suggestions, newest first.
func (s *Service) GetSuggestions(ctx context.Context, projectID string) ([]alignment.Suggestion, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.suggestions.List(ctx, projectID)
}

// ResolveSuggestion removes a suggestion the user has acted on.
func (s *Service) ResolveSuggestion(ctx context.Context, projectID, suggestionKey string) error {
	return s.suggestions.Resolve(ctx, projectID, suggestionKey)
}

// GetImpact assesses the project's drift from its baseline across all
// tracked documents.
func (s *Service) GetImpact(ctx context.Context, projectID string) (*impact.Assessment, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var docs []impact.DocumentHistory
	for _, t := range p.TrackedTypes() {
		docID := p.DocumentID(t)
		baseline, err := s.versions.Baseline(ctx, docID)
		if err != nil {
			if errors.Is(err, version.ErrNotFound) {
				continue
			}
			return nil, err
		}
		current, err := s.versions.Latest(ctx, docID)
		if err != nil {
			return nil, err
		}
		docs = append(docs, impact.DocumentHistory{
			ID:       docID,
			Type:     t,
			Baseline: baseline,
			Current:  current,
		})
	}

	assessment := s.analyzer.Assess(ctx, projectID, docs)
	if s.metrics != nil {
		s.metrics.ImpactAssessments.WithLabelValues(string(assessment.Classification)).Inc()
	}
	return assessment, nil
}

// GenerateArtifact produces the requested artifact from the latest versions
// of the project's documents, runs the critique overlay, and replaces the
// project's stored artifact of that kind. This is the only operation that
// updates a project's latest artifacts.
func (s *Service) GenerateArtifact(ctx context.Context, projectID string, kind artifact.Kind) (*artifact.Artifact, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown artifact kind: %s", kind)
	}

	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	req := artifact.Request{
		ProjectName: p.Name,
		Snapshot:    make(artifact.Snapshot),
		Changes:     make(map[document.Type]*version.ChangeRecord),
	}
	for _, t := range p.TrackedTypes() {
		latest, err := s.versions.Latest(ctx, p.DocumentID(t))
		if err != nil {
			if errors.Is(err, version.ErrNotFound) {
				continue
			}
			return nil, err
		}
		req.Snapshot[t] = latest.Structure
		if latest.Sequence > 1 {
			req.HasBaseline = true
			if latest.Diff != nil {
				req.Changes[t] = latest.Diff
			}
		}
	}

	a, err := s.generator.Generate(ctx, kind, req)
	if err != nil {
		return nil, err
	}

	result := s.overlay.Critique(ctx, a.Render())
	a.Objections = result.Objections
	a.Improvements = result.Improvements

	if p.Artifacts == nil {
		p.Artifacts = make(map[artifact.Kind]*artifact.Artifact)
	}
	p.Artifacts[kind] = a
	p.UpdatedAt = time.Now().UTC()
	if err := s.projects.Save(ctx, p); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ArtifactsGenerated.
			WithLabelValues(string(kind), strconv.FormatBool(a.Degraded)).Inc()
	}

	return a, nil
}

// Inspect previews extraction for raw content without persisting anything.
func (s *Service) Inspect(rawText string, docType document.Type) (document.Structure, document.ValidationReport) {
	return document.Extract(document.NormalizeHTML(rawText), docType)
}

// Archive soft-deletes a project.
func (s *Service) Archive(ctx context.Context, projectID string) error {
	return s.projects.Archive(ctx, projectID)
}

func (s *Service) observeSync(docType document.Type, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveSync(string(docType), outcome)
	}
}

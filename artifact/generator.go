package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbagg/ProjectAlignment/document"
	"github.com/rbagg/ProjectAlignment/llm"
	"github.com/rbagg/ProjectAlignment/version"
)

// Oracle is the synthesis capability the generators call. Implemented by
// llm.Bound.
type Oracle interface {
	Synthesize(ctx context.Context, prompt string) (string, error)
}

// Snapshot is the current extracted Structure of every connected document,
// keyed by document type.
type Snapshot map[document.Type]document.Structure

// Request carries everything a generation needs. HasBaseline selects the
// internal message variant; Changes feed change-driven messaging context.
type Request struct {
	ProjectName string
	Snapshot    Snapshot
	HasBaseline bool
	Changes     map[document.Type]*version.ChangeRecord
}

// Generator produces artifacts from a project snapshot via the synthesis
// oracle, with a rule-based degraded fallback.
type Generator struct {
	describe Oracle
	message  Oracle
	logger   *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithDescribeOracle sets the oracle used for project descriptions.
func WithDescribeOracle(o Oracle) Option {
	return func(g *Generator) { g.describe = o }
}

// WithMessageOracle sets the oracle used for internal and external messages.
func WithMessageOracle(o Oracle) Option {
	return func(g *Generator) { g.message = o }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator creates a Generator. Without oracles every generation is
// rule-based and flagged degraded.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces the artifact of the requested kind. Artifacts are
// replaced wholesale; the returned artifact never carries partial state from
// a previous generation.
func (g *Generator) Generate(ctx context.Context, kind Kind, req Request) (*Artifact, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown artifact kind: %s", kind)
	}

	a := &Artifact{Kind: kind, GeneratedAt: time.Now().UTC()}

	switch kind {
	case KindDescription:
		desc, degraded := g.generateDescription(ctx, req)
		a.Description = desc
		a.Degraded = degraded
	case KindInternalMessage:
		msg, degraded := g.generateInternal(ctx, req)
		a.Internal = msg
		a.Degraded = degraded
	case KindExternalMessage:
		msg, degraded := g.generateExternal(ctx, req)
		a.External = msg
		a.Degraded = degraded
	}

	return a, nil
}

// synthesize calls the oracle and unmarshals the JSON object in its response
// into out. On a failed call or unparsable output it retries once with a
// stricter instruction appended. Returns false when both attempts failed and
// the caller must fall back.
func (g *Generator) synthesize(ctx context.Context, oracle Oracle, prompt string, out any) bool {
	if oracle == nil {
		return false
	}

	for attempt, p := range []string{prompt, prompt + strictInstruction} {
		raw, err := oracle.Synthesize(ctx, p)
		if err != nil {
			g.logger.Warn("oracle synthesis failed",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))
			if llm.IsFatal(err) {
				return false
			}
			continue
		}

		extracted := llm.ExtractJSON(raw)
		if extracted == "" {
			g.logger.Warn("no JSON object in oracle response", slog.Int("attempt", attempt+1))
			continue
		}
		if err := json.Unmarshal([]byte(extracted), out); err != nil {
			g.logger.Warn("malformed JSON in oracle response",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))
			continue
		}
		return true
	}

	return false
}

// Render flattens the artifact's typed content into plain text for the
// critique overlay and for display.
func (a *Artifact) Render() string {
	switch {
	case a.Description != nil:
		var parts []string
		parts = append(parts, a.Description.ThreeSentences...)
		parts = append(parts, a.Description.ThreeParagraphs...)
		return joinNonEmpty(parts)
	case a.Internal != nil:
		m := a.Internal
		parts := []string{m.Subject}
		if m.Initial != nil {
			parts = append(parts, m.Initial.WhatItIs, m.Initial.TeamNeeds)
		}
		if m.Change != nil {
			parts = append(parts,
				m.Change.WhatChanged,
				m.Change.CustomerImpact,
				m.Change.BusinessImpact,
				m.Change.TimelineImpact,
				m.Change.TeamNeeds)
		}
		return joinNonEmpty(parts)
	case a.External != nil:
		m := a.External
		return joinNonEmpty([]string{m.Headline, m.PainPoint, m.Solution, m.Benefits, m.CallToAction})
	}
	return ""
}

func joinNonEmpty(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// Package project owns the Project entity and the service exposing the core
// operations: connecting documents, syncing content, listing suggestions,
// assessing impact, and generating artifacts.
package project

import (
	"time"

	"github.com/google/uuid"

	"github.com/rbagg/ProjectAlignment/artifact"
	"github.com/rbagg/ProjectAlignment/document"
)

// DocumentRef is one tracked source belonging to a project. Its ID is stable
// across versions; reconnecting the same document type updates the locator
// but keeps the ID.
type DocumentRef struct {
	ID      string        `json:"id"`
	Type    document.Type `json:"type"`
	Locator string        `json:"locator"`

	ConnectedAt time.Time `json:"connected_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Project is a tracked initiative. It owns zero or one document per type,
// the latest generated artifacts, and a soft-archive flag; projects are
// never hard-deleted.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	Documents map[document.Type]*DocumentRef `json:"documents"`

	// Artifacts holds the latest generation per kind, replaced only by
	// GenerateArtifact.
	Artifacts map[artifact.Kind]*artifact.Artifact `json:"artifacts,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Archived   bool       `json:"archived,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// NewProject creates an empty project. An empty id gets a generated UUID.
func NewProject(id, name string) *Project {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Project{
		ID:        id,
		Name:      name,
		Documents: make(map[document.Type]*DocumentRef),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TrackedTypes returns the document types this project has connected, in
// canonical type order.
func (p *Project) TrackedTypes() []document.Type {
	var types []document.Type
	for _, t := range document.Types() {
		if _, ok := p.Documents[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// DocumentID returns the stable document ID for a type, or empty when the
// type is not connected.
func (p *Project) DocumentID(t document.Type) string {
	if ref, ok := p.Documents[t]; ok {
		return ref.ID
	}
	return ""
}

// attach registers or updates the document for a type and returns its ref.
func (p *Project) attach(t document.Type, locator string) *DocumentRef {
	now := time.Now().UTC()
	if ref, ok := p.Documents[t]; ok {
		ref.Locator = locator
		ref.UpdatedAt = now
		p.UpdatedAt = now
		return ref
	}
	ref := &DocumentRef{
		ID:          uuid.NewString(),
		Type:        t,
		Locator:     locator,
		ConnectedAt: now,
		UpdatedAt:   now,
	}
	p.Documents[t] = ref
	p.UpdatedAt = now
	return ref
}

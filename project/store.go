package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/rbagg/ProjectAlignment/document"
)

// BucketProjects is the KV bucket holding project records and the
// document-to-project index.
const BucketProjects = "ALIGNMENT_PROJECTS"

// ErrNotFound is returned when a project or document lookup misses.
var ErrNotFound = errors.New("project not found")

// Store persists projects in NATS KV. Alongside each project record it
// maintains an index entry per connected document so Sync can resolve a
// document ID back to its project.
type Store struct {
	kv jetstream.KeyValue
}

// NewStore creates a project store, creating the KV bucket if needed.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	kv, err := js.KeyValue(ctx, BucketProjects)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketProjects,
			Description: "ProjectAlignment project storage",
		})
		if err != nil {
			return nil, fmt.Errorf("create projects bucket: %w", err)
		}
	}
	return &Store{kv: kv}, nil
}

func projectKey(id string) string {
	return "project." + id
}

func documentKey(documentID string) string {
	return "document." + documentID
}

// documentIndex is the value stored per connected document.
type documentIndex struct {
	ProjectID string        `json:"project_id"`
	Type      document.Type `json:"type"`
}

// Save persists a project and refreshes the document index entries for its
// connected documents.
func (s *Store) Save(ctx context.Context, p *Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	if _, err := s.kv.Put(ctx, projectKey(p.ID), data); err != nil {
		return fmt.Errorf("store project: %w", err)
	}

	for t, ref := range p.Documents {
		idx, err := json.Marshal(documentIndex{ProjectID: p.ID, Type: t})
		if err != nil {
			return fmt.Errorf("marshal document index: %w", err)
		}
		if _, err := s.kv.Put(ctx, documentKey(ref.ID), idx); err != nil {
			return fmt.Errorf("store document index: %w", err)
		}
	}
	return nil
}

// Get loads one project by ID.
func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	entry, err := s.kv.Get(ctx, projectKey(id))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	var p Project
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		return nil, fmt.Errorf("unmarshal project: %w", err)
	}
	if p.Documents == nil {
		p.Documents = make(map[document.Type]*DocumentRef)
	}
	return &p, nil
}

// Resolve maps a document ID to its owning project and document type.
func (s *Store) Resolve(ctx context.Context, documentID string) (*Project, document.Type, error) {
	entry, err := s.kv.Get(ctx, documentKey(documentID))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("get document index: %w", err)
	}

	var idx documentIndex
	if err := json.Unmarshal(entry.Value(), &idx); err != nil {
		return nil, "", fmt.Errorf("unmarshal document index: %w", err)
	}

	p, err := s.Get(ctx, idx.ProjectID)
	if err != nil {
		return nil, "", err
	}
	return p, idx.Type, nil
}

// List returns all projects. Archived projects are included unless
// activeOnly is set.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]*Project, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list project keys: %w", err)
	}

	var projects []*Project
	for _, key := range keys {
		if !strings.HasPrefix(key, "project.") {
			continue
		}
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var p Project
		if err := json.Unmarshal(entry.Value(), &p); err != nil {
			// Skip malformed records rather than failing the listing
			continue
		}
		if activeOnly && p.Archived {
			continue
		}
		projects = append(projects, &p)
	}
	return projects, nil
}

// Archive soft-deletes a project. The record and its history remain.
func (s *Store) Archive(ctx context.Context, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.Archived {
		return nil
	}
	now := time.Now().UTC()
	p.Archived = true
	p.ArchivedAt = &now
	p.UpdatedAt = now
	return s.Save(ctx, p)
}

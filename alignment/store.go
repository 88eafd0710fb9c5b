package alignment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketSuggestions is the KV bucket holding the latest suggestion per key.
const BucketSuggestions = "ALIGNMENT_SUGGESTIONS"

// Store persists the most recent unresolved suggestion per stable key.
// Saving a suggestion whose key already exists supersedes the old one.
type Store struct {
	kv jetstream.KeyValue
}

// NewStore creates a suggestion store, creating the KV bucket if needed.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	kv, err := js.KeyValue(ctx, BucketSuggestions)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketSuggestions,
			Description: "ProjectAlignment suggestion storage",
		})
		if err != nil {
			return nil, fmt.Errorf("create suggestions bucket: %w", err)
		}
	}
	return &Store{kv: kv}, nil
}

// Save upserts each suggestion under its stable key.
func (s *Store) Save(ctx context.Context, projectID string, suggestions []Suggestion) error {
	for _, sug := range suggestions {
		data, err := json.Marshal(sug)
		if err != nil {
			return fmt.Errorf("marshal suggestion: %w", err)
		}
		if _, err := s.kv.Put(ctx, storeKey(projectID, sug.Key), data); err != nil {
			return fmt.Errorf("store suggestion %s: %w", sug.Key, err)
		}
	}
	return nil
}

// List returns a project's unresolved suggestions, newest first. Suggestions
// created in the same pass keep their emission order.
func (s *Store) List(ctx context.Context, projectID string) ([]Suggestion, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list suggestion keys: %w", err)
	}

	prefix := projectID + "."
	type numbered struct {
		s   Suggestion
		rev uint64
	}
	var found []numbered
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var sug Suggestion
		if err := json.Unmarshal(entry.Value(), &sug); err != nil {
			continue
		}
		found = append(found, numbered{s: sug, rev: entry.Revision()})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].s.CreatedAt.Equal(found[j].s.CreatedAt) {
			return found[i].s.CreatedAt.After(found[j].s.CreatedAt)
		}
		return found[i].rev < found[j].rev
	})

	out := make([]Suggestion, len(found))
	for i, n := range found {
		out[i] = n.s
	}
	return out, nil
}

// Resolve removes a suggestion so it no longer appears in List.
func (s *Store) Resolve(ctx context.Context, projectID, suggestionKey string) error {
	if err := s.kv.Delete(ctx, storeKey(projectID, suggestionKey)); err != nil {
		return fmt.Errorf("resolve suggestion %s: %w", suggestionKey, err)
	}
	return nil
}

func storeKey(projectID, suggestionKey string) string {
	return projectID + "." + suggestionKey
}

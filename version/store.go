package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/rbagg/ProjectAlignment/document"
)

// BucketVersions is the KV bucket holding immutable DocumentVersion records.
const BucketVersions = "ALIGNMENT_VERSIONS"

// ErrNotFound is returned when no version exists for a document.
var ErrNotFound = errors.New("version not found")

// DocumentVersion is an immutable snapshot of a document. The sequence is
// monotonically increasing per document, starting at 1; Diff is nil for the
// first version.
type DocumentVersion struct {
	DocumentID  string             `json:"document_id"`
	Sequence    int                `json:"sequence"`
	RawText     string             `json:"raw_text"`
	ContentHash string             `json:"content_hash"`
	Structure   document.Structure `json:"structure"`
	CreatedAt   time.Time          `json:"created_at"`
	Diff        *ChangeRecord      `json:"diff,omitempty"`
}

// Store is the append-only version store backed by NATS KV. Version creation
// for a given document is serialized; different documents proceed in parallel.
type Store struct {
	kv jetstream.KeyValue

	// locks serializes writers per document ID.
	locks sync.Map // documentID → *sync.Mutex
}

// NewStore creates a version store, creating the KV bucket if needed.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	kv, err := getOrCreateBucket(ctx, js, BucketVersions)
	if err != nil {
		return nil, fmt.Errorf("create versions bucket: %w", err)
	}
	return &Store{kv: kv}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("ProjectAlignment %s storage", strings.ToLower(name)),
	})
}

func versionKey(documentID string, seq int) string {
	return fmt.Sprintf("%s.%d", documentID, seq)
}

func latestKey(documentID string) string {
	return documentID + ".latest"
}

// Record observes new raw text for a document and appends a version if the
// content changed. It extracts the Structure, diffs it against the latest
// version, and persists the snapshot. The boolean is false when the text is
// content-identical to the latest version: no new version is created and the
// existing latest is returned, which makes Record idempotent under re-polls
// of an unchanged source.
func (s *Store) Record(ctx context.Context, documentID string, docType document.Type, rawText string) (*DocumentVersion, bool, error) {
	mu := s.lockFor(documentID)
	mu.Lock()
	defer mu.Unlock()

	hash := document.ContentHash([]byte(rawText))
	structure, _ := document.Extract(rawText, docType)

	// A concurrent writer in another process can still win the Create below;
	// the loop re-reads the winner's version and compares against it.
	for {
		latest, err := s.Latest(ctx, documentID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}

		v := &DocumentVersion{
			DocumentID:  documentID,
			Sequence:    1,
			RawText:     rawText,
			ContentHash: hash,
			Structure:   structure,
			CreatedAt:   time.Now().UTC(),
		}

		if latest != nil {
			if latest.ContentHash == hash {
				return latest, false, nil
			}
			v.Sequence = latest.Sequence + 1
			v.Diff = Diff(latest.Structure, structure)
		}

		data, err := json.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("marshal version: %w", err)
		}

		_, err = s.kv.Create(ctx, versionKey(documentID, v.Sequence), data)
		if err != nil {
			if isKeyExists(err) {
				// Lost the race to another writer, or a crashed writer left
				// this version key without advancing the latest pointer.
				// Re-reading only the pointer would collide here forever, so
				// adopt the existing version and repair the pointer first.
				winner, gerr := s.Get(ctx, documentID, v.Sequence)
				if gerr != nil {
					return nil, false, fmt.Errorf("read conflicting version: %w", gerr)
				}
				if _, perr := s.kv.Put(ctx, latestKey(documentID), []byte(strconv.Itoa(winner.Sequence))); perr != nil {
					return nil, false, fmt.Errorf("repair latest pointer: %w", perr)
				}
				continue
			}
			return nil, false, fmt.Errorf("store version: %w", err)
		}

		if _, err := s.kv.Put(ctx, latestKey(documentID), []byte(strconv.Itoa(v.Sequence))); err != nil {
			return nil, false, fmt.Errorf("update latest pointer: %w", err)
		}

		return v, true, nil
	}
}

// Latest returns the most recent version for a document.
func (s *Store) Latest(ctx context.Context, documentID string) (*DocumentVersion, error) {
	entry, err := s.kv.Get(ctx, latestKey(documentID))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest pointer: %w", err)
	}

	seq, err := strconv.Atoi(string(entry.Value()))
	if err != nil {
		return nil, fmt.Errorf("parse latest pointer: %w", err)
	}

	return s.Get(ctx, documentID, seq)
}

// Get returns one specific version.
func (s *Store) Get(ctx context.Context, documentID string, sequence int) (*DocumentVersion, error) {
	entry, err := s.kv.Get(ctx, versionKey(documentID, sequence))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get version: %w", err)
	}

	var v DocumentVersion
	if err := json.Unmarshal(entry.Value(), &v); err != nil {
		return nil, fmt.Errorf("unmarshal version: %w", err)
	}
	return &v, nil
}

// Baseline returns the first version of a document, the reference point for
// drift analysis.
func (s *Store) Baseline(ctx context.Context, documentID string) (*DocumentVersion, error) {
	return s.Get(ctx, documentID, 1)
}

// History returns all versions of a document in sequence order.
func (s *Store) History(ctx context.Context, documentID string) ([]*DocumentVersion, error) {
	latest, err := s.Latest(ctx, documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	versions := make([]*DocumentVersion, 0, latest.Sequence)
	for seq := 1; seq <= latest.Sequence; seq++ {
		v, err := s.Get(ctx, documentID, seq)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func (s *Store) lockFor(documentID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(documentID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound)
}

// isKeyExists checks if an error indicates a Create hit an existing key.
func isKeyExists(err error) bool {
	return errors.Is(err, jetstream.ErrKeyExists)
}

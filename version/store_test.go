package version

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbagg/ProjectAlignment/document"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	opts := &server.Options{
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS server failed to start")
	}
	t.Cleanup(ns.Shutdown)

	conn, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	js, err := jetstream.New(conn)
	require.NoError(t, err)

	store, err := NewStore(context.Background(), js)
	require.NoError(t, err)
	return store
}

const firstDraft = `## Overview
The system keeps product documents aligned.

## Problem Statement
Documents drift apart as teams edit them independently.
`

const secondDraft = `## Overview
The system keeps product documents aligned.

## Problem Statement
Documents drift apart as teams edit them independently,
and nobody notices until launch.

## Success Metrics
Drift detected within one sync cycle.
`

func TestStore_RecordFirstVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v, created, err := store.Record(ctx, "doc-1", document.TypeRequirements, firstDraft)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, v.Sequence)
	assert.Nil(t, v.Diff)
	assert.True(t, v.Structure.Has("overview"))
	assert.True(t, v.Structure.Has("problem-statement"))
	assert.NotEmpty(t, v.ContentHash)
}

func TestStore_RecordUnchangedIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, created, err := store.Record(ctx, "doc-1", document.TypeRequirements, firstDraft)
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := store.Record(ctx, "doc-1", document.TypeRequirements, firstDraft)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Sequence, again.Sequence)
	assert.Equal(t, first.ContentHash, again.ContentHash)

	history, err := store.History(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStore_RecordChangeProducesDiff(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Record(ctx, "doc-1", document.TypeRequirements, firstDraft)
	require.NoError(t, err)

	v2, created, err := store.Record(ctx, "doc-1", document.TypeRequirements, secondDraft)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, v2.Sequence)

	require.NotNil(t, v2.Diff)
	assert.Equal(t, []string{"success-metrics"}, v2.Diff.Added)
	assert.Equal(t, []string{"problem-statement"}, v2.Diff.ModifiedNames())
	assert.Empty(t, v2.Diff.Removed)
}

func TestStore_LatestAndBaseline(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Record(ctx, "doc-1", document.TypeRequirements, firstDraft)
	require.NoError(t, err)
	_, _, err = store.Record(ctx, "doc-1", document.TypeRequirements, secondDraft)
	require.NoError(t, err)

	latest, err := store.Latest(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Sequence)

	baseline, err := store.Baseline(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, baseline.Sequence)
	assert.Nil(t, baseline.Diff)
}

func TestStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Latest(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := store.History(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_ConcurrentRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Record(ctx, "doc-1", document.TypeRequirements, firstDraft)
	require.NoError(t, err)

	drafts := []string{
		secondDraft,
		firstDraft + "\n## Scope\nWeb only.\n",
		firstDraft + "\n## Timeline\nQ3.\n",
	}

	var wg sync.WaitGroup
	for _, draft := range drafts {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, _, err := store.Record(ctx, "doc-1", document.TypeRequirements, text)
			assert.NoError(t, err)
		}(draft)
	}
	wg.Wait()

	history, err := store.History(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, history, 4)
	for i, v := range history {
		assert.Equal(t, i+1, v.Sequence)
		if i > 0 {
			assert.NotNil(t, v.Diff)
		}
	}
}

// seedOrphanedVersion writes a version key directly without advancing the
// latest pointer, the state a writer crash between the two puts leaves behind.
func seedOrphanedVersion(t *testing.T, store *Store, documentID string, seq int, rawText string) *DocumentVersion {
	t.Helper()

	structure, _ := document.Extract(rawText, document.TypeRequirements)
	v := &DocumentVersion{
		DocumentID:  documentID,
		Sequence:    seq,
		RawText:     rawText,
		ContentHash: document.ContentHash([]byte(rawText)),
		Structure:   structure,
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	_, err = store.kv.Create(context.Background(), versionKey(documentID, seq), data)
	require.NoError(t, err)
	return v
}

func TestStore_RecordRecoversOrphanedVersionKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Record(ctx, "doc-1", document.TypeRequirements, firstDraft)
	require.NoError(t, err)
	seedOrphanedVersion(t, store, "doc-1", 2, secondDraft)

	thirdDraft := secondDraft + "\n## Scope\nWeb only.\n"

	done := make(chan struct{})
	var v3 *DocumentVersion
	var created bool
	go func() {
		defer close(done)
		v3, created, err = store.Record(ctx, "doc-1", document.TypeRequirements, thirdDraft)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Record did not return after an orphaned version key")
	}

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, v3.Sequence)
	require.NotNil(t, v3.Diff)
	assert.Equal(t, []string{"scope"}, v3.Diff.Added)

	// The pointer was repaired along the way.
	latest, err := store.Latest(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Sequence)
}

func TestStore_RecordAdoptsOrphanWithIdenticalContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Record(ctx, "doc-1", document.TypeRequirements, firstDraft)
	require.NoError(t, err)
	orphan := seedOrphanedVersion(t, store, "doc-1", 2, secondDraft)

	v, created, err := store.Record(ctx, "doc-1", document.TypeRequirements, secondDraft)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, orphan.Sequence, v.Sequence)
	assert.Equal(t, orphan.ContentHash, v.ContentHash)

	history, err := store.History(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestStore_IndependentDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Record(ctx, "doc-a", document.TypeRequirements, firstDraft)
	require.NoError(t, err)
	_, _, err = store.Record(ctx, "doc-b", document.TypeStrategy, "## Vision\nBe fast.\n")
	require.NoError(t, err)

	a, err := store.Latest(ctx, "doc-a")
	require.NoError(t, err)
	b, err := store.Latest(ctx, "doc-b")
	require.NoError(t, err)

	assert.Equal(t, "doc-a", a.DocumentID)
	assert.Equal(t, "doc-b", b.DocumentID)
	assert.True(t, b.Structure.Has("vision"))
}

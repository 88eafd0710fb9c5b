package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketOracleCalls is the KV bucket holding oracle call records.
const BucketOracleCalls = "ALIGNMENT_ORACLE_CALLS"

// callLogHistory bounds how many revisions the bucket retains per key.
const callLogHistory = 1

// CallRecord captures one oracle call for debugging and audit.
type CallRecord struct {
	RequestID    string     `json:"request_id"`
	Capability   string     `json:"capability"`
	Model        string     `json:"model,omitempty"`
	Provider     string     `json:"provider,omitempty"`
	Messages     []Message  `json:"messages"`
	Response     string     `json:"response,omitempty"`
	Usage        TokenUsage `json:"usage,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  time.Time  `json:"completed_at"`
}

// Duration returns the wall time of the call.
func (r *CallRecord) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// CallLog persists oracle call records to NATS KV, one entry per request ID.
type CallLog struct {
	kv jetstream.KeyValue
}

// NewCallLog creates a call log, creating the KV bucket if needed.
func NewCallLog(ctx context.Context, js jetstream.JetStream) (*CallLog, error) {
	kv, err := js.KeyValue(ctx, BucketOracleCalls)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketOracleCalls,
			Description: "ProjectAlignment oracle call log",
			History:     callLogHistory,
		})
		if err != nil {
			return nil, fmt.Errorf("create oracle call bucket: %w", err)
		}
	}
	return &CallLog{kv: kv}, nil
}

// Store persists one call record keyed by request ID.
func (l *CallLog) Store(ctx context.Context, record *CallRecord) error {
	if record.RequestID == "" {
		return fmt.Errorf("call record missing request ID")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal call record: %w", err)
	}

	if _, err := l.kv.Put(ctx, record.RequestID, data); err != nil {
		return fmt.Errorf("store call record: %w", err)
	}
	return nil
}

// Get retrieves one call record by request ID.
func (l *CallLog) Get(ctx context.Context, requestID string) (*CallRecord, error) {
	entry, err := l.kv.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("call record %s not found", requestID)
		}
		return nil, fmt.Errorf("get call record: %w", err)
	}

	var record CallRecord
	if err := json.Unmarshal(entry.Value(), &record); err != nil {
		return nil, fmt.Errorf("unmarshal call record: %w", err)
	}
	return &record, nil
}

// List returns all recorded calls ordered by start time.
func (l *CallLog) List(ctx context.Context) ([]*CallRecord, error) {
	keys, err := l.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list call records: %w", err)
	}

	records := make([]*CallRecord, 0, len(keys))
	for _, key := range keys {
		entry, err := l.kv.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var record CallRecord
		if err := json.Unmarshal(entry.Value(), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.Before(records[j].StartedAt)
	})
	return records, nil
}

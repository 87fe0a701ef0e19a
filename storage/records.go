// Package storage persists pipeline run records and oracle call records in
// NATS JetStream KV buckets for audit and evaluation.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Daham-Mustaf/semantic-policy-generation/llm"
	"github.com/Daham-Mustaf/semantic-policy-generation/pipeline"
)

// DefaultBucketPrefix names the KV buckets when no prefix is configured.
const DefaultBucketPrefix = "policygen"

// ErrNotFound is returned when no record exists under the requested key.
var ErrNotFound = errors.New("record not found")

// bucketNames derives the runs and calls bucket names from a prefix, so
// several deployments can share one JetStream domain without colliding.
func bucketNames(prefix string) (runs, calls string) {
	if prefix == "" {
		prefix = DefaultBucketPrefix
	}
	return prefix + "-runs", prefix + "-calls"
}

// Store persists run outcomes and oracle call records. It implements
// llm.Recorder for the call audit trail.
type Store struct {
	runs  jetstream.KeyValue
	calls jetstream.KeyValue
}

// NewStore creates a Store with the given JetStream context, creating the KV
// buckets if they don't exist. The bucket prefix comes from configuration; an
// empty prefix uses DefaultBucketPrefix.
func NewStore(ctx context.Context, js jetstream.JetStream, bucketPrefix string) (*Store, error) {
	runsBucket, callsBucket := bucketNames(bucketPrefix)

	runs, err := getOrCreateBucket(ctx, js, runsBucket)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}

	calls, err := getOrCreateBucket(ctx, js, callsBucket)
	if err != nil {
		return nil, fmt.Errorf("create calls bucket: %w", err)
	}

	return &Store{runs: runs, calls: calls}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("%s records", name),
		History:     5, // Keep last 5 revisions
	})
}

// SaveRun persists a run outcome under its run ID.
func (s *Store) SaveRun(ctx context.Context, outcome *pipeline.Outcome) error {
	if outcome.RunID == "" {
		return fmt.Errorf("outcome has no run ID")
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal run outcome: %w", err)
	}

	if _, err := s.runs.Put(ctx, outcome.RunID, data); err != nil {
		return fmt.Errorf("store run outcome: %w", err)
	}

	return nil
}

// GetRun retrieves a run outcome by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*pipeline.Outcome, error) {
	entry, err := s.runs.Get(ctx, runID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run outcome: %w", err)
	}

	var outcome pipeline.Outcome
	if err := json.Unmarshal(entry.Value(), &outcome); err != nil {
		return nil, fmt.Errorf("unmarshal run outcome: %w", err)
	}

	return &outcome, nil
}

// ListRuns returns all stored run outcomes.
func (s *Store) ListRuns(ctx context.Context) ([]*pipeline.Outcome, error) {
	keys, err := s.runs.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	outcomes := make([]*pipeline.Outcome, 0, len(keys))
	for _, key := range keys {
		entry, err := s.runs.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var outcome pipeline.Outcome
		if err := json.Unmarshal(entry.Value(), &outcome); err != nil {
			continue
		}
		outcomes = append(outcomes, &outcome)
	}

	return outcomes, nil
}

// ListRunsByStatus returns the stored outcomes with the given status.
func (s *Store) ListRunsByStatus(ctx context.Context, status pipeline.Status) ([]*pipeline.Outcome, error) {
	all, err := s.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]*pipeline.Outcome, 0)
	for _, outcome := range all {
		if outcome.Status == status {
			outcomes = append(outcomes, outcome)
		}
	}

	return outcomes, nil
}

// RecordCall persists an oracle call record. Implements llm.Recorder.
func (s *Store) RecordCall(ctx context.Context, record *llm.CallRecord) error {
	key := record.RequestID
	if key == "" {
		key = uuid.New().String()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal call record: %w", err)
	}

	if _, err := s.calls.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store call record: %w", err)
	}

	return nil
}

// GetCall retrieves an oracle call record by request ID.
func (s *Store) GetCall(ctx context.Context, requestID string) (*llm.CallRecord, error) {
	entry, err := s.calls.Get(ctx, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get call record: %w", err)
	}

	var record llm.CallRecord
	if err := json.Unmarshal(entry.Value(), &record); err != nil {
		return nil, fmt.Errorf("unmarshal call record: %w", err)
	}

	return &record, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}

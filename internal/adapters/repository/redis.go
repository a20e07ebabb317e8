package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/ourabridge/internal/domain/decode"
	"github.com/okian/ourabridge/internal/domain/model"
	"github.com/okian/ourabridge/pkg/logger"
)

const defaultKeyPrefix = "oura"

// RedisStore writes each snapshot to Redis so other processes can read it.
//
// Keys:
//
//	<prefix>:snapshot          full snapshot JSON
//	<prefix>:record:<metric>   one record JSON per present metric
//	<prefix>:status            freshness of the stored snapshot
//
// Record keys for metrics absent from the new snapshot are deleted in the
// same transaction. Save resets the status to fresh; MarkStale flags it after
// a failed cycle while leaving the snapshot readable.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

// NewRedisStore creates a store on an existing client.
func NewRedisStore(client *redis.Client, opts ...Option) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("redis")
	return s
}

func (s *RedisStore) snapshotKey() string { return s.prefix + ":snapshot" }

// StatusKey returns the key holding the freshness status.
func (s *RedisStore) StatusKey() string { return s.prefix + ":status" }

// Status describes whether the stored snapshot is current.
type Status struct {
	CycleID   string    `json:"cycle_id"`
	Stale     bool      `json:"stale"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordKey returns the key holding the record for kind.
func (s *RedisStore) RecordKey(kind model.Kind) string {
	return s.prefix + ":record:" + kind.String()
}

// Save writes snap and its records atomically.
func (s *RedisStore) Save(ctx context.Context, snap model.Snapshot) error {
	full, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	status, err := json.Marshal(Status{CycleID: snap.CycleID, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	records := make(map[model.Kind][]byte, len(snap.Records))
	for k, r := range snap.Records {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", k, err)
		}
		records[k] = b
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.snapshotKey(), full, s.ttl)
		p.Set(ctx, s.StatusKey(), status, s.ttl)
		for _, k := range model.Kinds() {
			if b, ok := records[k]; ok {
				p.Set(ctx, s.RecordKey(k), b, s.ttl)
				continue
			}
			p.Del(ctx, s.RecordKey(k))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.logger.Debug(ctx, "snapshot stored",
		logger.String("cycle_id", snap.CycleID),
		logger.Int("records", len(records)),
	)
	return nil
}

type storedSnapshot struct {
	CycleID   string                       `json:"cycle_id"`
	FetchedAt time.Time                    `json:"fetched_at"`
	Records   map[string]json.RawMessage   `json:"records"`
	Outcomes  map[model.Kind]model.Outcome `json:"outcomes"`
}

// Latest reads and decodes the stored snapshot.
func (s *RedisStore) Latest(ctx context.Context) (model.Snapshot, error) {
	b, err := s.client.Get(ctx, s.snapshotKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var stored storedSnapshot
	if err := json.Unmarshal(b, &stored); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	records := make(map[model.Kind]model.Record, len(stored.Records))
	for name, raw := range stored.Records {
		kind, ok := model.ParseKind(name)
		if !ok {
			return model.Snapshot{}, fmt.Errorf("%w: unknown metric %q", ErrCorrupt, name)
		}
		rec, err := decode.Decode(kind, raw)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		records[kind] = rec
	}
	return model.NewSnapshot(stored.CycleID, stored.FetchedAt, records, stored.Outcomes), nil
}

// Record returns the raw JSON stored for kind.
func (s *RedisStore) Record(ctx context.Context, kind model.Kind) (json.RawMessage, error) {
	b, err := s.client.Get(ctx, s.RecordKey(kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	return b, nil
}

// MarkStale records that the cycle cycleID failed. The stored snapshot and
// records are left untouched.
func (s *RedisStore) MarkStale(ctx context.Context, cycleID string, cause error) error {
	st := Status{CycleID: cycleID, Stale: true, UpdatedAt: time.Now().UTC()}
	if cause != nil {
		st.Error = cause.Error()
	}
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := s.client.Set(ctx, s.StatusKey(), b, s.ttl).Err(); err != nil {
		s.logger.Error(ctx, "failed to flag snapshot stale", logger.String("cycle_id", cycleID), logger.Error(err))
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}

// Name identifies the store as a publisher.
func (s *RedisStore) Name() string { return "redis" }

// Publish saves snap.
func (s *RedisStore) Publish(ctx context.Context, snap model.Snapshot) error {
	return s.Save(ctx, snap)
}

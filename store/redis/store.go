// Package redis implements store.Store on Redis, so several processes can
// share last-known job states. Each snapshot is a Hash holding the state,
// the update time and the full JSON body.
//
// Usage:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/store"
)

var _ store.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithTTL expires snapshots ttl after their last save. Zero keeps them
// forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// Store implements store.Store backed by Redis.
type Store struct {
	client goredis.Cmdable
	logger *slog.Logger
	ttl    time.Duration
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }

// LastSnapshot loads the snapshot of jobID from its Hash.
func (s *Store) LastSnapshot(ctx context.Context, jobID string) (*job.Snapshot, error) {
	body, err := s.client.HGet(ctx, snapshotKey(jobID), "body").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, job.ErrNotFound
		}
		return nil, fmt.Errorf("jobwatch/redis: get snapshot: %w", err)
	}
	var snap job.Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return nil, fmt.Errorf("jobwatch/redis: decode snapshot %q: %w", jobID, err)
	}
	return &snap, nil
}

// SaveSnapshot writes the snapshot Hash and indexes its job id in one
// transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snap *job.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("jobwatch/redis: encode snapshot: %w", err)
	}

	key := snapshotKey(snap.ID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"state", string(snap.State),
		"updated_at", snap.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"body", string(body),
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	pipe.SAdd(ctx, snapshotIDsKey, snap.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("jobwatch/redis: save snapshot: %w", err)
	}
	return nil
}

// DeleteSnapshot removes the snapshot Hash and its index entry.
func (s *Store) DeleteSnapshot(ctx context.Context, jobID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, snapshotKey(jobID))
	pipe.SRem(ctx, snapshotIDsKey, jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("jobwatch/redis: delete snapshot: %w", err)
	}
	return nil
}

// ListSnapshots loads every indexed snapshot ordered by job id. Index
// entries whose Hash expired are pruned.
func (s *Store) ListSnapshots(ctx context.Context) ([]*job.Snapshot, error) {
	ids, err := s.client.SMembers(ctx, snapshotIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("jobwatch/redis: list snapshot ids: %w", err)
	}
	sort.Strings(ids)

	out := make([]*job.Snapshot, 0, len(ids))
	for _, jobID := range ids {
		snap, getErr := s.LastSnapshot(ctx, jobID)
		if errors.Is(getErr, job.ErrNotFound) {
			if remErr := s.client.SRem(ctx, snapshotIDsKey, jobID).Err(); remErr != nil {
				s.logger.Warn("failed to prune expired snapshot id",
					slog.String("job_id", jobID),
					slog.String("error", remErr.Error()),
				)
			}
			continue
		}
		if getErr != nil {
			return nil, getErr
		}
		out = append(out, snap)
	}
	return out, nil
}

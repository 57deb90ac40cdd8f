package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "adventure:"

// RedisStore implements the Storage interface using Redis
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStore implements Storage interface
var _ Storage = (*RedisStore)(nil)

// NewRedisStore creates a new Redis store. The URL may be a bare
// host:port or a full redis:// URL.
func NewRedisStore(redisURL string, logger *slog.Logger) (*RedisStore, error) {
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisStore{
		client: redis.NewClient(opt),
		logger: logger,
	}, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	return nil
}

// SaveSnapshot persists the snapshot under its adventure ID. Saved
// adventures have no expiry; they live until deleted.
func (r *RedisStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	snap.SavedAt = time.Now()

	data, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error("Failed to marshal snapshot", "adventure_id", snap.ID, "error", err)
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := snapshotKeyPrefix + snap.ID.String()
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		if isQuotaError(err) {
			r.logger.Error("Redis refused snapshot write for capacity", "adventure_id", snap.ID, "error", err)
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		r.logger.Error("Failed to save snapshot", "adventure_id", snap.ID, "error", err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

func (r *RedisStore) LoadSnapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	key := snapshotKeyPrefix + id.String()
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to load snapshot", "adventure_id", id, "error", err)
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		r.logger.Error("Failed to unmarshal snapshot", "adventure_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	if err := snap.Validate(); err != nil {
		r.logger.Error("Stored snapshot failed validation", "adventure_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	return &snap, nil
}

func (r *RedisStore) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	key := snapshotKeyPrefix + id.String()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete snapshot", "adventure_id", id, "error", err)
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// ListSnapshots scans for saved adventures and returns their
// summaries, newest first. Undecodable entries are skipped rather
// than failing the whole listing.
func (r *RedisStore) ListSnapshots(ctx context.Context) ([]Summary, error) {
	summaries := make([]Summary, 0)

	iter := r.client.Scan(ctx, 0, snapshotKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := r.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
		}

		var snap Snapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			r.logger.Warn("Skipping undecodable snapshot", "key", key, "error", err)
			continue
		}

		summaries = append(summaries, snap.Summary())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan snapshots: %w", err)
	}

	slices.SortFunc(summaries, func(a, b Summary) int {
		return b.SavedAt.Compare(a.SavedAt)
	})

	return summaries, nil
}

// isQuotaError detects the capacity refusal Redis raises when
// maxmemory is reached ("OOM command not allowed...").
func isQuotaError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "OOM")
}

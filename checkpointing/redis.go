package checkpointing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rivalscan/rivalscan/flow"
)

// RedisStorage persists snapshots in Redis for deployments where multiple
// instances need to inspect each other's runs.
//
// Data layout: one sorted set per run, scored by tick.
//
//	Key:   "<prefix>:<runID>:snapshots"
//	Score: tick number
//	Value: JSON snapshot
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis-backed storage.
//
// ttl of zero means snapshots never expire; otherwise each run's set expires
// ttl after its last save.
func NewRedisStorage(redisURL, keyPrefix string, ttl time.Duration) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if keyPrefix == "" {
		keyPrefix = "rivalscan:checkpoints"
	}
	return &RedisStorage{
		client:    redis.NewClient(opts),
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}, nil
}

func (s *RedisStorage) runKey(runID string) string {
	return fmt.Sprintf("%s:%s:snapshots", s.keyPrefix, runID)
}

// Save stores one snapshot.
func (s *RedisStorage) Save(ctx context.Context, snap flow.Snapshot) error {
	if snap.RunID == "" {
		return fmt.Errorf("snapshot missing run id")
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := s.runKey(snap.RunID)
	if err := s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(snap.Tick),
		Member: payload,
	}).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set snapshot TTL: %w", err)
		}
	}
	return nil
}

// Load returns a run's snapshots ordered by tick.
func (s *RedisStorage) Load(ctx context.Context, runID string) ([]flow.Snapshot, error) {
	members, err := s.client.ZRange(ctx, s.runKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	snaps := make([]flow.Snapshot, 0, len(members))
	for _, member := range members {
		var snap flow.Snapshot
		if err := json.Unmarshal([]byte(member), &snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Latest returns the highest-tick snapshot, or nil.
func (s *RedisStorage) Latest(ctx context.Context, runID string) (*flow.Snapshot, error) {
	members, err := s.client.ZRange(ctx, s.runKey(runID), -1, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	var snap flow.Snapshot
	if err := json.Unmarshal([]byte(members[0]), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes all snapshots for a run.
func (s *RedisStorage) Delete(ctx context.Context, runID string) error {
	if err := s.client.Del(ctx, s.runKey(runID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}

// Close releases the Redis client.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// Package cache holds the Redis-backed active-snapshot cache. The store
// stays the source of truth; the cache only shortens the hot read path of
// the evaluation loop, so every Redis failure degrades to a store read.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scorewise/internal/scorecard/models"
	id "scorewise/pkg/domain"
)

const snapshotKeyPrefix = "scorecard:snapshot:"

// ErrMiss reports that no snapshot is cached for the scorecard.
var ErrMiss = errors.New("snapshot cache miss")

// Snapshot caches the active config+version snapshot per scorecard in Redis.
type Snapshot struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshot constructs a snapshot cache with the given entry TTL.
func NewSnapshot(client *redis.Client, ttl time.Duration) *Snapshot {
	return &Snapshot{client: client, ttl: ttl}
}

func snapshotKey(scorecardID id.ScorecardID) string {
	return snapshotKeyPrefix + scorecardID.String()
}

// Get returns the cached snapshot or ErrMiss.
func (c *Snapshot) Get(ctx context.Context, scorecardID id.ScorecardID) (*models.Snapshot, error) {
	raw, err := c.client.Get(ctx, snapshotKey(scorecardID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt entry behaves like a miss; the caller refreshes it.
		return nil, ErrMiss
	}
	return &snap, nil
}

// Set stores the snapshot with the cache TTL.
func (c *Snapshot) Set(ctx context.Context, snap *models.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(snap.Config.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot. Called on activation so the next
// evaluation reads the newly active version.
func (c *Snapshot) Invalidate(ctx context.Context, scorecardID id.ScorecardID) error {
	if err := c.client.Del(ctx, snapshotKey(scorecardID)).Err(); err != nil {
		return fmt.Errorf("invalidate snapshot: %w", err)
	}
	return nil
}

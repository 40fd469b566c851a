// Package cache is a read-side cache of land records. The registry service
// invalidates it on every committed mutation; a miss falls through to the
// core, never the reverse, so the cache can never become an alternate source
// of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"landregistry/internal/land"
	"landregistry/pkg/domain"
)

// LandCache caches individual land records in Redis with a TTL.
type LandCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *LandCache {
	return &LandCache{client: client, ttl: ttl}
}

func key(id domain.LandID) string {
	return "land:" + id.String()
}

// Get returns the cached record, or (nil, nil) on a miss. Cache errors are
// reported as misses; the caller reads through to the store.
func (c *LandCache) Get(ctx context.Context, id domain.LandID) (*land.Record, error) {
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var rec land.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Set stores a record after a read-through.
func (c *LandCache) Set(ctx context.Context, record *land.Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(record.ID), raw, c.ttl).Err()
}

// Invalidate drops the cached record. Called by the command surface after
// every committed mutation touching the land id.
func (c *LandCache) Invalidate(ctx context.Context, id domain.LandID) error {
	return c.client.Del(ctx, key(id)).Err()
}

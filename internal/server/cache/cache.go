// Package cache implements the secondary read-through cache mediating store
// reads. Snapshots are JSON blobs written under "<key>_<timestamp>" with a
// per-snapshot expiry, so several snapshots of one logical key may coexist;
// readers resolve the newest one. The cache is never the source of truth:
// a miss only means the caller must repopulate from the backing store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss reports that no live snapshot exists for the requested key.
var ErrMiss = errors.New("cache miss")

const snapshotTimeLayout = "20060102_150405.000000000"

// Cache wraps one Redis database. Each store gets its own database index so
// account and entry snapshots never collide.
type Cache struct {
	rdb *redis.Client
}

// New connects a Cache to the Redis database with the given index.
func New(addr, password string, db int) *Cache {
	return &Cache{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// PutSnapshot serializes value and stores it under key plus a capture
// timestamp, expiring after ttl.
func (c *Cache) PutSnapshot(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	snapKey := fmt.Sprintf("%s_%s", key, time.Now().UTC().Format(snapshotTimeLayout))
	if err := c.rdb.Set(ctx, snapKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Newest finds the most recent live snapshot for key and unmarshals it into
// dest. Returns ErrMiss when no snapshot exists or the newest one expired
// between listing and reading.
func (c *Cache) Newest(ctx context.Context, key string, dest any) error {
	keys, err := c.rdb.Keys(ctx, key+"_*").Result()
	if err != nil {
		return fmt.Errorf("cache keys: %w", err)
	}
	if len(keys) == 0 {
		return ErrMiss
	}
	// the fixed-width timestamp suffix sorts lexicographically
	sort.Strings(keys)
	data, err := c.rdb.Get(ctx, keys[len(keys)-1]).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal: %w", err)
	}
	return nil
}

// Invalidate drops every snapshot of key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	keys, err := c.rdb.Keys(ctx, key+"_*").Result()
	if err != nil {
		return fmt.Errorf("cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

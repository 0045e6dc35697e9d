package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"socialgraph/internal/observability"
	"socialgraph/internal/store"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix    = "user:%s"
	PostKeyPrefix    = "post:%s"
	CommentKeyPrefix = "comment:%s"
)

// DefaultTTL bounds how long a document may be served from cache.
const DefaultTTL = 5 * time.Minute

// DocKey returns the cache key of a document.
func DocKey(kind store.Kind, id string) string {
	switch kind {
	case store.KindUser:
		return fmt.Sprintf(UserKeyPrefix, id)
	case store.KindPost:
		return fmt.Sprintf(PostKeyPrefix, id)
	default:
		return fmt.Sprintf(CommentKeyPrefix, id)
	}
}

// Cache is a cache-aside store for single documents. A nil Cache, or one
// without a client, passes every read through to the loader.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a Cache on rdb. A non-positive ttl selects DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.rdb != nil }

// Ping checks Redis when a client is configured.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Aside returns the cached value under key, or calls load and caches its
// result. Load errors are returned as-is and never cached.
func Aside[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (*T, error)) (*T, error) {
	if c.enabled() {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return &v, nil
			}
		}
	}

	v, err := load(ctx)
	if err != nil || !c.enabled() {
		return v, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		observability.Logger.DebugContext(ctx, "cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return v, nil
}

// Invalidate drops keys from the cache.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		observability.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

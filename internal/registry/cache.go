package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const existsKeyPrefix = "registry:exists:"

// Cached is a read-through decorator over an Existence checker. Only
// positive answers are cached: entities are never hard-deleted, so a hit can
// only go stale when a profile deactivates, a posting closes, or an
// application is soft-deleted, and the short TTL bounds that window.
// Negative answers are always re-checked because the entity may appear at
// any moment.
//
// Redis being down degrades to direct checks; the cache is an optimization,
// never an availability dependency.
type Cached struct {
	next   Existence
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps next with a Redis cache.
func NewCached(next Existence, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *Cached) Exists(ctx context.Context, entityType EntityType, entityID string) (bool, error) {
	key := existsKeyPrefix + string(entityType) + ":" + entityID

	_, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "existence cache read failed, checking store",
			"key", key,
			"error", err,
		)
	}

	ok, err := c.next.Exists(ctx, entityType, entityID)
	if err != nil || !ok {
		return ok, err
	}

	if err := c.client.Set(ctx, key, "1", c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "existence cache write failed",
			"key", key,
			"error", err,
		)
	}
	return true, nil
}

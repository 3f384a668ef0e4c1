package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

// IntelCache implements domain.IntelCache with plain string keys and a
// fixed TTL.
type IntelCache struct {
	c   *Client
	ttl time.Duration
}

// NewIntelCache creates an IntelCache. A zero ttl keeps entries until
// evicted.
func NewIntelCache(c *Client, ttl time.Duration) *IntelCache {
	return &IntelCache{c: c, ttl: ttl}
}

// Get returns the cached intel for eventID or domain.ErrNotFound.
func (ic *IntelCache) Get(ctx context.Context, eventID string) (string, error) {
	val, err := ic.c.rdb.Get(ctx, ic.c.key("intel", eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: get intel %s: %w", eventID, err)
	}
	return val, nil
}

// Set stores text for eventID.
func (ic *IntelCache) Set(ctx context.Context, eventID, text string) error {
	if err := ic.c.rdb.Set(ctx, ic.c.key("intel", eventID), text, ic.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set intel %s: %w", eventID, err)
	}
	return nil
}

var _ domain.IntelCache = (*IntelCache)(nil)

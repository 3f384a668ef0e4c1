package domain

import (
	"context"
	"time"
)

// IntelCache keeps successful intel text per event so repeated runs inside
// the TTL skip the search call.
type IntelCache interface {
	Get(ctx context.Context, eventID string) (string, error)
	Set(ctx context.Context, eventID, text string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

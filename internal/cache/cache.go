// Package cache holds the best-effort response cache and the fixed-window
// rate limiter. Both degrade to "miss" and "allow" when their backing
// store is unavailable; neither ever fails a request.
package cache

import (
	"context"
	"time"
)

// Store is a JSON value cache with per-entry TTL.
type Store interface {
	// Get decodes the cached value for key into dst and reports a hit.
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Limiter is a fixed-window request counter per client identity.
type Limiter interface {
	// Allow counts one request for clientID and returns whether it is
	// within the limit plus how many requests remain in the window.
	Allow(ctx context.Context, clientID string) (bool, int)
	Limit() int
}

const rateLimitPrefix = "rate_limit:"

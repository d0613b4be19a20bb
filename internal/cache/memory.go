package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is the in-process Store used when no Redis is configured. Values
// are stored JSON-encoded so callers see the same copy semantics as Redis.
type Memory struct {
	c *gocache.Cache
}

func NewMemory(defaultTTL time.Duration) *Memory {
	return &Memory{c: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (m *Memory) Get(_ context.Context, key string, dst any) bool {
	v, ok := m.c.Get(key)
	if !ok {
		return false
	}
	raw, ok := v.([]byte)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	m.c.Set(key, raw, ttl)
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.c.Delete(key)
}

func (m *Memory) ItemCount() int { return m.c.ItemCount() }

// MemoryLimiter is a fixed-window limiter for a single process.
type MemoryLimiter struct {
	mu     sync.Mutex
	c      *gocache.Cache
	limit  int
	window time.Duration
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{c: gocache.New(window, 2*window), limit: limit, window: window}
}

func (l *MemoryLimiter) Limit() int { return l.limit }

func (l *MemoryLimiter) Allow(_ context.Context, clientID string) (bool, int) {
	key := rateLimitPrefix + clientID

	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.c.IncrementInt(key, 1)
	if err != nil {
		// first request in the window
		l.c.Set(key, 1, l.window)
		n = 1
	}
	if n > l.limit {
		return false, 0
	}
	return true, l.limit - n
}

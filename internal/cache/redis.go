package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"terptracker/pkg/logger"
)

type Redis struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedis connects and pings addr.
func NewRedis(addr string, log *logger.Logger) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisFromClient(rdb, log), nil
}

// NewRedisFromClient wraps an existing client without pinging it.
func NewRedisFromClient(rdb *goredis.Client, log *logger.Logger) *Redis {
	if log == nil {
		log = logger.Nop()
	}
	return &Redis{log: log.With("service", "RedisCache"), rdb: rdb}
}

func (r *Redis) Client() *goredis.Client { return r.rdb }

func (r *Redis) Close() error { return r.rdb.Close() }

func (r *Redis) Get(ctx context.Context, key string, dst any) bool {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			r.log.Warn("cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.log.Warn("cache decode failed", "key", key, "error", err)
		return false
	}
	return true
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.log.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := r.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		r.log.Warn("cache set failed", "key", key, "error", err)
	}
}

func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		r.log.Warn("cache delete failed", "key", key, "error", err)
	}
}

// RedisLimiter counts requests in a Redis key that expires with the window.
type RedisLimiter struct {
	log    *logger.Logger
	rdb    *goredis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *goredis.Client, limit int, window time.Duration, log *logger.Logger) *RedisLimiter {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisLimiter{log: log.With("service", "RateLimiter"), rdb: rdb, limit: limit, window: window}
}

func (l *RedisLimiter) Limit() int { return l.limit }

func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (bool, int) {
	key := rateLimitPrefix + clientID
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.log.Warn("rate limit check failed", "client", clientID, "error", err)
		return true, l.limit
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			l.log.Warn("rate limit expire failed", "client", clientID, "error", err)
		}
	}
	if int(n) > l.limit {
		return false, 0
	}
	return true, l.limit - int(n)
}

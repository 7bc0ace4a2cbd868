package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend constants
const (
	// BackendMemory keeps counters in process memory
	BackendMemory = "memory"
	// BackendRedis shares counters across nodes through redis
	BackendRedis = "redis"
)

// Limiter is the fixed-window rate limiter interface
type Limiter interface {
	// Allow checks if a request is allowed for the given key
	// Returns a Result with rate limit information
	Allow(ctx context.Context, key string) (*Result, error)

	// AllowN checks if N requests are allowed for the given key.
	// Denied requests do not consume quota.
	AllowN(ctx context.Context, key string, n int64) (*Result, error)

	// Close cleans up limiter resources
	Close() error
}

// Config holds configuration for creating a rate limiter
type Config struct {
	// Backend selects where counters live: BackendMemory or BackendRedis
	Backend string

	// Limit is the maximum number of requests allowed per window
	Limit int64

	// Window is the fixed window length
	Window time.Duration

	// KeyPrefix is prepended to all keys (e.g. "beacon:ratelimit:")
	KeyPrefix string

	// RedisClient is required for BackendRedis. The limiter does not own
	// the client and never closes it.
	RedisClient redis.UniversalClient

	// CleanupInterval is how often expired windows are swept from memory
	// (memory backend only, 0 disables the sweeper)
	CleanupInterval time.Duration
}

// New creates a rate limiter for the backend specified in config
func New(cfg Config) (Limiter, error) {
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got: %d", cfg.Limit)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got: %s", cfg.Window)
	}

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryLimiter(cfg.Limit, cfg.Window, cfg.CleanupInterval), nil
	case BackendRedis:
		if cfg.RedisClient == nil {
			return nil, fmt.Errorf("rate limit backend %q requires a redis client", BackendRedis)
		}
		return NewRedisLimiter(cfg.RedisClient, cfg.Limit, cfg.Window, cfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %s", cfg.Backend)
	}
}

package ratelimit

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed window.lua
var windowLuaScript string

// RedisLimiter implements fixed-window rate limiting with a Redis backend.
// Counters live in Redis, so all beacond nodes enforce one shared limit.
type RedisLimiter struct {
	client    redis.UniversalClient
	script    *redis.Script
	limit     int64
	window    time.Duration
	keyPrefix string
	clock     Clock
}

// NewRedisLimiter creates a new Redis-backed fixed-window rate limiter.
// The client is shared infrastructure owned by the caller; Close leaves it
// open.
func NewRedisLimiter(client redis.UniversalClient, limit int64, window time.Duration, keyPrefix string) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		script:    redis.NewScript(windowLuaScript),
		limit:     limit,
		window:    window,
		keyPrefix: keyPrefix,
		clock:     &SystemClock{},
	}
}

// WithClock sets a custom clock (for testing)
func (r *RedisLimiter) WithClock(clock Clock) *RedisLimiter {
	r.clock = clock
	return r
}

// Allow checks if a single request is allowed for the given key
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return r.AllowN(ctx, key, 1)
}

// AllowN checks if N requests are allowed for the given key.
// The window counter is evaluated atomically in a Lua script.
func (r *RedisLimiter) AllowN(ctx context.Context, key string, n int64) (*Result, error) {
	now := r.clock.Now()
	fullKey := r.keyPrefix + key
	windowMillis := r.window.Milliseconds()

	// Execute Lua script atomically
	result, err := r.script.Run(ctx, r.client,
		[]string{fullKey},
		n,            // ARGV[1]: requested count
		r.limit,      // ARGV[2]: window limit
		windowMillis, // ARGV[3]: window length in milliseconds
	).Result()

	if err != nil {
		// Handle NOSCRIPT error - script not loaded in Redis
		if strings.Contains(err.Error(), "NOSCRIPT") {
			// Load script and retry once
			if _, loadErr := r.script.Load(ctx, r.client).Result(); loadErr != nil {
				return nil, fmt.Errorf("failed to load Lua script: %w", loadErr)
			}

			result, err = r.script.Run(ctx, r.client,
				[]string{fullKey},
				n,
				r.limit,
				windowMillis,
			).Result()
			if err != nil {
				return nil, fmt.Errorf("script execution failed after load: %w", err)
			}
		} else {
			return nil, fmt.Errorf("script execution failed: %w", err)
		}
	}

	// Parse result from Lua script
	// Returns: {allowed, count, remaining_window_millis}
	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("unexpected script result: %v", result)
	}

	allowed := values[0].(int64) == 1
	count := values[1].(int64)
	ttl := time.Duration(values[2].(int64)) * time.Millisecond

	remaining := r.limit - count
	if remaining < 0 {
		remaining = 0
	}

	res := &Result{
		Allowed:   allowed,
		Limit:     r.limit,
		Remaining: remaining,
		Reset:     now.Add(ttl),
	}
	if !allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}

// Close releases limiter resources. The shared Redis client stays open.
func (r *RedisLimiter) Close() error {
	return nil
}

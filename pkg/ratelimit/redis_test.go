package ratelimit

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisLimiter connects to the redis instance named by
// BEACON_TEST_REDIS_ADDR, skipping when it is not configured.
func setupRedisLimiter(t *testing.T, limit int64, window time.Duration) *RedisLimiter {
	t.Helper()

	addr := os.Getenv("BEACON_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BEACON_TEST_REDIS_ADDR not set (integration test)")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	t.Cleanup(func() { client.Close() })

	prefix := fmt.Sprintf("beacon:test:%d:", time.Now().UnixNano())
	return NewRedisLimiter(client, limit, window, prefix)
}

func TestRedisLimiter_RoundTrip(t *testing.T) {
	lim := setupRedisLimiter(t, 3, 2*time.Second)
	defer lim.Close()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		res, err := lim.Allow(ctx, "client-a")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 3-i, res.Remaining)
	}

	res, err := lim.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// Independent key still has quota.
	res, err = lim.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_DeniedBatchDoesNotConsume(t *testing.T) {
	lim := setupRedisLimiter(t, 10, 2*time.Second)
	defer lim.Close()
	ctx := context.Background()

	res, err := lim.AllowN(ctx, "client-a", 7)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(3), res.Remaining)

	res, err = lim.AllowN(ctx, "client-a", 4)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(3), res.Remaining)

	res, err = lim.AllowN(ctx, "client-a", 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
}

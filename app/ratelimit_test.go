package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisLimiter(t *testing.T, limit int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return newRedisLimiter(client, limit, window), mr
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newMiniredisLimiter(t, 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "user-a")
		require.NoError(t, err)
		assert.True(t, ok, "call %d", i+1)
	}
	ok, err := limiter.Allow(ctx, "user-a")
	require.NoError(t, err)
	assert.False(t, ok, "third call in the window is refused")

	ok, err = limiter.Allow(ctx, "user-b")
	require.NoError(t, err)
	assert.True(t, ok, "counters are per user")

	assert.Equal(t, time.Minute, mr.TTL("grid64:gen:user-a"))

	mr.FastForward(time.Minute + time.Second)
	ok, err = limiter.Allow(ctx, "user-a")
	require.NoError(t, err)
	assert.True(t, ok, "a new window starts after expiry")
}

func TestRedisLimiter_RepairsMissingExpiry(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newMiniredisLimiter(t, 5, time.Minute)

	// a counter left behind without a TTL
	require.NoError(t, mr.Set("grid64:gen:user-a", "3"))
	require.Zero(t, mr.TTL("grid64:gen:user-a"))

	ok, err := limiter.Allow(ctx, "user-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("grid64:gen:user-a"))

	mr.FastForward(time.Minute + time.Second)
	assert.False(t, mr.Exists("grid64:gen:user-a"), "the counter expires with the window")
}

func TestRedisLimiter_ConnectionError(t *testing.T) {
	limiter, mr := newMiniredisLimiter(t, 1, time.Minute)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "user-a")
	assert.Error(t, err)
}

func TestNewRedisLimiter_Ping(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	addr := mr.Addr()

	limiter, err := NewRedisLimiter(ctx, RedisLimiterConfig{Addr: addr, Limit: 3, Window: time.Hour})
	require.NoError(t, err)
	assert.NoError(t, limiter.Close())

	mr.Close()
	_, err = NewRedisLimiter(ctx, RedisLimiterConfig{Addr: addr, Limit: 3, Window: time.Hour})
	assert.Error(t, err)
}

func TestAllowGeneration(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, allowGeneration(ctx, nil, "user"), "no limiter means no limit")

	limiter, _ := newMiniredisLimiter(t, 1, time.Minute)
	assert.NoError(t, allowGeneration(ctx, limiter, "user"))
	assert.ErrorIs(t, allowGeneration(ctx, limiter, "user"), ErrRateLimited)
}

package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLimiter_Window(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedisLimiter(client, "rl:", 3, 15*time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d should pass", i)
		assert.Equal(t, 3-i, d.Remaining)
		assert.Equal(t, 3, d.Limit)
	}

	d, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.ResetIn, time.Duration(0))

	other, err := limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	assert.Greater(t, mr.TTL("rl:10.0.0.1"), time.Duration(0))

	mr.FastForward(16 * time.Minute)

	d, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestRedisLimiter_RestoresMissingExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("rl:10.0.0.9", "5"))

	limiter := NewRedisLimiter(client, "rl:", 10, time.Minute)
	d, err := limiter.Allow(context.Background(), "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, time.Minute, d.ResetIn)
	assert.Greater(t, mr.TTL("rl:10.0.0.9"), time.Duration(0))
}

func TestRedisLimiter_RedisFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectIncr("rl:10.0.0.1").SetErr(errors.New("connection reset"))

	limiter := NewRedisLimiter(db, "rl:", 3, time.Minute)
	_, err := limiter.Allow(context.Background(), "10.0.0.1")

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryLimiter_Window(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(2, 15*time.Minute)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	d, _ := limiter.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = limiter.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = limiter.Allow(ctx, "a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 15*time.Minute, d.ResetIn)

	now = now.Add(10 * time.Minute)
	d, _ = limiter.Allow(ctx, "a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 5*time.Minute, d.ResetIn)

	now = now.Add(5 * time.Minute)
	d, _ = limiter.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestMemoryLimiter_SweepsExpiredKeys(t *testing.T) {
	now := time.Now()
	limiter := NewMemoryLimiter(5, time.Minute)
	limiter.now = func() time.Time { return now }

	_, _ = limiter.Allow(context.Background(), "a")
	_, _ = limiter.Allow(context.Background(), "b")
	now = now.Add(2 * time.Minute)
	_, _ = limiter.Allow(context.Background(), "c")

	assert.Len(t, limiter.entries, 1)
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, prefix string, w Window) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, prefix, w), mr
}

func TestRedisFixedWindow(t *testing.T) {
	l, mr := newRedisLimiter(t, "rl:auth", Window{Limit: 2, Period: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)

	assert.True(t, mr.Exists("rl:auth:10.0.0.1"))
	assert.Equal(t, time.Minute, mr.TTL("rl:auth:10.0.0.1"))

	mr.FastForward(time.Minute)
	d, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisPrefixesAndKeysAreIndependent(t *testing.T) {
	l, mr := newRedisLimiter(t, "rl:general", Window{Limit: 1, Period: time.Minute})
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	other := NewRedis(client, "rl:auth", Window{Limit: 1, Period: time.Minute})
	ctx := context.Background()

	d, _ := l.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "b")
	assert.True(t, d.Allowed)
	d, _ = other.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "a")
	assert.False(t, d.Allowed)
}

func TestRedisRestoresMissingExpiry(t *testing.T) {
	l, mr := newRedisLimiter(t, "rl", Window{Limit: 1, Period: time.Minute})
	require.NoError(t, mr.Set("rl:a", "5"))

	d, err := l.Allow(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)
	assert.Equal(t, time.Minute, mr.TTL("rl:a"))
}

func TestRedisBackendDown(t *testing.T) {
	l, mr := newRedisLimiter(t, "rl", Window{Limit: 1, Period: time.Minute})
	mr.Close()

	_, err := l.Allow(context.Background(), "a")
	require.ErrorIs(t, err, ErrBackendUnavailable)
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window counter per key shared through Redis.
type Redis struct {
	client redis.UniversalClient
	prefix string
	window Window
}

// NewRedis constructs a limiter storing counters under prefix.
func NewRedis(client redis.UniversalClient, prefix string, w Window) *Redis {
	return &Redis{client: client, prefix: prefix, window: w}
}

func (l *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.prefix + ":" + key
	count, err := l.incrementWithTTL(ctx, k, l.window.Period)
	if err != nil {
		return Decision{}, err
	}
	if count <= int64(l.window.Limit) {
		return Decision{Allowed: true}, nil
	}

	ttl, err := l.client.PTTL(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if ttl <= 0 {
		// counter lost its expiry; restart the window
		if err := l.client.PExpire(ctx, k, l.window.Period).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		ttl = l.window.Period
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

func (l *Redis) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.client.PExpire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}
	return count, nil
}

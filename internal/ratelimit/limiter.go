// Package ratelimit provides per-client request limiters. Memory keeps
// token buckets in process; Redis shares fixed-window counters between
// replicas.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrBackendUnavailable wraps failures talking to the limiter's storage.
var ErrBackendUnavailable = errors.New("ratelimit: backend unavailable")

// Window allows Limit requests per Period for each key.
type Window struct {
	Limit  int
	Period time.Duration
}

var (
	// General is applied to every route.
	General = Window{Limit: 100, Period: 15 * time.Minute}
	// Auth is applied on top of General to the signup, login and refresh routes.
	Auth = Window{Limit: 10, Period: time.Minute}
)

// Decision is the outcome of one Allow call. RetryAfter is set when the
// request was rejected.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether the request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

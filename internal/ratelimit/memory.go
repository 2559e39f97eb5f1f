package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleTTL = 5 * time.Minute

// Memory is a token-bucket limiter per key. Buckets refill evenly over the
// window and start full, so a new key may burst up to Limit.
type Memory struct {
	window Window
	idle   time.Duration
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// MemoryOption configures Memory.
type MemoryOption func(*Memory)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) MemoryOption {
	return func(m *Memory) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithIdleTTL sets how long an unused bucket is kept. It never drops below
// the window period so an evicted key cannot regain a full bucket early.
func WithIdleTTL(d time.Duration) MemoryOption {
	return func(m *Memory) {
		if d > 0 {
			m.idle = d
		}
	}
}

// NewMemory constructs an in-process limiter for w.
func NewMemory(w Window, opts ...MemoryOption) *Memory {
	m := &Memory{
		window:  w,
		idle:    defaultIdleTTL,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.idle < w.Period {
		m.idle = w.Period
	}
	m.lastSweep = m.now()
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) > m.idle {
		m.sweep(now)
	}
	b, ok := m.buckets[key]
	if !ok {
		every := m.window.Period / time.Duration(max(m.window.Limit, 1))
		b = &bucket{lim: rate.NewLimiter(rate.Every(every), m.window.Limit)}
		m.buckets[key] = b
	}
	b.seen = now

	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false, RetryAfter: m.window.Period}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}
	return Decision{Allowed: true}, nil
}

// Len reports the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// caller holds mu
func (m *Memory) sweep(now time.Time) {
	for k, b := range m.buckets {
		if now.Sub(b.seen) > m.idle {
			delete(m.buckets, k)
		}
	}
	m.lastSweep = now
}

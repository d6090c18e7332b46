// Package ratelimit bounds per-tenant request rates ahead of the routing
// engine. Limits are requests per minute from the tenant record; the budget
// gate bounds spend, this bounds throughput.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one admission check, shaped for the standard
// X-RateLimit response headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter interface {
	Allow(ctx context.Context, tenantID string, limitPerMinute int) (Result, error)
}

// InMemoryLimiter uses fixed one-minute windows per tenant. Fine for a
// single instance; multi-instance deployments want the Redis limiter.
type InMemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

type Option func(*InMemoryLimiter)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *InMemoryLimiter) { l.now = now }
}

func NewInMemoryLimiter(opts ...Option) *InMemoryLimiter {
	l := &InMemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *InMemoryLimiter) Allow(ctx context.Context, tenantID string, limitPerMinute int) (Result, error) {
	if limitPerMinute <= 0 {
		return Result{Allowed: true, Limit: limitPerMinute, Remaining: -1}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[tenantID]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(time.Minute)}
		l.windows[tenantID] = w
	}

	if w.count >= limitPerMinute {
		return Result{Allowed: false, Limit: limitPerMinute, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return Result{
		Allowed:   true,
		Limit:     limitPerMinute,
		Remaining: limitPerMinute - w.count,
		ResetAt:   w.resetAt,
	}, nil
}

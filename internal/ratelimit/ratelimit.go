// Package ratelimit provides a wrapper around golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound calls.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing perSecond events with the given burst.
// A non-positive perSecond disables limiting.
func New(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// PerMinute creates a limiter from a per-minute budget with a 10% burst.
func PerMinute(requestsPerMinute int) *Limiter {
	burst := requestsPerMinute / 10
	return New(float64(requestsPerMinute)/60.0, burst)
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Pause blocks for d or until ctx is done. It is used between request
// batches where a fixed gap is wanted rather than a token budget.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

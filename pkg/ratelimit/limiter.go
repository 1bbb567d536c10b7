// Package ratelimit spaces out page requests with a fixed advisory delay.
//
// The delay lowers the chance of a store throttling a crawl. It is not a
// backpressure mechanism: a zero interval disables it without changing what
// a crawl fetches.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// DefaultInterval is the pause between two requests of one crawl.
const DefaultInterval = 50 * time.Millisecond

var reviewThrottleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "review_throttle_wait_seconds",
	Help:    "Time spent waiting for the advisory inter-request delay",
	Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1},
})

// Limiter is a token bucket with burst 1: the first Wait returns at once,
// later ones are spaced by the configured interval.
//
// A nil *Limiter is valid and never waits.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewLimiter creates a limiter that allows one request per interval.
// A non-positive interval returns nil, which disables the delay.
func NewLimiter(interval time.Duration) *Limiter {
	if interval <= 0 {
		return nil
	}
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Wait blocks until the next request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}

	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	reviewThrottleWaitSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// Interval returns the configured spacing, or 0 for a nil limiter.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}

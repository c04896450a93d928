// Package ratelimit throttles outbound calls with a token bucket.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/fd1az/marketlive/internal/apperror"
)

// Limiter throttles outbound calls.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerMinute, with a burst of 10% of
// the rate (at least 1).
func New(requestsPerMinute int) *Limiter {
	burst := max(requestsPerMinute/10, 1)
	return NewWithBurst(float64(requestsPerMinute)/60.0, burst)
}

// NewWithBurst creates a limiter with an explicit per-second rate and burst.
func NewWithBurst(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until a token is available and returns how long it waited.
// A cancelled or expiring ctx is reported as CodeRateLimitExceeded.
func (l *Limiter) Wait(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return time.Since(start), apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}
	return time.Since(start), nil
}

// Allow reports whether a call may happen now without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

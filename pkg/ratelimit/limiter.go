package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed right now without waiting
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the initial state
	Reset()
}

// TokenBucket is a token bucket limiter refilled at a per-minute rate
type TokenBucket struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	every   time.Duration
	burst   int
}

// NewTokenBucket allows requestsPerMinute requests per minute with the given burst
func NewTokenBucket(requestsPerMinute, burst int) *TokenBucket {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Every(every), burst),
		every:   every,
		burst:   burst,
	}
}

// Allow consumes a token if one is available
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	l := tb.limiter
	tb.mu.Unlock()
	return l.Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	tb.mu.Lock()
	l := tb.limiter
	tb.mu.Unlock()
	return l.Wait(ctx)
}

// Reset refills the bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(rate.Every(tb.every), tb.burst)
}

// FixedPause waits a constant duration on every Wait call, regardless of how
// long ago the previous request happened.
type FixedPause struct {
	mu       sync.Mutex
	pause    time.Duration
	lastDone time.Time
}

// NewFixedPause creates a FixedPause limiter. A zero pause never blocks.
func NewFixedPause(pause time.Duration) *FixedPause {
	return &FixedPause{pause: pause}
}

// Allow reports whether a full pause has elapsed since the last Wait returned
func (fp *FixedPause) Allow() bool {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.lastDone.IsZero() || time.Since(fp.lastDone) >= fp.pause
}

// Wait sleeps for the configured pause
func (fp *FixedPause) Wait(ctx context.Context) error {
	if fp.pause <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(fp.pause)
	defer timer.Stop()

	select {
	case <-timer.C:
		fp.mu.Lock()
		fp.lastDone = time.Now()
		fp.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset forgets the last pause
func (fp *FixedPause) Reset() {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.lastDone = time.Time{}
}

// Pause returns the configured pause
func (fp *FixedPause) Pause() time.Duration {
	return fp.pause
}

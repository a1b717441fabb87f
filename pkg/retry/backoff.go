package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	errs "igcrawler/pkg/errors"
)

// BackoffStrategy computes the delay before a retry
type BackoffStrategy interface {
	// NextDelay returns the delay after the given failed attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// JitterFactor spreads delays by +/- this fraction (0.0 to 1.0)
	JitterFactor float64
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ErrorTypeBackoff picks a strategy based on the type of the last error
type ErrorTypeBackoff struct {
	RateLimit BackoffStrategy
	Default   BackoffStrategy
}

// NewErrorTypeBackoff uses base for ordinary failures and a slower curve for rate limiting
func NewErrorTypeBackoff(base *ExponentialBackoff) *ErrorTypeBackoff {
	slow := *base
	slow.BaseDelay = base.BaseDelay * 10
	slow.MaxDelay = base.MaxDelay * 5
	return &ErrorTypeBackoff{
		RateLimit: &slow,
		Default:   base,
	}
}

// DelayFor returns the delay after attempt failed with err
func (b *ErrorTypeBackoff) DelayFor(attempt int, err error) time.Duration {
	if errs.TypeOf(err) == errs.ErrorTypeRateLimit && b.RateLimit != nil {
		return b.RateLimit.NextDelay(attempt)
	}
	return b.Default.NextDelay(attempt)
}

// NextDelay satisfies BackoffStrategy using the default curve
func (b *ErrorTypeBackoff) NextDelay(attempt int) time.Duration {
	return b.Default.NextDelay(attempt)
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

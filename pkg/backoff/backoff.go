// Package backoff is the single retry policy shared by the paginator and
// the geocoder chain, parameterized per call site.
package backoff

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy bounds one retry loop: total attempts, exponential base delay
// with jitter, and a delay cap.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Retry runs fn until it succeeds, returns a terminal error, or the
// attempt budget is exhausted. fn marks recoverable failures with
// Transient; anything else stops the loop immediately.
func (p Policy) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	b := retry.NewExponential(base)
	b = retry.WithJitterPercent(20, b)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	b = retry.WithMaxRetries(uint64(attempts-1), b)

	return retry.Do(ctx, b, fn)
}

// Transient marks an error as retryable for Retry.
func Transient(err error) error {
	return retry.RetryableError(err)
}

// Package retry centralizes backoff-and-give-up behavior into one policy
// object. The aggregator's batch-flush retries use it; the validation
// worker does not, and requeues a delivery after a transient fault with an
// immediate nack, without backoff.
package retry

import (
	"context"
	"time"
)

// ExhaustedAction enumerates what a component does once a retry policy's
// attempts are used up.
type ExhaustedAction string

const (
	OnExhaustedRequeue     ExhaustedAction = "requeue"
	OnExhaustedToReview    ExhaustedAction = "to_review"
	OnExhaustedFailProcess ExhaustedAction = "fail_process"
)

// Policy is the retry contract used by the aggregator's batch-flush
// retries.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	OnExhausted ExhaustedAction
}

// DefaultPolicy returns the aggregator's default batch-retry policy: 3
// attempts, 1s base delay, doubling, falling through to review.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
		OnExhausted: OnExhaustedToReview,
	}
}

// Delay returns the backoff delay before attempt number n (1-indexed).
func (p Policy) Delay(n int) time.Duration {
	if n <= 1 {
		return p.BaseDelay
	}
	delay := p.BaseDelay
	for i := 1; i < n; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
	}
	return delay
}

// Do runs fn up to p.MaxAttempts times, sleeping Delay(n) between attempts.
// It returns the last error if every attempt fails, or nil on first
// success. Callers decide OnExhausted behavior themselves; Do does not
// interpret it.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}
	return lastErr
}

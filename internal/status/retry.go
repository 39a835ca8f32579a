package status

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy controls how transient fetch failures are retried. Each
// attempt is independent; the policy only decides whether and when the next
// one happens.
type RetryPolicy struct {
	MaxRetries     int           // additional attempts after the first
	InitialBackoff time.Duration // delay before the first retry
	MaxBackoff     time.Duration // cap for the exponential growth
	BackoffFactor  float64       // growth per retry, typically 2.0
}

// DefaultRetryPolicy returns the policy used in production: capped
// exponential backoff starting at 100ms.
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:     maxRetries,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Do runs attempt until it succeeds, fails permanently, or retries are
// exhausted. A permanent error is returned as-is after a single attempt;
// exhaustion is reported as *ExhaustedError wrapping the last error.
func (p RetryPolicy) Do(ctx context.Context, op string, attempt func() error) error {
	var last error

	for i := 0; i <= p.MaxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = attempt()
		if last == nil {
			return nil
		}
		if !IsTransient(last) {
			return last
		}
		if i == p.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff(i)):
		}
	}

	return &ExhaustedError{Op: op, Attempts: p.MaxRetries + 1, Last: last}
}

// backoff returns the jittered delay before retry number attempt (0-based).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}

	d := float64(p.InitialBackoff)
	for i := 0; i < attempt; i++ {
		d *= factor
	}

	// +/-20% jitter so concurrent callers don't retry in lockstep
	d *= 1 + (rand.Float64()*0.4 - 0.2)

	backoff := time.Duration(d)
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	return backoff
}

package status

import (
	"context"
	"errors"
	"testing"
	"time"
)

// testPolicy returns a retry policy with backoff short enough for tests.
func testPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestRetryPolicy_TransientExhaustsAfterMaxRetriesPlusOne(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 3} {
		attempts := 0
		policy := testPolicy(maxRetries)

		err := policy.Do(context.Background(), "list_deployments", func() error {
			attempts++
			return &FetchError{Op: "list_deployments", StatusCode: 503, Transient: true, Err: errors.New("unavailable")}
		})

		if attempts != maxRetries+1 {
			t.Errorf("maxRetries=%d: expected %d attempts, got %d", maxRetries, maxRetries+1, attempts)
		}

		var exhausted *ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("maxRetries=%d: expected ExhaustedError, got %v", maxRetries, err)
		}
		if exhausted.Attempts != maxRetries+1 {
			t.Errorf("maxRetries=%d: ExhaustedError reports %d attempts, want %d", maxRetries, exhausted.Attempts, maxRetries+1)
		}
		if !IsTransient(exhausted.Last) {
			t.Errorf("maxRetries=%d: last error should be the transient fetch error, got %v", maxRetries, exhausted.Last)
		}
	}
}

func TestRetryPolicy_PermanentShortCircuits(t *testing.T) {
	attempts := 0
	policy := testPolicy(3)

	err := policy.Do(context.Background(), "get_commit", func() error {
		attempts++
		return &FetchError{Op: "get_commit", StatusCode: 404, Transient: false, Err: errors.New("not found")}
	})

	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt for permanent error, got %d", attempts)
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected the FetchError back unmodified, got %v", err)
	}
	if fetchErr.Transient {
		t.Error("permanent error should not be marked transient")
	}
}

func TestRetryPolicy_SucceedsMidway(t *testing.T) {
	attempts := 0
	policy := testPolicy(3)

	err := policy.Do(context.Background(), "list_deployments", func() error {
		attempts++
		if attempts < 3 {
			return &FetchError{Op: "list_deployments", StatusCode: 502, Transient: true, Err: errors.New("bad gateway")}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after transient failures, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryPolicy_ContextCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	policy := testPolicy(5)
	policy.InitialBackoff = 50 * time.Millisecond

	err := policy.Do(ctx, "list_deployments", func() error {
		attempts++
		cancel()
		return &FetchError{Op: "list_deployments", StatusCode: 500, Transient: true, Err: errors.New("boom")}
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

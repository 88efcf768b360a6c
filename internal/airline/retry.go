package airline

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy controls retry behavior for outbound airline calls.
// Backoff is an explicit schedule; attempts beyond its length reuse
// the final delay.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
	Sleep       func(context.Context, time.Duration) error
	ShouldRetry func(error) bool
}

// DefaultRetryPolicy matches the airline API guidance: three attempts
// with 1s/2s/4s backoff, retrying only rate limits and server errors.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
		ShouldRetry: RetryableStatus,
	}
}

// RetryableStatus reports whether err is an APIError with a 429 or
// 5xx status. Anything else fails immediately.
func RetryableStatus(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

// Do executes fn with retries according to the policy.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = RetryableStatus
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if err == nil {
			return nil
		}
		if attempt == attempts || !shouldRetry(err) {
			return err
		}

		delay := time.Duration(0)
		if len(p.Backoff) > 0 {
			idx := attempt - 1
			if idx >= len(p.Backoff) {
				idx = len(p.Backoff) - 1
			}
			delay = p.Backoff[idx]
		}
		if delay > 0 {
			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

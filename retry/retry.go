// package retry provides a small higher-order retry combinator: an operation,
// an attempt budget, a backoff schedule and a predicate deciding which errors
// are worth retrying.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrBudgetExhausted wraps the last error once the attempt budget runs out.
var ErrBudgetExhausted = errors.New("retry budget exhausted")

// Backoff maps a 1-based attempt number to the delay before the next attempt.
type Backoff func(attempt int) time.Duration

// Fixed returns a backoff schedule with a constant delay between attempts.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Exponential returns a backoff schedule that doubles the base delay each
// attempt, capped at max.
func Exponential(base, max time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base << (attempt - 1)
		if d > max || d <= 0 {
			return max
		}
		return d
	}
}

// Policy bundles the knobs of a retry loop.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first one.
	MaxAttempts int

	// Backoff yields the delay after a failed attempt. Nil means no delay.
	Backoff Backoff

	// RetryIf decides whether an error is transient. Nil retries everything.
	RetryIf func(error) bool
}

// Do runs op under the policy until it succeeds, the budget is exhausted, the
// predicate rejects the error, or the context is cancelled.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if policy.RetryIf != nil && !policy.RetryIf(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		var delay time.Duration
		if policy.Backoff != nil {
			delay = policy.Backoff(attempt)
		}
		slog.Debug("Operation failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrBudgetExhausted, attempts, lastErr)
}

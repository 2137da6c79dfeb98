package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("Succeeds First Try", func(t *testing.T) {
		calls := 0
		result, err := Do(ctx, Policy{MaxAttempts: 3}, func(ctx context.Context) (int, error) {
			calls++
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, result)
		assert.Equal(t, 1, calls)
	})

	t.Run("Retries Until Success", func(t *testing.T) {
		calls := 0
		result, err := Do(ctx, Policy{MaxAttempts: 3}, func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 3, calls)
	})

	t.Run("Exhausts Budget", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		_, err := Do(ctx, Policy{MaxAttempts: 2}, func(ctx context.Context) (int, error) {
			calls++
			return 0, boom
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBudgetExhausted)
		assert.ErrorIs(t, err, boom, "the last error stays inspectable")
		assert.Equal(t, 2, calls)
	})

	t.Run("Predicate Stops Retrying", func(t *testing.T) {
		fatal := errors.New("fatal")
		calls := 0
		policy := Policy{
			MaxAttempts: 5,
			RetryIf:     func(err error) bool { return !errors.Is(err, fatal) },
		}
		_, err := Do(ctx, policy, func(ctx context.Context) (int, error) {
			calls++
			return 0, fatal
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, fatal)
		assert.NotErrorIs(t, err, ErrBudgetExhausted)
		assert.Equal(t, 1, calls)
	})

	t.Run("Context Cancellation Interrupts Backoff", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		policy := Policy{MaxAttempts: 3, Backoff: Fixed(time.Hour)}
		done := make(chan error, 1)
		go func() {
			_, err := Do(cancelCtx, policy, func(ctx context.Context) (int, error) {
				return 0, errors.New("transient")
			})
			done <- err
		}()
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("Do did not return after cancellation")
		}
	})

	t.Run("Zero Attempts Means One Try", func(t *testing.T) {
		calls := 0
		_, err := Do(ctx, Policy{}, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("nope")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestBackoffSchedules(t *testing.T) {
	t.Run("Fixed", func(t *testing.T) {
		b := Fixed(250 * time.Millisecond)
		assert.Equal(t, 250*time.Millisecond, b(1))
		assert.Equal(t, 250*time.Millisecond, b(7))
	})

	t.Run("Exponential Doubles And Caps", func(t *testing.T) {
		b := Exponential(100*time.Millisecond, time.Second)
		assert.Equal(t, 100*time.Millisecond, b(1))
		assert.Equal(t, 200*time.Millisecond, b(2))
		assert.Equal(t, 400*time.Millisecond, b(3))
		assert.Equal(t, 800*time.Millisecond, b(4))
		assert.Equal(t, time.Second, b(5))
		assert.Equal(t, time.Second, b(50), "overflowed shifts clamp to the cap")
	})
}

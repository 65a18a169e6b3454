package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetryWithContext(t *testing.T) {
	t.Run("succeeds on first try", func(t *testing.T) {
		calls := 0
		got, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (int, error) {
			calls++
			return 42, nil
		})
		if err != nil {
			t.Fatalf("RetryWithContext() error = %v", err)
		}
		if got != 42 {
			t.Errorf("RetryWithContext() = %d, want 42", got)
		}
		if calls != 1 {
			t.Errorf("fn called %d times, want 1", calls)
		}
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		got, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("RetryWithContext() error = %v", err)
		}
		if got != "ok" {
			t.Errorf("RetryWithContext() = %q, want %q", got, "ok")
		}
		if calls != 3 {
			t.Errorf("fn called %d times, want 3", calls)
		}
	})

	t.Run("returns last error after exhausting tries", func(t *testing.T) {
		wantErr := errors.New("persistent")
		_, err := RetryWithContext(context.Background(), 2, func(ctx context.Context) (int, error) {
			return 0, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("RetryWithContext() error = %v, want %v", err, wantErr)
		}
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		_, err := RetryWithContext(ctx, 5, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("should not reach")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RetryWithContext() error = %v, want context.Canceled", err)
		}
		if calls != 0 {
			t.Errorf("fn called %d times after cancel, want 0", calls)
		}
	})

	t.Run("does not retry cancellation errors from fn", func(t *testing.T) {
		calls := 0
		err := RetryErrWithContext(context.Background(), 5, func(ctx context.Context) error {
			calls++
			return context.Canceled
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RetryErrWithContext() error = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("fn called %d times, want 1", calls)
		}
	})
}

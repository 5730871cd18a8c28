package syncengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	icebergerrors "github.com/gear6io/syncbridge/pkg/errors"
)

func TestRetryWithBackoffSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), DefaultRetryConfig(), zerolog.Nop(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, BackoffFactor: 2.0}
	calls := 0
	err := RetryWithBackoff(context.Background(), cfg, zerolog.Nop(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestRetryWithBackoffExhausted(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, BackoffFactor: 2.0}
	calls := 0
	err := RetryWithBackoff(context.Background(), cfg, zerolog.Nop(), func(ctx context.Context) error {
		calls++
		return errors.New("persistent failure")
	})
	if err == nil {
		t.Fatal("expected an error after exhausting all attempts")
	}
	if calls != 2 {
		t.Errorf("expected exactly MaxAttempts=2 calls, got %d", calls)
	}
}

func TestRetryWithBackoffGivesUpOnNonRetryableError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, BackoffFactor: 2.0}
	calls := 0
	err := RetryWithBackoff(context.Background(), cfg, zerolog.Nop(), func(ctx context.Context) error {
		calls++
		return icebergerrors.New(ErrDeltaTooLarge, "delta exceeds configured row limit", nil)
	})
	if err == nil {
		t.Fatal("expected an error from a non-retryable failure")
	}
	if calls != 1 {
		t.Errorf("expected a non-retryable error to stop after the first attempt, got %d calls", calls)
	}
}

func TestRetryWithBackoffRetriesRetryableCode(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, BackoffFactor: 2.0}
	calls := 0
	err := RetryWithBackoff(context.Background(), cfg, zerolog.Nop(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return icebergerrors.New(icebergerrors.CommonTimeout, "deadline exceeded", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected a retryable code to be retried up to MaxAttempts, got %d calls", calls)
	}
}

func TestRetryWithBackoffRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, BackoffFactor: 2.0}
	calls := 0
	err := RetryWithBackoff(ctx, cfg, zerolog.Nop(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err == nil {
		t.Fatal("expected an error for an already-cancelled context")
	}
	if calls != 0 {
		t.Errorf("expected no attempts once the context is already cancelled, got %d", calls)
	}
}

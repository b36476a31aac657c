package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

// recordingSleep returns a SleepFunc that records requested delays.
func recordingSleep(delays *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	var delays []time.Duration
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, Sleep: recordingSleep(&delays)}

	calls := 0
	got, err := RetryWithBackoff(context.Background(), policy, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("temporary")
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if !reflect.DeepEqual(delays, want) {
		t.Errorf("delays = %v, want %v", delays, want)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	var delays []time.Duration
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, Sleep: recordingSleep(&delays)}

	calls := 0
	_, err := RetryWithBackoff(context.Background(), policy, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, fmt.Errorf("attempt %d failed", calls)
	})

	if err == nil || err.Error() != "attempt 4 failed" {
		t.Errorf("err = %v, want last attempt error", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if !reflect.DeepEqual(delays, want) {
		t.Errorf("delays = %v, want %v", delays, want)
	}
}

func TestRetryWithBackoff_PermanentStops(t *testing.T) {
	var delays []time.Duration
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, Sleep: recordingSleep(&delays)}

	calls := 0
	_, err := RetryWithBackoff(context.Background(), policy, func(context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("status 400: %w", ErrPermanent)
	})

	if !errors.Is(err, ErrPermanent) {
		t.Errorf("err = %v, want ErrPermanent", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(delays) != 0 {
		t.Errorf("delays = %v, want none", delays)
	}
}

func TestRetryWithBackoff_SleepInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var delays []time.Duration
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, Sleep: recordingSleep(&delays)}

	calls := 0
	_, err := RetryWithBackoff(ctx, policy, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("temporary")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoff_RealSleep(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 1, InitialDelay: 5 * time.Millisecond}

	start := time.Now()
	calls := 0
	_, _ = RetryWithBackoff(context.Background(), policy, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("temporary")
	})

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("elapsed %v, want at least the backoff delay", elapsed)
	}
}

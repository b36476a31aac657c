package core

import (
	"context"
	"errors"
	"time"
)

// ErrPermanent marks a transport failure that retrying cannot fix, such as a
// rejected request. Wrap it with fmt.Errorf("...: %w", ErrPermanent).
var ErrPermanent = errors.New("permanent failure")

// SleepFunc waits for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy controls RetryWithBackoff. Attempts = MaxRetries + 1.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Sleep        SleepFunc

	// OnRetry, when set, is called before each backoff wait with the
	// 1-based number of the failed attempt.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy retries 3 times starting at 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialBackoff,
		Sleep:        sleepWithCtx,
	}
}

// RetryWithBackoff calls op until it succeeds or the retries run out. The
// k-th retry waits InitialDelay * 2^(k-1). Errors wrapping ErrPermanent stop
// immediately. The last error is returned.
func RetryWithBackoff[T any](ctx context.Context, p RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepWithCtx
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.InitialDelay << (attempt - 1)
			if p.OnRetry != nil {
				p.OnRetry(attempt, delay, lastErr)
			}
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if errors.Is(err, ErrPermanent) {
			break
		}
	}
	return zero, lastErr
}

func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

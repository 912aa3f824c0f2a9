// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package persist

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const defaultAttempts = 3

// RetryPolicy bounds the attempts of one store operation. The delay
// between attempts grows linearly with the attempt number.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// PersistenceError reports a store operation that failed on every
// attempt. The record it concerned is dropped from the run.
type PersistenceError struct {
	Label    string
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Label, e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// wait sleeps for d unless ctx ends first. Tests replace it.
var wait = func(ctx context.Context, d time.Duration) error {
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

// WithRetry runs op up to policy.Attempts times, waiting Delay*attempt
// between attempts. The final failure is returned as a *PersistenceError
// annotated with label and the number of attempts made.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, label string, op func(context.Context) (T, error)) (T, error) {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		backoff := policy.Delay * time.Duration(attempt)
		logger.Warn("store operation failed, retrying",
			"operation", label, "attempt", attempt, "max_attempts", attempts, "backoff", backoff, "error", err)
		if err := wait(ctx, backoff); err != nil {
			return zero, &PersistenceError{Label: label, Attempts: attempt, Err: err}
		}
	}
	return zero, &PersistenceError{Label: label, Attempts: attempts, Err: lastErr}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the source clients.
package httputil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultMaxAttempts = 3
	maxBodyBytes       = 32 << 20
)

// RetryPolicy bounds the attempts made for a single request. The delay
// between attempts grows linearly: Delay, 2*Delay, 3*Delay, ...
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first (default 3).
	MaxAttempts int

	// Delay is multiplied by the attempt number before the next attempt.
	Delay time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// TransportError reports a request that failed at the network or HTTP
// level on every attempt. Err is the cause of the final attempt.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is the cause recorded for a non-2xx response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// sleep waits for d or until ctx is done. Tests replace it to record delays.
var sleep = func(ctx context.Context, d time.Duration) error {
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

// Fetch executes req and returns the response body. Network errors, body
// read errors and non-2xx statuses are retried identically up to
// policy.MaxAttempts times; each failed attempt is logged with its index.
// After the last attempt Fetch returns a *TransportError wrapping the final
// cause.
func Fetch(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy, logger *slog.Logger) ([]byte, error) {
	policy = policy.withDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		body, err := doOnce(ctx, client, req)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			logger.Warn("request failed, no attempts left",
				"url", req.URL.Redacted(), "attempt", attempt, "max_attempts", policy.MaxAttempts, "error", err)
			break
		}

		backoff := policy.Delay * time.Duration(attempt)
		logger.Warn("request failed, retrying",
			"url", req.URL.Redacted(), "attempt", attempt, "max_attempts", policy.MaxAttempts,
			"backoff", backoff, "error", err)

		if err := sleep(ctx, backoff); err != nil {
			return nil, &TransportError{URL: req.URL.Redacted(), Attempts: attempt, Err: err}
		}
	}

	return nil, &TransportError{URL: req.URL.Redacted(), Attempts: policy.MaxAttempts, Err: lastErr}
}

func doOnce(ctx context.Context, client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req.Clone(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

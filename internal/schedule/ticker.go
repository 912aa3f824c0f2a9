// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule fires a job at a fixed interval.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidInterval is returned for a non-positive interval.
var ErrInvalidInterval = errors.New("schedule interval must be positive")

// Ticker runs a job every Interval, optionally once at start. A tick that
// fires while the previous job is still running is dropped by time.Ticker;
// the job itself decides what to do about overlapping runs.
type Ticker struct {
	interval   time.Duration
	runOnStart bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTicker builds a Ticker.
func NewTicker(interval time.Duration, runOnStart bool) (*Ticker, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &Ticker{interval: interval, runOnStart: runOnStart}, nil
}

// Start launches the ticking goroutine. It is a no-op when already started.
func (t *Ticker) Start(ctx context.Context, job func(context.Context, time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job == nil || t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		if t.runOnStart {
			job(ctx, time.Now())
		}
		for {
			select {
			case now := <-ticker.C:
				job(ctx, now)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}(t.stop, t.done)
}

// Stop halts the ticker and waits for an in-flight job to return.
func (t *Ticker) Stop() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

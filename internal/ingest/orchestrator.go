// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest runs every source's collection concurrently and drives
// each item through normalize, classify, dedup, enhance and persist.
// Failures are isolated per record and per source.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdiddy/policy-feed/internal/classify"
	"github.com/pdiddy/policy-feed/internal/persist"
	"github.com/pdiddy/policy-feed/internal/source"
	"github.com/pdiddy/policy-feed/pkg/types"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Normalizer converts raw items to canonical records.
type Normalizer interface {
	ToCanonical(raw source.RawItem, t types.SourceType) types.CanonicalRecord
	ItemID(raw source.RawItem, t types.SourceType) string
}

// Classifier picks a category for a title and body.
type Classifier interface {
	Classify(title, body string) classify.Result
}

// DedupChecker reports whether a record is already stored.
type DedupChecker interface {
	Exists(ctx context.Context, rec types.CanonicalRecord) (bool, error)
}

// Persister stores a record.
type Persister interface {
	Upsert(ctx context.Context, rec types.CanonicalRecord, conflict types.ConflictColumn) (types.StoredRecord, error)
}

// Enhancer optionally rewrites summary and keywords. It must not fail.
type Enhancer interface {
	Apply(ctx context.Context, rec *types.CanonicalRecord) bool
}

// Source pairs a client with its pagination settings.
type Source struct {
	Client       source.Client
	Options      source.PageOptions
	FetchDetails bool
}

// Deps are the collaborators of an Orchestrator. Enhancer may be nil.
type Deps struct {
	Sources    []Source
	Normalizer Normalizer
	Classifier Classifier
	Dedup      DedupChecker
	Persister  Persister
	Enhancer   Enhancer
	Logger     *slog.Logger
}

// Options tunes an Orchestrator.
type Options struct {
	// MaxErrors caps the run's error list (default 10).
	MaxErrors int
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	Running        bool          `json:"running"`
	Current        *IngestionRun `json:"current,omitempty"`
	LastRun        *IngestionRun `json:"last_run,omitempty"`
	LastFinishedAt time.Time     `json:"last_finished_at,omitzero"`
}

// Orchestrator moves Idle -> Running -> Idle. At most one run is active.
type Orchestrator struct {
	deps      Deps
	maxErrors int
	logger    *slog.Logger
	now       func() time.Time

	running atomic.Bool

	mu      sync.Mutex
	current *IngestionRun
	last    *IngestionRun
}

// New builds an Orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = DefaultMaxErrors
	}
	return &Orchestrator{
		deps:      deps,
		maxErrors: opts.MaxErrors,
		logger:    logger.With("component", "ingest"),
		now:       time.Now,
	}
}

// Run performs one complete run and returns its summary. It returns
// ErrRunInProgress without waiting when another run is active.
func (o *Orchestrator) Run(ctx context.Context) (IngestionRun, error) {
	if !o.running.CompareAndSwap(false, true) {
		return IngestionRun{}, ErrRunInProgress
	}
	defer o.running.Store(false)
	return o.run(ctx), nil
}

// Start begins a run in the background and returns once the run has been
// admitted. The run is detached from ctx's cancellation so that it drains
// even when the triggering request ends.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer o.running.Store(false)
		o.run(ctx)
	}()
	return nil
}

// Status reports whether a run is active and the last completed run.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{
		Running: o.running.Load(),
		Current: o.current.clone(),
		LastRun: o.last.clone(),
	}
	if o.last != nil {
		st.LastFinishedAt = o.last.FinishedAt
	}
	return st
}

// progress is one update sent from a source worker to the orchestrator.
type progress struct {
	source types.SourceType
	delta  SourceStats
	err    *RunError
}

func (o *Orchestrator) run(ctx context.Context) IngestionRun {
	run := &IngestionRun{
		StartedAt: o.now(),
		Status:    RunRunning,
		Sources:   make(map[types.SourceType]SourceStats, len(o.deps.Sources)),
		Errors:    []RunError{},
	}
	for _, src := range o.deps.Sources {
		run.Sources[src.Client.Type()] = SourceStats{}
	}
	o.mu.Lock()
	o.current = run
	o.mu.Unlock()

	o.logger.Info("ingestion run started", "sources", len(o.deps.Sources))

	ch := make(chan progress, 64)
	var wg sync.WaitGroup
	for _, src := range o.deps.Sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.sourceFailed(src.Client, fmt.Errorf("panic: %v", r), ch)
				}
			}()
			o.collect(ctx, src, ch)
		}(src)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	for p := range ch {
		o.mu.Lock()
		stats := run.Sources[p.source]
		stats.add(p.delta)
		run.Sources[p.source] = stats
		if p.err != nil {
			run.addError(*p.err, o.maxErrors)
		}
		o.mu.Unlock()
	}

	o.mu.Lock()
	run.FinishedAt = o.now()
	run.Status = RunCompleted
	o.last = run
	o.current = nil
	summary := *run.clone()
	o.mu.Unlock()

	o.logger.Info("ingestion run completed",
		"processed", summary.TotalProcessed(),
		"errors", len(summary.Errors),
		"duration", summary.FinishedAt.Sub(summary.StartedAt))
	return summary
}

// collect drives one source: the full pagination loop, then each item in
// fetch order.
func (o *Orchestrator) collect(ctx context.Context, src Source, ch chan<- progress) {
	t := src.Client.Type()
	logger := o.logger.With("source", src.Client.Name())

	res, err := source.Paginate(ctx, src.Client, src.Options, logger)
	if err != nil {
		ch <- progress{source: t, delta: SourceStats{Requests: res.Requests}}
		o.sourceFailed(src.Client, err, ch)
		return
	}
	ch <- progress{source: t, delta: SourceStats{Requests: res.Requests, Fetched: len(res.Items)}}
	logger.Info("source fetched", "requests", res.Requests, "items", len(res.Items))

	for _, raw := range res.Items {
		ch <- o.processItem(ctx, src, raw, logger)
	}
}

func (o *Orchestrator) sourceFailed(c source.Client, err error, ch chan<- progress) {
	o.logger.Error("source failed", "source", c.Name(), "error", err)
	ch <- progress{
		source: c.Type(),
		delta:  SourceStats{Error: err.Error()},
		err: &RunError{
			Time:    o.now(),
			Source:  c.Type(),
			Scope:   ScopeSource,
			Key:     c.Name(),
			Message: err.Error(),
		},
	}
}

// processItem runs one raw item through the pipeline. It never aborts the
// caller: every failure becomes a Failed count and a RunError.
func (o *Orchestrator) processItem(ctx context.Context, src Source, raw source.RawItem, logger *slog.Logger) progress {
	t := src.Client.Type()

	if src.FetchDetails {
		raw = o.enrich(ctx, src.Client, raw, logger)
	}

	rec := o.deps.Normalizer.ToCanonical(raw, t)
	key := rec.DedupKey()
	fail := func(stage string, err error) progress {
		logger.Warn("record failed", "stage", stage, "key", key, "error", err)
		return progress{
			source: t,
			delta:  SourceStats{Failed: 1},
			err: &RunError{
				Time:    o.now(),
				Source:  t,
				Scope:   ScopeRecord,
				Key:     key,
				Message: fmt.Sprintf("%s: %v", stage, err),
			},
		}
	}

	if err := rec.Validate(); err != nil {
		return fail("normalize", err)
	}
	rec.Category = o.deps.Classifier.Classify(rec.Title, rec.Content).Category

	exists, err := o.deps.Dedup.Exists(ctx, rec)
	if err != nil {
		return fail("dedup", err)
	}
	if exists {
		logger.Debug("duplicate skipped", "key", key)
		return progress{source: t, delta: SourceStats{Duplicates: 1}}
	}

	if o.deps.Enhancer != nil {
		o.deps.Enhancer.Apply(ctx, &rec)
	}

	if _, err := o.deps.Persister.Upsert(ctx, rec, persist.ConflictFor(rec)); err != nil {
		return fail("persist", err)
	}
	return progress{source: t, delta: SourceStats{Processed: 1}}
}

// enrich merges the detail item over the list item. A failed or empty
// detail lookup keeps the list data.
func (o *Orchestrator) enrich(ctx context.Context, c source.Client, raw source.RawItem, logger *slog.Logger) source.RawItem {
	id := o.deps.Normalizer.ItemID(raw, c.Type())
	if id == "" {
		return raw
	}
	detail, err := c.FetchDetail(ctx, id)
	if err != nil {
		logger.Warn("detail lookup failed, keeping list data", "id", id, "error", err)
		return raw
	}
	if len(detail) == 0 {
		return raw
	}
	merged := maps.Clone(raw)
	for k, v := range detail {
		if v != "" {
			merged[k] = v
		}
	}
	return merged
}

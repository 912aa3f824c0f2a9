// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pdiddy/policy-feed/internal/classify"
	"github.com/pdiddy/policy-feed/internal/enhance"
	"github.com/pdiddy/policy-feed/internal/ingest"
	"github.com/pdiddy/policy-feed/internal/normalize"
	"github.com/pdiddy/policy-feed/internal/persist"
	"github.com/pdiddy/policy-feed/internal/source"
	"github.com/pdiddy/policy-feed/internal/store"
	"github.com/pdiddy/policy-feed/pkg/types"
)

// app holds the collaborators built from the loaded configuration.
type app struct {
	store   *store.Store
	gateway *persist.Gateway
}

// openApp opens the store and the asset bucket.
func openApp(ctx context.Context, c types.PipelineConfig, l *slog.Logger) (*app, error) {
	st, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, err
	}

	var bucket persist.Bucket
	if c.Store.BucketDir != "" {
		b, err := store.NewDirBucket(c.Store.BucketDir)
		if err != nil {
			st.Close()
			return nil, err
		}
		bucket = b
	}

	policy := persist.RetryPolicy{Attempts: c.Persist.RetryAttempts, Delay: c.Persist.RetryDelay}
	return &app{
		store:   st,
		gateway: persist.NewGateway(st, bucket, policy, l),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// orchestrator wires sources, normalizer, classifier, dedup gate,
// persistence gateway and the optional enhancer into an Orchestrator.
func (a *app) orchestrator(c types.PipelineConfig, l *slog.Logger) (*ingest.Orchestrator, error) {
	classifier, err := classify.FromFile(c.Classify.KeywordsFile)
	if err != nil {
		return nil, fmt.Errorf("loading keyword table: %w", err)
	}

	var sources []ingest.Source
	for _, client := range source.NewClients(c.Sources, l) {
		sc := c.Sources.For(client.Type())
		sources = append(sources, ingest.Source{
			Client: client,
			Options: source.PageOptions{
				PageSize: sc.PageSize,
				MaxPages: sc.MaxPages,
				Delay:    sc.PageDelay,
			},
			FetchDetails: sc.FetchDetails,
		})
	}

	deps := ingest.Deps{
		Sources:    sources,
		Normalizer: normalize.New(c.Normalize, l),
		Classifier: classifier,
		Dedup:      persist.NewDedupGate(a.store),
		Persister:  a.gateway,
		Logger:     l,
	}
	if e := newEnhancer(c.Enhance, l); e != nil {
		deps.Enhancer = e
	}
	return ingest.New(deps, ingest.Options{}), nil
}

// newEnhancer returns nil when enhancement is disabled or has no key.
func newEnhancer(c types.EnhanceConfig, l *slog.Logger) *enhance.Safe {
	if !c.Enabled {
		return nil
	}
	if c.APIKey == "" {
		l.Warn("enhancement enabled but no API key configured; skipping")
		return nil
	}
	inner := &enhance.ClaudeEnhancer{
		APIKey: c.APIKey,
		Model:  c.Model,
		Client: &http.Client{Timeout: c.Timeout},
	}
	return enhance.NewSafe(inner, c.Timeout, l)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package persist wraps the record store with bounded retries and the
// deduplication check used by ingestion.
package persist

import (
	"context"
	"log/slog"

	"github.com/pdiddy/policy-feed/pkg/types"
)

// RecordStore is the store contract the gateway needs.
type RecordStore interface {
	Upsert(ctx context.Context, rec types.CanonicalRecord, conflict types.ConflictColumn) (types.StoredRecord, error)
	Exists(ctx context.Context, dedupKey string) (bool, error)
	Get(ctx context.Context, id string) (types.StoredRecord, error)
	IncrementViewCount(ctx context.Context, id string) (int64, error)
	UpdateVisualAssets(ctx context.Context, id string, assets types.VisualAssets) error
	CountBySource(ctx context.Context) (map[types.SourceType]int64, error)
}

// Bucket stores binary objects such as rendered thumbnails.
type Bucket interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
}

// Gateway routes every store mutation through WithRetry.
type Gateway struct {
	store  RecordStore
	bucket Bucket
	policy RetryPolicy
	logger *slog.Logger
}

// NewGateway builds a Gateway. bucket may be nil when no asset uploads
// are expected.
func NewGateway(store RecordStore, bucket Bucket, policy RetryPolicy, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{store: store, bucket: bucket, policy: policy, logger: logger}
}

// ConflictFor picks the conflict column for rec. Service records carry an
// externally assigned id; news and id-less records use the natural key.
func ConflictFor(rec types.CanonicalRecord) types.ConflictColumn {
	if rec.SourceType != types.SourceNews && rec.ExternalID != "" {
		return types.ConflictExternalID
	}
	return types.ConflictDedupKey
}

// Upsert stores rec, updating any existing row with the same conflict key.
func (g *Gateway) Upsert(ctx context.Context, rec types.CanonicalRecord, conflict types.ConflictColumn) (types.StoredRecord, error) {
	return WithRetry(ctx, g.policy, g.logger, "upsert "+rec.DedupKey(), func(ctx context.Context) (types.StoredRecord, error) {
		return g.store.Upsert(ctx, rec, conflict)
	})
}

// IncrementViewCount bumps the view counter of a stored record.
func (g *Gateway) IncrementViewCount(ctx context.Context, id string) (int64, error) {
	return WithRetry(ctx, g.policy, g.logger, "increment view count "+id, func(ctx context.Context) (int64, error) {
		return g.store.IncrementViewCount(ctx, id)
	})
}

// UpdateVisualAssets records asset URLs for a stored record.
func (g *Gateway) UpdateVisualAssets(ctx context.Context, id string, assets types.VisualAssets) error {
	_, err := WithRetry(ctx, g.policy, g.logger, "update visual assets "+id, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.store.UpdateVisualAssets(ctx, id, assets)
	})
	return err
}

// UploadAsset stores data in the bucket under path and returns its location.
func (g *Gateway) UploadAsset(ctx context.Context, path string, data []byte) (string, error) {
	if g.bucket == nil {
		return "", &PersistenceError{Label: "upload " + path, Attempts: 0, Err: errNoBucket}
	}
	return WithRetry(ctx, g.policy, g.logger, "upload "+path, func(ctx context.Context) (string, error) {
		return g.bucket.Upload(ctx, path, data)
	})
}

// Get reads a stored record by id.
func (g *Gateway) Get(ctx context.Context, id string) (types.StoredRecord, error) {
	return g.store.Get(ctx, id)
}

// CountBySource returns stored record counts per source type.
func (g *Gateway) CountBySource(ctx context.Context) (map[types.SourceType]int64, error) {
	return g.store.CountBySource(ctx)
}

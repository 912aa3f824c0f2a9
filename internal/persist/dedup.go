// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/policy-feed/pkg/types"
)

var errNoBucket = errors.New("no asset bucket configured")

// KeyLookup reports whether a natural key is already stored.
type KeyLookup interface {
	Exists(ctx context.Context, dedupKey string) (bool, error)
}

// DedupGate answers whether a record is already stored. It never writes.
type DedupGate struct {
	lookup KeyLookup
}

// NewDedupGate builds a gate over lookup.
func NewDedupGate(lookup KeyLookup) *DedupGate {
	return &DedupGate{lookup: lookup}
}

// Exists looks up rec's natural key.
func (d *DedupGate) Exists(ctx context.Context, rec types.CanonicalRecord) (bool, error) {
	ok, err := d.lookup.Exists(ctx, rec.DedupKey())
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return ok, nil
}

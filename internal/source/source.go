// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source fetches raw items from the upstream public-data APIs.
// Each API is wrapped in a Client that fetches one page at a time,
// retries transport failures, and validates the XML envelope before any
// item reaches normalization.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/policy-feed/pkg/types"
)

// RawItem is one decoded item: element name to trimmed text. Nested
// elements are keyed "parent/child".
type RawItem map[string]string

// Get returns the trimmed value stored under key.
func (r RawItem) Get(key string) string {
	return r[key]
}

// Client fetches pages and single items from one upstream API (Strategy pattern).
type Client interface {
	// Name identifies the client in logs and errors.
	Name() string

	// Type is the source type stamped on every record this client produces.
	Type() types.SourceType

	// FetchPage returns the items of page pageNumber (1-based).
	FetchPage(ctx context.Context, pageNumber, pageSize int) ([]RawItem, error)

	// FetchDetail returns a single item by its source-native id, or nil
	// when the API reports no such item.
	FetchDetail(ctx context.Context, itemID string) (RawItem, error)
}

// ProtocolError reports a well-formed rejection or an undecodable payload.
// It is never retried.
type ProtocolError struct {
	Source  string
	Code    string
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("%s: protocol error", e.Source)
	if e.Code != "" {
		msg += " (code " + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// PageOptions controls the pagination loop.
type PageOptions struct {
	// PageSize is the number of items requested per page. Must be > 0.
	PageSize int

	// MaxPages caps the number of requests. Zero means no cap.
	MaxPages int

	// Delay is slept between successful page fetches.
	Delay time.Duration
}

// PageResult is the outcome of a full pagination loop.
type PageResult struct {
	Items    []RawItem
	Requests int
}

// pageSleep is the courtesy delay between pages. It deliberately ignores
// context cancellation. Tests replace it.
var pageSleep = time.Sleep

// Paginate drives c from page 1 until a page comes back empty, a page is
// shorter than PageSize, or MaxPages requests have been made, whichever
// happens first. Items are returned in fetch order. On error the items
// collected so far are returned together with the error.
func Paginate(ctx context.Context, c Client, opts PageOptions, logger *slog.Logger) (PageResult, error) {
	if opts.PageSize <= 0 {
		return PageResult{}, fmt.Errorf("%s: page size must be positive, got %d", c.Name(), opts.PageSize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	var result PageResult
	for page := 1; opts.MaxPages <= 0 || page <= opts.MaxPages; page++ {
		items, err := c.FetchPage(ctx, page, opts.PageSize)
		if err != nil {
			return result, fmt.Errorf("%s page %d: %w", c.Name(), page, err)
		}
		result.Requests++
		result.Items = append(result.Items, items...)

		logger.Debug("page fetched", "source", c.Name(), "page", page, "items", len(items))

		if len(items) == 0 || len(items) < opts.PageSize {
			break
		}
		if opts.MaxPages > 0 && page == opts.MaxPages {
			logger.Info("max pages reached", "source", c.Name(), "max_pages", opts.MaxPages)
			break
		}
		pageSleep(opts.Delay)
	}
	return result, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pdiddy/policy-feed/internal/httputil"
	"github.com/pdiddy/policy-feed/pkg/types"
)

// apiClient holds the plumbing shared by the concrete clients: building
// the request, retrying transport failures and decoding the envelope.
// Concrete clients only describe their parameters and envelopes.
type apiClient struct {
	name       string
	sourceType types.SourceType
	cfg        types.SourceConfig
	client     *http.Client
	logger     *slog.Logger
	now        func() time.Time

	keyParam     string
	list         Envelope
	detail       Envelope
	listParams   func(page, size int) url.Values
	detailParams func(id string) url.Values
}

func newAPIClient(name string, t types.SourceType, cfg types.SourceConfig, client *http.Client, logger *slog.Logger) apiClient {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return apiClient{
		name:       name,
		sourceType: t,
		cfg:        cfg,
		client:     client,
		logger:     logger.With("source", name),
		now:        time.Now,
	}
}

// Name returns the client identifier.
func (c *apiClient) Name() string { return c.name }

// Type returns the source type of the records this client produces.
func (c *apiClient) Type() types.SourceType { return c.sourceType }

// FetchPage requests one list page and decodes its items.
func (c *apiClient) FetchPage(ctx context.Context, pageNumber, pageSize int) ([]RawItem, error) {
	if pageNumber < 1 || pageSize <= 0 {
		return nil, fmt.Errorf("%s: invalid page request (page=%d, size=%d)", c.name, pageNumber, pageSize)
	}
	body, err := c.get(ctx, c.cfg.BaseURL, c.listParams(pageNumber, pageSize))
	if err != nil {
		return nil, err
	}
	return c.list.Decode(c.name, body)
}

// FetchDetail requests a single item by id. It returns nil when the
// response holds no item.
func (c *apiClient) FetchDetail(ctx context.Context, itemID string) (RawItem, error) {
	if c.cfg.DetailURL == "" || c.detailParams == nil {
		return nil, fmt.Errorf("%s: detail endpoint not configured", c.name)
	}
	if itemID == "" {
		return nil, fmt.Errorf("%s: empty item id", c.name)
	}
	body, err := c.get(ctx, c.cfg.DetailURL, c.detailParams(itemID))
	if err != nil {
		return nil, err
	}
	items, err := c.detail.Decode(c.name, body)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 || len(items[0]) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func (c *apiClient) get(ctx context.Context, base string, params url.Values) ([]byte, error) {
	if c.cfg.APIKey != "" {
		params.Set(c.keyParam, c.cfg.APIKey)
	}
	reqURL := base + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/xml, text/xml")

	return httputil.Fetch(ctx, c.client, req, httputil.RetryPolicy{
		MaxAttempts: c.cfg.MaxRetries,
		Delay:       c.cfg.RetryDelay,
	}, c.logger)
}

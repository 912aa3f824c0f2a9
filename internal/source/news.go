// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pdiddy/policy-feed/pkg/types"
)

// NewsClient reads the policy-briefing news list. Items are selected by an
// approval-date window ending today.
type NewsClient struct {
	apiClient
}

var _ Client = (*NewsClient)(nil)

// NewNewsClient builds a news client. A nil client gets one with cfg.Timeout.
func NewNewsClient(cfg types.SourceConfig, client *http.Client, logger *slog.Logger) *NewsClient {
	c := &NewsClient{apiClient: newAPIClient("news", types.SourceNews, cfg, client, logger)}
	c.keyParam = "serviceKey"
	c.list = Envelope{
		Root:         "response",
		CodePaths:    []string{"header/resultCode"},
		SuccessCodes: []string{"0", "00"},
		MessagePaths: []string{"header/resultMsg"},
		ItemPath:     "body/NewsItem",
	}
	c.detail = c.list
	c.listParams = c.newsListParams
	c.detailParams = func(id string) url.Values {
		return url.Values{"newsItemId": {id}}
	}
	return c
}

func (c *NewsClient) newsListParams(page, size int) url.Values {
	days := c.cfg.LookbackDays
	if days <= 0 {
		days = 1
	}
	end := c.now()
	start := end.AddDate(0, 0, -days)
	return url.Values{
		"pageNo":    {strconv.Itoa(page)},
		"numOfRows": {strconv.Itoa(size)},
		"startDate": {start.Format("20060102")},
		"endDate":   {end.Format("20060102")},
	}
}

// setClock replaces the clock used for the date window.
func (c *NewsClient) setClock(now func() time.Time) { c.now = now }

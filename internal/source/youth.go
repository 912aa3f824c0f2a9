// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/policy-feed/pkg/types"
)

// YouthClient reads the youth policy catalogue. Its responses carry no
// result code; a rejected request comes back under a different root.
type YouthClient struct {
	apiClient
}

var _ Client = (*YouthClient)(nil)

// NewYouthClient builds a youth-program client.
func NewYouthClient(cfg types.SourceConfig, client *http.Client, logger *slog.Logger) *YouthClient {
	c := &YouthClient{apiClient: newAPIClient("youth", types.SourceYouth, cfg, client, logger)}
	c.keyParam = "openApiVlak"
	c.list = Envelope{
		Root:     "youthPolicyList",
		ItemPath: "youthPolicy",
	}
	c.detail = c.list
	c.listParams = func(page, size int) url.Values {
		return url.Values{
			"pageIndex": {strconv.Itoa(page)},
			"display":   {strconv.Itoa(size)},
		}
	}
	c.detailParams = func(id string) url.Values {
		return url.Values{"pageIndex": {"1"}, "display": {"1"}, "srchPolicyId": {id}}
	}
	return c
}

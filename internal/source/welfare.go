// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/policy-feed/pkg/types"
)

// WelfareClient reads the national welfare service catalogue. List items
// carry a digest only; the detail endpoint adds eligibility and benefit text.
type WelfareClient struct {
	apiClient
}

var _ Client = (*WelfareClient)(nil)

// NewWelfareClient builds a welfare-service client.
func NewWelfareClient(cfg types.SourceConfig, client *http.Client, logger *slog.Logger) *WelfareClient {
	c := &WelfareClient{apiClient: newAPIClient("welfare", types.SourceWelfare, cfg, client, logger)}
	c.keyParam = "serviceKey"
	c.list = Envelope{
		Root:         "wantedList",
		CodePaths:    []string{"resultCode"},
		SuccessCodes: []string{"0", "00", "SUCCESS"},
		MessagePaths: []string{"resultMessage"},
		ItemPath:     "servList",
	}
	c.detail = Envelope{
		Root:         "wantedDtl",
		CodePaths:    []string{"resultCode"},
		SuccessCodes: []string{"0", "00", "SUCCESS"},
		MessagePaths: []string{"resultMessage"},
		ItemPath:     ".",
	}
	c.listParams = func(page, size int) url.Values {
		return url.Values{
			"callTp":      {"L"},
			"pageNo":      {strconv.Itoa(page)},
			"numOfRows":   {strconv.Itoa(size)},
			"srchKeyCode": {"001"},
		}
	}
	c.detailParams = func(id string) url.Values {
		return url.Values{"callTp": {"D"}, "servId": {id}}
	}
	return c
}

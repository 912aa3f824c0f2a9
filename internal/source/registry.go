// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"log/slog"
	"net/http"

	"github.com/pdiddy/policy-feed/pkg/types"
)

// NewClients builds a client for every enabled source in cfg, in the
// stable order of types.AllSourceTypes.
func NewClients(cfg types.SourcesConfig, logger *slog.Logger) []Client {
	var clients []Client
	for _, t := range types.AllSourceTypes {
		sc := cfg.For(t)
		if !sc.Enabled {
			continue
		}
		httpClient := &http.Client{Timeout: sc.Timeout}
		switch t {
		case types.SourceNews:
			clients = append(clients, NewNewsClient(sc, httpClient, logger))
		case types.SourceWelfare:
			clients = append(clients, NewWelfareClient(sc, httpClient, logger))
		case types.SourceYouth:
			clients = append(clients, NewYouthClient(sc, httpClient, logger))
		}
	}
	return clients
}

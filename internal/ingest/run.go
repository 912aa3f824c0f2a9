// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"maps"
	"time"

	"github.com/pdiddy/policy-feed/pkg/types"
)

// DefaultMaxErrors bounds the error list kept on a run.
const DefaultMaxErrors = 10

// RunStatus is the lifecycle state of an IngestionRun.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
)

// ErrorScope tells whether a RunError concerns a whole source or one record.
type ErrorScope string

const (
	ScopeSource ErrorScope = "source"
	ScopeRecord ErrorScope = "record"
)

// SourceStats counts the outcomes of one source within a run.
type SourceStats struct {
	Requests   int    `json:"requests"`
	Fetched    int    `json:"fetched"`
	Processed  int    `json:"processed"`
	Duplicates int    `json:"duplicates"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

func (s *SourceStats) add(d SourceStats) {
	s.Requests += d.Requests
	s.Fetched += d.Fetched
	s.Processed += d.Processed
	s.Duplicates += d.Duplicates
	s.Failed += d.Failed
	if d.Error != "" {
		s.Error = d.Error
	}
}

// RunError is one recorded failure.
type RunError struct {
	Time    time.Time        `json:"time"`
	Source  types.SourceType `json:"source"`
	Scope   ErrorScope       `json:"scope"`
	Key     string           `json:"key,omitempty"`
	Message string           `json:"message"`
}

// IngestionRun describes one orchestrator invocation. Only the
// orchestrator mutates it; readers get copies.
type IngestionRun struct {
	StartedAt  time.Time                        `json:"started_at"`
	FinishedAt time.Time                        `json:"finished_at,omitzero"`
	Status     RunStatus                        `json:"status"`
	Sources    map[types.SourceType]SourceStats `json:"sources"`
	Errors     []RunError                       `json:"errors"`
}

// TotalProcessed sums the persisted records over all sources.
func (r IngestionRun) TotalProcessed() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Processed
	}
	return total
}

// addError appends e, evicting the oldest entries beyond max.
func (r *IngestionRun) addError(e RunError, max int) {
	r.Errors = append(r.Errors, e)
	if over := len(r.Errors) - max; over > 0 {
		r.Errors = append([]RunError(nil), r.Errors[over:]...)
	}
}

func (r *IngestionRun) clone() *IngestionRun {
	if r == nil {
		return nil
	}
	c := *r
	c.Sources = maps.Clone(r.Sources)
	c.Errors = append([]RunError{}, r.Errors...)
	return &c
}

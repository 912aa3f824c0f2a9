// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enhance asks a language model to improve a record's summary and
// keywords. Enhancement is optional: the Safe wrapper turns every failure
// into "no enhancement".
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/policy-feed/pkg/types"
)

// OriginalData keys written by Safe.Apply.
const (
	KeyTarget            = "aiTarget"
	KeyApplicationMethod = "aiApplicationMethod"
	KeySuggestedCategory = "aiCategory"
)

const defaultTimeout = 20 * time.Second

// Enhancement is the collaborator's answer for one record.
type Enhancement struct {
	Summary           string   `json:"summary"`
	Keywords          []string `json:"keywords"`
	Category          string   `json:"category"`
	Target            string   `json:"target"`
	ApplicationMethod string   `json:"applicationMethod"`
}

// Enhancer produces an Enhancement from a record's title and content.
type Enhancer interface {
	Enhance(ctx context.Context, title, content string) (Enhancement, error)
}

// Safe wraps an Enhancer so that it can never fail a record: each call
// gets its own timeout, panics are recovered and errors are logged and
// dropped.
type Safe struct {
	inner   Enhancer
	timeout time.Duration
	logger  *slog.Logger
}

// NewSafe wraps inner. A nil inner makes Apply a no-op.
func NewSafe(inner Enhancer, timeout time.Duration, logger *slog.Logger) *Safe {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Safe{inner: inner, timeout: timeout, logger: logger}
}

// Apply enhances rec in place and reports whether anything changed. Only
// non-empty summary and keywords replace the local values; the other
// fields are kept in OriginalData for reference.
func (s *Safe) Apply(ctx context.Context, rec *types.CanonicalRecord) bool {
	if s == nil || s.inner == nil {
		return false
	}
	e, err := s.call(ctx, rec.Title, rec.Content)
	if err != nil {
		s.logger.Warn("enhancement skipped", "dedup_key", rec.DedupKey(), "error", err)
		return false
	}

	changed := false
	if summary := strings.TrimSpace(e.Summary); summary != "" {
		rec.Summary = summary
		changed = true
	}
	if kws := cleanKeywords(e.Keywords); len(kws) > 0 {
		rec.Keywords = kws
		changed = true
	}
	extras := map[string]string{
		KeyTarget:            e.Target,
		KeyApplicationMethod: e.ApplicationMethod,
		KeySuggestedCategory: e.Category,
	}
	for k, v := range extras {
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		if rec.OriginalData == nil {
			rec.OriginalData = map[string]any{}
		}
		rec.OriginalData[k] = v
		changed = true
	}
	return changed
}

func (s *Safe) call(ctx context.Context, title, content string) (e Enhancement, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enhancer panicked: %v", r)
		}
	}()
	return s.inner.Enhance(ctx, title, content)
}

func cleanKeywords(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

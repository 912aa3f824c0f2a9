// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts raw source items into CanonicalRecords using
// one declarative field-mapping table per source.
package normalize

import (
	"log/slog"
	"strings"
	"time"

	"github.com/pdiddy/policy-feed/internal/source"
	"github.com/pdiddy/policy-feed/pkg/types"
)

const (
	defaultSummaryLength = 200

	// OriginalImageKey is the OriginalData key holding the first image URL
	// found in the item, if any.
	OriginalImageKey = "imageUrl"
)

// kst is used when the configured zone cannot be loaded (no tzdata).
var kst = time.FixedZone("KST", 9*60*60)

// Normalizer maps raw items to canonical records. It is safe for
// concurrent use.
type Normalizer struct {
	summaryLength int
	location      *time.Location
	now           func() time.Time
	logger        *slog.Logger
}

// New builds a Normalizer from cfg.
func New(cfg types.NormalizeConfig, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Normalizer{
		summaryLength: cfg.SummaryLength,
		location:      kst,
		now:           time.Now,
		logger:        logger,
	}
	if n.summaryLength <= 0 {
		n.summaryLength = defaultSummaryLength
	}
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			n.location = loc
		} else {
			logger.Warn("unknown timezone, using KST", "timezone", cfg.Timezone, "error", err)
		}
	}
	return n
}

// ToCanonical converts raw into a CanonicalRecord of type t. It never
// fails: missing optional fields stay empty, an unparsable date becomes
// the current time. Validation is the caller's job.
func (n *Normalizer) ToCanonical(raw source.RawItem, t types.SourceType) types.CanonicalRecord {
	fm := FieldMapFor(t)

	rawContent := first(raw, fm.Content)
	content := Sanitize(rawContent)

	summary := Sanitize(first(raw, fm.Summary))
	if summary == "" {
		summary = content
	}
	summary = Truncate(summary, n.summaryLength)

	rec := types.CanonicalRecord{
		ExternalID:   ItemID(raw, t),
		Title:        Sanitize(first(raw, fm.Title)),
		Content:      content,
		Summary:      summary,
		SourceURL:    strings.TrimSpace(first(raw, fm.SourceURL)),
		PublishedAt:  n.publishedAt(raw, fm, t),
		SourceType:   t,
		Keywords:     keywords(raw, fm.Keywords),
		OriginalData: originalData(raw),
	}

	image := firstImage(rawContent)
	if image == "" {
		image = first(raw, fm.ImageURL)
	}
	if image != "" {
		rec.OriginalData[OriginalImageKey] = image
	}
	return rec
}

// ItemID returns the source-native id of raw.
func (n *Normalizer) ItemID(raw source.RawItem, t types.SourceType) string {
	return ItemID(raw, t)
}

func (n *Normalizer) publishedAt(raw source.RawItem, fm FieldMap, t types.SourceType) time.Time {
	value := first(raw, fm.PublishedAt)
	if ts, ok := ParseDate(value, n.location); ok {
		return ts
	}
	now := n.now().In(n.location)
	n.logger.Warn("unparsable publish date, using current time",
		"source_type", t, "value", value, "external_id", first(raw, fm.ExternalID))
	return now
}

// keywords gathers the values of every keyword field, splitting on the
// separators the sources use and dropping blanks and repeats.
func keywords(raw source.RawItem, keys []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, k := range keys {
		for _, kw := range strings.FieldsFunc(raw.Get(k), isKeywordSeparator) {
			kw = Sanitize(kw)
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}

func isKeywordSeparator(r rune) bool {
	return r == ',' || r == '|' || r == ';'
}

func originalData(raw source.RawItem) map[string]any {
	data := make(map[string]any, len(raw)+1)
	for k, v := range raw {
		data[k] = v
	}
	return data
}

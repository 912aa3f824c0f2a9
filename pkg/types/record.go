// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the policy-feed pipeline:
// the canonical record every source is normalized into, its stored form, and
// the configuration of each pipeline stage.
package types

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// SourceType identifies which upstream API produced a record. It is fixed
// when the record is first created and never changes afterwards.
type SourceType string

const (
	SourceNews    SourceType = "news"
	SourceWelfare SourceType = "welfare-service"
	SourceYouth   SourceType = "youth-program"
)

// AllSourceTypes lists the known source types in a stable order.
var AllSourceTypes = []SourceType{SourceNews, SourceWelfare, SourceYouth}

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	switch s {
	case SourceNews, SourceWelfare, SourceYouth:
		return true
	}
	return false
}

// ConflictColumn names the column set an upsert uses to decide between
// insert and update.
type ConflictColumn string

const (
	// ConflictDedupKey targets the natural-key column used by news-like records.
	ConflictDedupKey ConflictColumn = "dedup_key"

	// ConflictExternalID targets the externally assigned service identifier.
	ConflictExternalID ConflictColumn = "source_type, external_id"
)

// Record validation errors.
var (
	ErrMissingTitle      = errors.New("record title is required")
	ErrInvalidSourceType = errors.New("record source type is invalid")
)

// CanonicalRecord is the single normalized shape all sources are converted
// into before classification and persistence.
type CanonicalRecord struct {
	// ExternalID is the source-native identifier when the source provides one.
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`

	// Title is the record headline. Required.
	Title string `json:"title" yaml:"title"`

	// Content is the HTML-stripped plain-text body.
	Content string `json:"content" yaml:"content"`

	// Summary is either provided by the source or derived from Content.
	Summary string `json:"summary" yaml:"summary"`

	// SourceURL links back to the original publication, if known.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// PublishedAt is parsed from the source-specific date encoding.
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`

	// SourceType identifies the producing source.
	SourceType SourceType `json:"source_type" yaml:"source_type"`

	// Category is assigned by the classifier; empty until classified.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Keywords holds ordered topical keywords; may be empty.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// OriginalData preserves source-specific fields for audit and debugging.
	OriginalData map[string]any `json:"original_data,omitempty" yaml:"original_data,omitempty"`
}

// Validate checks the invariants a record must hold before persistence.
func (r CanonicalRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrMissingTitle
	}
	if !r.SourceType.Valid() {
		return ErrInvalidSourceType
	}
	return nil
}

// DedupKey returns the natural key used to detect duplicates. Keys are
// scoped by source type so that a news item and a youth program sharing a
// title and date never collide. A source-native id, when present, wins over
// the title+date combination.
func (r CanonicalRecord) DedupKey() string {
	if r.ExternalID != "" {
		return string(r.SourceType) + "|id:" + r.ExternalID
	}
	date := ""
	if !r.PublishedAt.IsZero() {
		date = r.PublishedAt.Format("2006-01-02")
	}
	return string(r.SourceType) + "|title:" + NormalizeTitle(r.Title) + "|" + date
}

// NormalizeTitle lowercases a title and strips punctuation so that cosmetic
// differences do not defeat deduplication.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// StoredRecord is a CanonicalRecord after it has been persisted.
type StoredRecord struct {
	CanonicalRecord `yaml:",inline"`

	// ID is the store-assigned identifier (UUIDv7).
	ID string `json:"id" yaml:"id"`

	// ViewCount is maintained by the front end; ingestion never resets it.
	ViewCount int64 `json:"view_count" yaml:"view_count"`

	// ThumbnailURL and InfographicURL are filled in by the visual-asset collaborator.
	ThumbnailURL   string `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	InfographicURL string `json:"infographic_url,omitempty" yaml:"infographic_url,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// VisualAssets carries the asset URLs produced for a stored record.
type VisualAssets struct {
	ThumbnailURL   string `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	InfographicURL string `json:"infographic_url,omitempty" yaml:"infographic_url,omitempty"`
}

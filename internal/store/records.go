// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/pdiddy/policy-feed/pkg/types"
)

var recordColumns = []string{
	"id", "dedup_key", "source_type", "external_id", "title", "content", "summary",
	"source_url", "published_at", "category", "keywords", "original_data",
	"view_count", "thumbnail_url", "infographic_url", "created_at", "updated_at",
}

// updatedOnConflict are overwritten when an upsert hits an existing row.
// id, dedup_key, source_type, view_count, asset URLs and created_at are
// left as stored.
var updatedOnConflict = []string{
	"external_id", "title", "content", "summary", "source_url", "published_at",
	"category", "keywords", "original_data", "updated_at",
}

// Upsert inserts rec, or updates the row that already holds the same key
// in the conflict column. It returns the stored row.
func (s *Store) Upsert(ctx context.Context, rec types.CanonicalRecord, conflict types.ConflictColumn) (types.StoredRecord, error) {
	if err := rec.Validate(); err != nil {
		return types.StoredRecord{}, err
	}
	switch conflict {
	case types.ConflictDedupKey, types.ConflictExternalID:
	default:
		return types.StoredRecord{}, fmt.Errorf("unsupported conflict column %q", conflict)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return types.StoredRecord{}, fmt.Errorf("generating record id: %w", err)
	}
	keywords, err := json.Marshal(nonNil(rec.Keywords))
	if err != nil {
		return types.StoredRecord{}, fmt.Errorf("encoding keywords: %w", err)
	}
	original, err := json.Marshal(rec.OriginalData)
	if err != nil {
		return types.StoredRecord{}, fmt.Errorf("encoding original data: %w", err)
	}
	if rec.OriginalData == nil {
		original = []byte("{}")
	}
	now := formatTime(s.now())

	sets := make([]string, 0, len(updatedOnConflict))
	for _, col := range updatedOnConflict {
		sets = append(sets, col+" = EXCLUDED."+col)
	}

	query, args, err := s.sb.Insert(recordsTable).
		Columns(recordColumns...).
		Values(
			id.String(), rec.DedupKey(), string(rec.SourceType), nullable(rec.ExternalID),
			rec.Title, rec.Content, rec.Summary, rec.SourceURL, formatTime(rec.PublishedAt),
			rec.Category, string(keywords), string(original),
			0, "", "", now, now,
		).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
			conflict, strings.Join(sets, ", "), strings.Join(recordColumns, ", "))).
		ToSql()
	if err != nil {
		return types.StoredRecord{}, fmt.Errorf("building upsert: %w", err)
	}

	stored, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return types.StoredRecord{}, fmt.Errorf("upserting %s: %w", rec.DedupKey(), err)
	}
	return stored, nil
}

// Exists reports whether a record with dedupKey is stored.
func (s *Store) Exists(ctx context.Context, dedupKey string) (bool, error) {
	query, args, err := s.sb.Select("1").
		From(recordsTable).
		Where(sq.Eq{"dedup_key": dedupKey}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building exists query: %w", err)
	}
	var one int
	switch err := s.db.QueryRowContext(ctx, query, args...).Scan(&one); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("checking %s: %w", dedupKey, err)
	}
	return true, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (types.StoredRecord, error) {
	query, args, err := s.sb.Select(recordColumns...).
		From(recordsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return types.StoredRecord{}, fmt.Errorf("building get query: %w", err)
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.StoredRecord{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.StoredRecord{}, fmt.Errorf("reading %s: %w", id, err)
	}
	return rec, nil
}

// IncrementViewCount adds one to the view counter and returns the new value.
func (s *Store) IncrementViewCount(ctx context.Context, id string) (int64, error) {
	query, args, err := s.sb.Update(recordsTable).
		Set("view_count", sq.Expr("view_count + 1")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING view_count").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building view count update: %w", err)
	}
	var count int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("incrementing view count of %s: %w", id, err)
	}
	return count, nil
}

// UpdateVisualAssets stores the non-empty asset URLs of assets.
func (s *Store) UpdateVisualAssets(ctx context.Context, id string, assets types.VisualAssets) error {
	upd := s.sb.Update(recordsTable).
		Set("updated_at", formatTime(s.now())).
		Where(sq.Eq{"id": id})
	if assets.ThumbnailURL != "" {
		upd = upd.Set("thumbnail_url", assets.ThumbnailURL)
	}
	if assets.InfographicURL != "" {
		upd = upd.Set("infographic_url", assets.InfographicURL)
	}
	query, args, err := upd.ToSql()
	if err != nil {
		return fmt.Errorf("building asset update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating assets of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating assets of %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// CountBySource returns the number of stored records per source type.
func (s *Store) CountBySource(ctx context.Context) (map[types.SourceType]int64, error) {
	query, args, err := s.sb.Select("source_type", "COUNT(*)").
		From(recordsTable).
		GroupBy("source_type").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building count query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.SourceType]int64)
	for rows.Next() {
		var (
			st string
			n  int64
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[types.SourceType(st)] = n
	}
	return counts, rows.Err()
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	SourceType types.SourceType
	Category   string
	Limit      uint64
	Offset     uint64
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]types.StoredRecord, error) {
	sel := s.sb.Select(recordColumns...).
		From(recordsTable).
		OrderBy("published_at DESC", "id DESC")
	if f.SourceType != "" {
		sel = sel.Where(sq.Eq{"source_type": string(f.SourceType)})
	}
	if f.Category != "" {
		sel = sel.Where(sq.Eq{"category": f.Category})
	}
	if f.Limit > 0 {
		sel = sel.Limit(f.Limit)
	}
	if f.Offset > 0 {
		sel = sel.Offset(f.Offset)
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []types.StoredRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (types.StoredRecord, error) {
	var (
		rec        types.StoredRecord
		sourceType string
		externalID sql.NullString
		dedupKey   string
		keywords   string
		original   string

		publishedAt, createdAt, updatedAt string
	)
	err := row.Scan(
		&rec.ID, &dedupKey, &sourceType, &externalID, &rec.Title, &rec.Content, &rec.Summary,
		&rec.SourceURL, &publishedAt, &rec.Category, &keywords, &original,
		&rec.ViewCount, &rec.ThumbnailURL, &rec.InfographicURL, &createdAt, &updatedAt,
	)
	if err != nil {
		return types.StoredRecord{}, err
	}
	rec.SourceType = types.SourceType(sourceType)
	rec.ExternalID = externalID.String

	if rec.PublishedAt, err = parseTime(publishedAt); err != nil {
		return types.StoredRecord{}, fmt.Errorf("parsing published_at of %s: %w", rec.ID, err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.StoredRecord{}, fmt.Errorf("parsing created_at of %s: %w", rec.ID, err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return types.StoredRecord{}, fmt.Errorf("parsing updated_at of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(keywords), &rec.Keywords); err != nil {
		return types.StoredRecord{}, fmt.Errorf("decoding keywords of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(original), &rec.OriginalData); err != nil {
		return types.StoredRecord{}, fmt.Errorf("decoding original data of %s: %w", rec.ID, err)
	}
	return rec, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

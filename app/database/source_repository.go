package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ SourceRepository = (*SourceRepo)(nil)

type SourceRepo struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// UpsertSource inserts the source or updates the one sharing its slug, and
// sets source.ID either way.
func (r *SourceRepo) UpsertSource(ctx context.Context, source *Source) error {
	now := time.Now()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sources (name, slug, url, description, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			description = excluded.description,
			updated_at = excluded.updated_at
		RETURNING id
	`, source.Name, source.Slug, source.URL, source.Description, source.Data, toUnix(now), toUnix(now)).Scan(&source.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

func (r *SourceRepo) GetSource(ctx context.Context, id int64) (*Source, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, url, description, data, created_at, updated_at
		FROM sources WHERE id = ?
	`, id)
	return scanSource(row)
}

func (r *SourceRepo) GetSourceBySlug(ctx context.Context, slug string) (*Source, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, url, description, data, created_at, updated_at
		FROM sources WHERE slug = ?
	`, slug)
	return scanSource(row)
}

// ListSources returns every source ordered by name with its published article count
func (r *SourceRepo) ListSources(ctx context.Context) ([]SourceSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.slug, s.url, s.description, s.data, s.created_at, s.updated_at,
			COUNT(a.id), COALESCE(SUM(a.views), 0)
		FROM sources s
		LEFT JOIN articles a ON a.source_id = s.id AND a.publish = 1
		GROUP BY s.id
		ORDER BY s.name COLLATE NOCASE
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	return scanSourceSummaries(rows)
}

// ListPopularSources orders sources by the views of their published articles
// dated on or after since.
func (r *SourceRepo) ListPopularSources(ctx context.Context, since time.Time, limit int) ([]SourceSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.slug, s.url, s.description, s.data, s.created_at, s.updated_at,
			COUNT(a.id), COALESCE(SUM(a.views), 0) AS views
		FROM sources s
		JOIN articles a ON a.source_id = s.id AND a.publish = 1 AND a.date >= ?
		GROUP BY s.id
		ORDER BY views DESC, s.name COLLATE NOCASE
		LIMIT ?
	`, toUnix(since), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list popular sources: %w", err)
	}
	defer rows.Close()

	return scanSourceSummaries(rows)
}

func scanSource(row *sql.Row) (*Source, error) {
	var source Source
	var created, updated int64

	err := row.Scan(&source.ID, &source.Name, &source.Slug, &source.URL, &source.Description,
		&source.Data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	source.CreatedAt = fromUnix(created)
	source.UpdatedAt = fromUnix(updated)
	return &source, nil
}

func scanSourceSummaries(rows *sql.Rows) ([]SourceSummary, error) {
	var sources []SourceSummary
	for rows.Next() {
		var s SourceSummary
		var created, updated int64
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.URL, &s.Description, &s.Data,
			&created, &updated, &s.ArticleCount, &s.Views); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		s.CreatedAt = fromUnix(created)
		s.UpdatedAt = fromUnix(updated)
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}
	return sources, nil
}

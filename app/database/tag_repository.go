package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lysyi3m/rss-catalog/app/slug"
)

var _ TagRepository = (*TagRepo)(nil)

type TagRepo struct {
	db *DB
}

func NewTagRepository(db *DB) *TagRepo {
	return &TagRepo{db: db}
}

// GetOrCreateTag looks the tag up by the slug of name. An existing tag keeps
// its original name.
func (r *TagRepo) GetOrCreateTag(ctx context.Context, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	tag := Tag{Name: name, Slug: slug.Make(name)}
	if tag.Slug == "" {
		return nil, fmt.Errorf("tag %q has an empty slug", name)
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO tags (name, slug) VALUES (?, ?)
		ON CONFLICT (slug) DO UPDATE SET slug = excluded.slug
		RETURNING id, name
	`, tag.Name, tag.Slug).Scan(&tag.ID, &tag.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create tag: %w", err)
	}

	return &tag, nil
}

func (r *TagRepo) GetTagBySlug(ctx context.Context, slug string) (*Tag, error) {
	var tag Tag

	err := r.db.QueryRowContext(ctx, `SELECT id, name, slug FROM tags WHERE slug = ?`, slug).
		Scan(&tag.ID, &tag.Name, &tag.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	return &tag, nil
}

func (r *TagRepo) ListTags(ctx context.Context) ([]TagSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, COUNT(at.article_id)
		FROM tags t
		LEFT JOIN article_tags at ON at.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name COLLATE NOCASE, t.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []TagSummary
	for rows.Next() {
		var s TagSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.ArticleCount); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	return tags, nil
}

func (r *TagRepo) TagsForArticles(ctx context.Context, articleIDs []int64) ([]Tag, error) {
	if len(articleIDs) == 0 {
		return nil, nil
	}

	placeholders, args := inClause(articleIDs)
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug
		FROM article_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE at.article_id IN (`+placeholders+`)
		ORDER BY t.name COLLATE NOCASE, t.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags for articles: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

func scanTags(rows *sql.Rows) ([]Tag, error) {
	var tags []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return tags, nil
}

func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lysyi3m/rss-catalog/app/slug"
)

var _ CategoryRepository = (*CategoryRepo)(nil)

type CategoryRepo struct {
	db *DB
}

func NewCategoryRepository(db *DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

// GetOrCreateCategory returns the category for a "/"-separated path such as
// "science/physics", creating it and any missing ancestors. Paths are
// lowercased.
func (r *CategoryRepo) GetOrCreateCategory(ctx context.Context, path string) (*Category, error) {
	var segments []string
	for _, segment := range strings.Split(strings.ToLower(path), "/") {
		if segment = strings.TrimSpace(segment); segment != "" {
			segments = append(segments, segment)
		}
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("category path %q is empty", path)
	}

	var category *Category
	var slugs []string

	for i, label := range segments {
		slugs = append(slugs, slug.Make(label))
		current := &Category{
			Name:  strings.Join(segments[:i+1], "/"),
			Slug:  strings.Join(slugs, "/"),
			Label: label,
			Level: i + 1,
		}
		if category != nil {
			current.ParentID = &category.ID
		}

		err := r.db.QueryRowContext(ctx, `
			INSERT INTO categories (name, slug, label, parent_id, level)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET name = excluded.name
			RETURNING id
		`, current.Name, current.Slug, current.Label, nullID(current.ParentID), current.Level).Scan(&current.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get or create category %q: %w", current.Name, err)
		}

		category = current
	}

	return category, nil
}

func scanCategories(rows *sql.Rows) ([]Category, error) {
	var categories []Category
	for rows.Next() {
		var c Category
		var parentID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Label, &parentID, &c.Level); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.ParentID = fromNullID(parentID)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

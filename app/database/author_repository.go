package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	_ AuthorRepository = (*AuthorRepo)(nil)
	_ AliasRepository  = (*AuthorRepo)(nil)
)

// AuthorRepo stores authors and the per-feed aliases that point at them
type AuthorRepo struct {
	db *DB
}

func NewAuthorRepository(db *DB) *AuthorRepo {
	return &AuthorRepo{db: db}
}

// FindAuthorsBySlug returns every author with the slug, oldest first. More
// than one result means the catalog holds duplicates.
func (r *AuthorRepo) FindAuthorsBySlug(ctx context.Context, slug string) ([]Author, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, slug, description, created_at
		FROM authors WHERE slug = ?
		ORDER BY created_at, id
	`, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find authors: %w", err)
	}
	defer rows.Close()

	return scanAuthors(rows)
}

func (r *AuthorRepo) CreateAuthor(ctx context.Context, author *Author) error {
	if author.CreatedAt.IsZero() {
		author.CreatedAt = time.Now()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO authors (name, slug, description, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, author.Name, author.Slug, author.Description, toUnix(author.CreatedAt)).Scan(&author.ID)
	if err != nil {
		return fmt.Errorf("failed to create author: %w", err)
	}

	return nil
}

// CreateAuthorIfMissing inserts the author only when no author has its slug,
// and reports whether it did. Check and insert are one statement.
func (r *AuthorRepo) CreateAuthorIfMissing(ctx context.Context, author *Author) (bool, error) {
	if author.CreatedAt.IsZero() {
		author.CreatedAt = time.Now()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO authors (name, slug, description, created_at)
		SELECT ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM authors WHERE slug = ?)
		RETURNING id
	`, author.Name, author.Slug, author.Description, toUnix(author.CreatedAt), author.Slug).Scan(&author.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create author: %w", err)
	}

	return true, nil
}

func (r *AuthorRepo) GetAuthor(ctx context.Context, id int64) (*Author, error) {
	var author Author
	var created int64

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, description, created_at FROM authors WHERE id = ?
	`, id).Scan(&author.ID, &author.Name, &author.Slug, &author.Description, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get author: %w", err)
	}

	author.CreatedAt = fromUnix(created)
	return &author, nil
}

// ListPublishedAuthors returns authors with at least one published article,
// ordered by name.
func (r *AuthorRepo) ListPublishedAuthors(ctx context.Context) ([]AuthorSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT au.id, au.name, au.slug, au.description, au.created_at, COUNT(a.id)
		FROM authors au
		JOIN article_authors aa ON aa.author_id = au.id
		JOIN articles a ON a.id = aa.article_id AND a.publish = 1
		GROUP BY au.id
		ORDER BY au.name COLLATE NOCASE, au.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	defer rows.Close()

	var authors []AuthorSummary
	for rows.Next() {
		var s AuthorSummary
		var created int64
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.Description, &created, &s.ArticleCount); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		s.CreatedAt = fromUnix(created)
		authors = append(authors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate authors: %w", err)
	}

	return authors, nil
}

func (r *AuthorRepo) FindAlias(ctx context.Context, name string, feedID int64) (*Alias, error) {
	var alias Alias

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, author_id, feed_id FROM aliases WHERE name = ? AND feed_id = ?
	`, name, feedID).Scan(&alias.ID, &alias.Name, &alias.AuthorID, &alias.FeedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find alias: %w", err)
	}

	return &alias, nil
}

func (r *AuthorRepo) UpsertAlias(ctx context.Context, alias *Alias) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO aliases (name, author_id, feed_id) VALUES (?, ?, ?)
		ON CONFLICT (name, feed_id) DO UPDATE SET author_id = excluded.author_id
		RETURNING id
	`, alias.Name, alias.AuthorID, alias.FeedID).Scan(&alias.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert alias: %w", err)
	}

	return nil
}

func scanAuthors(rows *sql.Rows) ([]Author, error) {
	var authors []Author
	for rows.Next() {
		var author Author
		var created int64
		if err := rows.Scan(&author.ID, &author.Name, &author.Slug, &author.Description, &created); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		author.CreatedAt = fromUnix(created)
		authors = append(authors, author)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate authors: %w", err)
	}
	return authors, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ FeedRepository = (*FeedRepo)(nil)

// FeedRepo handles database operations for feeds
type FeedRepo struct {
	db *DB
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *DB) *FeedRepo {
	return &FeedRepo{db: db}
}

const feedColumns = `id, name, source_id, url, enabled, schedule, auto_publish, load_tags,
	loaded, failures, status, etag, last_modified, created_at, updated_at`

func (r *FeedRepo) GetFeed(ctx context.Context, id int64) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)
	return scanFeedRow(row)
}

func (r *FeedRepo) GetFeedByURL(ctx context.Context, url string) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE url = ?`, url)
	return scanFeedRow(row)
}

func (r *FeedRepo) ListFeeds(ctx context.Context) ([]Feed, error) {
	return r.listFeeds(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY name COLLATE NOCASE, id`)
}

func (r *FeedRepo) ListEnabledFeeds(ctx context.Context) ([]Feed, error) {
	return r.listFeeds(ctx, `SELECT `+feedColumns+` FROM feeds WHERE enabled = 1 ORDER BY name COLLATE NOCASE, id`)
}

func (r *FeedRepo) ListDisabledFeeds(ctx context.Context) ([]Feed, error) {
	return r.listFeeds(ctx, `SELECT `+feedColumns+` FROM feeds WHERE enabled = 0 ORDER BY name COLLATE NOCASE, id`)
}

func (r *FeedRepo) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feeds`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

// UpsertFeed inserts or updates the operator-controlled settings of a feed,
// keyed by URL. Health fields are never touched here.
func (r *FeedRepo) UpsertFeed(ctx context.Context, feed *Feed) error {
	now := toUnix(time.Now())

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO feeds (name, source_id, url, enabled, schedule, auto_publish, load_tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			name = excluded.name,
			source_id = excluded.source_id,
			enabled = excluded.enabled,
			schedule = excluded.schedule,
			auto_publish = excluded.auto_publish,
			load_tags = excluded.load_tags,
			updated_at = excluded.updated_at
		RETURNING id
	`, feed.Name, feed.SourceID, feed.URL, boolToInt(feed.Enabled), feed.Schedule,
		boolToInt(feed.AutoPublish), boolToInt(feed.LoadTags), now, now).Scan(&feed.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}

	return nil
}

func (r *FeedRepo) SetFeedCategories(ctx context.Context, feedID int64, categoryIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM feed_categories WHERE feed_id = ?`, feedID); err != nil {
		return fmt.Errorf("failed to clear feed categories: %w", err)
	}

	for _, categoryID := range categoryIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO feed_categories (feed_id, category_id) VALUES (?, ?)
		`, feedID, categoryID); err != nil {
			return fmt.Errorf("failed to add feed category: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feed categories: %w", err)
	}

	return nil
}

func (r *FeedRepo) GetFeedCategories(ctx context.Context, feedID int64) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.slug, c.label, c.parent_id, c.level
		FROM categories c
		JOIN feed_categories fc ON fc.category_id = c.id
		WHERE fc.feed_id = ?
		ORDER BY c.name
	`, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed categories: %w", err)
	}
	defer rows.Close()

	return scanCategories(rows)
}

// UpdateHealth records the result of a fetch attempt. The failure counter is
// incremented in SQL so concurrent writers cannot lose an increment.
func (r *FeedRepo) UpdateHealth(ctx context.Context, feedID int64, update HealthUpdate) error {
	failures := "0"
	if update.Failed {
		failures = "failures + 1"
	}

	query := `
		UPDATE feeds SET
			failures = ` + failures + `,
			status = COALESCE(?, status),
			loaded = COALESCE(?, loaded),
			updated_at = ?`
	args := []any{nullInt(update.Status), nullUnix(update.Loaded), toUnix(time.Now())}

	if update.ReplaceValidators {
		query += `, etag = ?, last_modified = ?`
		args = append(args, update.ETag, nullUnix(update.LastModified))
	}

	query += ` WHERE id = ?`
	args = append(args, feedID)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update feed health: %w", err)
	}

	return nil
}

func (r *FeedRepo) listFeeds(ctx context.Context, query string, args ...any) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, *feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feeds: %w", err)
	}

	return feeds, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedRow(row *sql.Row) (*Feed, error) {
	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return feed, err
}

func scanFeed(row rowScanner) (*Feed, error) {
	var feed Feed
	var loaded, status, lastModified sql.NullInt64
	var created, updated int64

	err := row.Scan(&feed.ID, &feed.Name, &feed.SourceID, &feed.URL, &feed.Enabled, &feed.Schedule,
		&feed.AutoPublish, &feed.LoadTags, &loaded, &feed.Failures, &status, &feed.ETag,
		&lastModified, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan feed: %w", err)
	}

	feed.Loaded = fromNullUnix(loaded)
	feed.Status = fromNullInt(status)
	feed.LastModified = fromNullUnix(lastModified)
	feed.CreatedAt = fromUnix(created)
	feed.UpdatedAt = fromUnix(updated)

	return &feed, nil
}

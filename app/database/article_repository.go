package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var _ ArticleRepository = (*ArticleRepo)(nil)

const codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const articleColumns = `a.id, a.code, a.title, a.url, a.identifier, a.date, a.summary, a.content,
	a.source_id, a.feed_id, a.publish, a.views, a.data, a.created_at, a.updated_at`

// ArticleRepo handles database operations for articles and their relations
type ArticleRepo struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

func (r *ArticleRepo) GetArticle(ctx context.Context, id int64) (*Article, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles a WHERE a.id = ?`, id)
	return scanArticleRow(row)
}

// FindArticleByIdentifier returns the earliest article with the identifier
func (r *ArticleRepo) FindArticleByIdentifier(ctx context.Context, identifier string) (*Article, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+articleColumns+` FROM articles a
		WHERE a.identifier = ?
		ORDER BY a.id LIMIT 1
	`, identifier)
	return scanArticleRow(row)
}

// FindArticleByCode returns the most recently created article with the code
func (r *ArticleRepo) FindArticleByCode(ctx context.Context, code string) (*Article, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+articleColumns+` FROM articles a
		WHERE a.code = ?
		ORDER BY a.created_at DESC, a.id DESC LIMIT 1
	`, code)
	return scanArticleRow(row)
}

// CreateArticle inserts the article, generating a code when it has none
func (r *ArticleRepo) CreateArticle(ctx context.Context, article *Article) error {
	prepareArticle(article)
	if err := article.prepareCode(); err != nil {
		return err
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO articles (`+insertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, article.insertArgs()...).Scan(&article.ID)
	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}

	return nil
}

// CreateArticleWithRelations inserts the article and its relations in one
// transaction, unless an article with the same identifier already exists.
// It reports whether the article was created. The existence check and the
// insert are a single statement, so concurrent callers cannot both create.
func (r *ArticleRepo) CreateArticleWithRelations(ctx context.Context, article *Article, relations ArticleRelations) (bool, error) {
	prepareArticle(article)
	if err := article.prepareCode(); err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	args := append(article.insertArgs(), article.Identifier)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO articles (`+insertColumns+`)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM articles WHERE identifier = ?)
		RETURNING id
	`, args...).Scan(&article.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create article: %w", err)
	}

	if err := link(ctx, tx, "article_authors", "author_id", article.ID, relations.AuthorIDs); err != nil {
		return false, err
	}
	if err := link(ctx, tx, "article_categories", "category_id", article.ID, relations.CategoryIDs); err != nil {
		return false, err
	}
	if err := link(ctx, tx, "article_tags", "tag_id", article.ID, relations.TagIDs); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit article: %w", err)
	}

	return true, nil
}

// UpdateArticleContent writes the fields a feed is allowed to change after
// creation: title, url, date and summary.
func (r *ArticleRepo) UpdateArticleContent(ctx context.Context, article *Article) error {
	article.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		UPDATE articles SET title = ?, url = ?, date = ?, summary = ?, updated_at = ?
		WHERE id = ?
	`, article.Title, article.URL, toUnix(article.Date), article.Summary, toUnix(article.UpdatedAt), article.ID)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}

	return nil
}

func (r *ArticleRepo) UpdateArticleEnrichment(ctx context.Context, id int64, data Data, content string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles SET data = ?, content = ?, updated_at = ? WHERE id = ?
	`, data, content, toUnix(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update article enrichment: %w", err)
	}

	return nil
}

func (r *ArticleRepo) IncrementViews(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE articles SET views = views + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

func (r *ArticleRepo) AddAuthors(ctx context.Context, articleID int64, authorIDs []int64) error {
	return link(ctx, r.db, "article_authors", "author_id", articleID, authorIDs)
}

func (r *ArticleRepo) AddTags(ctx context.Context, articleID int64, tagIDs []int64) error {
	return link(ctx, r.db, "article_tags", "tag_id", articleID, tagIDs)
}

func (r *ArticleRepo) AddCategories(ctx context.Context, articleID int64, categoryIDs []int64) error {
	return link(ctx, r.db, "article_categories", "category_id", articleID, categoryIDs)
}

func (r *ArticleRepo) GetArticleAuthors(ctx context.Context, articleID int64) ([]Author, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT au.id, au.name, au.slug, au.description, au.created_at
		FROM authors au
		JOIN article_authors aa ON aa.author_id = au.id
		WHERE aa.article_id = ?
		ORDER BY au.name COLLATE NOCASE, au.id
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article authors: %w", err)
	}
	defer rows.Close()

	return scanAuthors(rows)
}

func (r *ArticleRepo) GetArticleTags(ctx context.Context, articleID int64) ([]Tag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug
		FROM tags t
		JOIN article_tags at ON at.tag_id = t.id
		WHERE at.article_id = ?
		ORDER BY t.name COLLATE NOCASE, t.id
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

func (r *ArticleRepo) GetArticleCategories(ctx context.Context, articleID int64) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.slug, c.label, c.parent_id, c.level
		FROM categories c
		JOIN article_categories ac ON ac.category_id = c.id
		WHERE ac.article_id = ?
		ORDER BY c.name
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article categories: %w", err)
	}
	defer rows.Close()

	return scanCategories(rows)
}

// ListPublished returns published articles matching filter, newest first
func (r *ArticleRepo) ListPublished(ctx context.Context, filter ArticleFilter) ([]Article, error) {
	conditions := []string{"a.publish = 1"}
	var args []any

	if filter.Since != nil {
		conditions = append(conditions, "a.date >= ?")
		args = append(args, toUnix(*filter.Since))
	}
	if filter.Until != nil {
		conditions = append(conditions, "a.date < ?")
		args = append(args, toUnix(*filter.Until))
	}
	if filter.SourceID != 0 {
		conditions = append(conditions, "a.source_id = ?")
		args = append(args, filter.SourceID)
	}
	if filter.AuthorID != 0 {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM article_authors aa WHERE aa.article_id = a.id AND aa.author_id = ?)")
		args = append(args, filter.AuthorID)
	}
	if filter.TagID != 0 {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM article_tags at WHERE at.article_id = a.id AND at.tag_id = ?)")
		args = append(args, filter.TagID)
	}
	if filter.Identifier != "" {
		conditions = append(conditions, "a.identifier = ?")
		args = append(args, filter.Identifier)
	}

	query := `SELECT ` + articleColumns + ` FROM articles a WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY a.date DESC, a.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}

	return articles, nil
}

func (r *ArticleRepo) OldestPublishedDate(ctx context.Context) (*time.Time, error) {
	var oldest sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MIN(date) FROM articles WHERE publish = 1`).Scan(&oldest); err != nil {
		return nil, fmt.Errorf("failed to get oldest article date: %w", err)
	}
	return fromNullUnix(oldest), nil
}

func (r *ArticleRepo) GetArticleCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func link(ctx context.Context, db execer, table, column string, articleID int64, ids []int64) error {
	for _, id := range ids {
		_, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+table+` (article_id, `+column+`) VALUES (?, ?)`, articleID, id)
		if err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

func scanArticleRow(row *sql.Row) (*Article, error) {
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return article, err
}

func scanArticle(row rowScanner) (*Article, error) {
	var article Article
	var feedID sql.NullInt64
	var date, created, updated int64

	err := row.Scan(&article.ID, &article.Code, &article.Title, &article.URL, &article.Identifier,
		&date, &article.Summary, &article.Content, &article.SourceID, &feedID, &article.Publish,
		&article.Views, &article.Data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	article.Date = fromUnix(date)
	article.FeedID = fromNullID(feedID)
	article.CreatedAt = fromUnix(created)
	article.UpdatedAt = fromUnix(updated)

	return &article, nil
}

const insertColumns = `code, title, url, identifier, date, summary, content, source_id,
	feed_id, publish, views, data, created_at, updated_at`

func prepareArticle(article *Article) {
	if article.Data == nil {
		article.Data = Data{}
	}

	now := time.Now()
	article.CreatedAt = now
	article.UpdatedAt = now
}

func (a *Article) prepareCode() error {
	if a.Code != "" {
		return nil
	}
	code, err := newCode(6)
	if err != nil {
		return err
	}
	a.Code = code
	return nil
}

func (a *Article) insertArgs() []any {
	return []any{a.Code, a.Title, a.URL, a.Identifier, toUnix(a.Date), a.Summary, a.Content, a.SourceID,
		nullID(a.FeedID), boolToInt(a.Publish), a.Views, a.Data, toUnix(a.CreatedAt), toUnix(a.UpdatedAt)}
}

func newCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

package database

import (
	"context"
	"time"
)

// Lookups return nil, nil when no row matches.

type SourceRepository interface {
	UpsertSource(ctx context.Context, source *Source) error
	GetSource(ctx context.Context, id int64) (*Source, error)
	GetSourceBySlug(ctx context.Context, slug string) (*Source, error)
	ListSources(ctx context.Context) ([]SourceSummary, error)
	ListPopularSources(ctx context.Context, since time.Time, limit int) ([]SourceSummary, error)
}

type FeedRepository interface {
	GetFeed(ctx context.Context, id int64) (*Feed, error)
	GetFeedByURL(ctx context.Context, url string) (*Feed, error)
	ListFeeds(ctx context.Context) ([]Feed, error)
	ListEnabledFeeds(ctx context.Context) ([]Feed, error)
	ListDisabledFeeds(ctx context.Context) ([]Feed, error)
	GetFeedCount(ctx context.Context) (int, error)

	UpsertFeed(ctx context.Context, feed *Feed) error
	SetFeedCategories(ctx context.Context, feedID int64, categoryIDs []int64) error
	GetFeedCategories(ctx context.Context, feedID int64) ([]Category, error)
	UpdateHealth(ctx context.Context, feedID int64, update HealthUpdate) error
}

type CategoryRepository interface {
	GetOrCreateCategory(ctx context.Context, path string) (*Category, error)
}

type AuthorRepository interface {
	FindAuthorsBySlug(ctx context.Context, slug string) ([]Author, error)
	CreateAuthor(ctx context.Context, author *Author) error
	CreateAuthorIfMissing(ctx context.Context, author *Author) (bool, error)
	GetAuthor(ctx context.Context, id int64) (*Author, error)
	ListPublishedAuthors(ctx context.Context) ([]AuthorSummary, error)
}

type AliasRepository interface {
	FindAlias(ctx context.Context, name string, feedID int64) (*Alias, error)
	UpsertAlias(ctx context.Context, alias *Alias) error
}

type TagRepository interface {
	GetOrCreateTag(ctx context.Context, name string) (*Tag, error)
	GetTagBySlug(ctx context.Context, slug string) (*Tag, error)
	ListTags(ctx context.Context) ([]TagSummary, error)
	// TagsForArticles returns one Tag per attachment, so a tag used by three
	// of the articles appears three times.
	TagsForArticles(ctx context.Context, articleIDs []int64) ([]Tag, error)
}

type ArticleRepository interface {
	GetArticle(ctx context.Context, id int64) (*Article, error)
	FindArticleByIdentifier(ctx context.Context, identifier string) (*Article, error)
	FindArticleByCode(ctx context.Context, code string) (*Article, error)
	CreateArticle(ctx context.Context, article *Article) error
	CreateArticleWithRelations(ctx context.Context, article *Article, relations ArticleRelations) (bool, error)
	UpdateArticleContent(ctx context.Context, article *Article) error
	UpdateArticleEnrichment(ctx context.Context, id int64, data Data, content string) error
	IncrementViews(ctx context.Context, id int64) error

	AddAuthors(ctx context.Context, articleID int64, authorIDs []int64) error
	AddTags(ctx context.Context, articleID int64, tagIDs []int64) error
	AddCategories(ctx context.Context, articleID int64, categoryIDs []int64) error
	GetArticleAuthors(ctx context.Context, articleID int64) ([]Author, error)
	GetArticleTags(ctx context.Context, articleID int64) ([]Tag, error)
	GetArticleCategories(ctx context.Context, articleID int64) ([]Category, error)

	ListPublished(ctx context.Context, filter ArticleFilter) ([]Article, error)
	OldestPublishedDate(ctx context.Context) (*time.Time, error)
	GetArticleCount(ctx context.Context) (int, error)
}

package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-catalog/app/database"
)

type UpsertResult int

const (
	UpsertCreated UpsertResult = iota + 1
	UpsertUpdated
	UpsertUnchanged
)

func (r UpsertResult) String() string {
	switch r {
	case UpsertCreated:
		return "created"
	case UpsertUpdated:
		return "updated"
	case UpsertUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// PostCreateHook runs after a new article and its relations are stored.
type PostCreateHook func(ctx context.Context, article *database.Article)

// Upserter stores normalized entries as articles, keyed by identifier.
// Authors, tags and categories are only attached when an article is created,
// so later edits to them survive re-polling.
type Upserter struct {
	articles database.ArticleRepository
	feeds    database.FeedRepository
	tags     database.TagRepository
	resolver *AuthorResolver
	onCreate PostCreateHook
}

func NewUpserter(articles database.ArticleRepository, feeds database.FeedRepository, tags database.TagRepository,
	resolver *AuthorResolver, onCreate PostCreateHook) *Upserter {
	return &Upserter{
		articles: articles,
		feeds:    feeds,
		tags:     tags,
		resolver: resolver,
		onCreate: onCreate,
	}
}

// Run expects a complete entry; see Entry.Missing.
func (u *Upserter) Run(ctx context.Context, feed *database.Feed, entry Entry) (UpsertResult, error) {
	existing, err := u.articles.FindArticleByIdentifier(ctx, entry.Identifier)
	if err != nil {
		return 0, fmt.Errorf("failed to look up article: %w", err)
	}

	if existing != nil {
		return u.update(ctx, feed, existing, entry)
	}

	return u.create(ctx, feed, entry)
}

// create stores the article with its relations in one transaction. When a
// concurrent load of another feed stored the identifier first, the entry is
// applied to that article instead.
func (u *Upserter) create(ctx context.Context, feed *database.Feed, entry Entry) (UpsertResult, error) {
	feedID := feed.ID
	article := &database.Article{
		Title:      entry.Title,
		URL:        entry.URL,
		Identifier: entry.Identifier,
		Date:       *entry.Published,
		Summary:    entry.Summary,
		SourceID:   feed.SourceID,
		FeedID:     &feedID,
		Publish:    feed.AutoPublish,
		Data:       database.Data{},
	}

	var relations database.ArticleRelations

	authors := u.resolver.ResolveAll(ctx, feed, entry.Authors)
	for _, author := range authors {
		relations.AuthorIDs = append(relations.AuthorIDs, author.ID)
	}

	categories, err := u.feeds.GetFeedCategories(ctx, feed.ID)
	if err != nil {
		return 0, err
	}
	for _, category := range categories {
		relations.CategoryIDs = append(relations.CategoryIDs, category.ID)
	}

	if feed.LoadTags {
		for _, term := range entry.Tags {
			tag, err := u.tags.GetOrCreateTag(ctx, term)
			if err != nil {
				slog.Warn("Tag not added", "feed", feed.URL, "tag", term, "error", err)
				continue
			}
			relations.TagIDs = append(relations.TagIDs, tag.ID)
		}
	}

	created, err := u.articles.CreateArticleWithRelations(ctx, article, relations)
	if err != nil {
		return 0, err
	}
	if !created {
		existing, err := u.articles.FindArticleByIdentifier(ctx, entry.Identifier)
		if err != nil {
			return 0, fmt.Errorf("failed to look up article: %w", err)
		}
		if existing == nil {
			return 0, fmt.Errorf("article %q not found after conflicting insert", entry.Identifier)
		}
		return u.update(ctx, feed, existing, entry)
	}

	slog.Info("Article added", "feed", feed.URL, "identifier", article.Identifier, "title", article.Title,
		"authors", len(authors), "categories", len(categories))

	if u.onCreate != nil {
		u.onCreate(ctx, article)
	}

	return UpsertCreated, nil
}

func (u *Upserter) update(ctx context.Context, feed *database.Feed, article *database.Article, entry Entry) (UpsertResult, error) {
	if article.Title == entry.Title &&
		article.URL == entry.URL &&
		article.Date.Unix() == entry.Published.Unix() &&
		article.Summary == entry.Summary {
		return UpsertUnchanged, nil
	}

	article.Title = entry.Title
	article.URL = entry.URL
	article.Date = *entry.Published
	article.Summary = entry.Summary

	if err := u.articles.UpdateArticleContent(ctx, article); err != nil {
		return 0, err
	}

	slog.Info("Article updated", "feed", feed.URL, "identifier", article.Identifier, "title", article.Title)

	return UpsertUpdated, nil
}

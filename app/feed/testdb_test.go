package feed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lysyi3m/rss-catalog/app/database"
)

type testRepos struct {
	db         *database.DB
	sources    *database.SourceRepo
	feeds      *database.FeedRepo
	categories *database.CategoryRepo
	authors    *database.AuthorRepo
	tags       *database.TagRepo
	articles   *database.ArticleRepo
}

func openTestRepos(t *testing.T) *testRepos {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &testRepos{
		db:         db,
		sources:    database.NewSourceRepository(db),
		feeds:      database.NewFeedRepository(db),
		categories: database.NewCategoryRepository(db),
		authors:    database.NewAuthorRepository(db),
		tags:       database.NewTagRepository(db),
		articles:   database.NewArticleRepository(db),
	}
}

func (r *testRepos) createFeed(t *testing.T, url string, configure func(*database.Feed)) *database.Feed {
	t.Helper()
	ctx := context.Background()

	source := &database.Source{Name: "Example", Slug: "example", URL: "https://example.com"}
	if err := r.sources.UpsertSource(ctx, source); err != nil {
		t.Fatal(err)
	}

	feed := &database.Feed{Name: "Example feed", SourceID: source.ID, URL: url, Enabled: true, AutoPublish: true}
	if configure != nil {
		configure(feed)
	}
	if err := r.feeds.UpsertFeed(ctx, feed); err != nil {
		t.Fatal(err)
	}

	return feed
}

func (r *testRepos) resolver() *AuthorResolver {
	return NewAuthorResolver(r.authors, r.authors)
}

func (r *testRepos) upserter(onCreate PostCreateHook) *Upserter {
	return NewUpserter(r.articles, r.feeds, r.tags, r.resolver(), onCreate)
}

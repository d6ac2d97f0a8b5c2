package feed

import (
	"context"
	"testing"
	"time"

	"github.com/lysyi3m/rss-catalog/app/database"
)

func testEntry(identifier string) Entry {
	published := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	return Entry{
		Identifier: identifier,
		Title:      "Go generics in practice",
		URL:        "https://example.com/" + identifier,
		Published:  &published,
		Summary:    "A summary",
		Authors:    []string{"Jane Doe"},
		Tags:       []string{"Go", "Generics"},
	}
}

func TestUpsertCreatesArticle(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	feed := repos.createFeed(t, "https://example.com/feed.xml", func(f *database.Feed) { f.LoadTags = true })

	category, err := repos.categories.GetOrCreateCategory(ctx, "tech/go")
	if err != nil {
		t.Fatal(err)
	}
	if err := repos.feeds.SetFeedCategories(ctx, feed.ID, []int64{category.ID}); err != nil {
		t.Fatal(err)
	}

	var hooked *database.Article
	result, err := repos.upserter(func(ctx context.Context, article *database.Article) {
		hooked = article
	}).Run(ctx, feed, testEntry("post-1"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result != UpsertCreated {
		t.Fatalf("Expected created, got: %s", result)
	}
	if hooked == nil || hooked.ID == 0 {
		t.Fatal("Expected post-create hook to receive the stored article")
	}

	article, err := repos.articles.FindArticleByIdentifier(ctx, "post-1")
	if err != nil || article == nil {
		t.Fatalf("Expected stored article, got: %v", err)
	}
	if !article.Publish {
		t.Error("Expected article to be published by auto-publish feed")
	}
	if article.Code == "" {
		t.Error("Expected article code to be generated")
	}
	if article.FeedID == nil || *article.FeedID != feed.ID || article.SourceID != feed.SourceID {
		t.Errorf("Expected article linked to feed %d, got: %v (source %d)", feed.ID, article.FeedID, article.SourceID)
	}

	authors, _ := repos.articles.GetArticleAuthors(ctx, article.ID)
	if len(authors) != 1 || authors[0].Name != "Jane Doe" {
		t.Errorf("Expected author Jane Doe, got: %+v", authors)
	}
	tags, _ := repos.articles.GetArticleTags(ctx, article.ID)
	if len(tags) != 2 {
		t.Errorf("Expected 2 tags, got: %d", len(tags))
	}
	categories, _ := repos.articles.GetArticleCategories(ctx, article.ID)
	if len(categories) != 1 || categories[0].Name != "tech/go" {
		t.Errorf("Expected category tech/go, got: %+v", categories)
	}
}

func TestUpsertSkipsTagsWhenDisabled(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	feed := repos.createFeed(t, "https://example.com/feed.xml", func(f *database.Feed) { f.AutoPublish = false })

	if _, err := repos.upserter(nil).Run(ctx, feed, testEntry("post-1")); err != nil {
		t.Fatal(err)
	}

	article, _ := repos.articles.FindArticleByIdentifier(ctx, "post-1")
	if article.Publish {
		t.Error("Expected article to stay unpublished")
	}
	tags, _ := repos.articles.GetArticleTags(ctx, article.ID)
	if len(tags) != 0 {
		t.Errorf("Expected no tags, got: %d", len(tags))
	}
}

func TestUpsertUpdatesContentOnly(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	feed := repos.createFeed(t, "https://example.com/feed.xml", func(f *database.Feed) { f.LoadTags = true })
	upserter := repos.upserter(nil)

	entry := testEntry("post-1")
	if _, err := upserter.Run(ctx, feed, entry); err != nil {
		t.Fatal(err)
	}

	result, err := upserter.Run(ctx, feed, entry)
	if err != nil {
		t.Fatal(err)
	}
	if result != UpsertUnchanged {
		t.Errorf("Expected unchanged on identical entry, got: %s", result)
	}

	changed := entry
	changed.Title = "Go generics, revisited"
	changed.Authors = []string{"Someone Else"}
	changed.Tags = []string{"Rust"}

	result, err = upserter.Run(ctx, feed, changed)
	if err != nil {
		t.Fatal(err)
	}
	if result != UpsertUpdated {
		t.Fatalf("Expected updated, got: %s", result)
	}

	article, _ := repos.articles.FindArticleByIdentifier(ctx, "post-1")
	if article.Title != "Go generics, revisited" {
		t.Errorf("Expected new title, got: %q", article.Title)
	}

	authors, _ := repos.articles.GetArticleAuthors(ctx, article.ID)
	if len(authors) != 1 || authors[0].Name != "Jane Doe" {
		t.Errorf("Expected authors untouched by update, got: %+v", authors)
	}
	tags, _ := repos.articles.GetArticleTags(ctx, article.ID)
	if len(tags) != 2 {
		t.Errorf("Expected tags untouched by update, got: %+v", tags)
	}

	count, _ := repos.articles.GetArticleCount(ctx)
	if count != 1 {
		t.Errorf("Expected 1 article, got: %d", count)
	}
}

package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, dirty, err := RunMigrations(db); err != nil || dirty {
		t.Fatalf("Failed to run migrations (dirty=%t): %v", dirty, err)
	}

	return db
}

func createTestFeed(t *testing.T, db *DB) (*Source, *Feed) {
	t.Helper()
	ctx := context.Background()

	source := &Source{Name: "Example", Slug: "example", URL: "https://example.com"}
	if err := NewSourceRepository(db).UpsertSource(ctx, source); err != nil {
		t.Fatal(err)
	}

	feed := &Feed{Name: "Example feed", SourceID: source.ID, URL: "https://example.com/feed.xml", Enabled: true}
	if err := NewFeedRepository(db).UpsertFeed(ctx, feed); err != nil {
		t.Fatal(err)
	}

	return source, feed
}

func TestNewConnectionEmptyPath(t *testing.T) {
	if _, err := NewConnection(""); err == nil {
		t.Error("Expected error for empty database path")
	}
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected no error on second run, got: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("Expected clean version 1, got: %d (dirty=%t)", version, dirty)
	}
}

func TestFeedUpsertKeepsHealth(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewFeedRepository(db)
	_, feed := createTestFeed(t, db)

	status := 500
	if err := repo.UpdateHealth(ctx, feed.ID, HealthUpdate{Failed: true, Status: &status}); err != nil {
		t.Fatal(err)
	}

	feed.Name = "Renamed"
	feed.Enabled = false
	if err := repo.UpsertFeed(ctx, feed); err != nil {
		t.Fatal(err)
	}

	stored, err := repo.GetFeed(ctx, feed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Name != "Renamed" || stored.Enabled {
		t.Errorf("Expected settings to be updated, got: %+v", stored)
	}
	if stored.Failures != 1 || stored.Status == nil || *stored.Status != 500 {
		t.Errorf("Expected health to survive upsert, got failures=%d status=%v", stored.Failures, stored.Status)
	}

	count, err := repo.GetFeedCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 feed, got: %d", count)
	}

	disabled, err := repo.ListDisabledFeeds(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(disabled) != 1 {
		t.Errorf("Expected 1 disabled feed, got: %d", len(disabled))
	}
}

func TestUpdateHealth(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewFeedRepository(db)
	_, feed := createTestFeed(t, db)

	modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	loaded := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	status := 200

	err := repo.UpdateHealth(ctx, feed.ID, HealthUpdate{
		Status:            &status,
		Loaded:            &loaded,
		ReplaceValidators: true,
		ETag:              `"v1"`,
		LastModified:      &modified,
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := repo.UpdateHealth(ctx, feed.ID, HealthUpdate{Failed: true}); err != nil {
			t.Fatal(err)
		}
	}

	stored, err := repo.GetFeed(ctx, feed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Failures != 3 {
		t.Errorf("Expected 3 failures, got: %d", stored.Failures)
	}
	if stored.ETag != `"v1"` {
		t.Errorf("Expected etag to be kept, got: %s", stored.ETag)
	}
	if stored.LastModified == nil || !stored.LastModified.Equal(modified) {
		t.Errorf("Expected last modified %v, got: %v", modified, stored.LastModified)
	}
	if stored.Loaded == nil || !stored.Loaded.Equal(loaded) {
		t.Errorf("Expected loaded %v, got: %v", loaded, stored.Loaded)
	}

	if err := repo.UpdateHealth(ctx, feed.ID, HealthUpdate{}); err != nil {
		t.Fatal(err)
	}
	stored, _ = repo.GetFeed(ctx, feed.ID)
	if stored.Failures != 0 {
		t.Errorf("Expected failures reset to 0, got: %d", stored.Failures)
	}
}

func TestGetOrCreateCategoryBuildsTree(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCategoryRepository(db)

	child, err := repo.GetOrCreateCategory(ctx, "Science / Physics")
	if err != nil {
		t.Fatal(err)
	}
	if child.Name != "science/physics" || child.Label != "physics" || child.Level != 2 {
		t.Errorf("Unexpected category: %+v", child)
	}
	if child.ParentID == nil {
		t.Fatal("Expected child category to have a parent")
	}

	parent, err := repo.GetOrCreateCategory(ctx, "science")
	if err != nil {
		t.Fatal(err)
	}
	if parent.ID != *child.ParentID {
		t.Errorf("Expected parent id %d, got: %d", *child.ParentID, parent.ID)
	}

	if _, err := repo.GetOrCreateCategory(ctx, " / "); err == nil {
		t.Error("Expected error for empty category path")
	}
}

func TestGetOrCreateTagBySlug(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewTagRepository(db)

	first, err := repo.GetOrCreateTag(ctx, "Machine Learning")
	if err != nil {
		t.Fatal(err)
	}
	second, err := repo.GetOrCreateTag(ctx, "machine learning")
	if err != nil {
		t.Fatal(err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected same tag for same slug, got: %d and %d", first.ID, second.ID)
	}
	if second.Name != "Machine Learning" {
		t.Errorf("Expected original name to be kept, got: %s", second.Name)
	}

	if _, err := repo.GetOrCreateTag(ctx, "!!!"); err == nil {
		t.Error("Expected error for tag without slug")
	}
}

func TestFindAuthorsBySlugOrdersByCreation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAuthorRepository(db)

	older := &Author{Name: "Jane Doe", Slug: "jane-doe", CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := &Author{Name: "jane doe", Slug: "jane-doe", CreatedAt: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := repo.CreateAuthor(ctx, newer); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateAuthor(ctx, older); err != nil {
		t.Fatal(err)
	}

	authors, err := repo.FindAuthorsBySlug(ctx, "jane-doe")
	if err != nil {
		t.Fatal(err)
	}
	if len(authors) != 2 {
		t.Fatalf("Expected 2 authors, got: %d", len(authors))
	}
	if authors[0].ID != older.ID {
		t.Errorf("Expected oldest author first, got: %+v", authors[0])
	}
}

func TestAliasScopedToFeed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAuthorRepository(db)
	_, feed := createTestFeed(t, db)

	author := &Author{Name: "Jane Doe", Slug: "jane-doe"}
	if err := repo.CreateAuthor(ctx, author); err != nil {
		t.Fatal(err)
	}

	if err := repo.UpsertAlias(ctx, &Alias{Name: "jdoe", AuthorID: author.ID, FeedID: feed.ID}); err != nil {
		t.Fatal(err)
	}

	alias, err := repo.FindAlias(ctx, "jdoe", feed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if alias == nil || alias.AuthorID != author.ID {
		t.Fatalf("Expected alias for author %d, got: %+v", author.ID, alias)
	}

	other, err := repo.FindAlias(ctx, "jdoe", feed.ID+1)
	if err != nil {
		t.Fatal(err)
	}
	if other != nil {
		t.Errorf("Expected no alias on another feed, got: %+v", other)
	}
}

func TestListPublishedFilters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	articles := NewArticleRepository(db)
	tags := NewTagRepository(db)
	source, feed := createTestFeed(t, db)

	day := func(d int) time.Time { return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC) }

	create := func(identifier string, date time.Time, publish bool) *Article {
		article := &Article{
			Title:      identifier,
			URL:        "https://example.com/" + identifier,
			Identifier: identifier,
			Date:       date,
			SourceID:   source.ID,
			FeedID:     &feed.ID,
			Publish:    publish,
		}
		if err := articles.CreateArticle(ctx, article); err != nil {
			t.Fatal(err)
		}
		return article
	}

	first := create("first", day(1), true)
	second := create("second", day(5), true)
	create("hidden", day(6), false)

	tag, err := tags.GetOrCreateTag(ctx, "go")
	if err != nil {
		t.Fatal(err)
	}
	if err := articles.AddTags(ctx, second.ID, []int64{tag.ID, tag.ID}); err != nil {
		t.Fatal(err)
	}

	all, err := articles.ListPublished(ctx, ArticleFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Errorf("Expected 2 published articles newest first, got: %d", len(all))
	}

	since, until := day(1), day(5)
	windowed, err := articles.ListPublished(ctx, ArticleFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatal(err)
	}
	if len(windowed) != 1 || windowed[0].ID != first.ID {
		t.Errorf("Expected only the first article in [since, until), got: %d", len(windowed))
	}

	tagged, err := articles.ListPublished(ctx, ArticleFilter{TagID: tag.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(tagged) != 1 || tagged[0].ID != second.ID {
		t.Errorf("Expected only the tagged article, got: %d", len(tagged))
	}

	oldest, err := articles.OldestPublishedDate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if oldest == nil || !oldest.Equal(day(1)) {
		t.Errorf("Expected oldest date %v, got: %v", day(1), oldest)
	}

	found, err := articles.FindArticleByIdentifier(ctx, "hidden")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || found.Publish {
		t.Errorf("Expected to find unpublished article by identifier, got: %+v", found)
	}

	attached, err := tags.TagsForArticles(ctx, []int64{first.ID, second.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(attached) != 1 {
		t.Errorf("Expected 1 tag attachment, got: %d", len(attached))
	}
}

func TestArticleCodeAndViews(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewArticleRepository(db)
	source, _ := createTestFeed(t, db)

	article := &Article{
		Title:      "Manual",
		URL:        "https://example.com/manual",
		Identifier: "manual",
		Date:       time.Now(),
		SourceID:   source.ID,
		Data:       Data{"og:title": "Manual"},
	}
	if err := repo.CreateArticle(ctx, article); err != nil {
		t.Fatal(err)
	}
	if len(article.Code) != 6 {
		t.Errorf("Expected 6 character code, got: %q", article.Code)
	}

	if err := repo.IncrementViews(ctx, article.ID); err != nil {
		t.Fatal(err)
	}

	stored, err := repo.FindArticleByCode(ctx, article.Code)
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil {
		t.Fatal("Expected article by code")
	}
	if stored.Views != 1 {
		t.Errorf("Expected 1 view, got: %d", stored.Views)
	}
	if stored.FeedID != nil {
		t.Errorf("Expected manual article without feed, got: %v", *stored.FeedID)
	}
	if stored.Data["og:title"] != "Manual" {
		t.Errorf("Expected data to round trip, got: %v", stored.Data)
	}
}

func TestCreateArticleWithRelations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	articles := NewArticleRepository(db)
	authors := NewAuthorRepository(db)
	tags := NewTagRepository(db)
	source, feed := createTestFeed(t, db)

	author := &Author{Name: "Jane Doe", Slug: "jane-doe"}
	if err := authors.CreateAuthor(ctx, author); err != nil {
		t.Fatal(err)
	}
	tag, err := tags.GetOrCreateTag(ctx, "Go")
	if err != nil {
		t.Fatal(err)
	}

	newArticle := func() *Article {
		return &Article{
			Title:      "Hello",
			URL:        "https://example.com/hello",
			Identifier: "urn:hello",
			Date:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			SourceID:   source.ID,
			FeedID:     &feed.ID,
		}
	}

	article := newArticle()
	created, err := articles.CreateArticleWithRelations(ctx, article, ArticleRelations{
		AuthorIDs: []int64{author.ID},
		TagIDs:    []int64{tag.ID},
	})
	if err != nil || !created {
		t.Fatalf("Expected article to be created, got created=%t err=%v", created, err)
	}
	if article.ID == 0 || article.Code == "" {
		t.Errorf("Expected id and code to be set, got: %+v", article)
	}

	linkedAuthors, _ := articles.GetArticleAuthors(ctx, article.ID)
	linkedTags, _ := articles.GetArticleTags(ctx, article.ID)
	if len(linkedAuthors) != 1 || len(linkedTags) != 1 {
		t.Errorf("Expected 1 author and 1 tag, got: %d and %d", len(linkedAuthors), len(linkedTags))
	}

	created, err = articles.CreateArticleWithRelations(ctx, newArticle(), ArticleRelations{})
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("Expected an existing identifier not to be created again")
	}
	if count, _ := articles.GetArticleCount(ctx); count != 1 {
		t.Errorf("Expected 1 article, got: %d", count)
	}
}

func TestCreateArticleWithRelationsRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	articles := NewArticleRepository(db)
	source, feed := createTestFeed(t, db)

	article := &Article{
		Title:      "Hello",
		URL:        "https://example.com/hello",
		Identifier: "urn:hello",
		Date:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		SourceID:   source.ID,
		FeedID:     &feed.ID,
	}

	// Tag 999 does not exist, so the foreign key rejects the link
	if _, err := articles.CreateArticleWithRelations(ctx, article, ArticleRelations{TagIDs: []int64{999}}); err == nil {
		t.Fatal("Expected error for missing tag")
	}

	stored, err := articles.FindArticleByIdentifier(ctx, "urn:hello")
	if err != nil {
		t.Fatal(err)
	}
	if stored != nil {
		t.Errorf("Expected no article after failed relations, got: %+v", stored)
	}
}

func TestCreateAuthorIfMissingConcurrent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewAuthorRepository(db)

	var wg sync.WaitGroup
	results := make(chan bool, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := repo.CreateAuthorIfMissing(ctx, &Author{Name: "Jane Doe", Slug: "jane-doe"})
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			results <- created
		}()
	}
	wg.Wait()
	close(results)

	createdCount := 0
	for created := range results {
		if created {
			createdCount++
		}
	}
	if createdCount != 1 {
		t.Errorf("Expected exactly one insert, got: %d", createdCount)
	}

	authors, err := repo.FindAuthorsBySlug(ctx, "jane-doe")
	if err != nil {
		t.Fatal(err)
	}
	if len(authors) != 1 {
		t.Errorf("Expected 1 author, got: %d", len(authors))
	}
}

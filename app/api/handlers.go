package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-catalog/app/catalog"
	"github.com/lysyi3m/rss-catalog/app/database"
	"github.com/lysyi3m/rss-catalog/app/feed"
	"github.com/lysyi3m/rss-catalog/app/tasks"
)

const (
	exportSize      = 50
	listSize        = 100
	popularSize     = 20
	popularInterval = 28 * 24 * time.Hour
)

func NewHandler(repos Repositories, configCache *feed.ConfigCache, loader *feed.Loader,
	scheduler tasks.TaskSchedulerInterface, config HandlerConfig) *Handler {
	return &Handler{
		repos:       repos,
		days:        catalog.NewDayPaginator(repos.Articles, config.DaysPerPage),
		generator:   NewGenerator(),
		configCache: configCache,
		loader:      loader,
		scheduler:   scheduler,
		config:      config,
		now:         time.Now,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	health := map[string]interface{}{
		"timestamp": h.now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.repos.Feeds.GetFeedCount(ctx); err == nil {
		health["feeds"] = feedCount
	}
	if articleCount, err := h.repos.Articles.GetArticleCount(ctx); err == nil {
		health["articles"] = articleCount
	}
	if h.configCache != nil {
		health["loaded_configurations"] = h.configCache.GetConfigCount()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.repos.Feeds.ListFeeds(c.Request.Context())
	if err != nil {
		h.databaseError(c, "list_feeds", err)
		return
	}

	responses := make([]FeedResponse, len(feeds))
	for i, f := range feeds {
		responses[i] = newFeedResponse(f)
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": responses,
		"total": len(responses),
	})
}

// ListArticles serves one day page together with the weighted tags of the
// articles on it.
func (h *Handler) ListArticles(c *gin.Context) {
	ctx := c.Request.Context()

	number, ok := pageParam(c)
	if !ok {
		return
	}

	page, err := h.days.Page(ctx, number)
	if errors.Is(err, catalog.ErrInvalidPage) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
		return
	}
	if err != nil {
		h.databaseError(c, "list_articles", err)
		return
	}

	numPages, err := h.days.NumPages(ctx)
	if err != nil {
		h.databaseError(c, "count_pages", err)
		return
	}

	ids := make([]int64, len(page.Articles))
	for i, article := range page.Articles {
		ids[i] = article.ID
	}
	tags, err := h.repos.Tags.TagsForArticles(ctx, ids)
	if err != nil {
		h.databaseError(c, "article_tags", err)
		return
	}

	weighted := catalog.Weigh(tags)
	tagResponses := make([]TagResponse, len(weighted))
	for i, tag := range weighted {
		tagResponses[i] = TagResponse{Name: tag.Name, Slug: tag.Slug, Count: tag.Count, Weight: tag.Weight}
	}

	c.JSON(http.StatusOK, gin.H{
		"page":      page.Number,
		"num_pages": numPages,
		"since":     page.Since,
		"until":     page.Until,
		"articles":  newArticleResponses(page.Articles),
		"tags":      tagResponses,
	})
}

func (h *Handler) ExportArticles(c *gin.Context) {
	ctx := c.Request.Context()

	articles, err := h.repos.Articles.ListPublished(ctx, database.ArticleFilter{Limit: exportSize})
	if err != nil {
		h.databaseError(c, "export_articles", err)
		return
	}

	items := make([]ExportItem, 0, len(articles))
	for _, article := range articles {
		item := ExportItem{Article: article}

		authors, err := h.repos.Articles.GetArticleAuthors(ctx, article.ID)
		if err != nil {
			h.databaseError(c, "article_authors", err)
			return
		}
		for _, author := range authors {
			item.Authors = append(item.Authors, author.Name)
		}

		tags, err := h.repos.Articles.GetArticleTags(ctx, article.ID)
		if err != nil {
			h.databaseError(c, "article_tags", err)
			return
		}
		for _, tag := range tags {
			item.Tags = append(item.Tags, tag.Name)
		}

		items = append(items, item)
	}

	base := fmt.Sprintf("%s://%s", scheme(c), c.Request.Host)
	rss, err := h.generator.Run(Channel{
		Title:    "RSS Catalog",
		Link:     base + "/",
		SelfLink: base + "/articles.rss",
		Version:  h.config.Version,
	}, items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) ListAuthors(c *gin.Context) {
	authors, err := h.repos.Authors.ListPublishedAuthors(c.Request.Context())
	if err != nil {
		h.databaseError(c, "list_authors", err)
		return
	}

	alphabetPage(c, authors, h.config.PageSize,
		func(a database.AuthorSummary) string { return a.Name },
		func(a database.AuthorSummary) IndexedResponse {
			return IndexedResponse{Name: a.Name, Slug: a.Slug, Count: a.ArticleCount}
		})
}

func (h *Handler) GetAuthor(c *gin.Context) {
	ctx := c.Request.Context()

	authors, err := h.repos.Authors.FindAuthorsBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.databaseError(c, "get_author", err)
		return
	}
	if len(authors) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Author not found"})
		return
	}
	author := authors[0]

	articles, err := h.repos.Articles.ListPublished(ctx, database.ArticleFilter{AuthorID: author.ID, Limit: listSize})
	if err != nil {
		h.databaseError(c, "author_articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":        author.Name,
		"slug":        author.Slug,
		"description": author.Description,
		"articles":    newArticleResponses(articles),
	})
}

func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.repos.Sources.ListSources(c.Request.Context())
	if err != nil {
		h.databaseError(c, "list_sources", err)
		return
	}

	alphabetPage(c, sources, h.config.PageSize,
		func(s database.SourceSummary) string { return s.Name },
		func(s database.SourceSummary) IndexedResponse {
			return IndexedResponse{Name: s.Name, Slug: s.Slug, Count: s.ArticleCount}
		})
}

// ListPopularSources ranks sources by the views of their recent articles
func (h *Handler) ListPopularSources(c *gin.Context) {
	sources, err := h.repos.Sources.ListPopularSources(c.Request.Context(), h.now().Add(-popularInterval), popularSize)
	if err != nil {
		h.databaseError(c, "popular_sources", err)
		return
	}

	responses := make([]gin.H, len(sources))
	for i, source := range sources {
		responses[i] = gin.H{
			"name":          source.Name,
			"slug":          source.Slug,
			"url":           source.URL,
			"article_count": source.ArticleCount,
			"views":         source.Views,
		}
	}

	c.JSON(http.StatusOK, gin.H{"sources": responses})
}

func (h *Handler) GetSource(c *gin.Context) {
	ctx := c.Request.Context()

	source, err := h.repos.Sources.GetSourceBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.databaseError(c, "get_source", err)
		return
	}
	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	articles, err := h.repos.Articles.ListPublished(ctx, database.ArticleFilter{SourceID: source.ID, Limit: listSize})
	if err != nil {
		h.databaseError(c, "source_articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":        source.Name,
		"slug":        source.Slug,
		"url":         source.URL,
		"description": source.Description,
		"articles":    newArticleResponses(articles),
	})
}

func (h *Handler) ListTags(c *gin.Context) {
	tags, err := h.repos.Tags.ListTags(c.Request.Context())
	if err != nil {
		h.databaseError(c, "list_tags", err)
		return
	}

	alphabetPage(c, tags, h.config.PageSize,
		func(t database.TagSummary) string { return t.Name },
		func(t database.TagSummary) IndexedResponse {
			return IndexedResponse{Name: t.Name, Slug: t.Slug, Count: t.ArticleCount}
		})
}

func (h *Handler) GetTag(c *gin.Context) {
	ctx := c.Request.Context()

	tag, err := h.repos.Tags.GetTagBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.databaseError(c, "get_tag", err)
		return
	}
	if tag == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	articles, err := h.repos.Articles.ListPublished(ctx, database.ArticleFilter{TagID: tag.ID, Limit: listSize})
	if err != nil {
		h.databaseError(c, "tag_articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":     tag.Name,
		"slug":     tag.Slug,
		"articles": newArticleResponses(articles),
	})
}

// FollowArticle counts a view and redirects to the article
func (h *Handler) FollowArticle(c *gin.Context) {
	article, ok := h.countView(c, c.Param("code"))
	if !ok {
		return
	}
	c.Redirect(http.StatusFound, article.URL)
}

// RecordClick counts a view for links that go straight to the article
func (h *Handler) RecordClick(c *gin.Context) {
	code := c.PostForm("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code parameter"})
		return
	}
	if _, ok := h.countView(c, code); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	ctx := c.Request.Context()

	feeds, err := h.repos.Feeds.ListFeeds(ctx)
	if err != nil {
		h.databaseError(c, "list_feeds", err)
		return
	}

	details := make([]FeedDetailsResponse, 0, len(feeds))
	for _, f := range feeds {
		categories, err := h.repos.Feeds.GetFeedCategories(ctx, f.ID)
		if err != nil {
			h.databaseError(c, "feed_categories", err)
			return
		}

		names := make([]string, len(categories))
		for i, category := range categories {
			names[i] = category.Name
		}

		details = append(details, FeedDetailsResponse{
			FeedResponse: newFeedResponse(f),
			SourceID:     f.SourceID,
			Schedule:     f.Schedule,
			AutoPublish:  f.AutoPublish,
			LoadTags:     f.LoadTags,
			ETag:         f.ETag,
			LastModified: f.LastModified,
			Categories:   names,
			UpdatedAt:    f.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": details,
		"total": len(details),
	})
}

// APILoadFeed queues an immediate load of one feed
func (h *Handler) APILoadFeed(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feed id"})
		return
	}

	f, err := h.repos.Feeds.GetFeed(ctx, id)
	if err != nil {
		h.databaseError(c, "get_feed", err)
		return
	}
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	task := tasks.NewLoadFeedTask(f.ID, h.repos.Feeds, h.loader)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing load task", "feed", f.URL, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue load task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"feed": gin.H{
			"id":   f.ID,
			"name": f.Name,
			"url":  f.URL,
		},
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) countView(c *gin.Context, code string) (*database.Article, bool) {
	ctx := c.Request.Context()

	article, err := h.repos.Articles.FindArticleByCode(ctx, code)
	if err != nil {
		h.databaseError(c, "find_article", err)
		return nil, false
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return nil, false
	}

	if err := h.repos.Articles.IncrementViews(ctx, article.ID); err != nil {
		h.databaseError(c, "increment_views", err)
		return nil, false
	}

	return article, true
}

func (h *Handler) databaseError(c *gin.Context, operation string, err error) {
	slog.Error("Database error", "operation", operation, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
}

func alphabetPage[T any](c *gin.Context, items []T, perPage int, key func(T) string, respond func(T) IndexedResponse) {
	number, ok := pageParam(c)
	if !ok {
		return
	}

	paginator := catalog.NewAlphabetPaginator(items, perPage, key)
	page, err := paginator.Page(number)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
		return
	}

	responses := make([]IndexedResponse, len(page))
	for i, indexed := range page {
		responses[i] = respond(indexed.Item)
		responses[i].Letter = indexed.Letter
		responses[i].FirstPage = indexed.FirstPage
	}

	c.JSON(http.StatusOK, gin.H{
		"page":      number,
		"num_pages": paginator.NumPages(),
		"index":     paginator.Index(),
		"items":     responses,
	})
}

func pageParam(c *gin.Context) (int, bool) {
	value := c.DefaultQuery("page", "1")
	number, err := strconv.Atoi(value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page parameter"})
		return 0, false
	}
	return number, true
}

func scheme(c *gin.Context) string {
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}

package api

import (
	"time"

	"github.com/lysyi3m/rss-catalog/app/catalog"
	"github.com/lysyi3m/rss-catalog/app/database"
	"github.com/lysyi3m/rss-catalog/app/feed"
	"github.com/lysyi3m/rss-catalog/app/tasks"
)

type GeneratorInterface interface {
	Run(channel Channel, items []ExportItem) (string, error)
}

var _ GeneratorInterface = (*Generator)(nil)

type Repositories struct {
	Sources  database.SourceRepository
	Feeds    database.FeedRepository
	Authors  database.AuthorRepository
	Tags     database.TagRepository
	Articles database.ArticleRepository
}

type HandlerConfig struct {
	DaysPerPage int
	PageSize    int
	Version     string
}

type Handler struct {
	repos       Repositories
	days        *catalog.DayPaginator
	generator   GeneratorInterface
	configCache *feed.ConfigCache
	loader      *feed.Loader
	scheduler   tasks.TaskSchedulerInterface
	config      HandlerConfig
	now         func() time.Time
}

type ArticleResponse struct {
	Code    string        `json:"code"`
	Title   string        `json:"title"`
	URL     string        `json:"url"`
	Date    time.Time     `json:"date"`
	Summary string        `json:"summary,omitempty"`
	Views   int           `json:"views"`
	Data    database.Data `json:"data,omitempty"`
}

type TagResponse struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Count  int    `json:"count"`
	Weight int    `json:"weight,omitempty"`
}

type IndexedResponse struct {
	Letter    string `json:"letter,omitempty"`
	FirstPage int    `json:"first_page,omitempty"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Count     int    `json:"article_count"`
}

type FeedResponse struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	URL      string     `json:"url"`
	Enabled  bool       `json:"enabled"`
	Loaded   *time.Time `json:"loaded"`
	Failures int        `json:"failures"`
	Status   *int       `json:"status"`
}

type FeedDetailsResponse struct {
	FeedResponse
	SourceID     int64      `json:"source_id"`
	Schedule     string     `json:"schedule"`
	AutoPublish  bool       `json:"auto_publish"`
	LoadTags     bool       `json:"load_tags"`
	ETag         string     `json:"etag,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	Categories   []string   `json:"categories"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func newArticleResponse(article database.Article) ArticleResponse {
	return ArticleResponse{
		Code:    article.Code,
		Title:   article.Title,
		URL:     article.URL,
		Date:    article.Date,
		Summary: article.Summary,
		Views:   article.Views,
		Data:    article.Data,
	}
}

func newArticleResponses(articles []database.Article) []ArticleResponse {
	responses := make([]ArticleResponse, len(articles))
	for i, article := range articles {
		responses[i] = newArticleResponse(article)
	}
	return responses
}

func newFeedResponse(f database.Feed) FeedResponse {
	return FeedResponse{
		ID:       f.ID,
		Name:     f.Name,
		URL:      f.URL,
		Enabled:  f.Enabled,
		Loaded:   f.Loaded,
		Failures: f.Failures,
		Status:   f.Status,
	}
}

package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-catalog/app/feed"
)

type EnrichArticleTask struct {
	Task
	ArticleID int64
	enricher  *feed.Enricher
}

func NewEnrichArticleTask(articleID int64, url string, enricher *feed.Enricher) *EnrichArticleTask {
	return &EnrichArticleTask{
		Task:      NewTask(TaskTypeEnrichArticle, url),
		ArticleID: articleID,
		enricher:  enricher,
	}
}

func (t *EnrichArticleTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.enricher.Run(ctx, t.ArticleID); err != nil {
		return fmt.Errorf("failed to enrich article: %w", err)
	}

	slog.Info("Task completed",
		"type", "EnrichArticle",
		"article_id", t.ArticleID,
		"url", t.Target,
		"duration", t.GetDuration())

	return nil
}

package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-catalog/app/feed"
)

type SyncCatalogTask struct {
	Task
	SourceConfig *feed.SourceConfig
	syncer       *feed.CatalogSyncer
}

func NewSyncCatalogTask(sourceConfig *feed.SourceConfig, syncer *feed.CatalogSyncer) *SyncCatalogTask {
	return &SyncCatalogTask{
		Task:         NewTask(TaskTypeSyncCatalog, sourceConfig.Slug),
		SourceConfig: sourceConfig,
		syncer:       syncer,
	}
}

func (t *SyncCatalogTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.syncer.Sync(ctx, t.SourceConfig); err != nil {
		return fmt.Errorf("failed to sync source config to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncCatalog",
		"source", t.SourceConfig.Slug,
		"feeds", len(t.SourceConfig.Feeds),
		"duration", t.GetDuration())

	return nil
}

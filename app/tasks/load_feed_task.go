package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/lysyi3m/rss-catalog/app/database"
	"github.com/lysyi3m/rss-catalog/app/feed"
)

// LoadFeedTask polls one feed regardless of its schedule or enabled flag.
type LoadFeedTask struct {
	Task
	FeedID   int64
	feedRepo database.FeedRepository
	loader   *feed.Loader
}

func NewLoadFeedTask(feedID int64, feedRepo database.FeedRepository, loader *feed.Loader) *LoadFeedTask {
	return &LoadFeedTask{
		Task:     NewTask(TaskTypeLoadFeed, strconv.FormatInt(feedID, 10)),
		FeedID:   feedID,
		feedRepo: feedRepo,
		loader:   loader,
	}
}

func (t *LoadFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f, err := t.feedRepo.GetFeed(ctx, t.FeedID)
	if err != nil {
		return fmt.Errorf("failed to get feed: %w", err)
	}
	if f == nil {
		slog.Warn("Feed not found, skipping", "feed_id", t.FeedID)
		return nil
	}
	t.Target = f.URL

	stats, err := t.loader.LoadFeed(ctx, f)
	if errors.Is(err, feed.ErrFeedBusy) {
		slog.Info("Feed is already loading, skipping", "feed", f.URL)
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "LoadFeed",
		"feed", f.URL,
		"duration", t.GetDuration(),
		"outcome", stats.Outcome.String(),
		"entries", stats.Entries,
		"created", stats.Created,
		"updated", stats.Updated,
		"incomplete", stats.Incomplete)

	return nil
}

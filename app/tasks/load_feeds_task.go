package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-catalog/app/feed"
)

// LoadFeedsTask polls every feed due at the time it was queued. It is not
// retried: the next tick polls again.
type LoadFeedsTask struct {
	Task
	At     time.Time
	loader *feed.Loader
}

func NewLoadFeedsTask(at time.Time, loader *feed.Loader) *LoadFeedsTask {
	task := &LoadFeedsTask{
		Task:   NewTask(TaskTypeLoadFeeds, at.Format(time.RFC3339)),
		At:     at,
		loader: loader,
	}
	task.MaxRetries = 0
	return task
}

func (t *LoadFeedsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	due, err := t.loader.LoadDue(ctx, t.At)
	if err != nil {
		return fmt.Errorf("failed to load due feeds: %w", err)
	}

	slog.Info("Task completed",
		"type", "LoadFeeds",
		"at", t.At,
		"due", due,
		"duration", t.GetDuration())

	return nil
}

package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-catalog/app/database"
	"github.com/lysyi3m/rss-catalog/app/lock"
)

// ErrFeedBusy is returned when another worker is already loading the feed.
var ErrFeedBusy = errors.New("feed is already being loaded")

type LoaderConfig struct {
	DefaultSchedule string
	Workers         int
	LockTTL         time.Duration
}

// Loader runs the ingestion pipeline: fetch, record health, normalize, upsert.
type Loader struct {
	feeds      database.FeedRepository
	fetcher    FeedFetcher
	normalizer *Normalizer
	upserter   *Upserter
	health     *HealthTracker
	locker     lock.Locker
	config     LoaderConfig
	now        func() time.Time
}

func NewLoader(feeds database.FeedRepository, fetcher FeedFetcher, normalizer *Normalizer, upserter *Upserter,
	health *HealthTracker, locker lock.Locker, config LoaderConfig) *Loader {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 10 * time.Minute
	}

	return &Loader{
		feeds:      feeds,
		fetcher:    fetcher,
		normalizer: normalizer,
		upserter:   upserter,
		health:     health,
		locker:     locker,
		config:     config,
		now:        time.Now,
	}
}

// LoadFeed polls one feed. Fetch, parse and entry problems are recorded on
// the feed or logged; only storage and locking errors are returned.
func (l *Loader) LoadFeed(ctx context.Context, feed *database.Feed) (LoadStats, error) {
	var stats LoadStats

	release, ok, err := l.locker.TryLock(ctx, fmt.Sprintf("feed:%d", feed.ID), l.config.LockTTL)
	if err != nil {
		return stats, fmt.Errorf("failed to lock feed: %w", err)
	}
	if !ok {
		return stats, ErrFeedBusy
	}
	defer release()

	outcome := l.fetcher.Fetch(ctx, FetchRequest{
		URL:          feed.URL,
		ETag:         feed.ETag,
		LastModified: feed.LastModified,
	})
	stats.Outcome = outcome.Kind

	process, err := l.health.Apply(ctx, feed, outcome, l.now())
	if err != nil {
		return stats, fmt.Errorf("failed to record feed health: %w", err)
	}
	if !process {
		return stats, nil
	}

	stats.Entries = len(outcome.Items)

	for _, item := range outcome.Items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		entry := l.normalizer.Run(item)
		if missing := entry.Missing(); len(missing) > 0 {
			slog.Info("Article incomplete", "feed", feed.URL, "identifier", entry.Identifier, "title", entry.Title, "missing", missing)
			stats.Incomplete++
			continue
		}

		result, err := l.upserter.Run(ctx, feed, entry)
		if err != nil {
			slog.Error("Article not saved", "feed", feed.URL, "identifier", entry.Identifier, "error", err)
			stats.Errors++
			continue
		}

		switch result {
		case UpsertCreated:
			stats.Created++
		case UpsertUpdated:
			stats.Updated++
		case UpsertUnchanged:
			stats.Unchanged++
		}
	}

	return stats, nil
}

// LoadDue polls every enabled feed whose schedule matches now, in parallel.
// It returns the number of feeds that were due.
func (l *Loader) LoadDue(ctx context.Context, now time.Time) (int, error) {
	feeds, err := l.feeds.ListEnabledFeeds(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list feeds: %w", err)
	}

	due := DueFeeds(feeds, l.config.DefaultSchedule, now)
	slog.Debug("Feeds due", "enabled", len(feeds), "due", len(due))

	var g errgroup.Group
	g.SetLimit(l.config.Workers)

	for i := range due {
		feed := &due[i]
		g.Go(func() error {
			start := time.Now()
			stats, err := l.LoadFeed(ctx, feed)
			switch {
			case errors.Is(err, ErrFeedBusy):
				slog.Debug("Feed skipped", "feed", feed.URL, "reason", err)
			case err != nil:
				slog.Error("Feed load failed", "feed", feed.URL, "error", err)
			default:
				slog.Info("Feed processed",
					"feed", feed.URL,
					"outcome", stats.Outcome.String(),
					"duration", time.Since(start),
					"entries", stats.Entries,
					"created", stats.Created,
					"updated", stats.Updated,
					"incomplete", stats.Incomplete,
					"errors", stats.Errors)
			}
			return nil
		})
	}

	return len(due), g.Wait()
}

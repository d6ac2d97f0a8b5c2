package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-catalog/app/database"
)

// HealthTracker records fetch outcomes on feeds. Failures only bump the
// counter; the next scheduled poll is the retry.
type HealthTracker struct {
	feeds database.FeedRepository
}

func NewHealthTracker(feeds database.FeedRepository) *HealthTracker {
	return &HealthTracker{feeds: feeds}
}

// Apply persists the outcome, updates feed in place, and reports whether the
// outcome's entries should be processed.
func (h *HealthTracker) Apply(ctx context.Context, feed *database.Feed, outcome *FetchOutcome, now time.Time) (bool, error) {
	update, process := healthUpdate(outcome, now)
	logOutcome(feed, outcome)

	if err := h.feeds.UpdateHealth(ctx, feed.ID, update); err != nil {
		return false, err
	}

	applyHealth(feed, update)
	return process, nil
}

func healthUpdate(outcome *FetchOutcome, now time.Time) (database.HealthUpdate, bool) {
	var update database.HealthUpdate

	if outcome.Kind != OutcomeNetworkError {
		status := outcome.Status
		update.Status = &status
	}

	if outcome.Failed() {
		update.Failed = true
		return update, false
	}

	update.Loaded = &now

	if outcome.Kind == OutcomeNotModified {
		return update, false
	}

	update.ReplaceValidators = true
	update.ETag = outcome.ETag
	update.LastModified = outcome.LastModified

	return update, true
}

func applyHealth(feed *database.Feed, update database.HealthUpdate) {
	if update.Failed {
		feed.Failures++
	} else {
		feed.Failures = 0
	}
	if update.Status != nil {
		feed.Status = update.Status
	}
	if update.Loaded != nil {
		feed.Loaded = update.Loaded
	}
	if update.ReplaceValidators {
		feed.ETag = update.ETag
		feed.LastModified = update.LastModified
	}
}

func logOutcome(feed *database.Feed, outcome *FetchOutcome) {
	switch {
	case outcome.Kind == OutcomeNotModified:
		slog.Info("Feed is unchanged", "feed", feed.URL)
	case outcome.Kind == OutcomeNetworkError || outcome.Kind == OutcomeHTTPError:
		slog.Warn("Feed not loaded", "feed", feed.URL, "status", outcome.Status, "failures", feed.Failures+1, "error", outcome.Err)
	case outcome.Malformed:
		slog.Warn("Feed not parsed", "feed", feed.URL, "failures", feed.Failures+1, "error", outcome.Err)
	default:
		slog.Info("Feed was loaded", "feed", feed.URL, "entries", len(outcome.Items), "content_length", outcome.ContentLength)
	}
}

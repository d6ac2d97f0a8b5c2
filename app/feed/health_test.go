package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lysyi3m/rss-catalog/app/database"
)

func TestHealthUpdate(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)
	modified := now.Add(-time.Hour)

	tests := []struct {
		name       string
		outcome    *FetchOutcome
		failed     bool
		status     *int
		loaded     bool
		validators bool
		process    bool
	}{
		{
			name:    "network error",
			outcome: &FetchOutcome{Kind: OutcomeNetworkError, Err: errors.New("dial tcp")},
			failed:  true,
		},
		{
			name:    "http error",
			outcome: &FetchOutcome{Kind: OutcomeHTTPError, Status: 503},
			failed:  true,
			status:  intPtr(503),
		},
		{
			name:    "not modified",
			outcome: &FetchOutcome{Kind: OutcomeNotModified, Status: 304},
			status:  intPtr(304),
			loaded:  true,
		},
		{
			name:    "malformed",
			outcome: &FetchOutcome{Kind: OutcomeParsed, Status: 200, Malformed: true, Err: errors.New("bad xml")},
			failed:  true,
			status:  intPtr(200),
		},
		{
			name:       "parsed",
			outcome:    &FetchOutcome{Kind: OutcomeParsed, Status: 200, ETag: `"v2"`, LastModified: &modified},
			status:     intPtr(200),
			loaded:     true,
			validators: true,
			process:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update, process := healthUpdate(tt.outcome, now)

			if update.Failed != tt.failed {
				t.Errorf("Expected failed=%t, got: %t", tt.failed, update.Failed)
			}
			if process != tt.process {
				t.Errorf("Expected process=%t, got: %t", tt.process, process)
			}
			if (update.Status == nil) != (tt.status == nil) || (update.Status != nil && *update.Status != *tt.status) {
				t.Errorf("Expected status %v, got: %v", tt.status, update.Status)
			}
			if (update.Loaded != nil) != tt.loaded {
				t.Errorf("Expected loaded=%t, got: %v", tt.loaded, update.Loaded)
			}
			if update.ReplaceValidators != tt.validators {
				t.Errorf("Expected validators replaced=%t, got: %t", tt.validators, update.ReplaceValidators)
			}
		})
	}
}

func TestHealthTrackerCountsFailures(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	feed := repos.createFeed(t, "https://example.com/feed.xml", nil)
	tracker := NewHealthTracker(repos.feeds)
	now := time.Now()

	modified := now.Add(-time.Hour).Truncate(time.Second)
	if _, err := tracker.Apply(ctx, feed, &FetchOutcome{Kind: OutcomeParsed, Status: 200, ETag: `"v1"`, LastModified: &modified}, now); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		process, err := tracker.Apply(ctx, feed, &FetchOutcome{Kind: OutcomeNetworkError, Err: errors.New("timeout")}, now)
		if err != nil {
			t.Fatal(err)
		}
		if process {
			t.Error("Expected failed fetch not to be processed")
		}
	}

	stored, err := repos.feeds.GetFeed(ctx, feed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Failures != 3 || feed.Failures != 3 {
		t.Errorf("Expected 3 failures, got: %d (in memory %d)", stored.Failures, feed.Failures)
	}
	if stored.Status == nil || *stored.Status != 200 {
		t.Errorf("Expected status 200 kept through network errors, got: %v", stored.Status)
	}
	if stored.ETag != `"v1"` || stored.LastModified == nil || !stored.LastModified.Equal(modified) {
		t.Errorf("Expected validators kept, got: %q %v", stored.ETag, stored.LastModified)
	}

	if _, err := tracker.Apply(ctx, feed, &FetchOutcome{Kind: OutcomeNotModified, Status: 304}, now); err != nil {
		t.Fatal(err)
	}

	stored, _ = repos.feeds.GetFeed(ctx, feed.ID)
	if stored.Failures != 0 {
		t.Errorf("Expected failures reset, got: %d", stored.Failures)
	}
	if stored.Status == nil || *stored.Status != 304 {
		t.Errorf("Expected status 304, got: %v", stored.Status)
	}
	if stored.ETag != `"v1"` {
		t.Errorf("Expected validators kept on 304, got: %q", stored.ETag)
	}
}

func TestApplyHealth(t *testing.T) {
	feed := &database.Feed{Failures: 2, ETag: `"old"`}
	now := time.Now()

	applyHealth(feed, database.HealthUpdate{Loaded: &now, ReplaceValidators: true})

	if feed.Failures != 0 || feed.Loaded == nil {
		t.Errorf("Expected reset failures and loaded time, got: %d %v", feed.Failures, feed.Loaded)
	}
	if feed.ETag != "" || feed.LastModified != nil {
		t.Errorf("Expected validators cleared, got: %q %v", feed.ETag, feed.LastModified)
	}
}

func intPtr(v int) *int {
	return &v
}

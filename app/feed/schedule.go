package feed

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/rss-catalog/app/database"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks that expr is a 5-field cron expression. Feeds are
// polled hourly, so the minute field must be "0" or "*".
func ValidateSchedule(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return fmt.Errorf("schedule %q must have 5 fields, got %d", expr, len(fields))
	}

	if _, err := scheduleParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	if fields[0] != "0" && fields[0] != "*" {
		return fmt.Errorf("schedule %q: minute field must be 0 or *", expr)
	}

	return nil
}

// IsDue reports whether expr matches t at minute resolution, in t's location.
// An expression that does not parse is never due.
func IsDue(expr string, t time.Time) bool {
	schedule, err := scheduleParser.Parse(expr)
	if err != nil {
		return false
	}

	minute := t.Truncate(time.Minute)
	return schedule.Next(minute.Add(-time.Second)).Equal(minute)
}

// DueFeeds returns the enabled feeds whose schedule, or defaultSchedule when
// the feed has none, matches now.
func DueFeeds(feeds []database.Feed, defaultSchedule string, now time.Time) []database.Feed {
	var due []database.Feed
	for _, feed := range feeds {
		if !feed.Enabled {
			continue
		}
		if IsDue(cmp.Or(strings.TrimSpace(feed.Schedule), defaultSchedule), now) {
			due = append(due, feed)
		}
	}
	return due
}

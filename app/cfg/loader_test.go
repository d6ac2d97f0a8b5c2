package cfg

import (
	"strings"
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DBPath != "./data/catalog.db" {
		t.Errorf("Expected default db path, got '%s'", cfg.DBPath)
	}
	if cfg.TaskSchedule != "0 * * * *" || cfg.DefaultSchedule != "0 * * * *" {
		t.Errorf("Expected hourly schedules, got '%s' and '%s'", cfg.TaskSchedule, cfg.DefaultSchedule)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("Expected 30s fetch timeout, got %v", cfg.FetchTimeout)
	}
	if cfg.MaxFeedSize != 10<<20 {
		t.Errorf("Expected 10 MB feed limit, got %d", cfg.MaxFeedSize)
	}
	if cfg.DaysPerPage != 7 || cfg.PageSize != 25 {
		t.Errorf("Expected 7 days and 25 items per page, got %d and %d", cfg.DaysPerPage, cfg.PageSize)
	}
	if cfg.Location == nil {
		t.Error("Expected location to be set")
	}
	if cfg.LoadPageData || cfg.Debug {
		t.Error("Expected optional features to be off")
	}
}

func TestParseEnvironment(t *testing.T) {
	t.Setenv("WORKER_COUNT", "3")
	t.Setenv("DEFAULT_SCHEDULE", "0 */6 * * *")
	t.Setenv("TAG_EXCLUDES", "Uncategorized, ,News")
	t.Setenv("TZ", "Europe/London")
	t.Setenv("LOAD_PAGE_DATA", "true")

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.WorkerCount != 3 {
		t.Errorf("Expected worker count 3, got %d", cfg.WorkerCount)
	}
	if cfg.DefaultSchedule != "0 */6 * * *" || cfg.TaskSchedule != "0 * * * *" {
		t.Errorf("Expected separate default schedule, got '%s' and '%s'", cfg.DefaultSchedule, cfg.TaskSchedule)
	}
	if strings.Join(cfg.TagExcludes, "|") != "Uncategorized|News" {
		t.Errorf("Expected [Uncategorized News], got %v", cfg.TagExcludes)
	}
	if cfg.Location.String() != "Europe/London" {
		t.Errorf("Expected Europe/London, got %v", cfg.Location)
	}
	if !cfg.LoadPageData {
		t.Error("Expected page data loading enabled")
	}
}

func TestParseFlagsOverrideDefaults(t *testing.T) {
	cfg, err := Parse([]string{"--port", "9090", "--title-strip", " | Example", "--debug"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if len(cfg.TitleStrip) != 1 || cfg.TitleStrip[0] != "| Example" {
		t.Errorf("Expected trimmed title strip pattern, got %v", cfg.TitleStrip)
	}
	if !cfg.Debug {
		t.Error("Expected debug enabled")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"zero workers", []string{"--worker-count", "0"}, "worker count"},
		{"zero timeout", []string{"--fetch-timeout", "0"}, "fetch timeout"},
		{"zero feed size", []string{"--max-feed-size", "0"}, "max feed size"},
		{"bad task schedule", []string{"--task-schedule", "hourly please"}, "invalid task schedule"},
		{"minute schedule", []string{"--default-schedule", "15 * * * *"}, "invalid default schedule"},
		{"bad timezone", []string{"--timezone", "Mars/Olympus"}, "invalid timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.args)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expected) {
				t.Errorf("Expected error containing '%s', got '%v'", tt.expected, err)
			}
		})
	}
}

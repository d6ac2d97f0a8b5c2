package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/rss-catalog/app/feed"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath   string `long:"db-path" env:"DB_PATH" default:"./data/catalog.db" description:"SQLite database file"`
	FeedsDir string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing source catalog files"`

	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Pipeline
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers"`
	TaskSchedule    string `long:"task-schedule" env:"TASK_SCHEDULE" default:"0 * * * *" description:"Cron expression on which due feeds are polled"`
	DefaultSchedule string `long:"default-schedule" env:"DEFAULT_SCHEDULE" description:"Schedule for feeds without one (defaults to the task schedule)"`
	UserAgent       string `long:"user-agent" env:"USER_AGENT" default:"RSS Catalog/1.0" description:"User agent string for HTTP requests"`
	FetchTimeout    int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"HTTP timeout in seconds"`
	MaxFeedSize     int    `long:"max-feed-size" env:"MAX_FEED_SIZE" default:"10" description:"Largest feed body read, in megabytes"`
	LoadPageData    bool   `long:"load-page-data" env:"LOAD_PAGE_DATA" description:"Fetch article pages for meta tags and content"`
	RedisAddr       string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for feed locks shared between processes (optional)"`
	RedisPassword   string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`

	// Post-processing filters
	TitleStrip     []string `long:"title-strip" env:"TITLE_STRIP" env-delim:"," description:"Text removed from article titles"`
	AuthorExcludes []string `long:"author-exclude" env:"AUTHOR_EXCLUDES" env-delim:"," description:"Author names to ignore"`
	TagIncludes    []string `long:"tag-include" env:"TAG_INCLUDES" env-delim:"," description:"Only keep tags matching these"`
	TagExcludes    []string `long:"tag-exclude" env:"TAG_EXCLUDES" env-delim:"," description:"Tags to ignore"`

	// Browsing
	DaysPerPage int `long:"days-per-page" env:"DAYS_PER_PAGE" default:"7" description:"Days of articles per page"`
	PageSize    int `long:"page-size" env:"PAGE_SIZE" default:"25" description:"Items per page in alphabetical lists"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for schedules and pages (e.g., UTC, Europe/London)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads the configuration from the command line and environment. It
// returns nil, nil when --help was requested.
func Load() (*Cfg, error) {
	return Parse(os.Args[1:])
}

func Parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		FeedsDir:        raw.FeedsDir,
		Port:            raw.Port,
		APIAccessKey:    raw.APIAccessKey,
		WorkerCount:     raw.WorkerCount,
		TaskSchedule:    strings.TrimSpace(raw.TaskSchedule),
		DefaultSchedule: cmp.Or(strings.TrimSpace(raw.DefaultSchedule), strings.TrimSpace(raw.TaskSchedule)),
		UserAgent:       raw.UserAgent,
		FetchTimeout:    time.Duration(raw.FetchTimeout) * time.Second,
		MaxFeedSize:     int64(raw.MaxFeedSize) << 20,
		LoadPageData:    raw.LoadPageData,
		RedisAddr:       raw.RedisAddr,
		RedisPassword:   raw.RedisPassword,
		TitleStrip:      compact(raw.TitleStrip),
		AuthorExcludes:  compact(raw.AuthorExcludes),
		TagIncludes:     compact(raw.TagIncludes),
		TagExcludes:     compact(raw.TagExcludes),
		DaysPerPage:     raw.DaysPerPage,
		PageSize:        raw.PageSize,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := validate(cfg, raw); err != nil {
		return nil, err
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	return cfg, nil
}

func validate(cfg *Cfg, raw rawCfg) error {
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount)
	}
	if raw.FetchTimeout < 1 {
		return fmt.Errorf("fetch timeout must be at least 1 second, got %d", raw.FetchTimeout)
	}
	if raw.MaxFeedSize < 1 {
		return fmt.Errorf("max feed size must be at least 1 MB, got %d", raw.MaxFeedSize)
	}
	if cfg.DaysPerPage < 1 {
		return fmt.Errorf("days per page must be at least 1, got %d", cfg.DaysPerPage)
	}
	if cfg.PageSize < 1 {
		return fmt.Errorf("page size must be at least 1, got %d", cfg.PageSize)
	}
	if _, err := cron.ParseStandard(cfg.TaskSchedule); err != nil {
		return fmt.Errorf("invalid task schedule %q: %w", cfg.TaskSchedule, err)
	}
	if err := feed.ValidateSchedule(cfg.DefaultSchedule); err != nil {
		return fmt.Errorf("invalid default schedule: %w", err)
	}
	return nil
}

func loadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}

func compact(values []string) []string {
	var result []string
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			result = append(result, value)
		}
	}
	return result
}

package cfg

import (
	"time"
)

type Cfg struct {
	// Storage
	DBPath   string
	FeedsDir string

	// HTTP server
	Port         string
	APIAccessKey string

	// Pipeline
	WorkerCount     int
	TaskSchedule    string
	DefaultSchedule string
	UserAgent       string
	FetchTimeout    time.Duration
	MaxFeedSize     int64 // bytes
	LoadPageData    bool
	RedisAddr       string
	RedisPassword   string

	// Post-processing filters
	TitleStrip     []string
	AuthorExcludes []string
	TagIncludes    []string
	TagExcludes    []string

	// Browsing
	DaysPerPage int
	PageSize    int

	// Application metadata
	Timezone string
	Location *time.Location
	Debug    bool
	Version  string
}

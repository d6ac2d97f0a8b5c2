package database

import (
	"time"
)

// Source represents a publishing site; many feeds may reference one source
type Source struct {
	ID          int64
	Name        string
	Slug        string
	URL         string
	Description string
	Data        Data
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Feed represents a polled RSS/Atom URL together with its health state
type Feed struct {
	ID           int64
	Name         string
	SourceID     int64
	URL          string
	Enabled      bool
	Schedule     string // blank means the process-wide default
	AutoPublish  bool
	LoadTags     bool
	Loaded       *time.Time
	Failures     int
	Status       *int
	ETag         string
	LastModified *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Category struct {
	ID       int64
	Name     string // full path, e.g. "science/physics"
	Slug     string
	Label    string
	ParentID *int64
	Level    int
}

type Author struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
}

type Alias struct {
	ID       int64
	Name     string
	AuthorID int64
	FeedID   int64
}

type Tag struct {
	ID   int64
	Name string
	Slug string
}

type Article struct {
	ID         int64
	Code       string
	Title      string
	URL        string
	Identifier string
	Date       time.Time
	Summary    string
	Content    string
	SourceID   int64
	FeedID     *int64 // nil for manually added articles
	Publish    bool
	Views      int
	Data       Data
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HealthUpdate is the change applied to a feed after a fetch attempt.
// Validators are only written when ReplaceValidators is set.
type HealthUpdate struct {
	Failed            bool
	Status            *int
	Loaded            *time.Time
	ReplaceValidators bool
	ETag              string
	LastModified      *time.Time
}

// ArticleRelations are attached to an article when it is created
type ArticleRelations struct {
	AuthorIDs   []int64
	CategoryIDs []int64
	TagIDs      []int64
}

// ArticleFilter narrows the published articles returned by ListPublished.
// Zero values are ignored.
type ArticleFilter struct {
	Since      *time.Time // inclusive
	Until      *time.Time // exclusive
	AuthorID   int64
	SourceID   int64
	TagID      int64
	Identifier string
	Limit      int
}

type SourceSummary struct {
	Source
	ArticleCount int
	Views        int
}

type AuthorSummary struct {
	Author
	ArticleCount int
}

type TagSummary struct {
	Tag
	ArticleCount int
}

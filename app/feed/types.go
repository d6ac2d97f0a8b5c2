package feed

import (
	"time"
)

// Entry is a feed item reduced to the values the catalog stores.
type Entry struct {
	Identifier string
	Title      string
	URL        string
	Published  *time.Time
	Summary    string
	Authors    []string
	Tags       []string
}

// Missing lists the required fields the entry lacks. An entry is only
// persisted when nothing is missing.
func (e Entry) Missing() []string {
	var missing []string
	if e.Identifier == "" {
		missing = append(missing, "identifier")
	}
	if e.Title == "" {
		missing = append(missing, "title")
	}
	if e.URL == "" {
		missing = append(missing, "url")
	}
	if e.Published == nil {
		missing = append(missing, "published")
	}
	return missing
}

type LoadStats struct {
	Outcome    OutcomeKind
	Entries    int
	Created    int
	Updated    int
	Unchanged  int
	Incomplete int
	Errors     int
}

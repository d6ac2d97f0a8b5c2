package feed

import (
	"strings"
)

// TextFilter post-processes a normalized title.
type TextFilter interface {
	FilterText(value string) string
}

// ListFilter post-processes a normalized author or tag list.
type ListFilter interface {
	FilterList(values []string) []string
}

type TextFilterFunc func(string) string

func (f TextFilterFunc) FilterText(value string) string {
	return f(value)
}

type ListFilterFunc func([]string) []string

func (f ListFilterFunc) FilterList(values []string) []string {
	return f(values)
}

// Filters are the hooks applied after normalization. Nil hooks are skipped.
type Filters struct {
	Title   TextFilter
	Authors ListFilter
	Tags    ListFilter
}

// StripFilter removes every occurrence of its patterns from a title, e.g. a
// " | Example Blog" suffix some publishers append.
type StripFilter struct {
	Patterns []string
}

func (f StripFilter) FilterText(value string) string {
	for _, pattern := range f.Patterns {
		if pattern != "" {
			value = strings.ReplaceAll(value, pattern, "")
		}
	}
	return strings.TrimSpace(value)
}

// RuleFilter drops list values containing any exclude pattern and, when
// includes are set, values containing none of them. Matching is a
// case-insensitive substring test.
type RuleFilter struct {
	Includes []string
	Excludes []string
}

func (f RuleFilter) FilterList(values []string) []string {
	filtered := make([]string, 0, len(values))
	for _, value := range values {
		if f.keep(value) {
			filtered = append(filtered, value)
		}
	}
	return filtered
}

func (f RuleFilter) keep(value string) bool {
	for _, exclude := range f.Excludes {
		if matchesFilter(value, exclude) {
			return false
		}
	}

	if len(f.Includes) == 0 {
		return true
	}

	for _, include := range f.Includes {
		if matchesFilter(value, include) {
			return true
		}
	}
	return false
}

func matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

// NewFilters builds the configured rule filters, leaving a hook nil when it
// has no rules.
func NewFilters(titleStrip, authorExcludes, tagIncludes, tagExcludes []string) Filters {
	var filters Filters

	if len(titleStrip) > 0 {
		filters.Title = StripFilter{Patterns: titleStrip}
	}
	if len(authorExcludes) > 0 {
		filters.Authors = RuleFilter{Excludes: authorExcludes}
	}
	if len(tagIncludes) > 0 || len(tagExcludes) > 0 {
		filters.Tags = RuleFilter{Includes: tagIncludes, Excludes: tagExcludes}
	}

	return filters
}

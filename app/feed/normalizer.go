package feed

import (
	"cmp"
	"html"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

var validURLSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
	"ftps":  true,
}

type Normalizer struct {
	filters Filters
}

func NewNormalizer(filters Filters) *Normalizer {
	return &Normalizer{filters: filters}
}

func (n *Normalizer) Run(item *gofeed.Item) Entry {
	entry := Entry{
		Identifier: strings.TrimSpace(cmp.Or(item.GUID, item.Link)),
		Title:      NormalizeTitle(html.UnescapeString(item.Title)),
		URL:        validURL(item.Link),
		Published:  published(item),
		Summary:    html.UnescapeString(item.Description),
		Authors:    authorNames(item),
		Tags:       tagTerms(item),
	}

	if n.filters.Title != nil {
		entry.Title = n.filters.Title.FilterText(entry.Title)
	}
	if n.filters.Authors != nil {
		entry.Authors = n.filters.Authors.FilterList(entry.Authors)
	}
	if n.filters.Tags != nil {
		entry.Tags = n.filters.Tags.FilterList(entry.Tags)
	}

	return entry
}

func validURL(value string) string {
	value = strings.TrimSpace(value)

	u, err := url.Parse(value)
	if err != nil || !u.IsAbs() || u.Host == "" || !validURLSchemes[strings.ToLower(u.Scheme)] {
		return ""
	}

	return value
}

func published(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}

	if raw := strings.TrimSpace(item.Published); raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			return &t
		}
	}

	return nil
}

func authorNames(item *gofeed.Item) []string {
	people := item.Authors
	if len(people) == 0 && item.Author != nil {
		people = []*gofeed.Person{item.Author}
	}

	var names []string
	for _, person := range people {
		if person == nil {
			continue
		}
		if name := strings.TrimSpace(person.Name); name != "" {
			names = append(names, name)
		}
	}

	return names
}

func tagTerms(item *gofeed.Item) []string {
	var tags []string
	for _, category := range item.Categories {
		if term := strings.TrimSpace(category); term != "" {
			tags = append(tags, term)
		}
	}

	slices.Sort(tags)
	return slices.Compact(tags)
}

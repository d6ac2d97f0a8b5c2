package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/rss-catalog/app/database"
	"github.com/lysyi3m/rss-catalog/app/slug"
)

var ErrInvalidPage = errors.New("invalid page number")

const DefaultDays = 7

// ArticleStore is the part of the article repository the day paginator reads.
type ArticleStore interface {
	ListPublished(ctx context.Context, filter database.ArticleFilter) ([]database.Article, error)
	OldestPublishedDate(ctx context.Context) (*time.Time, error)
}

// DayPaginator pages published articles by date, Days days per page. Page 1
// ends at the start of tomorrow, so it always holds today's articles.
type DayPaginator struct {
	store ArticleStore
	Days  int
	Now   func() time.Time
}

type DayPage struct {
	Number   int
	Since    time.Time // inclusive
	Until    time.Time // exclusive
	Articles []database.Article
}

func NewDayPaginator(store ArticleStore, days int) *DayPaginator {
	if days < 1 {
		days = DefaultDays
	}
	return &DayPaginator{store: store, Days: days, Now: time.Now}
}

func (p *DayPaginator) anchor() time.Time {
	now := p.Now()
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}

// Window returns the date range covered by page n.
func (p *DayPaginator) Window(n int) (since, until time.Time) {
	anchor := p.anchor()
	until = anchor.AddDate(0, 0, -p.Days*(n-1))
	since = anchor.AddDate(0, 0, -p.Days*n)
	return since, until
}

// NumPages is 0 when nothing is published.
func (p *DayPaginator) NumPages(ctx context.Context) (int, error) {
	oldest, err := p.store.OldestPublishedDate(ctx)
	if err != nil {
		return 0, err
	}
	if oldest == nil {
		return 0, nil
	}

	anchor := p.anchor()
	pages := 0
	for since := anchor; oldest.Before(since) || pages == 0; since = since.AddDate(0, 0, -p.Days) {
		pages++
	}
	return pages, nil
}

// Page returns the articles of page n, newest first. A page inside the
// catalog's range may be empty.
func (p *DayPaginator) Page(ctx context.Context, n int) (*DayPage, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPage, n)
	}

	if n > 1 {
		pages, err := p.NumPages(ctx)
		if err != nil {
			return nil, err
		}
		if n > pages {
			return nil, fmt.Errorf("%w: %d of %d", ErrInvalidPage, n, pages)
		}
	}

	since, until := p.Window(n)
	articles, err := p.store.ListPublished(ctx, database.ArticleFilter{Since: &since, Until: &until})
	if err != nil {
		return nil, err
	}

	return &DayPage{Number: n, Since: since, Until: until, Articles: articles}, nil
}

// Indexed is an item with the letter it is filed under and the first page on
// which that letter appears. Items with a blank key have no letter.
type Indexed[T any] struct {
	Item      T
	Letter    string
	FirstPage int
}

type IndexEntry struct {
	Letter string `json:"letter"`
	Page   int    `json:"page"`
}

// AlphabetPaginator pages a list that is already ordered by key and indexes
// the first page of each leading letter. The index is built once.
type AlphabetPaginator[T any] struct {
	items   []Indexed[T]
	perPage int
	index   []IndexEntry
}

func NewAlphabetPaginator[T any](items []T, perPage int, key func(T) string) *AlphabetPaginator[T] {
	if perPage < 1 {
		perPage = 1
	}

	p := &AlphabetPaginator[T]{
		items:   make([]Indexed[T], len(items)),
		perPage: perPage,
	}

	firstPage := make(map[string]int)
	for i, item := range items {
		p.items[i].Item = item

		letter := slug.Letter(key(item))
		if letter == "" {
			continue
		}

		page, ok := firstPage[letter]
		if !ok {
			page = i/perPage + 1
			firstPage[letter] = page
			p.index = append(p.index, IndexEntry{Letter: letter, Page: page})
		}

		p.items[i].Letter = letter
		p.items[i].FirstPage = page
	}

	return p
}

// NumPages is at least 1 so an empty list still has a first page.
func (p *AlphabetPaginator[T]) NumPages() int {
	return max(1, (len(p.items)+p.perPage-1)/p.perPage)
}

func (p *AlphabetPaginator[T]) Page(n int) ([]Indexed[T], error) {
	if n < 1 || n > p.NumPages() {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidPage, n, p.NumPages())
	}

	start := (n - 1) * p.perPage
	end := min(start+p.perPage, len(p.items))
	return p.items[start:end], nil
}

// Index lists each letter with its first page, in the order the letters
// appear.
func (p *AlphabetPaginator[T]) Index() []IndexEntry {
	return p.index
}

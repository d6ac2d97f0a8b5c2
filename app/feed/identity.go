package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/rss-catalog/app/database"
	"github.com/lysyi3m/rss-catalog/app/slug"
)

// AuthorResolver maps byline strings to authors: a per-feed alias wins,
// then an existing author with the same slug, otherwise a new author.
type AuthorResolver struct {
	aliases database.AliasRepository
	authors database.AuthorRepository
}

func NewAuthorResolver(aliases database.AliasRepository, authors database.AuthorRepository) *AuthorResolver {
	return &AuthorResolver{
		aliases: aliases,
		authors: authors,
	}
}

// Resolve returns nil, nil for a name that has no usable slug.
func (r *AuthorResolver) Resolve(ctx context.Context, feed *database.Feed, name string) (*database.Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	alias, err := r.aliases.FindAlias(ctx, name, feed.ID)
	if err != nil {
		return nil, err
	}
	if alias != nil {
		author, err := r.authors.GetAuthor(ctx, alias.AuthorID)
		if err != nil {
			return nil, err
		}
		if author != nil {
			return author, nil
		}
	}

	return r.FindOrCreate(ctx, name)
}

// FindOrCreate returns the author whose slug matches name, creating one when
// none exists. Duplicate slugs resolve to the oldest author.
func (r *AuthorResolver) FindOrCreate(ctx context.Context, name string) (*database.Author, error) {
	name = strings.TrimSpace(name)
	authorSlug := slug.Make(name)
	if authorSlug == "" {
		slog.Debug("Author name has no slug", "name", name)
		return nil, nil
	}

	matches, err := r.authors.FindAuthorsBySlug(ctx, authorSlug)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		author := &database.Author{Name: name, Slug: authorSlug}
		created, err := r.authors.CreateAuthorIfMissing(ctx, author)
		if err != nil {
			return nil, err
		}
		if created {
			return author, nil
		}

		// Another loader created it first
		if matches, err = r.authors.FindAuthorsBySlug(ctx, authorSlug); err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("author %q vanished after insert", authorSlug)
		}
	}

	switch len(matches) {
	case 1:
		return &matches[0], nil
	default:
		ids := make([]int64, len(matches))
		for i, match := range matches {
			ids[i] = match.ID
		}
		slog.Warn("Multiple authors found", "name", name, "slug", authorSlug, "ids", ids)
		return &matches[0], nil
	}
}

// ResolveAll resolves every name, skipping (and logging) names that fail.
// Each author appears once in the result.
func (r *AuthorResolver) ResolveAll(ctx context.Context, feed *database.Feed, names []string) []database.Author {
	var authors []database.Author
	seen := make(map[int64]bool)

	for _, name := range names {
		author, err := r.Resolve(ctx, feed, name)
		if err != nil {
			slog.Error("Author not resolved", "feed", feed.URL, "name", name, "error", fmt.Errorf("failed to resolve author: %w", err))
			continue
		}
		if author == nil || seen[author.ID] {
			continue
		}
		seen[author.ID] = true
		authors = append(authors, *author)
	}

	return authors
}

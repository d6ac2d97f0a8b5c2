// Package catalog holds the read-side helpers for browsing articles: tag
// weights and the day and alphabet paginators.
package catalog

import (
	"math"
	"sort"
	"strings"

	"github.com/lysyi3m/rss-catalog/app/database"
)

// MaxWeight is the number of weight bins.
const MaxWeight = 6

type WeightedTag struct {
	database.Tag
	Count  int
	Weight int
}

// Weigh counts each tag in tags, which holds one entry per attachment, and
// spreads the counts over MaxWeight equal-width bins between the smallest
// and largest count. The result is ordered by tag name.
func Weigh(tags []database.Tag) []WeightedTag {
	if len(tags) == 0 {
		return []WeightedTag{}
	}

	index := make(map[string]int)
	var weighted []WeightedTag
	for _, tag := range tags {
		if i, ok := index[tag.Slug]; ok {
			weighted[i].Count++
			continue
		}
		index[tag.Slug] = len(weighted)
		weighted = append(weighted, WeightedTag{Tag: tag, Count: 1})
	}

	lowest, highest := weighted[0].Count, weighted[0].Count
	for _, tag := range weighted[1:] {
		lowest = min(lowest, tag.Count)
		highest = max(highest, tag.Count)
	}

	width := float64(highest-lowest+1) / MaxWeight
	for i := range weighted {
		weighted[i].Weight = int(math.Floor(float64(weighted[i].Count-lowest)/width)) + 1
	}

	sort.SliceStable(weighted, func(i, j int) bool {
		a, b := strings.ToLower(weighted[i].Name), strings.ToLower(weighted[j].Name)
		if a != b {
			return a < b
		}
		return weighted[i].Slug < weighted[j].Slug
	})

	return weighted
}

package catalog

import (
	"fmt"
	"testing"

	"github.com/lysyi3m/rss-catalog/app/database"
)

func repeatTag(name string, count int) []database.Tag {
	tags := make([]database.Tag, count)
	for i := range tags {
		tags[i] = database.Tag{Name: name, Slug: fmt.Sprintf("%s-slug", name)}
	}
	return tags
}

func TestWeighEmpty(t *testing.T) {
	weighted := Weigh(nil)
	if weighted == nil || len(weighted) != 0 {
		t.Errorf("Expected empty result, got: %v", weighted)
	}
}

func TestWeighEqualCounts(t *testing.T) {
	var tags []database.Tag
	tags = append(tags, repeatTag("go", 3)...)
	tags = append(tags, repeatTag("rust", 3)...)

	for _, tag := range Weigh(tags) {
		if tag.Weight != 1 {
			t.Errorf("Expected weight 1 for %s, got: %d", tag.Name, tag.Weight)
		}
	}
}

func TestWeighSpreadsCounts(t *testing.T) {
	var tags []database.Tag
	names := []string{"f", "e", "d", "c", "b", "a"}
	for i, name := range names {
		tags = append(tags, repeatTag(name, i+1)...)
	}

	weighted := Weigh(tags)
	if len(weighted) != 6 {
		t.Fatalf("Expected 6 tags, got: %d", len(weighted))
	}

	expected := []struct {
		name   string
		count  int
		weight int
	}{
		{"a", 6, 6},
		{"b", 5, 5},
		{"c", 4, 4},
		{"d", 3, 3},
		{"e", 2, 2},
		{"f", 1, 1},
	}
	for i, want := range expected {
		got := weighted[i]
		if got.Name != want.name || got.Count != want.count || got.Weight != want.weight {
			t.Errorf("Expected %s count=%d weight=%d, got: %s count=%d weight=%d",
				want.name, want.count, want.weight, got.Name, got.Count, got.Weight)
		}
	}
}

func TestWeighBounds(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]int
		want   map[string]int
	}{
		{
			name:   "two counts",
			counts: map[string]int{"rare": 1, "common": 2},
			want:   map[string]int{"rare": 1, "common": 4},
		},
		{
			name:   "wide spread",
			counts: map[string]int{"rare": 1, "middle": 50, "common": 100},
			want:   map[string]int{"rare": 1, "middle": 3, "common": 6},
		},
		{
			name:   "single tag",
			counts: map[string]int{"only": 7},
			want:   map[string]int{"only": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tags []database.Tag
			for name, count := range tt.counts {
				tags = append(tags, repeatTag(name, count)...)
			}

			for _, tag := range Weigh(tags) {
				if tag.Weight < 1 || tag.Weight > MaxWeight {
					t.Errorf("Expected weight in [1,%d], got: %d", MaxWeight, tag.Weight)
				}
				if tag.Weight != tt.want[tag.Name] {
					t.Errorf("Expected weight %d for %s, got: %d", tt.want[tag.Name], tag.Name, tag.Weight)
				}
			}
		})
	}
}

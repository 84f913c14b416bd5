// Package ranking canonicalizes, deduplicates and orders trend items.
package ranking

import (
	"sort"
	"strings"

	"github.com/trendtruth/trendtruth/internal/categories"
	"github.com/trendtruth/trendtruth/internal/models"
)

// Canonicalize lower-cases a title and keeps only [a-z0-9 ], trimmed
func Canonicalize(title string) string {
	lower := strings.ToLower(title)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// DedupeAndRank merges items sharing a canonical title, keeping the one with the
// higher engagement (the first seen on ties), then returns at most limit items
// ordered by descending engagement and creation time. Items whose canonical title
// is empty are dropped. Equal keys keep their merge order.
func DedupeAndRank(items []models.TrendItem, limit int) []models.TrendItem {
	if limit <= 0 {
		return []models.TrendItem{}
	}

	index := make(map[string]int, len(items))
	unique := make([]models.TrendItem, 0, len(items))
	for _, item := range items {
		key := Canonicalize(item.Title)
		if key == "" {
			continue
		}
		pos, seen := index[key]
		if !seen {
			index[key] = len(unique)
			unique = append(unique, item)
			continue
		}
		if item.Engagement() > unique[pos].Engagement() {
			unique[pos] = item
		}
	}

	SortByRank(unique)
	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}

// SortByRank stable-sorts items by descending (engagement, created time)
func SortByRank(items []models.TrendItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return rankedBefore(items[i], items[j])
	})
}

func rankedBefore(a, b models.TrendItem) bool {
	if a.Engagement() != b.Engagement() {
		return a.Engagement() > b.Engagement()
	}
	return a.CreatedUTC > b.CreatedUTC
}

// BalanceCategories takes the best remaining item of every category in enumeration
// order, then fills the remaining slots from items in their given (ranked) order.
// Categories with no candidates are skipped, so one item per category is best effort.
func BalanceCategories(items []models.TrendItem, limit int) []models.TrendItem {
	if len(items) == 0 || limit <= 0 {
		return []models.TrendItem{}
	}

	buckets := make(map[string][]models.TrendItem)
	for _, item := range items {
		buckets[item.Category] = append(buckets[item.Category], item)
	}
	for _, bucket := range buckets {
		SortByRank(bucket)
	}

	selected := make([]models.TrendItem, 0, limit)
	selectedIDs := make(map[string]bool, limit)

	for _, category := range categories.Specific() {
		bucket := buckets[category]
		if len(bucket) == 0 {
			continue
		}
		top := bucket[0]
		selected = append(selected, top)
		selectedIDs[top.ID] = true
		if len(selected) >= limit {
			return selected
		}
	}

	for _, item := range items {
		if selectedIDs[item.ID] {
			continue
		}
		selected = append(selected, item)
		selectedIDs[item.ID] = true
		if len(selected) >= limit {
			break
		}
	}

	return selected
}

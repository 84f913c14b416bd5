// Package aggregation collects trends from every source, merges them into a
// single ranked feed and sends the head of that feed through enrichment.
package aggregation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/categories"
	"github.com/trendtruth/trendtruth/internal/metrics"
	"github.com/trendtruth/trendtruth/internal/models"
	"github.com/trendtruth/trendtruth/internal/ranking"
	"github.com/trendtruth/trendtruth/internal/sources"
)

// Health keys, also the merge order of the feed
const (
	HealthReddit     = "reddit"
	HealthHackerNews = "hacker_news"
	HealthGoogleNews = "google_news"
	HealthX          = "x"
)

const (
	browseEnrichBudget = 6
	queryEnrichBudget  = 12
	fetchTimeout       = 12 * time.Second
)

// Enricher fills in metadata for the first budget items of a feed
type Enricher interface {
	EnrichAll(ctx context.Context, items []models.TrendItem, budget int) []models.TrendItem
}

// Service orchestrates one aggregation run per call
type Service struct {
	reddit     sources.QuerySource
	hackerNews sources.QuerySource
	googleNews sources.QuerySource
	x          sources.MicroblogSource
	enricher   Enricher
	recorder   metrics.Recorder
}

// NewService creates a new aggregation service
func NewService(reddit, hackerNews, googleNews sources.QuerySource, x sources.MicroblogSource, enricher Enricher, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Service{
		reddit:     reddit,
		hackerNews: hackerNews,
		googleNews: googleNews,
		x:          x,
		enricher:   enricher,
		recorder:   recorder,
	}
}

// Quota is the number of items requested from each source
type Quota struct {
	Reddit     int
	HackerNews int
	GoogleNews int
	X          int
}

// BrowseQuota splits limit across the sources for a category feed
func BrowseQuota(limit int, category string) Quota {
	if category == categories.All {
		q := Quota{
			Reddit:     max(5, limit*32/100),
			HackerNews: max(3, limit*20/100),
			GoogleNews: max(5, limit*30/100),
		}
		q.X = max(2, limit-q.Reddit-q.HackerNews-q.GoogleNews+2)
		return q
	}
	return Quota{
		Reddit:     max(2, limit*15/100),
		HackerNews: 1,
		GoogleNews: max(10, limit*70/100),
		X:          1,
	}
}

// QueryQuota splits limit across the searchable sources
func QueryQuota(limit int) Quota {
	return Quota{
		Reddit:     max(5, limit*25/100),
		HackerNews: max(4, limit*20/100),
		GoogleNews: max(10, limit*55/100),
	}
}

// FetchTrends returns up to limit enriched trends and a status per source.
// Source failures never fail the call; they show up in the health map.
func (s *Service) FetchTrends(ctx context.Context, limit int, category, query string) ([]models.TrendItem, map[string]string) {
	start := time.Now()
	category = categories.Normalize(category)
	query = strings.TrimSpace(query)

	var items []models.TrendItem
	var health map[string]string
	if query != "" {
		items, health = s.searchMode(ctx, limit, category, query)
	} else {
		items, health = s.browseMode(ctx, limit, category)
	}

	logrus.Infof("Aggregated %d trends (category=%s, query=%q) in %v", len(items), category, query, time.Since(start))
	return items, health
}

// fetchResult is one source's contribution to a run
type fetchResult struct {
	items  []models.TrendItem
	status string
}

func (s *Service) browseMode(ctx context.Context, limit int, category string) ([]models.TrendItem, map[string]string) {
	quota := BrowseQuota(limit, category)
	logrus.Debugf("Browse quota for %s/%d: %+v", category, limit, quota)

	// fixed slots keep the merge order stable regardless of which source answers first
	results := make([]fetchResult, 4)
	var wg sync.WaitGroup

	wg.Add(4)
	go func() {
		defer wg.Done()
		items := s.fetch(ctx, s.reddit, quota.Reddit, category)
		if len(items) < 2 {
			logrus.Infof("Reddit returned %d items for %s, broadening to all", len(items), category)
			extra := s.fetch(ctx, s.reddit, max(4, quota.Reddit), categories.All)
			items = ranking.DedupeAndRank(append(items, extra...), max(6, quota.Reddit))
		}
		results[0] = fetchResult{items: items, status: countStatus(items, "empty_or_rate_limited")}
	}()
	go func() {
		defer wg.Done()
		items := s.fetch(ctx, s.hackerNews, quota.HackerNews, category)
		if len(items) < 1 {
			logrus.Infof("Hacker News returned nothing for %s, broadening to all", category)
			extra := s.fetch(ctx, s.hackerNews, max(3, quota.HackerNews+1), categories.All)
			items = ranking.DedupeAndRank(append(items, extra...), max(3, quota.HackerNews))
		}
		results[1] = fetchResult{items: items, status: countStatus(items, "empty")}
	}()
	go func() {
		defer wg.Done()
		items := s.fetch(ctx, s.googleNews, quota.GoogleNews, category)
		results[2] = fetchResult{items: items, status: countStatus(items, "empty_or_rate_limited")}
	}()
	go func() {
		defer wg.Done()
		items := s.fetch(ctx, s.x, quota.X, category)
		results[3] = fetchResult{items: items, status: s.microblogStatus(items)}
	}()
	wg.Wait()

	health := map[string]string{
		HealthReddit:     results[0].status,
		HealthHackerNews: results[1].status,
		HealthGoogleNews: results[2].status,
		HealthX:          results[3].status,
	}

	var merged []models.TrendItem
	for _, r := range results {
		merged = append(merged, r.items...)
	}
	ranked := ranking.DedupeAndRank(merged, max(limit*2, 30))

	var selected []models.TrendItem
	if category == categories.All {
		selected = ranking.BalanceCategories(ranked, limit)
	} else {
		for _, item := range ranked {
			if item.Category == category || categories.Matches(item.Title, category) {
				selected = append(selected, item)
			}
		}
		if len(selected) > limit {
			selected = selected[:limit]
		}
	}

	return s.enrich(ctx, selected, browseEnrichBudget), health
}

func (s *Service) searchMode(ctx context.Context, limit int, category, query string) ([]models.TrendItem, map[string]string) {
	quota := QueryQuota(limit)
	logrus.Debugf("Query quota for %q/%d: %+v", query, limit, quota)

	results := make([]fetchResult, 3)
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		items := s.search(ctx, s.googleNews, quota.GoogleNews, query, category)
		results[0] = fetchResult{items: items, status: countStatus(items, "empty_query_mode")}
	}()
	go func() {
		defer wg.Done()
		items := s.search(ctx, s.reddit, quota.Reddit, query, category)
		if len(items) == 0 {
			items = s.fetch(ctx, s.reddit, max(3, limit*20/100), category)
		}
		results[1] = fetchResult{items: items, status: countStatus(items, "empty_query_mode")}
	}()
	go func() {
		defer wg.Done()
		items := s.search(ctx, s.hackerNews, quota.HackerNews, query, category)
		if len(items) == 0 {
			items = s.fetch(ctx, s.hackerNews, max(2, limit*15/100), category)
		}
		results[2] = fetchResult{items: items, status: countStatus(items, "empty_query_mode")}
	}()
	wg.Wait()

	health := map[string]string{
		HealthGoogleNews: results[0].status,
		HealthReddit:     results[1].status,
		HealthHackerNews: results[2].status,
		HealthX:          "skipped_query_mode",
	}

	var merged []models.TrendItem
	for _, r := range results {
		merged = append(merged, r.items...)
	}
	ranked := ranking.DedupeAndRank(merged, max(limit*2, 30))
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return s.enrich(ctx, ranked, queryEnrichBudget), health
}

// fetch runs one category fetch, degrading any failure to an empty list
func (s *Service) fetch(ctx context.Context, src sources.Source, limit int, category string) []models.TrendItem {
	if src == nil || !src.IsEnabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	logrus.Debugf("Fetching %d trends from %s (%s)", limit, src.GetName(), category)
	items, err := src.FetchTrends(ctx, limit, category)
	s.recorder.RecordSourceFetch(src.GetName(), len(items), err)
	if err != nil {
		logrus.Warnf("Error fetching trends from %s: %v", src.GetName(), err)
		return nil
	}

	logrus.Debugf("Found %d trends from %s", len(items), src.GetName())
	return items
}

func (s *Service) search(ctx context.Context, src sources.QuerySource, limit int, query, category string) []models.TrendItem {
	if src == nil || !src.IsEnabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	items, err := src.SearchTrends(ctx, limit, query, category)
	s.recorder.RecordSourceFetch(src.GetName(), len(items), err)
	if err != nil {
		logrus.Warnf("Error searching %s for %q: %v", src.GetName(), query, err)
		return nil
	}

	logrus.Debugf("Found %d trends from %s for %q", len(items), src.GetName(), query)
	return items
}

func (s *Service) microblogStatus(items []models.TrendItem) string {
	tokened := s.x != nil && s.x.HasAPIToken()
	switch {
	case tokened && len(items) > 0:
		return "api_ok"
	case tokened:
		return "api_error_or_empty"
	case len(items) > 0:
		return "fallback_rss"
	default:
		return "fallback_unavailable_missing_token"
	}
}

func (s *Service) enrich(ctx context.Context, items []models.TrendItem, budget int) []models.TrendItem {
	if s.enricher == nil || len(items) == 0 {
		return items
	}
	return s.enricher.EnrichAll(ctx, items, min(budget, len(items)))
}

func countStatus(items []models.TrendItem, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return fmt.Sprintf("ok:%d", len(items))
}

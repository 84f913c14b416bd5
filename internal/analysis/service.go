// Package analysis answers analyze requests: it aggregates trends, scores
// each one and caches the sorted response.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/cache"
	"github.com/trendtruth/trendtruth/internal/categories"
	"github.com/trendtruth/trendtruth/internal/metrics"
	"github.com/trendtruth/trendtruth/internal/models"
)

const (
	DefaultLimit = 20
	MinLimit     = 5
	MaxLimit     = 40

	maxQueryLength = 120
	maxScorers     = 8
)

// Aggregator returns the enriched trend feed and per-source health
type Aggregator interface {
	FetchTrends(ctx context.Context, limit int, category, query string) ([]models.TrendItem, map[string]string)
}

// Scorer assesses a single trend
type Scorer interface {
	Analyze(ctx context.Context, item models.TrendItem) models.AnalysisResult
}

// Request holds the analyze parameters as received
type Request struct {
	Limit    int
	Category string
	Query    string
	Refresh  bool
}

// Normalize clamps the limit, maps the category onto the enumeration and
// trims, lower-cases and truncates the query.
func (r Request) Normalize() Request {
	out := r
	switch {
	case out.Limit == 0:
		out.Limit = DefaultLimit
	case out.Limit < MinLimit:
		out.Limit = MinLimit
	case out.Limit > MaxLimit:
		out.Limit = MaxLimit
	}
	out.Category = categories.Normalize(r.Category)

	query := strings.ToLower(strings.TrimSpace(r.Query))
	if utf8.RuneCountInString(query) > maxQueryLength {
		query = strings.TrimSpace(string([]rune(query)[:maxQueryLength]))
	}
	out.Query = query
	return out
}

// CacheKey identifies a normalized request in the result cache
func (r Request) CacheKey() string {
	return fmt.Sprintf("%s:%d:%s", r.Category, r.Limit, r.Query)
}

// Service produces analyze responses
type Service struct {
	aggregator Aggregator
	scorer     Scorer
	results    *cache.TTL[*models.AnalyzeResponse]
	recorder   metrics.Recorder
	now        func() time.Time
}

// NewService creates an analysis service whose responses are cached for ttl
func NewService(aggregator Aggregator, scorer Scorer, ttl time.Duration, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Service{
		aggregator: aggregator,
		scorer:     scorer,
		results:    cache.NewTTL[*models.AnalyzeResponse](ttl),
		recorder:   recorder,
		now:        time.Now,
	}
}

// WithClock replaces the time source for generated_at and cache expiry
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.results.WithClock(now)
	return s
}

// Analyze returns the scored trend feed for req. Cached responses are reused
// until they expire unless Refresh is set, in which case the feed is rebuilt
// and the cache slot overwritten.
func (s *Service) Analyze(ctx context.Context, req Request) (*models.AnalyzeResponse, error) {
	req = req.Normalize()
	key := req.CacheKey()

	if !req.Refresh {
		if cached, ok := s.results.Get(key); ok {
			s.recorder.RecordCacheLookup("result", true)
			logrus.Debugf("Serving cached analysis for %s", key)
			return cached, nil
		}
		s.recorder.RecordCacheLookup("result", false)
	}

	start := time.Now()
	items, health := s.aggregator.FetchTrends(ctx, req.Limit, req.Category, req.Query)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}

	results := s.scoreAll(ctx, items)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis aborted while scoring: %w", err)
	}
	SortResults(results)

	resp := &models.AnalyzeResponse{
		GeneratedAt:         s.now().UTC(),
		AnalyzedCount:       len(results),
		SelectedCategory:    req.Category,
		AvailableCategories: categories.IDs(),
		SourceHealth:        health,
		Results:             results,
	}
	s.results.Set(key, resp)

	duration := time.Since(start)
	s.recorder.RecordAnalyzeLatency(duration)
	logrus.Infof("Analyzed %d trends for %s in %v", len(results), key, duration)
	return resp, nil
}

// scoreAll scores items on a small pool, keeping input order in the output
func (s *Service) scoreAll(ctx context.Context, items []models.TrendItem) []models.AnalysisResult {
	results := make([]models.AnalysisResult, len(items))
	if len(items) == 0 {
		return results
	}

	jobs := make(chan int)
	workers := min(maxScorers, max(2, len(items)))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.scorer.Analyze(ctx, items[i])
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// SortResults orders High Risk first, then by fake probability and spread index, both descending
func SortResults(results []models.AnalysisResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		aHigh, bHigh := a.Verdict == models.VerdictHigh, b.Verdict == models.VerdictHigh
		if aHigh != bHigh {
			return aHigh
		}
		if a.FakeProbability != b.FakeProbability {
			return a.FakeProbability > b.FakeProbability
		}
		return a.SpreadIndex > b.SpreadIndex
	})
}

// Package verifier looks for independent news coverage of a claim and
// summarizes how trustworthy that coverage is.
package verifier

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/cache"
	"github.com/trendtruth/trendtruth/internal/metrics"
	"github.com/trendtruth/trendtruth/internal/models"
	"github.com/trendtruth/trendtruth/internal/sources"
	"github.com/trendtruth/trendtruth/internal/trust"
)

const (
	// DefaultCap is the number of search results inspected per claim
	DefaultCap = 8

	maxArticles   = 8
	searchRegion  = "US"
	searchTimeout = 4 * time.Second
)

// NewsSearcher runs a news search for a claim
type NewsSearcher interface {
	Search(ctx context.Context, query string, maxResults int, region string) ([]sources.NewsRecord, error)
}

// Verifier builds evidence summaries, caching them per claim and cap
type Verifier struct {
	searcher NewsSearcher
	cache    *cache.TTL[models.EvidenceSummary]
	timeout  time.Duration
	recorder metrics.Recorder
}

// New creates a verifier whose summaries live for ttl
func New(searcher NewsSearcher, ttl time.Duration, recorder metrics.Recorder) *Verifier {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Verifier{
		searcher: searcher,
		cache:    cache.NewTTL[models.EvidenceSummary](ttl),
		timeout:  searchTimeout,
		recorder: recorder,
	}
}

// Verify returns the evidence summary for claim. Lookup failures produce an
// empty summary with zero confidence, cached unless ctx itself was cancelled.
func (v *Verifier) Verify(ctx context.Context, claim string, resultCap int) models.EvidenceSummary {
	key := fmt.Sprintf("%s:%d", strings.ToLower(strings.TrimSpace(claim)), resultCap)

	if cached, ok := v.cache.Get(key); ok {
		v.recorder.RecordCacheLookup("evidence", true)
		return cached
	}
	v.recorder.RecordCacheLookup("evidence", false)

	searchCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	records, err := v.searcher.Search(searchCtx, claim, resultCap, searchRegion)
	if err != nil {
		logrus.Debugf("Evidence lookup failed for %q: %v", claim, err)
		v.recorder.RecordEvidenceLookup(false)
		empty := models.EmptyEvidence(claim)
		// only provider failures are cached, not cancelled callers
		if ctx.Err() == nil {
			v.cache.Set(key, empty)
		}
		return empty
	}
	v.recorder.RecordEvidenceLookup(true)

	summary := Summarize(claim, records)
	v.cache.Set(key, summary)
	return summary
}

// Summarize weighs each record against the evidence trust table
func Summarize(claim string, records []sources.NewsRecord) models.EvidenceSummary {
	articles := make([]models.EvidenceArticle, 0, len(records))
	for _, record := range records {
		domain := trust.DomainFromURL(record.SourceURL)
		if domain == "" {
			domain = trust.DomainFromURL(record.URL)
		}
		weight := math.Max(trust.Evidence.DomainWeight(domain), trust.Evidence.NameWeight(record.Source))

		source := record.Source
		if source == "" {
			source = domain
		}
		if source == "" {
			source = "Unknown"
		}

		articles = append(articles, models.EvidenceArticle{
			Title:        record.Title,
			Source:       source,
			SourceURL:    record.SourceURL,
			ArticleURL:   record.URL,
			PublishedAt:  record.Published,
			SourceWeight: weight,
		})
	}

	credible := 0
	weighted := 0.0
	distinct := make(map[string]struct{})
	for _, article := range articles {
		if article.SourceWeight >= trust.CredibleWeight {
			credible++
		}
		weighted += article.SourceWeight
		if article.SourceWeight > 0 {
			distinct[article.Source] = struct{}{}
		}
	}

	total := len(articles)
	if len(articles) > maxArticles {
		articles = articles[:maxArticles]
	}

	return models.EvidenceSummary{
		Query:           claim,
		CredibleHits:    credible,
		TotalHits:       total,
		SourceDiversity: len(distinct),
		Confidence:      confidence(credible, total, weighted, len(distinct)),
		Articles:        articles,
	}
}

// confidence mixes the share of strong sources, the mean trust and the source diversity
func confidence(credible, total int, weighted float64, diversity int) float64 {
	if total == 0 {
		return 0
	}
	n := float64(total)
	raw := math.Min(1, 0.55*float64(credible)/n+0.35*weighted/n+0.10*float64(min(diversity, 6))/6)
	rounded := math.Round(raw*10000) / 10000
	// keep zero reserved for "no results at all"
	if rounded == 0 {
		return 0.0001
	}
	return rounded
}

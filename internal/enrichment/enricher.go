// Package enrichment fills in summaries, preview images and publisher details
// for the top trends using metadata read from the article pages.
package enrichment

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/imagery"
	"github.com/trendtruth/trendtruth/internal/metrics"
	"github.com/trendtruth/trendtruth/internal/models"
	"github.com/trendtruth/trendtruth/internal/ranking"
	"github.com/trendtruth/trendtruth/internal/textutil"
	"github.com/trendtruth/trendtruth/internal/trust"
)

// MaxWorkers bounds concurrent page fetches
const MaxWorkers = 6

const neutralSummary = "Read the full report from the official source for details and context."

// MetadataSource reads page metadata; ok is false when nothing could be read
type MetadataSource interface {
	Read(ctx context.Context, link string) (Metadata, bool)
}

// Enricher applies page metadata to trends
type Enricher struct {
	reader   MetadataSource
	workers  int
	recorder metrics.Recorder
}

// NewEnricher creates an enricher running at most workers fetches at once
func NewEnricher(reader MetadataSource, workers int, recorder metrics.Recorder) *Enricher {
	if workers <= 0 || workers > MaxWorkers {
		workers = MaxWorkers
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Enricher{reader: reader, workers: workers, recorder: recorder}
}

// Enrich returns a copy of item with metadata-derived fields applied
func (e *Enricher) Enrich(ctx context.Context, item models.TrendItem) models.TrendItem {
	meta, ok := e.reader.Read(ctx, item.URL)
	if !ok {
		e.recorder.RecordEnrichment("no_metadata")
		sourceURL := item.SourceURL
		if sourceURL == "" {
			sourceURL = textutil.BaseURL(item.URL)
		}
		image := item.ImageURL
		if image == "" {
			image = imagery.FallbackImage(imagery.ScreenshotTarget(item.URL, item.SourceURL))
		}
		return item.WithEnrichment(models.Enrichment{
			SourceName: firstNonEmpty(item.SourceName, trust.DomainFromURL(item.URL), string(item.Platform)),
			SourceURL:  sourceURL,
			ImageURL:   image,
		})
	}

	summary := item.Summary
	if summaryTooClose(summary, item.Title) && meta.Description != "" && !summaryTooClose(meta.Description, item.Title) {
		summary = meta.Description
	}
	if summaryTooClose(summary, item.Title) {
		summary = textutil.CompactText(neutralSummary, 180)
	}

	image := item.ImageURL
	if image == "" || strings.Contains(image, imagery.GenericFaviconMarker) {
		image = firstNonEmpty(meta.ImageURL, image)
	}
	if imagery.LooksLikeBrandAsset(image) {
		image = ""
	}
	if image == "" {
		resolved := firstNonEmpty(meta.ResolvedURL, item.URL)
		image = imagery.FallbackImage(imagery.ScreenshotTarget(resolved, item.SourceURL))
	}

	e.recorder.RecordEnrichment("enriched")
	return item.WithEnrichment(models.Enrichment{
		Summary:    summary,
		ImageURL:   image,
		SourceName: firstNonEmpty(item.SourceName, meta.SiteName, trust.DomainFromURL(item.URL), string(item.Platform)),
		SourceURL:  firstNonEmpty(item.SourceURL, textutil.BaseURL(firstNonEmpty(meta.ResolvedURL, item.URL))),
	})
}

// EnrichAll enriches the first budget items on a bounded worker pool.
// Items past the budget, and items whose worker fails, are returned unchanged.
func (e *Enricher) EnrichAll(ctx context.Context, items []models.TrendItem, budget int) []models.TrendItem {
	out := make([]models.TrendItem, len(items))
	copy(out, items)

	budget = min(budget, len(items))
	if budget <= 0 {
		return out
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < min(e.workers, budget); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				out[idx] = e.safeEnrich(ctx, items[idx])
			}
		}()
	}

	for idx := 0; idx < budget; idx++ {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return out
}

func (e *Enricher) safeEnrich(ctx context.Context, item models.TrendItem) (result models.TrendItem) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Warnf("Enrichment of %s failed: %v", item.ID, r)
			e.recorder.RecordEnrichment("recovered")
			result = item
		}
	}()
	return e.Enrich(ctx, item)
}

// summaryTooClose reports whether a summary merely restates the title
func summaryTooClose(summary, title string) bool {
	cleanSummary := ranking.Canonicalize(summary)
	cleanTitle := ranking.Canonicalize(title)
	if cleanSummary == "" || cleanTitle == "" {
		return true
	}
	if strings.HasPrefix(cleanSummary, cleanTitle) || strings.HasPrefix(cleanTitle, cleanSummary) {
		return true
	}

	titleWords := strings.Fields(cleanTitle)
	summaryWords := strings.Fields(cleanSummary)
	if len(summaryWords) > len(titleWords)+3 {
		return false
	}

	inTitle := make(map[string]struct{}, len(titleWords))
	for _, word := range titleWords {
		inTitle[word] = struct{}{}
	}
	overlap := make(map[string]struct{})
	for _, word := range summaryWords {
		if _, ok := inTitle[word]; ok {
			overlap[word] = struct{}{}
		}
	}
	return len(overlap) >= max(3, len(titleWords)-1)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

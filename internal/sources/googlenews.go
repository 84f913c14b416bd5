package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed/rss"
	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/categories"
	"github.com/trendtruth/trendtruth/internal/imagery"
	"github.com/trendtruth/trendtruth/internal/models"
	"github.com/trendtruth/trendtruth/internal/ranking"
	"github.com/trendtruth/trendtruth/internal/textutil"
	"github.com/trendtruth/trendtruth/internal/trust"
)

var newsTrailer = regexp.MustCompile(`\s+(Google News|Read more)\s*$`)

// NewsRecord is one item of a news RSS search. Source is empty when the feed names no publisher.
type NewsRecord struct {
	Title       string
	URL         string
	Source      string
	SourceURL   string
	Published   time.Time
	Description string
}

// usable reports whether the record can become a trend; evidence counts every record
func (r NewsRecord) usable() bool {
	return r.Title != "" && r.URL != ""
}

// GoogleNewsSource searches the Google News RSS endpoint
type GoogleNewsSource struct {
	client    *resty.Client
	now       func() time.Time
	searchURL string
}

// NewGoogleNewsSource creates a new Google News source
func NewGoogleNewsSource() *GoogleNewsSource {
	return &GoogleNewsSource{
		client: resty.New().
			SetTimeout(7*time.Second).
			SetHeader("User-Agent", browserUserAgent),
		now:       time.Now,
		searchURL: "https://news.google.com/rss/search",
	}
}

func (g *GoogleNewsSource) GetName() string {
	return "google_news"
}

func (g *GoogleNewsSource) IsEnabled() bool {
	return true
}

// FetchTrends searches one query bucket per category, or every bucket for All
func (g *GoogleNewsSource) FetchTrends(ctx context.Context, limit int, category string) ([]models.TrendItem, error) {
	buckets := []string{category}
	perBucket := max(4, limit)
	if category == categories.All {
		buckets = categories.Specific()
		perBucket = max(2, limit/len(buckets)+1)
	}

	// one slot per bucket keeps the merge order stable
	results := make([][]NewsRecord, len(buckets))
	errs := make([]error, len(buckets))
	var wg sync.WaitGroup

	for i, bucket := range buckets {
		wg.Add(1)
		go func(i int, bucket string) {
			defer wg.Done()
			query, ok := categories.NewsQueries[bucket]
			if !ok {
				query = categories.NewsQueries[categories.Trending]
			}
			results[i], errs[i] = g.Search(ctx, query, perBucket, regionFor(bucket))
		}(i, bucket)
	}
	wg.Wait()

	now := g.now()
	var trends []models.TrendItem
	var lastErr error
	for i, bucket := range buckets {
		if errs[i] != nil {
			logrus.Debugf("Google News bucket %s failed: %v", bucket, errs[i])
			lastErr = errs[i]
			continue
		}
		for _, record := range results[i] {
			if !record.usable() {
				continue
			}
			item := g.toTrend(record, bucket, now, 12, 220)
			item.ID = "gnews:" + stableID(bucket, record.URL, record.Title)
			item.Author = authorOr(record.Source, "Google News")
			trends = append(trends, item)
		}
	}

	if len(trends) == 0 && lastErr != nil {
		return nil, fmt.Errorf("google news unavailable: %w", lastErr)
	}

	return ranking.DedupeAndRank(trends, limit), nil
}

// SearchTrends runs the free-text query against the news index
func (g *GoogleNewsSource) SearchTrends(ctx context.Context, limit int, query, category string) ([]models.TrendItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	records, err := g.Search(ctx, query, max(8, limit), regionFor(category))
	if err != nil {
		return nil, err
	}

	now := g.now()
	fallback := categories.FallbackFor(category)
	var trends []models.TrendItem
	for _, record := range records {
		if !record.usable() {
			continue
		}
		itemCategory := categories.Infer(record.Title, fallback)
		item := g.toTrend(record, itemCategory, now, 14, 230)
		item.ID = "gnewsq:" + stableID(itemCategory, record.URL, record.Title)
		item.Author = item.SourceName
		item.Tags["mode"] = "query"
		trends = append(trends, item)
	}

	return ranking.DedupeAndRank(trends, limit), nil
}

// Search returns up to maxResults records for query in the given region (US, IN)
func (g *GoogleNewsSource) Search(ctx context.Context, query string, maxResults int, region string) ([]NewsRecord, error) {
	// the endpoint expects %20 for spaces, not '+'
	rawQuery := "q=" + strings.ReplaceAll(url.QueryEscape(query), "+", "%20") +
		"&hl=en-US&gl=" + region + "&ceid=" + region + ":en"

	resp, err := g.client.R().
		SetContext(ctx).
		Get(g.searchURL + "?" + rawQuery)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	parser := rss.Parser{}
	feed, err := parser.Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse news feed: %w", err)
	}

	now := g.now()
	var records []NewsRecord
	for i, item := range feed.Items {
		if i >= maxResults {
			break
		}
		record := NewsRecord{
			Title:       strings.TrimSpace(item.Title),
			URL:         strings.TrimSpace(item.Link),
			Published:   now,
			Description: strings.TrimSpace(item.Description),
		}
		if item.PubDateParsed != nil {
			record.Published = item.PubDateParsed.UTC()
		}
		if item.Source != nil {
			record.Source = strings.TrimSpace(item.Source.Title)
			record.SourceURL = strings.TrimSpace(item.Source.URL)
		}
		records = append(records, record)
	}

	return records, nil
}

func (g *GoogleNewsSource) toTrend(record NewsRecord, category string, now time.Time, floor float64, summaryLen int) models.TrendItem {
	created := record.Published.Unix()
	recency := recencyEngagement(created, now, floor)

	summary := textutil.StripHTML(record.Description)
	if summary != "" {
		summary = strings.TrimSpace(newsTrailer.ReplaceAllString(summary, ""))
	}
	if summary == "" {
		summary = textutil.FallbackSummary(record.Title)
	}

	sourceURL := record.SourceURL
	if sourceURL == "" {
		sourceURL = textutil.BaseURL(record.URL)
	}
	sourceName := record.Source
	if sourceName == "" {
		sourceName = authorOr(trust.DomainFromURL(record.URL), "Google News")
	}

	return models.TrendItem{
		Platform:   models.PlatformGoogleNews,
		Category:   category,
		Title:      record.Title,
		Summary:    textutil.CompactText(summary, summaryLen),
		ImageURL:   imagery.FallbackImage(imagery.ScreenshotTarget(record.URL, record.SourceURL)),
		SourceName: sourceName,
		SourceURL:  sourceURL,
		URL:        record.URL,
		CreatedUTC: created,
		Metrics: map[string]float64{
			"score":                 recency,
			"comments":              0,
			models.MetricEngagement: recency + freshnessBonus(created, now),
		},
		Tags: map[string]string{"publisher": record.Source},
	}
}

func regionFor(category string) string {
	if category == "india" {
		return "IN"
	}
	return "US"
}

var _ QuerySource = (*GoogleNewsSource)(nil)

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/categories"
	"github.com/trendtruth/trendtruth/internal/imagery"
	"github.com/trendtruth/trendtruth/internal/models"
	"github.com/trendtruth/trendtruth/internal/ranking"
	"github.com/trendtruth/trendtruth/internal/textutil"
	"github.com/trendtruth/trendtruth/internal/trust"
)

const hnItemURL = "https://news.ycombinator.com/item?id="

// HackerNewsSource implements Hacker News top stories and Algolia search
type HackerNewsSource struct {
	client        *resty.Client
	now           func() time.Time
	firebaseURL   string
	algoliaURL    string
	searchTimeout time.Duration
}

type hackerNewsItem struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
}

type algoliaResponse struct {
	Hits []struct {
		ObjectID    string `json:"objectID"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		Author      string `json:"author"`
		Points      int    `json:"points"`
		NumComments int    `json:"num_comments"`
		CreatedAtI  int64  `json:"created_at_i"`
	} `json:"hits"`
}

// NewHackerNewsSource creates a new Hacker News source
func NewHackerNewsSource() *HackerNewsSource {
	return &HackerNewsSource{
		client: resty.New().
			SetTimeout(6*time.Second).
			SetHeader("User-Agent", apiUserAgent),
		now:           time.Now,
		firebaseURL:   "https://hacker-news.firebaseio.com/v0",
		algoliaURL:    "https://hn.algolia.com/api/v1/search",
		searchTimeout: 5 * time.Second,
	}
}

func (h *HackerNewsSource) GetName() string {
	return "hacker_news"
}

func (h *HackerNewsSource) IsEnabled() bool {
	return true // Hacker News API doesn't require authentication
}

// FetchTrends walks the top stories list until limit stories have been collected
func (h *HackerNewsSource) FetchTrends(ctx context.Context, limit int, category string) ([]models.TrendItem, error) {
	itemIDs, err := h.getTopStories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get top stories: %w", err)
	}

	if len(itemIDs) > limit*5 {
		itemIDs = itemIDs[:limit*5]
	}

	fallback := categories.FallbackFor(category)
	var trends []models.TrendItem

	for _, itemID := range itemIDs {
		select {
		case <-ctx.Done():
			return ranking.DedupeAndRank(trends, limit), nil
		default:
		}

		item, err := h.getItem(ctx, itemID)
		if err != nil {
			logrus.Debugf("Failed to get HN item %d: %v", itemID, err)
			continue
		}
		if item == nil || item.Type != "story" {
			continue
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		link := item.URL
		if link == "" {
			link = hnItemURL + strconv.Itoa(itemID)
		}
		created := item.Time
		if created == 0 {
			created = h.now().Unix()
		}
		domain := trust.DomainFromURL(link)

		trends = append(trends, h.toTrend(
			fmt.Sprintf("hn:%d", itemID),
			title,
			textutil.CompactText(title+" Community signal from Hacker News. Open the article for full context.", 190),
			link,
			authorOr(domain, "Hacker News"),
			textutil.BaseURL(link),
			authorOr(item.By, "unknown"),
			created,
			item.Score,
			item.Descendants,
			categories.Infer(title, fallback),
			map[string]string{"domain": domain},
		))
		if len(trends) >= limit {
			break
		}
	}

	return ranking.DedupeAndRank(trends, limit), nil
}

// SearchTrends queries the Algolia full-text index for stories
func (h *HackerNewsSource) SearchTrends(ctx context.Context, limit int, query, category string) ([]models.TrendItem, error) {
	ctx, cancel := context.WithTimeout(ctx, h.searchTimeout)
	defer cancel()

	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":       query,
			"tags":        "story",
			"hitsPerPage": strconv.Itoa(max(8, limit*2)),
		}).
		Get(h.algoliaURL)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var payload algoliaResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode algolia response: %w", err)
	}

	fallback := categories.FallbackFor(category)
	var trends []models.TrendItem
	for _, hit := range payload.Hits {
		title := strings.TrimSpace(hit.Title)
		if title == "" {
			continue
		}
		link := strings.TrimSpace(hit.URL)
		if link == "" {
			link = hnItemURL + hit.ObjectID
		}
		created := hit.CreatedAtI
		if created == 0 {
			created = h.now().Unix()
		}
		sourceURL := textutil.BaseURL(link)
		if sourceURL == "" {
			sourceURL = "https://news.ycombinator.com"
		}

		trends = append(trends, h.toTrend(
			"hnq:"+hit.ObjectID,
			title,
			textutil.CompactText(title+" Discovered via Hacker News query results. Open source article for full details.", 220),
			link,
			authorOr(trust.DomainFromURL(link), "news.ycombinator.com"),
			sourceURL,
			authorOr(hit.Author, "unknown"),
			created,
			hit.Points,
			hit.NumComments,
			categories.Infer(title, fallback),
			map[string]string{"mode": "query"},
		))
		if len(trends) >= limit {
			break
		}
	}

	return ranking.DedupeAndRank(trends, limit), nil
}

func (h *HackerNewsSource) toTrend(id, title, summary, link, sourceName, sourceURL, author string, created int64, score, comments int, category string, tags map[string]string) models.TrendItem {
	return models.TrendItem{
		ID:         id,
		Platform:   models.PlatformHackerNews,
		Category:   category,
		Title:      title,
		Summary:    summary,
		ImageURL:   imagery.FallbackImage(link),
		SourceName: sourceName,
		SourceURL:  sourceURL,
		URL:        link,
		Author:     author,
		CreatedUTC: created,
		Metrics: map[string]float64{
			"score":                 float64(score),
			"comments":              float64(comments),
			models.MetricEngagement: math.Max(0, float64(score+comments*3)),
		},
		Tags: tags,
	}
}

func (h *HackerNewsSource) getTopStories(ctx context.Context) ([]int, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		Get(h.firebaseURL + "/topstories.json")
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var itemIDs []int
	if err := json.Unmarshal(resp.Body(), &itemIDs); err != nil {
		return nil, err
	}

	return itemIDs, nil
}

func (h *HackerNewsSource) getItem(ctx context.Context, itemID int) (*hackerNewsItem, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/item/%d.json", h.firebaseURL, itemID))
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var item *hackerNewsItem
	if err := json.Unmarshal(resp.Body(), &item); err != nil {
		return nil, err
	}

	return item, nil
}

var _ QuerySource = (*HackerNewsSource)(nil)

package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed/rss"
	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/categories"
	"github.com/trendtruth/trendtruth/internal/imagery"
	"github.com/trendtruth/trendtruth/internal/models"
	"github.com/trendtruth/trendtruth/internal/ranking"
	"github.com/trendtruth/trendtruth/internal/textutil"
)

var nitterAuthorPrefix = regexp.MustCompile(`^[^:]+:\s*`)

// TwitterSource implements X recent search, with a nitter RSS probe when no token is set
type TwitterSource struct {
	bearerToken     string
	nitterInstances []string
	client          *resty.Client
	now             func() time.Time
	apiURL          string
	nitterBudget    time.Duration
}

type twitterSearchResponse struct {
	Data []twitterTweet `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type twitterTweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		RetweetCount int `json:"retweet_count"`
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
		QuoteCount   int `json:"quote_count"`
	} `json:"public_metrics"`
}

// NewTwitterSource creates a new X source
func NewTwitterSource(bearerToken string, nitterInstances []string) *TwitterSource {
	return &TwitterSource{
		bearerToken:     strings.TrimSpace(bearerToken),
		nitterInstances: nitterInstances,
		client: resty.New().
			SetTimeout(12*time.Second).
			SetHeader("User-Agent", apiUserAgent),
		now:          time.Now,
		apiURL:       "https://api.twitter.com/2/tweets/search/recent",
		nitterBudget: time.Second,
	}
}

func (t *TwitterSource) GetName() string {
	return "x"
}

// IsEnabled is always true; without a token the nitter probe is used
func (t *TwitterSource) IsEnabled() bool {
	return true
}

// HasAPIToken reports whether the X API bearer token is configured
func (t *TwitterSource) HasAPIToken() bool {
	return t.bearerToken != ""
}

func (t *TwitterSource) FetchTrends(ctx context.Context, limit int, category string) ([]models.TrendItem, error) {
	if t.HasAPIToken() {
		return t.searchRecent(ctx, limit, category)
	}
	logrus.Debug("X bearer token missing - probing nitter RSS")
	return t.nitterFallback(ctx, limit, category)
}

func (t *TwitterSource) searchRecent(ctx context.Context, limit int, category string) ([]models.TrendItem, error) {
	query, ok := categories.XQueries[category]
	if !ok || category == categories.All {
		query = categories.XQueries[categories.Trending]
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetAuthToken(t.bearerToken).
		SetQueryParams(map[string]string{
			"query":        query,
			"max_results":  strconv.Itoa(min(100, max(10, limit*2))),
			"tweet.fields": "created_at,public_metrics,author_id",
		}).
		Get(t.apiURL)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var searchResp twitterSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode X search response: %w", err)
	}

	tweets := searchResp.Data
	if len(tweets) > limit*2 {
		tweets = tweets[:limit*2]
	}

	fallback := categories.FallbackFor(category)
	var trends []models.TrendItem
	for _, tweet := range tweets {
		text := strings.TrimSpace(strings.ReplaceAll(tweet.Text, "\n", " "))
		if text == "" {
			continue
		}

		metrics := tweet.PublicMetrics
		created := t.now().Unix()
		if parsed, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
			created = parsed.Unix()
		}
		statusURL := "https://x.com/i/web/status/" + tweet.ID
		engagement := metrics.LikeCount + 2*(metrics.RetweetCount+metrics.ReplyCount+metrics.QuoteCount)

		trends = append(trends, models.TrendItem{
			ID:         "x:" + tweet.ID,
			Platform:   models.PlatformX,
			Category:   categories.Infer(text, fallback),
			Title:      text,
			Summary:    textutil.CompactText(text, 210),
			ImageURL:   imagery.ScreenshotURL(statusURL),
			SourceName: "x.com",
			SourceURL:  "https://x.com",
			URL:        statusURL,
			Author:     authorOr(tweet.AuthorID, "unknown"),
			CreatedUTC: created,
			Metrics: map[string]float64{
				"score":                 float64(metrics.LikeCount),
				"comments":              float64(metrics.ReplyCount),
				"reposts":               float64(metrics.RetweetCount),
				"quotes":                float64(metrics.QuoteCount),
				models.MetricEngagement: math.Max(0, float64(engagement)),
			},
		})
	}

	return ranking.DedupeAndRank(trends, limit), nil
}

// nitterFallback probes a single account on a single instance within the nitter budget
func (t *TwitterSource) nitterFallback(ctx context.Context, limit int, category string) ([]models.TrendItem, error) {
	accounts, ok := categories.NitterAccounts[category]
	if !ok {
		accounts = categories.NitterAccounts[categories.Trending]
	}
	if category == categories.All {
		accounts = append(append([]string{}, categories.NitterAccounts[categories.Trending]...), categories.NitterAccounts["sports"]...)
	}
	if len(accounts) == 0 || len(t.nitterInstances) == 0 {
		return nil, nil
	}
	account := accounts[0]
	instance := strings.TrimRight(t.nitterInstances[0], "/")

	ctx, cancel := context.WithTimeout(ctx, t.nitterBudget)
	defer cancel()

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", browserUserAgent).
		Get(fmt.Sprintf("%s/%s/rss", instance, account))
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	parser := rss.Parser{}
	feed, err := parser.Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse nitter feed: %w", err)
	}

	now := t.now()
	fallback := categories.FallbackFor(category)
	var trends []models.TrendItem
	for i, item := range feed.Items {
		if i >= 2 || len(trends) >= limit {
			break
		}
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}
		cleanTitle := strings.TrimSpace(nitterAuthorPrefix.ReplaceAllString(title, ""))
		created := now.Unix()
		if item.PubDateParsed != nil {
			created = item.PubDateParsed.Unix()
		}
		engagement := recencyEngagement(created, now, 8)
		itemCategory := categories.Infer(cleanTitle, fallback)

		trends = append(trends, models.TrendItem{
			ID:         "xrss:" + stableID(itemCategory, link, cleanTitle),
			Platform:   models.PlatformX,
			Category:   itemCategory,
			Title:      cleanTitle,
			Summary:    textutil.CompactText(cleanTitle, 210),
			ImageURL:   imagery.ScreenshotURL(link),
			SourceName: "x.com",
			SourceURL:  "https://x.com",
			URL:        link,
			Author:     account,
			CreatedUTC: created,
			Metrics: map[string]float64{
				"score":                 engagement,
				"comments":              0,
				models.MetricEngagement: engagement,
			},
			Tags: map[string]string{"mode": "nitter_fallback"},
		})
	}

	return ranking.DedupeAndRank(trends, limit), nil
}

var _ MicroblogSource = (*TwitterSource)(nil)

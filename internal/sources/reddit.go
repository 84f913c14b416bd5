package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/categories"
	"github.com/trendtruth/trendtruth/internal/imagery"
	"github.com/trendtruth/trendtruth/internal/models"
	"github.com/trendtruth/trendtruth/internal/ranking"
	"github.com/trendtruth/trendtruth/internal/textutil"
	"github.com/trendtruth/trendtruth/internal/trust"
	"golang.org/x/time/rate"
)

const redditHome = "https://www.reddit.com"

// RedditSource reads hot listings and search results from Reddit.
// Anonymous JSON endpoints are used unless OAuth credentials are configured.
type RedditSource struct {
	clientID     string
	clientSecret string
	client       *resty.Client
	limiter      *rate.Limiter
	now          func() time.Time

	baseURL  string
	oauthURL string
	authURL  string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Selftext      string  `json:"selftext"`
	Author        string  `json:"author"`
	Subreddit     string  `json:"subreddit"`
	URL           string  `json:"url"`
	URLOverridden string  `json:"url_overridden_by_dest"`
	Permalink     string  `json:"permalink"`
	Thumbnail     string  `json:"thumbnail"`
	Created       float64 `json:"created_utc"`
	Score         int     `json:"score"`
	NumComments   int     `json:"num_comments"`
	Stickied      bool    `json:"stickied"`
	Preview       struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

// NewRedditSource creates a new Reddit source paced at requestsPerMinute
func NewRedditSource(clientID, clientSecret string, requestsPerMinute int) *RedditSource {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       resty.New().SetTimeout(6 * time.Second),
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 10),
		now:          time.Now,
		baseURL:      redditHome,
		oauthURL:     "https://oauth.reddit.com",
		authURL:      "https://www.reddit.com/api/v1/access_token",
	}
}

func (r *RedditSource) GetName() string {
	return "reddit"
}

// IsEnabled is always true; credentials only switch to the OAuth host
func (r *RedditSource) IsEnabled() bool {
	return true
}

func (r *RedditSource) hasCredentials() bool {
	return r.clientID != "" && r.clientSecret != ""
}

// FetchTrends reads the hot listing of every subreddit mapped to the category
func (r *RedditSource) FetchTrends(ctx context.Context, limit int, category string) ([]models.TrendItem, error) {
	subreddits, ok := categories.Subreddits[category]
	if !ok || category == categories.All {
		subreddits = categories.DefaultSubreddits
	}
	perSub := max(3, limit/max(len(subreddits), 1)+2)

	var trends []models.TrendItem
	var lastErr error

	for _, subreddit := range subreddits {
		listing, err := r.getListing(ctx, fmt.Sprintf("/r/%s/hot.json", subreddit), map[string]string{
			"limit": strconv.Itoa(perSub),
		})
		if err != nil {
			logrus.Debugf("Failed to read r/%s: %v", subreddit, err)
			lastErr = err
			continue
		}

		hint := category
		if category == categories.All {
			hint = categories.SubredditHints[subreddit]
			if hint == "" {
				hint = categories.Trending
			}
		}

		for _, child := range listing.Data.Children {
			post := child.Data
			if post.Stickied {
				continue
			}
			item, ok := r.toTrend(post, "reddit:", categories.Infer(strings.TrimSpace(post.Title), hint), 210)
			if !ok {
				continue
			}
			if item.Summary == "" {
				item.Summary = textutil.FallbackSummary(item.Title)
			}
			if item.SourceName == "" {
				item.SourceName = "r/" + subreddit
			}
			item.Tags["subreddit"] = subreddit
			trends = append(trends, item)
		}
	}

	if len(trends) == 0 && lastErr != nil {
		return nil, fmt.Errorf("reddit listings unavailable: %w", lastErr)
	}

	return ranking.DedupeAndRank(trends, limit), nil
}

// SearchTrends runs a site-wide search, retrying the r/all endpoint when the first is empty
func (r *RedditSource) SearchTrends(ctx context.Context, limit int, query, category string) ([]models.TrendItem, error) {
	params := map[string]string{
		"q":               query,
		"sort":            "relevance",
		"t":               "all",
		"limit":           strconv.Itoa(max(12, limit*3)),
		"raw_json":        "1",
		"include_over_18": "on",
		"type":            "link",
	}

	listing, err := r.getListing(ctx, "/search.json", params)
	if err != nil || len(listing.Data.Children) == 0 {
		if err != nil {
			logrus.Debugf("Reddit search failed, trying r/all: %v", err)
		}
		params["restrict_sr"] = "false"
		listing, err = r.getListing(ctx, "/r/all/search.json", params)
		if err != nil {
			return nil, fmt.Errorf("reddit search unavailable: %w", err)
		}
	}

	fallback := categories.FallbackFor(category)
	var trends []models.TrendItem
	for _, child := range listing.Data.Children {
		post := child.Data
		item, ok := r.toTrend(post, "redditq:", categories.Infer(strings.TrimSpace(post.Title), fallback), 220)
		if !ok {
			continue
		}
		if item.SourceName == "" {
			item.SourceName = "reddit.com"
			if post.Subreddit != "" {
				item.SourceName = "r/" + post.Subreddit
			}
		}
		item.Tags["subreddit"] = post.Subreddit
		item.Tags["mode"] = "query"
		trends = append(trends, item)
		if len(trends) >= limit {
			break
		}
	}

	return ranking.DedupeAndRank(trends, limit), nil
}

// toTrend maps a post; SourceName is left empty when the post has no external link
func (r *RedditSource) toTrend(post redditPost, idPrefix, category string, summaryLen int) (models.TrendItem, bool) {
	title := strings.TrimSpace(post.Title)
	if title == "" {
		return models.TrendItem{}, false
	}

	created := int64(post.Created)
	if created == 0 {
		created = r.now().Unix()
	}

	permalinkURL := ""
	if post.Permalink != "" {
		permalinkURL = redditHome + post.Permalink
	}
	external := externalURL(post)
	link := external
	if link == "" {
		link = permalinkURL
	}

	summarySource := textutil.StripHTML(post.Selftext)
	if summarySource == "" {
		summarySource = title
	}

	sourceURL := textutil.BaseURL(external)
	if sourceURL == "" {
		sourceURL = redditHome
	}

	score := float64(post.Score)
	comments := float64(post.NumComments)

	return models.TrendItem{
		ID:         idPrefix + post.ID,
		Platform:   models.PlatformReddit,
		Category:   category,
		Title:      title,
		Summary:    textutil.CompactText(summarySource, summaryLen),
		ImageURL:   postImage(post),
		SourceName: trust.DomainFromURL(external),
		SourceURL:  sourceURL,
		URL:        link,
		Author:     authorOr(post.Author, "unknown"),
		CreatedUTC: created,
		Metrics: map[string]float64{
			"score":                 score,
			"comments":              comments,
			models.MetricEngagement: math.Max(0, score+comments*2),
		},
		Tags: map[string]string{},
	}, true
}

func externalURL(post redditPost) string {
	if post.URLOverridden != "" {
		return strings.TrimSpace(post.URLOverridden)
	}
	return strings.TrimSpace(post.URL)
}

func postImage(post redditPost) string {
	image := ""
	if strings.HasPrefix(post.Thumbnail, "http") {
		image = html.UnescapeString(post.Thumbnail)
	}
	if image == "" && len(post.Preview.Images) > 0 {
		image = html.UnescapeString(post.Preview.Images[0].Source.URL)
	}
	if imagery.LooksLikeBrandAsset(image) {
		return ""
	}
	return image
}

func (r *RedditSource) getListing(ctx context.Context, path string, params map[string]string) (*redditListing, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", apiUserAgent).
		SetQueryParams(params)

	host := r.baseURL
	if r.hasCredentials() {
		token, err := r.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("reddit authentication failed: %w", err)
		}
		req.SetAuthToken(token)
		host = r.oauthURL
	}

	resp, err := req.Get(host + path)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, fmt.Errorf("failed to decode reddit listing: %w", err)
	}
	return &listing, nil
}

func (r *RedditSource) token(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accessToken != "" && r.now().Before(r.tokenExpiry) {
		return r.accessToken, nil
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", apiUserAgent).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
		}).
		Post(r.authURL)
	if err != nil {
		return "", err
	}
	if err := checkResponse(resp); err != nil {
		return "", err
	}

	var authResp redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &authResp); err != nil {
		return "", err
	}
	if authResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}

	r.accessToken = authResp.AccessToken
	// refresh a minute early
	r.tokenExpiry = r.now().Add(time.Duration(authResp.ExpiresIn)*time.Second - time.Minute)
	return r.accessToken, nil
}

var _ QuerySource = (*RedditSource)(nil)

package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendtruth/trendtruth/internal/models"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func fixedClock() time.Time { return fixedNow }

func TestSources_GetName(t *testing.T) {
	assert.Equal(t, "reddit", NewRedditSource("", "", 60).GetName())
	assert.Equal(t, "hacker_news", NewHackerNewsSource().GetName())
	assert.Equal(t, "google_news", NewGoogleNewsSource().GetName())
	assert.Equal(t, "x", NewTwitterSource("", nil).GetName())
}

func TestTwitterSource_HasAPIToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected bool
	}{
		{name: "With token", token: "abc", expected: true},
		{name: "Blank token", token: "   ", expected: false},
		{name: "No token", token: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewTwitterSource(tt.token, nil)
			assert.Equal(t, tt.expected, source.HasAPIToken())
			assert.True(t, source.IsEnabled())
		})
	}
}

const redditListingFixture = `{"data":{"children":[
 {"data":{"id":"s1","title":"Weekly discussion thread","stickied":true,"score":900,"num_comments":900,"created_utc":1699990000}},
 {"data":{"id":"a1","title":"Champions league final ends in penalty drama","url":"https://www.espn.com/soccer/story","permalink":"/r/soccer/comments/a1/x/","thumbnail":"https://i.redd.it/photo.jpg?a=1&amp;b=2","score":100,"num_comments":20,"author":"fan","created_utc":1699996400}},
 {"data":{"id":"a2","title":"What is your favourite team?","selftext":"Asking for a friend","permalink":"/r/soccer/comments/a2/y/","thumbnail":"self","score":5,"num_comments":1,"created_utc":1699996400}}
]}}`

func newRedditTestSource(serverURL string) *RedditSource {
	source := NewRedditSource("", "", 6000)
	source.baseURL = serverURL
	source.now = fixedClock
	return source
}

func TestRedditSource_FetchTrends(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, redditListingFixture)
	}))
	defer server.Close()

	source := newRedditTestSource(server.URL)
	items, err := source.FetchTrends(context.Background(), 10, "sports")
	require.NoError(t, err)

	// every sports subreddit is read, duplicates across subreddits collapse
	assert.Contains(t, paths, "/r/cricket/hot.json")
	require.Len(t, items, 2)

	top := items[0]
	assert.Equal(t, "reddit:a1", top.ID)
	assert.Equal(t, models.PlatformReddit, top.Platform)
	assert.Equal(t, "sports", top.Category)
	assert.Equal(t, 140.0, top.Engagement())
	assert.Equal(t, "espn.com", top.SourceName)
	assert.Equal(t, "https://www.espn.com", top.SourceURL)
	assert.Equal(t, "https://i.redd.it/photo.jpg?a=1&b=2", top.ImageURL)
	assert.Equal(t, "https://www.espn.com/soccer/story", top.URL)

	self := items[1]
	assert.Equal(t, "Asking for a friend", self.Summary)
	assert.True(t, strings.HasPrefix(self.SourceName, "r/"))
	assert.Equal(t, "https://www.reddit.com/r/soccer/comments/a2/y/", self.URL)
	assert.Equal(t, "unknown", self.Author)
	assert.Empty(t, self.ImageURL)
}

func TestRedditSource_SearchFallsBackToAllEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search.json":
			assert.Equal(t, "measles outbreak", r.URL.Query().Get("q"))
			assert.Equal(t, "36", r.URL.Query().Get("limit"))
			fmt.Fprint(w, `{"data":{"children":[]}}`)
		case "/r/all/search.json":
			assert.Equal(t, "false", r.URL.Query().Get("restrict_sr"))
			fmt.Fprint(w, redditListingFixture)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	source := newRedditTestSource(server.URL)
	items, err := source.SearchTrends(context.Background(), 12, "measles outbreak", "all")
	require.NoError(t, err)
	require.NotEmpty(t, items)

	for _, item := range items {
		assert.True(t, strings.HasPrefix(item.ID, "redditq:"))
		assert.Equal(t, "query", item.Tags["mode"])
	}
}

func TestRedditSource_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	source := newRedditTestSource(server.URL)
	items, err := source.FetchTrends(context.Background(), 5, "india")
	assert.Empty(t, items)
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestHackerNewsSource_FetchTrends(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/topstories.json":
			fmt.Fprint(w, `[1,2,3]`)
		case "/item/1.json":
			fmt.Fprint(w, `{"id":1,"type":"story","title":"New vaccine trial shows results","url":"https://www.nature.com/articles/x","score":50,"descendants":10,"by":"pg","time":1699990000}`)
		case "/item/2.json":
			fmt.Fprint(w, `{"id":2,"type":"comment","text":"nice"}`)
		case "/item/3.json":
			fmt.Fprint(w, `{"id":3,"type":"story","title":"Ask HN: What are you working on?","score":10,"descendants":1,"time":1699990000}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	source := NewHackerNewsSource()
	source.firebaseURL = server.URL
	source.now = fixedClock

	items, err := source.FetchTrends(context.Background(), 5, "all")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "hn:1", items[0].ID)
	assert.Equal(t, 80.0, items[0].Engagement())
	assert.Equal(t, "health", items[0].Category)
	assert.Equal(t, "nature.com", items[0].SourceName)
	assert.Contains(t, items[0].Summary, "Community signal from Hacker News")
	assert.True(t, strings.HasPrefix(items[0].ImageURL, "https://s.wordpress.com/mshots/v1/"))

	assert.Equal(t, "https://news.ycombinator.com/item?id=3", items[1].URL)
	assert.Equal(t, "news.ycombinator.com", items[1].SourceName)
}

func TestHackerNewsSource_SearchTrends(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "story", r.URL.Query().Get("tags"))
		assert.Equal(t, "8", r.URL.Query().Get("hitsPerPage"))
		fmt.Fprint(w, `{"hits":[
			{"objectID":"77","title":"Open source scheduler released","url":"","author":"dev","points":12,"num_comments":4,"created_at_i":1699990000},
			{"objectID":"78","title":"","points":1}
		]}`)
	}))
	defer server.Close()

	source := NewHackerNewsSource()
	source.algoliaURL = server.URL
	source.now = fixedClock

	items, err := source.SearchTrends(context.Background(), 4, "scheduler", "all")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "hnq:77", items[0].ID)
	assert.Equal(t, 24.0, items[0].Engagement())
	assert.Equal(t, "https://news.ycombinator.com", items[0].SourceURL)
}

func newsFeedFixture(titles ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>news</title>`)
	for i, title := range titles {
		fmt.Fprintf(&b, `<item><title>%s</title><link>https://news.google.com/rss/articles/%d</link>`+
			`<pubDate>Tue, 14 Nov 2023 21:13:20 GMT</pubDate>`+
			`<description>&lt;a href="x"&gt;%s&lt;/a&gt; Google News</description>`+
			`<source url="https://www.reuters.com">Reuters</source></item>`, title, i, title)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestGoogleNewsSource_FetchTrends_Category(t *testing.T) {
	var region atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		region.Store(r.URL.Query().Get("gl"))
		assert.Equal(t, "en-US", r.URL.Query().Get("hl"))
		fmt.Fprint(w, newsFeedFixture("Parliament passes budget bill", "Monsoon arrives early in Kerala"))
	}))
	defer server.Close()

	source := NewGoogleNewsSource()
	source.searchURL = server.URL
	source.now = fixedClock

	items, err := source.FetchTrends(context.Background(), 5, "india")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "IN", region.Load())

	for _, item := range items {
		assert.True(t, strings.HasPrefix(item.ID, "gnews:"))
		assert.Len(t, strings.TrimPrefix(item.ID, "gnews:"), 16)
		assert.Equal(t, "india", item.Category)
		assert.Equal(t, "Reuters", item.SourceName)
		assert.Equal(t, "https://www.reuters.com", item.SourceURL)
		assert.NotContains(t, item.Summary, "Google News")
		// screenshot targets the publisher, not the redirector
		assert.Contains(t, item.ImageURL, "reuters.com")
		// published an hour before the fixed clock: recency 120 plus 23 freshness points
		assert.Equal(t, 143.0, item.Engagement())
	}
}

func TestGoogleNewsSource_FetchTrends_AllBuckets(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		fmt.Fprint(w, newsFeedFixture(fmt.Sprintf("Story number %d", n)))
	}))
	defer server.Close()

	source := NewGoogleNewsSource()
	source.searchURL = server.URL
	source.now = fixedClock

	items, err := source.FetchTrends(context.Background(), 20, "all")
	require.NoError(t, err)
	assert.Equal(t, int32(10), calls.Load())
	assert.Len(t, items, 10)
}

func TestGoogleNewsSource_SearchTrends(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "flood relief", r.URL.Query().Get("q"))
		fmt.Fprint(w, newsFeedFixture("Flood relief efforts expand"))
	}))
	defer server.Close()

	source := NewGoogleNewsSource()
	source.searchURL = server.URL
	source.now = fixedClock

	items, err := source.SearchTrends(context.Background(), 5, "flood relief", "all")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, strings.HasPrefix(items[0].ID, "gnewsq:"))
	assert.Equal(t, "query", items[0].Tags["mode"])

	empty, err := source.SearchTrends(context.Background(), 5, "   ", "all")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGoogleNewsSource_SearchKeepsUntitledRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, newsFeedFixture("Flood relief efforts expand", ""))
	}))
	defer server.Close()

	source := NewGoogleNewsSource()
	source.searchURL = server.URL
	source.now = fixedClock

	records, err := source.Search(context.Background(), "flood relief", 8, "US")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	items, err := source.SearchTrends(context.Background(), 5, "flood relief", "all")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestTwitterSource_SearchRecent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "10", r.URL.Query().Get("max_results"))
		fmt.Fprint(w, `{"data":[{"id":"42","text":"Finals tonight\nwho wins?","author_id":"9","created_at":"2023-11-14T21:00:00.000Z",
			"public_metrics":{"like_count":10,"retweet_count":2,"reply_count":3,"quote_count":1}}]}`)
	}))
	defer server.Close()

	source := NewTwitterSource("token", nil)
	source.apiURL = server.URL
	source.now = fixedClock

	items, err := source.FetchTrends(context.Background(), 5, "sports")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "x:42", items[0].ID)
	assert.Equal(t, "Finals tonight who wins?", items[0].Title)
	assert.Equal(t, "https://x.com/i/web/status/42", items[0].URL)
	assert.Equal(t, 22.0, items[0].Engagement())
	assert.Equal(t, "x.com", items[0].SourceName)
}

func TestTwitterSource_NitterFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Reuters/rss", r.URL.Path)
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Reuters</title>
			<item><title>Reuters: Markets rally after rate decision</title><link>https://nitter.example/Reuters/status/1</link></item>
			<item><title>Reuters: Storm makes landfall</title><link>https://nitter.example/Reuters/status/2</link></item>
			<item><title>Reuters: Third story</title><link>https://nitter.example/Reuters/status/3</link></item>
			</channel></rss>`)
	}))
	defer server.Close()

	source := NewTwitterSource("", []string{server.URL + "/"})
	source.now = fixedClock

	items, err := source.FetchTrends(context.Background(), 5, "world")
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.True(t, strings.HasPrefix(item.ID, "xrss:"))
		assert.False(t, strings.HasPrefix(item.Title, "Reuters:"))
		assert.Equal(t, "nitter_fallback", item.Tags["mode"])
		assert.GreaterOrEqual(t, item.Engagement(), 8.0)
	}
}

func TestTwitterSource_NoInstances(t *testing.T) {
	source := NewTwitterSource("", nil)
	items, err := source.FetchTrends(context.Background(), 5, "all")
	assert.NoError(t, err)
	assert.Empty(t, items)
}

package sources

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/trendtruth/trendtruth/internal/models"
)

// ErrRateLimited is returned when a provider answers 429
var ErrRateLimited = errors.New("rate limited by provider")

const (
	apiUserAgent     = "TrendTruth/1.2 (+https://github.com/trendtruth/trendtruth)"
	browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Source interface defines the contract for all trend sources
type Source interface {
	GetName() string
	IsEnabled() bool
	FetchTrends(ctx context.Context, limit int, category string) ([]models.TrendItem, error)
}

// QuerySource is a source that can also search for a free-text query
type QuerySource interface {
	Source
	SearchTrends(ctx context.Context, limit int, query, category string) ([]models.TrendItem, error)
}

// MicroblogSource is a source whose health depends on whether an API token is configured
type MicroblogSource interface {
	Source
	HasAPIToken() bool
}

func checkResponse(resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.IsError():
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode(), resp.Request.URL)
	}
	return nil
}

// recencyEngagement turns item age into a popularity proxy for sources without counters
func recencyEngagement(createdUTC int64, now time.Time, floor float64) float64 {
	hoursOld := math.Max(1, float64(now.Unix()-createdUTC)/3600)
	return math.Floor(math.Max(floor, 120/hoursOld))
}

// freshnessBonus adds up to 24 points for items published within the last day
func freshnessBonus(createdUTC int64, now time.Time) float64 {
	ageHours := math.Max(1, float64(now.Unix()-createdUTC)/3600)
	return math.Floor(math.Max(0, 24-ageHours))
}

func stableID(category, link, title string) string {
	sum := sha1.Sum([]byte(category + "|" + link + "|" + title))
	return hex.EncodeToString(sum[:])[:16]
}

func authorOr(author, fallback string) string {
	if strings.TrimSpace(author) == "" {
		return fallback
	}
	return author
}

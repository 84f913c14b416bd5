package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrendItem_WithEnrichment(t *testing.T) {
	original := TrendItem{
		ID:         "reddit:1",
		Title:      "Title",
		Summary:    "original summary",
		SourceName: "example.com",
		Metrics:    map[string]float64{"engagement": 10},
		Tags:       map[string]string{"subreddit": "news"},
	}

	updated := original.WithEnrichment(Enrichment{
		Summary:   "better summary",
		ImageURL:  "https://example.com/a.jpg",
		SourceURL: "https://example.com",
	})

	assert.Equal(t, "better summary", updated.Summary)
	assert.Equal(t, "https://example.com/a.jpg", updated.ImageURL)
	assert.Equal(t, "example.com", updated.SourceName, "empty enrichment must not clear a field")
	assert.Equal(t, "https://example.com", updated.SourceURL)

	// the original value is left untouched, including its maps
	updated.Metrics["engagement"] = 99
	updated.Tags["subreddit"] = "other"
	assert.Equal(t, "original summary", original.Summary)
	assert.Equal(t, 10.0, original.Metrics["engagement"])
	assert.Equal(t, "news", original.Tags["subreddit"])
}

func TestTrendItem_Engagement(t *testing.T) {
	assert.Equal(t, 0.0, TrendItem{}.Engagement())
	assert.Equal(t, 0.0, TrendItem{Metrics: map[string]float64{"engagement": -4}}.Engagement())
	assert.Equal(t, 42.0, TrendItem{Metrics: map[string]float64{"engagement": 42}}.Engagement())
}

func TestTrendItem_Metric(t *testing.T) {
	item := TrendItem{Metrics: map[string]float64{"score": 7}}
	assert.Equal(t, 7.0, item.Metric("score", 1))
	assert.Equal(t, 1.0, item.Metric("comments", 1))
}

func TestAnalyzeResponse_HighRisk(t *testing.T) {
	resp := &AnalyzeResponse{Results: []AnalysisResult{
		{Verdict: VerdictHigh, Trend: TrendItem{ID: "a"}},
		{Verdict: VerdictLow, Trend: TrendItem{ID: "b"}},
		{Verdict: VerdictHigh, Trend: TrendItem{ID: "c"}},
	}}

	high := resp.HighRisk()
	assert.Len(t, high, 2)
	assert.Equal(t, "a", high[0].Trend.ID)
	assert.Equal(t, "c", high[1].Trend.ID)
}

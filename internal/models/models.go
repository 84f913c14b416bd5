package models

import "time"

// Platform identifies where a trend was collected
type Platform string

const (
	PlatformReddit     Platform = "Reddit"
	PlatformHackerNews Platform = "Hacker News"
	PlatformGoogleNews Platform = "Google News"
	PlatformX          Platform = "X"
)

// Verdict is the risk bucket assigned to a scored trend
type Verdict string

const (
	VerdictLow    Verdict = "Low Risk"
	VerdictMedium Verdict = "Medium Risk"
	VerdictHigh   Verdict = "High Risk"
)

// MetricEngagement is the derived popularity value every trend carries
const MetricEngagement = "engagement"

// TrendItem represents one trending record collected from a platform
type TrendItem struct {
	ID         string             `json:"id"`
	Platform   Platform           `json:"platform"`
	Category   string             `json:"category"`
	Title      string             `json:"title"`
	Summary    string             `json:"summary"`
	ImageURL   string             `json:"image_url"`
	SourceName string             `json:"source_name"`
	SourceURL  string             `json:"source_url"`
	URL        string             `json:"url"`
	Author     string             `json:"author"`
	CreatedUTC int64              `json:"created_utc"`
	Metrics    map[string]float64 `json:"metrics"`
	Tags       map[string]string  `json:"tags,omitempty"` // subreddit, domain, publisher, fetch mode
}

// Engagement returns the derived engagement metric, never negative
func (t TrendItem) Engagement() float64 {
	v := t.Metrics[MetricEngagement]
	if v < 0 {
		return 0
	}
	return v
}

// Metric returns a metric value or fallback when absent
func (t TrendItem) Metric(name string, fallback float64) float64 {
	if v, ok := t.Metrics[name]; ok {
		return v
	}
	return fallback
}

// Enrichment carries the derived fields that enrichment may replace
type Enrichment struct {
	Summary    string
	ImageURL   string
	SourceName string
	SourceURL  string
}

// WithEnrichment returns a copy of the trend with the non-empty enrichment fields applied.
// Empty values never overwrite existing ones and the receiver is left untouched.
func (t TrendItem) WithEnrichment(e Enrichment) TrendItem {
	out := t
	out.Metrics = cloneMetrics(t.Metrics)
	out.Tags = cloneTags(t.Tags)
	if e.Summary != "" {
		out.Summary = e.Summary
	}
	if e.ImageURL != "" {
		out.ImageURL = e.ImageURL
	}
	if e.SourceName != "" {
		out.SourceName = e.SourceName
	}
	if e.SourceURL != "" {
		out.SourceURL = e.SourceURL
	}
	return out
}

func cloneMetrics(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneTags(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// EvidenceArticle is one corroborating article found for a claim
type EvidenceArticle struct {
	Title        string    `json:"title"`
	Source       string    `json:"source"`
	SourceURL    string    `json:"source_url"`
	ArticleURL   string    `json:"article_url"`
	PublishedAt  time.Time `json:"published_at"`
	SourceWeight float64   `json:"source_weight"`
}

// EvidenceSummary aggregates the verification result for one claim
type EvidenceSummary struct {
	Query           string            `json:"query"`
	CredibleHits    int               `json:"credible_hits"`
	TotalHits       int               `json:"total_hits"`
	SourceDiversity int               `json:"source_diversity"`
	Confidence      float64           `json:"confidence"`
	Articles        []EvidenceArticle `json:"articles"`
}

// EmptyEvidence is the zero-confidence summary used when a lookup fails
func EmptyEvidence(query string) EvidenceSummary {
	return EvidenceSummary{Query: query, Articles: []EvidenceArticle{}}
}

// AnalysisResult is a trend together with its credibility assessment
type AnalysisResult struct {
	Trend            TrendItem       `json:"trend"`
	FakeProbability  float64         `json:"fake_probability"`
	SpreadIndex      float64         `json:"spread_index"`
	CredibilityScore float64         `json:"credibility_score"`
	Verdict          Verdict         `json:"verdict"`
	Reasons          []string        `json:"reasons"`
	Evidence         EvidenceSummary `json:"evidence"`
}

// AnalyzeResponse is the payload returned for an analyze request
type AnalyzeResponse struct {
	GeneratedAt         time.Time         `json:"generated_at"`
	AnalyzedCount       int               `json:"analyzed_count"`
	SelectedCategory    string            `json:"selected_category"`
	AvailableCategories []string          `json:"available_categories"`
	SourceHealth        map[string]string `json:"source_health"`
	Results             []AnalysisResult  `json:"results"`
}

// HighRisk returns the results carrying the High Risk verdict, in payload order
func (r *AnalyzeResponse) HighRisk() []AnalysisResult {
	var out []AnalysisResult
	for _, result := range r.Results {
		if result.Verdict == VerdictHigh {
			out = append(out, result)
		}
	}
	return out
}

// Digest represents a periodic summary of high-risk trends
type Digest struct {
	GeneratedAt   time.Time         `json:"generated_at"`
	Category      string            `json:"category"`
	TotalAnalyzed int               `json:"total_analyzed"`
	HighRisk      []AnalysisResult  `json:"high_risk"`
	SourceHealth  map[string]string `json:"source_health"`
}

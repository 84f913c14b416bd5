// Package scoring turns a trend and its corroborating evidence into a
// fabrication-risk assessment with human-readable reasons.
package scoring

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/trendtruth/trendtruth/internal/models"
	"github.com/trendtruth/trendtruth/internal/trust"
	"github.com/trendtruth/trendtruth/internal/verifier"
)

var sensationalKeywords = []string{
	"shocking",
	"must watch",
	"rumor",
	"unverified",
	"leaked",
	"explodes",
	"you won't believe",
	"viral",
	"breaking",
}

var platformAdjustment = map[models.Platform]float64{
	models.PlatformGoogleNews: -0.16,
	models.PlatformHackerNews: -0.06,
	models.PlatformReddit:     0.06,
	models.PlatformX:          0.10,
}

const (
	reasonStrongCorroboration  = "Multiple high-trust outlets reported related claims."
	reasonLimitedCorroboration = "Strong corroboration was limited in current checks."
	reasonPartialCorroboration = "Partial corroboration from trusted outlets was found."
	reasonLowDiversity         = "Low source diversity increases uncertainty."
	reasonSensational          = "Headline wording appears potentially sensational."
	reasonHighVelocity         = "High social velocity suggests rapid spread."
	reasonTrustedSource        = "Source has a strong historical trust profile."
	reasonDisclaimer           = "Assessment is probabilistic and may update with new evidence."
)

// EvidenceVerifier supplies corroboration for a claim
type EvidenceVerifier interface {
	Verify(ctx context.Context, claim string, resultCap int) models.EvidenceSummary
}

// Engine scores trends against evidence
type Engine struct {
	verifier EvidenceVerifier
	now      func() time.Time
}

// NewEngine creates an engine backed by the given verifier
func NewEngine(v EvidenceVerifier) *Engine {
	return &Engine{verifier: v, now: time.Now}
}

// WithClock replaces the time source used for the spread index
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Analyze verifies the trend title and scores the trend
func (e *Engine) Analyze(ctx context.Context, item models.TrendItem) models.AnalysisResult {
	evidence := e.verifier.Verify(ctx, item.Title, verifier.DefaultCap)
	return e.Score(item, evidence)
}

// Score combines language risk, spread, source trust and evidence into a result
func (e *Engine) Score(item models.TrendItem, evidence models.EvidenceSummary) models.AnalysisResult {
	languageRisk := LanguageRisk(item.Title)
	spread := SpreadIndex(item, e.now())
	sourceURL := item.SourceURL
	if sourceURL == "" {
		sourceURL = item.URL
	}
	sourceTrust := trust.Scoring.Lookup(item.SourceName, sourceURL)

	fake := FakeProbability(item.Platform, languageRisk, sourceTrust, evidence)
	credibility := clamp(1 - fake)

	return models.AnalysisResult{
		Trend:            item,
		FakeProbability:  round2(fake * 100),
		SpreadIndex:      spread,
		CredibilityScore: round2(credibility * 100),
		Verdict:          verdictFor(fake),
		Reasons:          reasons(evidence, languageRisk, spread, sourceTrust),
		Evidence:         evidence,
	}
}

// LanguageRisk scores sensational wording in a title, in [0, 1]
func LanguageRisk(title string) float64 {
	lower := strings.ToLower(title)
	hits := 0
	for _, keyword := range sensationalKeywords {
		if strings.Contains(lower, keyword) {
			hits++
		}
	}

	exclamation := 0.0
	if strings.Contains(title, "!") {
		exclamation = 0.15
	}

	capsWords := 0
	for _, word := range strings.Fields(title) {
		if utf8.RuneCountInString(word) > 4 && isUpper(word) {
			capsWords++
		}
	}
	caps := math.Min(0.2, float64(capsWords)*0.05)

	return clamp(float64(hits)*0.08 + exclamation + caps)
}

// isUpper reports whether word has at least one cased letter and no lower-case ones
func isUpper(word string) bool {
	cased := false
	for _, r := range word {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// SpreadIndex maps engagement per hour onto a saturating 0-100 scale
func SpreadIndex(item models.TrendItem, now time.Time) float64 {
	engagement, ok := item.Metrics[models.MetricEngagement]
	if !ok {
		engagement = item.Metric("score", 0) + item.Metric("comments", 0)
	}
	hoursOld := math.Max(1, float64(now.Unix()-item.CreatedUTC)/3600)
	velocity := engagement / hoursOld
	spread := 100 * (1 - math.Exp(-velocity/120))
	return round2(clamp(spread/100) * 100)
}

// FakeProbability composes the fabrication-risk fraction in [0, 1]
func FakeProbability(platform models.Platform, languageRisk, sourceTrust float64, evidence models.EvidenceSummary) float64 {
	weakEvidence := 0.10 * (1 - float64(min(evidence.TotalHits, 10))/10)
	lowDiversity := 0.0
	if evidence.SourceDiversity <= 1 {
		lowDiversity = 0.06
	}
	corroboration := float64(min(evidence.CredibleHits, 5)) * 0.05

	fake := clamp(0.40 -
		evidence.Confidence*0.72 -
		corroboration -
		sourceTrust*0.20 +
		platformAdjustment[platform] +
		languageRisk*0.20 +
		weakEvidence +
		lowDiversity)

	if sourceTrust >= 0.75 && evidence.CredibleHits >= 1 {
		fake = clamp(fake - 0.10)
	}
	if sourceTrust >= 0.85 && evidence.Confidence >= 0.45 {
		fake = clamp(fake - 0.08)
	}
	return fake
}

func verdictFor(fake float64) models.Verdict {
	switch {
	case fake <= 0.30:
		return models.VerdictLow
	case fake <= 0.60:
		return models.VerdictMedium
	default:
		return models.VerdictHigh
	}
}

func reasons(evidence models.EvidenceSummary, languageRisk, spread, sourceTrust float64) []string {
	var out []string
	switch {
	case evidence.CredibleHits >= 3:
		out = append(out, reasonStrongCorroboration)
	case evidence.CredibleHits == 0:
		out = append(out, reasonLimitedCorroboration)
	default:
		out = append(out, reasonPartialCorroboration)
	}

	if evidence.SourceDiversity <= 1 {
		out = append(out, reasonLowDiversity)
	}
	if languageRisk >= 0.2 {
		out = append(out, reasonSensational)
	}
	if spread >= 70 {
		out = append(out, reasonHighVelocity)
	}
	if sourceTrust >= 0.8 {
		out = append(out, reasonTrustedSource)
	}
	return append(out, reasonDisclaimer)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendtruth/trendtruth/internal/config"
	"github.com/trendtruth/trendtruth/internal/models"
	"gopkg.in/gomail.v2"
)

type fakeMailer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeMailer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func sampleResponse() *models.AnalyzeResponse {
	return &models.AnalyzeResponse{
		GeneratedAt:      time.Date(2026, 3, 9, 14, 5, 0, 0, time.UTC),
		AnalyzedCount:    3,
		SelectedCategory: "world",
		SourceHealth:     map[string]string{"reddit": "ok:2", "x": "fallback_rss"},
		Results: []models.AnalysisResult{
			{
				Trend:           models.TrendItem{Title: "Shocking rumor spreads", URL: "https://example.com/a", Platform: models.PlatformX, Summary: "A claim is circulating."},
				Verdict:         models.VerdictHigh,
				FakeProbability: 74.5,
				Reasons:         []string{"Low source diversity increases uncertainty."},
			},
			{Trend: models.TrendItem{Title: "Calm report"}, Verdict: models.VerdictLow},
			{Trend: models.TrendItem{Title: "Leaked memo"}, Verdict: models.VerdictHigh, FakeProbability: 66},
		},
	}
}

func TestNewDigest(t *testing.T) {
	digest := NewDigest(sampleResponse())

	assert.Equal(t, "world", digest.Category)
	assert.Equal(t, 3, digest.TotalAnalyzed)
	require.Len(t, digest.HighRisk, 2)
	assert.Equal(t, "Shocking rumor spreads", digest.HighRisk[0].Trend.Title)
	assert.Equal(t, "Leaked memo", digest.HighRisk[1].Trend.Title)
}

func TestSendDigest_Teams(t *testing.T) {
	var received TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewService(&config.Config{TeamsWebhookURL: server.URL})
	require.NoError(t, svc.SendDigest(context.Background(), NewDigest(sampleResponse())))

	assert.Equal(t, "MessageCard", received.Type)
	assert.Equal(t, "TrendTruth: 2 high-risk trends in world", received.Title)
	require.Len(t, received.Sections, 2)
	assert.Equal(t, []TeamsFact{
		{Name: "Category", Value: "world"},
		{Name: "Generated", Value: "2026-03-09 14:05:00 UTC"},
		{Name: "reddit", Value: "ok:2"},
		{Name: "x", Value: "fallback_rss"},
	}, received.Sections[0].Facts)
	assert.Contains(t, received.Sections[1].ActivityText, "[Shocking rumor spreads](https://example.com/a)")
}

func TestSendDigest_TeamsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad card", http.StatusBadRequest)
	}))
	defer server.Close()

	svc := NewService(&config.Config{TeamsWebhookURL: server.URL})
	err := svc.SendDigest(context.Background(), NewDigest(sampleResponse()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestSendDigest_Email(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewService(&config.Config{NotificationEmail: "desk@example.com", SMTPUsername: "bot@example.com"})
	svc.mailer = mailer

	require.NoError(t, svc.SendDigest(context.Background(), NewDigest(sampleResponse())))
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	assert.Equal(t, []string{"desk@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"TrendTruth: 2 high-risk trends in world"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Shocking rumor spreads")
	assert.Contains(t, buf.String(), "text/html")
}

func TestSendDigest_ChannelsFailIndependently(t *testing.T) {
	var teamsCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		teamsCalls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	mailer := &fakeMailer{err: errors.New("smtp unavailable")}
	svc := NewService(&config.Config{TeamsWebhookURL: server.URL, NotificationEmail: "desk@example.com"})
	svc.mailer = mailer

	err := svc.SendDigest(context.Background(), NewDigest(sampleResponse()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email: failed to send email: smtp unavailable")
	assert.NotContains(t, err.Error(), "Teams")
	assert.Equal(t, 1, teamsCalls)
}

func TestBuildEmailText(t *testing.T) {
	text := buildEmailText(NewDigest(sampleResponse()))

	assert.Contains(t, text, "High Risk: 2")
	assert.Contains(t, text, "1. Shocking rumor spreads")
	assert.Contains(t, text, "Fake probability: 74.5%")
	assert.Contains(t, text, "2. Leaked memo")
	assert.NotContains(t, text, "Calm report")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "héll...", truncate("héllo world", 4))
}

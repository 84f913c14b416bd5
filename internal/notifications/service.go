package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/config"
	"github.com/trendtruth/trendtruth/internal/models"
	"gopkg.in/gomail.v2"
)

const maxDigestItems = 10

// mailSender delivers composed messages; *gomail.Dialer satisfies it
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Service handles sending notifications via various channels
type Service struct {
	config *config.Config
	client *resty.Client
	mailer mailSender
}

var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
		mailer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// NewDigest collects the High Risk results of an analyze response
func NewDigest(resp *models.AnalyzeResponse) *models.Digest {
	return &models.Digest{
		GeneratedAt:   resp.GeneratedAt,
		Category:      resp.SelectedCategory,
		TotalAnalyzed: resp.AnalyzedCount,
		HighRisk:      resp.HighRisk(),
		SourceHealth:  resp.SourceHealth,
	}
}

// SendDigest sends the digest to every configured channel. A failing channel
// does not stop the others; all failures are reported together.
func (s *Service) SendDigest(ctx context.Context, digest *models.Digest) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(ctx, digest); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Sent high-risk digest to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(digest); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Sent high-risk digest via email")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) sendToTeams(ctx context.Context, digest *models.Digest) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(buildTeamsMessage(digest)).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func subject(digest *models.Digest) string {
	return fmt.Sprintf("TrendTruth: %d high-risk trends in %s", len(digest.HighRisk), digest.Category)
}

func buildTeamsMessage(digest *models.Digest) *TeamsMessage {
	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: "d13438",
		Title:      subject(digest),
		Text: fmt.Sprintf("%d of %d analyzed trends were rated High Risk",
			len(digest.HighRisk), digest.TotalAnalyzed),
	}

	facts := []TeamsFact{
		{Name: "Category", Value: digest.Category},
		{Name: "Generated", Value: digest.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
	}
	for _, name := range sortedKeys(digest.SourceHealth) {
		facts = append(facts, TeamsFact{Name: name, Value: digest.SourceHealth[name]})
	}
	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(digest.HighRisk) > 0 {
		var lines []string
		for _, result := range digest.HighRisk[:min(5, len(digest.HighRisk))] {
			lines = append(lines, fmt.Sprintf("**[%s](%s)** - %s, %.0f%% fake probability",
				result.Trend.Title, result.Trend.URL, result.Trend.Platform, result.FakeProbability))
		}
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "High Risk Trends",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(digest *models.Digest) error {
	htmlBody, err := buildEmailHTML(digest)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject(digest))
	m.SetBody("text/plain", buildEmailText(digest))
	m.AddAlternative("text/html", htmlBody)

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

var emailTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"truncate": truncate,
}).Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>TrendTruth High-Risk Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #d13438; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .trend { border-left: 4px solid #d13438; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .trend-title { font-weight: bold; margin-bottom: 5px; }
        .trend-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>High-Risk Trend Digest</h1>
        <p>{{.Category}} feed generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <p><strong>Analyzed:</strong> {{.TotalAnalyzed}}</p>
        <p><strong>High Risk:</strong> {{len .HighRisk}}</p>
        {{range $source, $status := .SourceHealth}}
        <p><strong>{{$source}}:</strong> {{$status}}</p>
        {{end}}
    </div>

    {{range $index, $result := .HighRisk}}{{if lt $index 10}}
    <div class="trend">
        <div class="trend-title"><a href="{{$result.Trend.URL}}" target="_blank">{{$result.Trend.Title}}</a></div>
        <div class="trend-meta">
            {{$result.Trend.Platform}} | {{$result.Trend.SourceName}} | fake probability {{printf "%.1f" $result.FakeProbability}}% | spread {{printf "%.1f" $result.SpreadIndex}}
        </div>
        {{if $result.Trend.Summary}}<p>{{truncate $result.Trend.Summary 200}}</p>{{end}}
        <ul>{{range $result.Reasons}}<li>{{.}}</li>{{end}}</ul>
    </div>
    {{end}}{{end}}

    <hr>
    <p><small>Assessments are probabilistic. This digest was generated automatically by TrendTruth.</small></p>
</body>
</html>
`))

func buildEmailHTML(digest *models.Digest) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, digest); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailText(digest *models.Digest) string {
	var text strings.Builder

	fmt.Fprintf(&text, "%s\n", subject(digest))
	fmt.Fprintf(&text, "Generated: %s\n\n", digest.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	fmt.Fprintf(&text, "Analyzed: %d\n", digest.TotalAnalyzed)
	fmt.Fprintf(&text, "High Risk: %d\n", len(digest.HighRisk))
	for _, name := range sortedKeys(digest.SourceHealth) {
		fmt.Fprintf(&text, "%s: %s\n", name, digest.SourceHealth[name])
	}

	if len(digest.HighRisk) > 0 {
		text.WriteString("\nHIGH RISK TRENDS\n")
		text.WriteString("================\n")

		for i, result := range digest.HighRisk[:min(maxDigestItems, len(digest.HighRisk))] {
			fmt.Fprintf(&text, "\n%d. %s\n", i+1, result.Trend.Title)
			fmt.Fprintf(&text, "   Platform: %s | Source: %s | Fake probability: %.1f%%\n",
				result.Trend.Platform, result.Trend.SourceName, result.FakeProbability)
			fmt.Fprintf(&text, "   URL: %s\n", result.Trend.URL)
			if result.Trend.Summary != "" {
				fmt.Fprintf(&text, "   Summary: %s\n", truncate(result.Trend.Summary, 200))
			}
		}
	}

	text.WriteString("\n---\nAssessments are probabilistic. This digest was generated automatically by TrendTruth.\n")
	return text.String()
}

func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length]) + "..."
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

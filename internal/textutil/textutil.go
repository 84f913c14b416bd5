// Package textutil holds the text cleanup shared by sources and enrichment.
package textutil

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	whitespace  = regexp.MustCompile(`[\s\p{Zs}]+`)
	stripPolicy = bluemonday.StrictPolicy()
)

// CompactText collapses whitespace and truncates to maxLen with a trailing "..."
func CompactText(text string, maxLen int) string {
	cleaned := strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	runes := []rune(cleaned)
	if len(runes) <= maxLen {
		return cleaned
	}
	return strings.TrimRight(string(runes[:maxLen-3]), " \t\n") + "..."
}

// StripHTML removes every tag, unescapes entities and collapses whitespace
func StripHTML(raw string) string {
	if raw == "" {
		return ""
	}
	// tags become spaces so adjacent block text does not run together
	spaced := strings.ReplaceAll(raw, "<", " <")
	text := stripPolicy.Sanitize(spaced)
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// FallbackSummary builds a neutral summary for items that came without one
func FallbackSummary(title string) string {
	return CompactText(title+". This is a trending story; open the official source for full details.", 200)
}

// BaseURL returns scheme://host of a link, or "" when the link is not absolute
func BaseURL(link string) string {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

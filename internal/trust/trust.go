// Package trust provides static publisher trust weights.
//
// Two tables exist: Evidence weighs corroborating articles found by the verifier and
// Scoring weighs the publisher of the trend itself. They are maintained separately
// and may drift apart; merging them would change scoring outcomes.
package trust

import (
	"net/url"
	"strings"
)

// CredibleWeight is the minimum weight for an article to count as a credible hit
const CredibleWeight = 0.75

// Entry is one weighted key, either a domain suffix or a publisher name fragment
type Entry struct {
	Key    string
	Weight float64
}

// Table matches domains by suffix and publisher names by substring.
// Entries are checked in order and the first match wins.
type Table struct {
	Domains []Entry
	Names   []Entry
}

// DomainWeight returns the weight of the first domain entry the domain ends with
func (t Table) DomainWeight(domain string) float64 {
	if domain == "" {
		return 0
	}
	for _, entry := range t.Domains {
		if strings.HasSuffix(domain, entry.Key) {
			return entry.Weight
		}
	}
	return 0
}

// NameWeight returns the weight of the first name entry contained in the publisher name
func (t Table) NameWeight(name string) float64 {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return 0
	}
	for _, entry := range t.Names {
		if strings.Contains(normalized, entry.Key) {
			return entry.Weight
		}
	}
	return 0
}

// Lookup returns the larger of the domain and publisher-name weights
func (t Table) Lookup(name, rawURL string) float64 {
	domainWeight := t.DomainWeight(DomainFromURL(rawURL))
	nameWeight := t.NameWeight(name)
	if domainWeight > nameWeight {
		return domainWeight
	}
	return nameWeight
}

// DomainFromURL returns the lower-cased host of a URL without "www."
func DomainFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(parsed.Host), "www.", "")
}

// Evidence weighs publishers of corroborating articles
var Evidence = Table{
	Domains: []Entry{
		{"reuters.com", 1.0},
		{"apnews.com", 1.0},
		{"bbc.com", 0.95},
		{"npr.org", 0.95},
		{"pbs.org", 0.92},
		{"nytimes.com", 0.9},
		{"wsj.com", 0.9},
		{"washingtonpost.com", 0.9},
		{"bloomberg.com", 0.88},
		{"financialtimes.com", 0.88},
		{"economist.com", 0.88},
		{"theguardian.com", 0.87},
		{"usatoday.com", 0.8},
		{"abcnews.go.com", 0.82},
		{"cnn.com", 0.78},
		{"cbsnews.com", 0.8},
		{"nbcnews.com", 0.8},
		{"aljazeera.com", 0.79},
		{"forbes.com", 0.72},
		{"techcrunch.com", 0.7},
		{"theverge.com", 0.7},
		{"thehindu.com", 0.84},
		{"indianexpress.com", 0.82},
		{"ndtv.com", 0.76},
		{"livemint.com", 0.78},
		{"hindustantimes.com", 0.76},
		{"timesofindia.indiatimes.com", 0.68},
		{"firstpost.com", 0.62},
	},
	Names: []Entry{
		{"reuters", 1.0},
		{"associated press", 1.0},
		{"ap news", 1.0},
		{"bbc", 0.95},
		{"npr", 0.95},
		{"pbs", 0.92},
		{"new york times", 0.9},
		{"wall street journal", 0.9},
		{"washington post", 0.9},
		{"bloomberg", 0.88},
		{"financial times", 0.88},
		{"the economist", 0.88},
		{"the guardian", 0.87},
		{"usa today", 0.8},
		{"abc news", 0.82},
		{"cnn", 0.78},
		{"cbs news", 0.8},
		{"nbc news", 0.8},
		{"al jazeera", 0.79},
		{"forbes", 0.72},
		{"techcrunch", 0.7},
		{"the verge", 0.7},
		{"the hindu", 0.84},
		{"indian express", 0.82},
		{"ndtv", 0.76},
		{"mint", 0.78},
		{"hindustan times", 0.76},
		{"times of india", 0.68},
	},
}

// Scoring weighs the publisher a trend was sourced from
var Scoring = Table{
	Domains: []Entry{
		{"reuters.com", 1.0},
		{"apnews.com", 1.0},
		{"bbc.com", 0.95},
		{"npr.org", 0.95},
		{"pbs.org", 0.92},
		{"nytimes.com", 0.9},
		{"wsj.com", 0.9},
		{"washingtonpost.com", 0.9},
		{"bloomberg.com", 0.88},
		{"financialtimes.com", 0.88},
		{"economist.com", 0.88},
		{"theguardian.com", 0.87},
		{"usatoday.com", 0.8},
		{"abcnews.go.com", 0.82},
		{"cnn.com", 0.78},
		{"cbsnews.com", 0.8},
		{"nbcnews.com", 0.8},
		{"aljazeera.com", 0.79},
		{"forbes.com", 0.72},
		{"techcrunch.com", 0.7},
		{"theverge.com", 0.7},
		{"thehindu.com", 0.84},
		{"indianexpress.com", 0.82},
		{"ndtv.com", 0.76},
		{"livemint.com", 0.78},
		{"hindustantimes.com", 0.76},
		{"timesofindia.indiatimes.com", 0.68},
		{"firstpost.com", 0.62},
	},
	Names: []Entry{
		{"reuters", 1.0},
		{"associated press", 1.0},
		{"ap news", 1.0},
		{"bbc", 0.95},
		{"npr", 0.95},
		{"pbs", 0.92},
		{"new york times", 0.9},
		{"wall street journal", 0.9},
		{"washington post", 0.9},
		{"bloomberg", 0.88},
		{"financial times", 0.88},
		{"the economist", 0.88},
		{"the guardian", 0.87},
		{"usa today", 0.8},
		{"abc news", 0.82},
		{"cnn", 0.78},
		{"cbs news", 0.8},
		{"nbc news", 0.8},
		{"al jazeera", 0.79},
		{"forbes", 0.72},
		{"techcrunch", 0.7},
		{"the verge", 0.7},
		{"the hindu", 0.84},
		{"indian express", 0.82},
		{"ndtv", 0.76},
		{"mint", 0.78},
		{"hindustan times", 0.76},
		{"times of india", 0.68},
	},
}

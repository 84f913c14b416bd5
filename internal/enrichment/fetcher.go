package enrichment

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/doyensec/safeurl"
	"github.com/go-resty/resty/v2"
)

// MaxPageBytes is how much of an article page is read for metadata
const MaxPageBytes = 300_000

const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Page is a fetched document after redirects
type Page struct {
	URL  string
	Body []byte
}

// PageFetcher retrieves article pages
type PageFetcher interface {
	Fetch(ctx context.Context, link string) (*Page, error)
}

// SafeFetcher fetches pages through an SSRF-guarded client and caps the body size
type SafeFetcher struct {
	client   *resty.Client
	maxBytes int64
}

// NewSafeFetcher creates a fetcher that refuses private, loopback and metadata addresses.
// A non-positive maxBytes selects MaxPageBytes.
func NewSafeFetcher(timeout time.Duration, maxBytes int64) *SafeFetcher {
	if maxBytes <= 0 {
		maxBytes = MaxPageBytes
	}
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	client := resty.NewWithClient(safeurl.Client(config).Client).
		SetHeader("User-Agent", browserUserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	return &SafeFetcher{client: client, maxBytes: maxBytes}
}

func (f *SafeFetcher) Fetch(ctx context.Context, link string) (*Page, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(link)
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode())
	}

	data, err := readCapped(body, f.maxBytes)
	if err != nil {
		return nil, err
	}

	finalURL := link
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	return &Page{URL: finalURL, Body: data}, nil
}

func readCapped(body io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}
	return data, nil
}

var _ PageFetcher = (*SafeFetcher)(nil)

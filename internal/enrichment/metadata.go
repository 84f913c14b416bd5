package enrichment

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/trendtruth/trendtruth/internal/cache"
	"github.com/trendtruth/trendtruth/internal/imagery"
	"github.com/trendtruth/trendtruth/internal/metrics"
	"github.com/trendtruth/trendtruth/internal/textutil"
	"github.com/trendtruth/trendtruth/internal/trust"
	"golang.org/x/net/html"
)

const maxParagraphs = 30

var (
	googleImage     = regexp.MustCompile(`https://lh3\.googleusercontent\.com/[^"'\s>\\]+`)
	googleImageSize = regexp.MustCompile(`=w\d+.*$`)
)

// Metadata is the best-effort description of an article page
type Metadata struct {
	Description string
	ImageURL    string
	SiteName    string
	ResolvedURL string
	PageTitle   string
}

// ParseMetadata extracts description, image, site name and title from a page
func ParseMetadata(body []byte, pageURL string) Metadata {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return Metadata{ResolvedURL: pageURL, SiteName: trust.DomainFromURL(pageURL)}
	}

	page := scanDocument(doc)
	isGoogle := strings.Contains(pageURL, "news.google.com")

	description := page.meta("og:description", "twitter:description", "description")
	if description == "" && !isGoogle {
		description = page.firstParagraph()
	}

	image := page.meta("og:image", "twitter:image")
	if image == "" && isGoogle {
		image = googleNewsImage(body)
	}
	if image != "" {
		image = resolveReference(pageURL, image)
	}
	if imagery.LooksLikeBrandAsset(image) {
		image = ""
	}

	siteName := page.meta("og:site_name")
	if siteName == "" {
		siteName = trust.DomainFromURL(pageURL)
	}

	return Metadata{
		Description: textutil.CompactText(textutil.StripHTML(description), 230),
		ImageURL:    image,
		SiteName:    textutil.CompactText(siteName, 70),
		ResolvedURL: pageURL,
		PageTitle:   textutil.CompactText(page.title, 180),
	}
}

type scannedPage struct {
	metas      map[string]string
	title      string
	paragraphs []string
}

func (p scannedPage) meta(keys ...string) string {
	for _, key := range keys {
		if value := p.metas[key]; value != "" {
			return value
		}
	}
	return ""
}

func (p scannedPage) firstParagraph() string {
	for _, paragraph := range p.paragraphs {
		candidate := textutil.CompactText(paragraph, 240)
		if utf8.RuneCountInString(candidate) < 70 {
			continue
		}
		lowered := strings.ToLower(candidate)
		if strings.Contains(lowered, "javascript") ||
			strings.Contains(lowered, "cookie") ||
			strings.Contains(lowered, "subscribe") {
			continue
		}
		return candidate
	}
	return ""
}

func scanDocument(doc *html.Node) scannedPage {
	page := scannedPage{metas: make(map[string]string)}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				key, content := "", ""
				for _, attr := range n.Attr {
					switch strings.ToLower(attr.Key) {
					case "property", "name":
						if key == "" {
							key = strings.ToLower(strings.TrimSpace(attr.Val))
						}
					case "content":
						content = strings.TrimSpace(attr.Val)
					}
				}
				// first occurrence wins
				if key != "" && content != "" && page.metas[key] == "" {
					page.metas[key] = content
				}
			case "title":
				if page.title == "" {
					page.title = textContent(n)
				}
			case "p":
				if len(page.paragraphs) < maxParagraphs {
					page.paragraphs = append(page.paragraphs, textContent(n))
				}
				return
			case "script", "style", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return page
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return textutil.CompactText(b.String(), 1<<16)
}

// googleNewsImage finds the article thumbnail embedded in a Google News interstitial
func googleNewsImage(body []byte) string {
	text := string(body)
	text = strings.ReplaceAll(text, `\u002F`, "/")
	text = strings.ReplaceAll(text, `\/`, "/")
	match := googleImage.FindString(text)
	if match == "" {
		return ""
	}
	return googleImageSize.ReplaceAllString(match, "=w1200-h630-p")
}

func resolveReference(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// MetadataReader reads article metadata with a cache of successful lookups
type MetadataReader struct {
	fetcher  PageFetcher
	cache    *cache.TTL[Metadata]
	timeout  time.Duration
	recorder metrics.Recorder
}

// NewMetadataReader creates a reader whose successful results live for ttl
func NewMetadataReader(fetcher PageFetcher, ttl, timeout time.Duration, recorder metrics.Recorder) *MetadataReader {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &MetadataReader{
		fetcher:  fetcher,
		cache:    cache.NewTTL[Metadata](ttl),
		timeout:  timeout,
		recorder: recorder,
	}
}

// Read returns the metadata for link; ok is false when the page could not be read
func (r *MetadataReader) Read(ctx context.Context, link string) (Metadata, bool) {
	if link == "" {
		return Metadata{}, false
	}

	if cached, found := r.cache.Get(link); found {
		r.recorder.RecordCacheLookup("metadata", true)
		return cached, true
	}
	r.recorder.RecordCacheLookup("metadata", false)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	page, err := r.fetcher.Fetch(ctx, link)
	if err != nil {
		logrus.Debugf("Metadata fetch failed for %s: %v", link, err)
		return Metadata{}, false
	}

	resolved := page.URL
	if resolved == "" {
		resolved = link
	}
	meta := ParseMetadata(page.Body, resolved)
	r.cache.Set(link, meta)
	return meta, true
}

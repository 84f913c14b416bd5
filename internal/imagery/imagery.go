// Package imagery decides which preview images are usable and synthesizes
// webpage screenshots when none are. It never touches the network.
package imagery

import (
	"net/url"
	"strings"
)

const (
	mshotsBase = "https://s.wordpress.com/mshots/v1/"
	thumBase   = "https://image.thum.io/get/width/900/noanimate/"

	// GenericFaviconMarker identifies favicon-service URLs that should be upgraded
	GenericFaviconMarker = "google.com/s2/favicons"

	googleArticleRedirector = "news.google.com/rss/articles/"
)

var brandMarkers = []string{
	"logo",
	"favicon",
	"icon",
	"sprite",
	"avatar",
	"brandmark",
	"masthead",
	"site-logo",
	"header-logo",
	"apple-touch-icon",
	"blank.gif",
	"spacer.gif",
	"pixel",
}

// LooksLikeBrandAsset reports whether an image URL is a logo, icon or tracking pixel
func LooksLikeBrandAsset(imageURL string) bool {
	if imageURL == "" {
		return false
	}
	lower := strings.ToLower(imageURL)
	for _, marker := range brandMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.HasSuffix(lower, ".svg")
}

// IsRedirector reports whether link is a Google News interstitial rather than the article
func IsRedirector(link string) bool {
	return strings.Contains(link, googleArticleRedirector)
}

// ScreenshotTarget picks the page to screenshot: the publisher site when the link is a
// redirector, otherwise the publisher site if known, otherwise the link itself.
func ScreenshotTarget(link, sourceURL string) string {
	if sourceURL != "" && IsRedirector(link) {
		return sourceURL
	}
	if sourceURL != "" {
		return sourceURL
	}
	return link
}

// ScreenshotURL builds the primary screenshot URL for a page
func ScreenshotURL(target string) string {
	if target == "" {
		return ""
	}
	return mshotsBase + escapeComponent(target) + "?w=900"
}

// AlternateScreenshotURL builds the secondary screenshot URL for a page
func AlternateScreenshotURL(target string) string {
	if target == "" {
		return ""
	}
	return thumBase + escapeComponent(target)
}

// escapeComponent percent-encodes every reserved byte, spaces as %20
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// FallbackImage returns the first synthesized screenshot available for the target
func FallbackImage(target string) string {
	if shot := ScreenshotURL(target); shot != "" {
		return shot
	}
	return AlternateScreenshotURL(target)
}

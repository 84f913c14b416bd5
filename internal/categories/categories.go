// Package categories holds the closed set of trend categories and the lookup data
// each source uses to query and classify them.
package categories

import "strings"

// All selects every category
const All = "all"

// Trending is the catch-all category for uncategorized items
const Trending = "trending"

// Order is the fixed category enumeration; balancing walks it in this order.
var Order = []string{
	All,
	"local",
	"india",
	"world",
	"entertainment",
	"health",
	Trending,
	"sports",
	"esports",
	"food",
	"events",
}

var labels = map[string]string{
	"all":           "All",
	"local":         "Local",
	"india":         "India",
	"world":         "World",
	"entertainment": "Entertainment",
	"health":        "Health",
	"trending":      "Trending",
	"sports":        "Sports",
	"esports":       "Esports",
	"food":          "Food",
	"events":        "Events",
}

// NewsQueries are the Google News searches used per category
var NewsQueries = map[string]string{
	"local":         "local city news breaking updates",
	"india":         "India breaking news latest updates",
	"world":         "world breaking news latest updates",
	"entertainment": "entertainment celebrity movie music news",
	"health":        "health medical public health news",
	"trending":      "viral trending breaking news social media",
	"sports":        "sports breaking scores tournaments news",
	"esports":       "esports tournament gaming league news",
	"food":          "food restaurant culinary agriculture news",
	"events":        "events festival conference live updates",
}

// DefaultSubreddits are browsed when no category is selected
var DefaultSubreddits = []string{
	"worldnews",
	"news",
	"technology",
	"science",
	"business",
	"politics",
}

// Subreddits maps a category to the subreddits browsed for it
var Subreddits = map[string][]string{
	"local":         {"news", "usanews"},
	"india":         {"india", "indianews"},
	"world":         {"worldnews", "news", "geopolitics"},
	"entertainment": {"entertainment", "movies", "television"},
	"health":        {"health", "medicine", "science"},
	"trending":      {"news", "worldnews", "technology", "sports"},
	"sports":        {"sports", "soccer", "cricket", "nba"},
	"esports":       {"esports", "valorant", "globaloffensive", "leagueoflegends"},
	"food":          {"food", "cooking", "recipes"},
	"events":        {"news", "events", "worldnews"},
}

// SubredditHints gives the category a subreddit implies when browsing everything
var SubredditHints = map[string]string{
	"worldnews":       "world",
	"news":            "local",
	"usanews":         "local",
	"india":           "india",
	"indianews":       "india",
	"entertainment":   "entertainment",
	"movies":          "entertainment",
	"television":      "entertainment",
	"health":          "health",
	"medicine":        "health",
	"sports":          "sports",
	"soccer":          "sports",
	"cricket":         "sports",
	"nba":             "sports",
	"esports":         "esports",
	"valorant":        "esports",
	"globaloffensive": "esports",
	"leagueoflegends": "esports",
	"food":            "food",
	"cooking":         "food",
	"recipes":         "food",
	"events":          "events",
}

type keywordSet struct {
	category string
	words    []string
}

// keywords is ordered: Infer returns the first category with a hit.
var keywords = []keywordSet{
	{"india", []string{"india", "delhi", "mumbai", "bengaluru", "new delhi", "kolkata"}},
	{"world", []string{"world", "global", "europe", "asia", "middle east", "africa"}},
	{"entertainment", []string{"movie", "music", "actor", "actress", "hollywood", "bollywood"}},
	{"health", []string{"health", "medical", "disease", "vaccine", "hospital", "doctor"}},
	{"sports", []string{"sports", "match", "league", "tournament", "goal", "cricket", "nba", "nfl"}},
	{"esports", []string{"esports", "valorant", "cs2", "counter-strike", "dota", "league of legends"}},
	{"food", []string{"food", "restaurant", "chef", "recipe", "culinary", "dining"}},
	{"events", []string{"festival", "summit", "conference", "event", "expo", "concert"}},
	{"local", []string{"local", "county", "city council", "statewide", "community"}},
}

// XQueries are the X recent-search queries per category
var XQueries = map[string]string{
	"local":         "(local news OR city updates) lang:en -is:retweet",
	"india":         "(India news OR India breaking) lang:en -is:retweet",
	"world":         "(world news OR global breaking) lang:en -is:retweet",
	"entertainment": "(entertainment OR celebrity OR movie release) lang:en -is:retweet",
	"health":        "(health news OR medical update OR WHO) lang:en -is:retweet",
	"trending":      "(news OR breaking OR viral) lang:en -is:retweet",
	"sports":        "(sports OR match OR finals) lang:en -is:retweet",
	"esports":       "(esports OR valorant OR cs2 OR dota2) lang:en -is:retweet",
	"food":          "(food news OR restaurant OR culinary) lang:en -is:retweet",
	"events":        "(event update OR festival OR conference) lang:en -is:retweet",
}

// NitterAccounts are the accounts probed over RSS when X has no API token
var NitterAccounts = map[string][]string{
	"india":         {"ndtv", "ANI", "the_hindu"},
	"world":         {"Reuters", "BBCWorld", "AP"},
	"entertainment": {"Variety", "RollingStone"},
	"health":        {"WHO", "CDCgov"},
	"sports":        {"espn", "SkySportsNews"},
	"esports":       {"ESPN_Esports", "Dexerto"},
	"food":          {"foodnetwork", "bonappetit"},
	"events":        {"LiveNation", "Eventbrite"},
	"trending":      {"Reuters", "AP", "BBCBreaking"},
	"local":         {"ABC", "CBSNews"},
}

// Category is an id/label pair exposed to clients
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Available returns every category in enumeration order
func Available() []Category {
	out := make([]Category, 0, len(Order))
	for _, id := range Order {
		out = append(out, Category{ID: id, Label: labels[id]})
	}
	return out
}

// IDs returns the category ids in enumeration order
func IDs() []string {
	return append([]string(nil), Order...)
}

// Normalize maps free-form input onto the enumeration; unknown values become All.
func Normalize(category string) string {
	normalized := strings.ToLower(strings.TrimSpace(category))
	if _, ok := labels[normalized]; ok {
		return normalized
	}
	return All
}

// Specific returns the enumeration without All
func Specific() []string {
	return Order[1:]
}

// Infer classifies a title by keyword, returning fallback when nothing matches
func Infer(title, fallback string) string {
	text := strings.ToLower(title)
	for _, set := range keywords {
		if containsAny(text, set.words) {
			return set.category
		}
	}
	return fallback
}

// Matches reports whether a title fits the category keyword set.
// All, Trending and categories without keywords match everything.
func Matches(title, category string) bool {
	if category == All || category == Trending {
		return true
	}
	for _, set := range keywords {
		if set.category == category {
			return containsAny(strings.ToLower(title), set.words)
		}
	}
	return true
}

// FallbackFor returns the category to tag items with when inference finds nothing
func FallbackFor(category string) string {
	if category == All {
		return Trending
	}
	return category
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

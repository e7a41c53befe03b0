package patterns

import (
	"slices"
	"strings"
)

var providers = []string{
	"Netflix", "Spotify", "Hulu", "Disney+", "Disney Plus", "HBO Max", "Amazon Prime",
	"Apple", "YouTube", "Audible", "Adobe", "Microsoft", "Dropbox", "Google", "iCloud",
	"Peloton", "Planet Fitness", "Paramount+", "Peacock", "Xbox", "PlayStation",
	"Nintendo", "LinkedIn", "Zoom", "Slack", "GitHub", "New York Times", "Wall Street Journal",
}

// Providers returns the known subscription provider names
func Providers() []string {
	return slices.Clone(providers)
}

// ProviderFor returns the first known provider named in description
func ProviderFor(description string) (string, bool) {
	lower := strings.ToLower(description)
	for _, p := range providers {
		if strings.Contains(lower, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

var subscriptionCategories = CategoryMap{
	{Category: "entertainment", Keywords: []string{"netflix", "hulu", "disney", "hbo", "spotify", "youtube", "paramount", "peacock", "audible", "prime video", "xbox", "playstation", "nintendo"}},
	{Category: "software", Keywords: []string{"adobe", "microsoft", "dropbox", "icloud", "google", "github", "zoom", "slack", "apple"}},
	{Category: "health", Keywords: []string{"gym", "fitness", "peloton", "yoga"}},
	{Category: "news", Keywords: []string{"times", "journal", "news", "magazine"}},
	{Category: "utilities", Keywords: []string{"verizon", "at&t", "t-mobile", "comcast", "xfinity", "internet", "wireless", "electric"}},
	{Category: "insurance", Keywords: []string{"insurance", "geico", "progressive"}},
	{Category: "shopping", Keywords: []string{"amazon prime", "costco membership", "walmart+"}},
}

// SubscriptionCategories returns the subscription category map
func SubscriptionCategories() CategoryMap {
	return cloneMap(subscriptionCategories)
}

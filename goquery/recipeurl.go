package goquery

import (
	"net/url"
	"regexp"
	"strings"
)

// nonRecipePaths match listing, account and boilerplate pages.
var nonRecipePaths = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/search`),
	regexp.MustCompile(`(?i)/tag/`),
	regexp.MustCompile(`(?i)/category/`),
	regexp.MustCompile(`(?i)/author/`),
	regexp.MustCompile(`(?i)/profile/`),
	regexp.MustCompile(`(?i)/user/`),
	regexp.MustCompile(`(?i)/about`),
	regexp.MustCompile(`(?i)/contact`),
	regexp.MustCompile(`(?i)/privacy`),
	regexp.MustCompile(`(?i)/terms`),
	regexp.MustCompile(`(?i)/newsletter`),
	regexp.MustCompile(`(?i)/subscribe`),
}

// recipePaths match paths that usually hold a single recipe.
var recipePaths = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/recipes?/`),
	regexp.MustCompile(`(?i)/dish/`),
	regexp.MustCompile(`(?i)/food/`),
	regexp.MustCompile(`(?i)/cooking/`),
	regexp.MustCompile(`/\d+(/|$)`),
}

// IsRecipeURL reports whether rawURL looks like a recipe page on host.
// The URL's host must contain host and its path must not be a known
// non-recipe page. Paths matching a recipe pattern pass; otherwise a path
// with at least two segments longer than 20 characters passes.
func IsRecipeURL(rawURL, host string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !strings.Contains(strings.ToLower(u.Host), strings.ToLower(host)) {
		return false
	}

	path := u.Path
	for _, re := range nonRecipePaths {
		if re.MatchString(path) {
			return false
		}
	}
	for _, re := range recipePaths {
		if re.MatchString(path) {
			return true
		}
	}

	segments := 0
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments++
		}
	}
	return segments >= 2 && len(path) > 20
}

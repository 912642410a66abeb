package helpers

import (
	"regexp"
	"strings"
)

const cityGroupSlugPrefix = "tango"

var accentReplacer = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ã", "a", "ä", "a", "å", "a",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i",
	"ò", "o", "ó", "o", "ô", "o", "õ", "o", "ö", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ñ", "n",
	"ç", "c",
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// Slugify lower-cases s, folds common Latin accents to ASCII and joins words
// with single hyphens. Characters outside [a-z0-9] that have no ASCII fold
// are dropped.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = accentReplacer.Replace(s)
	s = nonSlugChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// GenerateCityGroupSlug returns the canonical slug of a city group, e.g.
// tango-sao-paulo-brazil for ("São Paulo", "Brazil").
func GenerateCityGroupSlug(city, country string) string {
	return cityGroupSlugPrefix + "-" + Slugify(city) + "-" + Slugify(country)
}

// CityGroupName is the display name of a new city group.
func CityGroupName(city, country string) string {
	if country == "" || country == UnknownCountry {
		return "Tango " + city
	}
	return "Tango " + city + ", " + country
}

package helpers

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const UnknownCountry = "Unknown"

const (
	minLocationPartLen = 2
	maxLocationLen     = 100
)

// Location is a city/country pair extracted from free text.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Tried in order; the first pattern whose two captures are both long enough wins.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([^,]+),\s*([^,]+)$`),
	regexp.MustCompile(`^([^-]+)\s*-\s*([^-]+)$`),
	regexp.MustCompile(`^([^|]+)\s*\|\s*([^|]+)$`),
	regexp.MustCompile(`^.+,\s*([^,]+),\s*([^,]+)$`),
}

// ParseLocationString extracts a city and country from text such as
// "Buenos Aires, Argentina", "Berlin - Germany", "Paris | France" or
// "Calle Corrientes 1234, Buenos Aires, Argentina". Text that matches no
// pattern but is of plausible length is taken as a city with an unknown
// country. It returns false when nothing usable can be extracted.
func ParseLocationString(text string) (Location, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Location{}, false
	}

	for _, pattern := range locationPatterns {
		match := pattern.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}
		city := strings.TrimSpace(match[1])
		country := strings.TrimSpace(match[2])
		if utf8.RuneCountInString(city) >= minLocationPartLen && utf8.RuneCountInString(country) >= minLocationPartLen {
			return Location{City: Capitalize(city), Country: Capitalize(country)}, true
		}
	}

	if n := utf8.RuneCountInString(trimmed); n >= minLocationPartLen && n <= maxLocationLen {
		return Location{City: Capitalize(trimmed), Country: UnknownCountry}, true
	}

	return Location{}, false
}

// Capitalize upper-cases the first letter and lower-cases the rest, so
// "BUENOS AIRES" becomes "Buenos aires". Words after the first are not
// title-cased.
// NormalizeLocation applies the parser's rules to an explicit city and
// country: each is trimmed and capitalized, a city needs at least two
// characters, and a missing or too short country becomes UnknownCountry.
func NormalizeLocation(city, country string) (Location, bool) {
	city = strings.TrimSpace(city)
	if utf8.RuneCountInString(city) < minLocationPartLen {
		return Location{}, false
	}
	country = strings.TrimSpace(country)
	if utf8.RuneCountInString(country) < minLocationPartLen {
		country = UnknownCountry
	}
	return Location{City: Capitalize(city), Country: Capitalize(country)}, true
}

func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

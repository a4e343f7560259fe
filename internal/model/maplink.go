package model

import "regexp"

// Accepted map-link shapes: map-service domains, raw coordinate pairs, and
// place/share/query markers. Anything else is rejected at submission time.
var mapLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https://(www\.)?google\.com/maps`),
	regexp.MustCompile(`https://maps\.google\.com`),
	regexp.MustCompile(`https://goo\.gl/maps`),
	regexp.MustCompile(`https://maps\.app\.goo\.gl`),
	regexp.MustCompile(`https://plus\.codes`),
	regexp.MustCompile(`@-?\d+\.\d+,-?\d+\.\d+`),
	regexp.MustCompile(`place/`),
	regexp.MustCompile(`\?q=`),
	regexp.MustCompile(`/dir/`),
	regexp.MustCompile(`/share\?`),
}

// IsValidMapLink reports whether the link matches one of the accepted
// map-link shapes, including live-location share links.
func IsValidMapLink(link string) bool {
	for _, p := range mapLinkPatterns {
		if p.MatchString(link) {
			return true
		}
	}
	return false
}

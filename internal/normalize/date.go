// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts are tried, in order, for strings that carry a separator.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006.01.02 15:04:05",
	"2006.01.02.",
	"2006.01.02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

var compactDate = regexp.MustCompile(`\d{8}`)

// ParseDate parses the two date encodings the sources use: an ISO-like
// string containing a separator, or an 8-digit YYYYMMDD block anywhere in
// the value. Values without a zone are read in loc. ok is false when
// neither encoding matches.
func ParseDate(s string, loc *time.Location) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	if strings.ContainsAny(s, "-./:") {
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
	}

	for _, block := range compactDate.FindAllString(s, -1) {
		if t, err := time.ParseInLocation("20060102", block, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

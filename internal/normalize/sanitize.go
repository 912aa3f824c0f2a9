// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var strictPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// Sanitize turns an HTML fragment into plain text: tags are stripped,
// entities decoded, the result NFC-normalized and whitespace collapsed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	// bluemonday re-escapes the text it keeps, so decode afterwards.
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

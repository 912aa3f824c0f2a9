// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"
	"unicode"
)

const ellipsis = "..."

// Truncate shortens s to at most limit runes, cutting at the last
// whitespace boundary inside the limit, and appends an ellipsis. Strings
// within the limit are returned unchanged. A word longer than the limit is
// cut mid-word.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	cut := runes[:limit]
	for i := len(cut) - 1; i > 0; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + ellipsis
}

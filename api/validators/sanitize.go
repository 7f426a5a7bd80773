package validators

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var plainTextPolicy = bluemonday.StrictPolicy()

// SanitizeString trims input and cuts it to at most maxLen bytes without
// splitting a rune.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || len(trimmed) <= maxLen {
		return trimmed
	}
	cut := trimmed[:maxLen]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

// PlainText strips every HTML tag from admin-entered copy.
func PlainText(input string) string {
	return strings.TrimSpace(html.UnescapeString(plainTextPolicy.Sanitize(input)))
}

// PlainTextPtr applies PlainText to an optional field in place.
func PlainTextPtr(input *string) *string {
	if input == nil {
		return nil
	}
	cleaned := PlainText(*input)
	return &cleaned
}

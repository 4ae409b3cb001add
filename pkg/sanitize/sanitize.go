// Package sanitize strips markup from free-text input before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes all HTML from s and trims surrounding whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	// the strict policy escapes entities; stored text is unescaped plain text
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// OptionalText sanitises a nullable string, returning nil when nothing remains.
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	clean := Text(*s)
	if clean == "" {
		return nil
	}
	return &clean
}

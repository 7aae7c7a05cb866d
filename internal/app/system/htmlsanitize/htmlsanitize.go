// Package htmlsanitize strips markup from text that arrives through the
// public service form, so stored requests are plain text.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every tag and attribute from s and trims it. Entities
// produced by the sanitizer are unescaped again since the result is data,
// not HTML.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

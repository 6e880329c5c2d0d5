package utils

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// StripMarkup removes every HTML element from input and returns plain text.
// Entities are decoded again since templates escape on output.
func StripMarkup(input string) string {
	return html.UnescapeString(sanitizer.Sanitize(input))
}

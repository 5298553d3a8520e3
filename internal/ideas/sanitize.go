package ideas

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// cleanText strips markup from user-supplied text. Entities produced by the
// policy are decoded again since the result is served as JSON, not HTML.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := cleanText(*s)
	return &v
}

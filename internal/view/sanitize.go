package view

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// bodyPolicy strips all markup from inbound message bodies before they reach
// a renderer. The gateway relays whatever the web clients posted, so bodies
// may carry HTML fragments.
var bodyPolicy = bluemonday.StrictPolicy()

// RenderBody returns the display text for a message body: markup removed,
// entities decoded, surrounding whitespace trimmed.
func RenderBody(body string) string {
	cleaned := bodyPolicy.Sanitize(body)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

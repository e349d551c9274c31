package mastodon

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// Breaks and paragraph ends become spaces so that words from adjacent
// blocks do not run together after the tags are stripped
var tagSpacer = strings.NewReplacer(
	"<br>", " ",
	"<br/>", " ",
	"<br />", " ",
	"</p>", " ",
)

// StripHTML reduces a status body to plain text so the topic patterns
// see the same shape of content they see from the other networks.
func StripHTML(content string) string {
	content = tagSpacer.Replace(content)
	content = stripPolicy.Sanitize(content)
	return strings.TrimSpace(html.UnescapeString(content))
}

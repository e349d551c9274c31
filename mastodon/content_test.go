package mastodon_test

import (
	"crossfeed/mastodon"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "plain text passes through",
			content:  "no markup here",
			expected: "no markup here",
		},
		{
			name:     "tags are removed",
			content:  "<p>hello <b>world</b></p>",
			expected: "hello world",
		},
		{
			name:     "line breaks keep words apart",
			content:  "first line<br>second line",
			expected: "first line second line",
		},
		{
			name:     "paragraph boundaries keep words apart",
			content:  "<p>bitcoin</p><p>rally</p>",
			expected: "bitcoin rally",
		},
		{
			name:     "entities are decoded",
			content:  "<p>fish &amp; chips</p>",
			expected: "fish & chips",
		},
		{
			name:     "links keep their text",
			content:  `<p>see <a href="https://example.com">the article</a></p>`,
			expected: "see the article",
		},
		{
			name:     "empty content",
			content:  "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mastodon.StripHTML(tt.content))
		})
	}
}

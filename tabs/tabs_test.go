package tabs_test

import (
	"crossfeed/config"
	"crossfeed/mastodon"
	"crossfeed/tabs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClassifier(t *testing.T) *tabs.Classifier {
	t.Helper()
	classifier, err := tabs.InitializeTabs(&config.Config{
		Tabs: []config.TabConfig{
			{
				DisplayName: "Bitcoin",
				Pattern:     `(?i)(bitcoin|btc|sats|lightning\.network)`,
				BlueskyFeed: "at://did:plc:feeds/app.bsky.feed.generator/bitcoin",
			},
			{
				DisplayName: "Gardening",
				Pattern:     "gardening|tomatoes|compost",
				BlueskyFeed: "at://did:plc:feeds/app.bsky.feed.generator/gardening",
			},
		},
	})
	require.NoError(t, err)
	return classifier
}

func TestMatches(t *testing.T) {
	classifier := testClassifier(t)

	tests := []struct {
		name     string
		tab      int
		text     string
		expected bool
	}{
		{
			name:     "plain text match",
			tab:      0,
			text:     "Stacking sats since 2017",
			expected: true,
		},
		{
			name:     "case insensitive match",
			tab:      0,
			text:     "BITCOIN broke 100k again",
			expected: true,
		},
		{
			name:     "case insensitive without inline flag in pattern",
			tab:      1,
			text:     "My TOMATOES are finally ripe",
			expected: true,
		},
		{
			name:     "escaped dot matches literal dot",
			tab:      0,
			text:     "running a lightning.network node at home",
			expected: true,
		},
		{
			name:     "escaped dot does not match other characters",
			tab:      0,
			text:     "lightningxnetwork",
			expected: false,
		},
		{
			name:     "wrong tab",
			tab:      1,
			text:     "Stacking sats since 2017",
			expected: false,
		},
		{
			name:     "no match",
			tab:      0,
			text:     "Nothing to see here",
			expected: false,
		},
		{
			name:     "negative tab index",
			tab:      -1,
			text:     "bitcoin",
			expected: false,
		},
		{
			name:     "tab index past the end",
			tab:      2,
			text:     "bitcoin",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifier.Matches(tt.tab, tt.text))
		})
	}
}

func TestClamp(t *testing.T) {
	classifier := testClassifier(t)

	tests := []struct {
		name     string
		tab      int
		expected int
	}{
		{name: "first tab", tab: 0, expected: 0},
		{name: "second tab", tab: 1, expected: 1},
		{name: "negative", tab: -1, expected: 0},
		{name: "past the end", tab: 2, expected: 0},
		{name: "far past the end", tab: 9000, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifier.Clamp(tt.tab))
		})
	}
}

func TestSearchQuery(t *testing.T) {
	classifier := testClassifier(t)

	assert.Equal(t, "bitcoin OR btc OR sats OR lightning.network", classifier.SearchQuery(0))
	assert.Equal(t, "gardening OR tomatoes OR compost", classifier.SearchQuery(1))
	assert.Equal(t, "", classifier.SearchQuery(2))
}

func TestTab(t *testing.T) {
	classifier := testClassifier(t)

	tab := classifier.Tab(1)
	assert.Equal(t, 1, tab.Index)
	assert.Equal(t, "Gardening", tab.DisplayName)
	assert.Equal(t, "at://did:plc:feeds/app.bsky.feed.generator/gardening", tab.BlueskyFeed)
}

func TestList(t *testing.T) {
	classifier := testClassifier(t)

	list := classifier.List()
	require.Len(t, list, 2)
	assert.Equal(t, 0, list[0].Index)
	assert.Equal(t, "Bitcoin", list[0].DisplayName)
	assert.Equal(t, 1, list[1].Index)
	assert.Equal(t, "Gardening", list[1].DisplayName)
}

// The same phrase must classify the same way no matter which network's
// content shape carried it, as long as the caller hands over bare text.
func TestMatchesConsistentAcrossContentShapes(t *testing.T) {
	classifier := testClassifier(t)

	phrase := "finally moved my sats into cold storage"

	asBlueskyText := phrase
	asNostrContent := phrase + " \n#bitcoin"
	asMastodonHTML := mastodon.StripHTML(`<p>finally moved my <a href="https://example.com/tags/sats">sats</a> into cold storage</p>`)

	assert.True(t, classifier.Matches(0, asBlueskyText))
	assert.True(t, classifier.Matches(0, asNostrContent))
	assert.True(t, classifier.Matches(0, asMastodonHTML))

	assert.False(t, classifier.Matches(1, asBlueskyText))
	assert.False(t, classifier.Matches(1, asNostrContent))
	assert.False(t, classifier.Matches(1, asMastodonHTML))
}

func TestInitializeTabsRejectsInvalidPattern(t *testing.T) {
	_, err := tabs.InitializeTabs(&config.Config{
		Tabs: []config.TabConfig{
			{DisplayName: "Broken", Pattern: "(unclosed", BlueskyFeed: "at://did:plc:feeds/app.bsky.feed.generator/broken"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")
}

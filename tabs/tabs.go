package tabs

import (
	"fmt"
	"regexp"
	"strings"

	"crossfeed/config"
	"crossfeed/models"

	"github.com/samber/lo"
)

// Tab is one topic tab compiled from configuration. Index is the stable
// identifier shared by API clients and the per-tab feed generator table.
type Tab struct {
	Index       int
	DisplayName string
	Pattern     *regexp.Regexp
	BlueskyFeed string
}

// Classifier answers whether post text belongs on a tab. One classifier
// instance is shared by all sources so a tab means the same thing
// everywhere, whatever shape the text arrived in.
type Classifier struct {
	tabs []Tab
}

// InitializeTabs compiles the configured tab patterns into a classifier.
// Patterns match case-insensitively regardless of how they are written.
func InitializeTabs(cfg *config.Config) (*Classifier, error) {
	tabs := make([]Tab, 0, len(cfg.Tabs))
	for i, tabCfg := range cfg.Tabs {
		pattern, err := regexp.Compile(caseInsensitive(tabCfg.Pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for tab %q: %w", tabCfg.DisplayName, err)
		}
		tabs = append(tabs, Tab{
			Index:       i,
			DisplayName: tabCfg.DisplayName,
			Pattern:     pattern,
			BlueskyFeed: tabCfg.BlueskyFeed,
		})
	}
	return &Classifier{tabs: tabs}, nil
}

func caseInsensitive(pattern string) string {
	if strings.HasPrefix(pattern, "(?i)") {
		return pattern
	}
	return "(?i)" + pattern
}

// Matches reports whether text belongs on the given tab. Unknown tab
// indexes match nothing.
func (c *Classifier) Matches(tabIndex int, text string) bool {
	if tabIndex < 0 || tabIndex >= len(c.tabs) {
		return false
	}
	return c.tabs[tabIndex].Pattern.MatchString(text)
}

// Clamp maps an out-of-range tab index to the first tab.
func (c *Classifier) Clamp(tabIndex int) int {
	if tabIndex < 0 || tabIndex >= len(c.tabs) {
		return 0
	}
	return tabIndex
}

// Tab returns the tab at index. Callers clamp first.
func (c *Classifier) Tab(tabIndex int) Tab {
	return c.tabs[tabIndex]
}

func (c *Classifier) Count() int {
	return len(c.tabs)
}

// SearchQuery translates the tab's pattern into the query string used
// against full text search endpoints.
func (c *Classifier) SearchQuery(tabIndex int) string {
	if tabIndex < 0 || tabIndex >= len(c.tabs) {
		return ""
	}
	return QueryFromPattern(c.tabs[tabIndex].Pattern.String())
}

// List describes all tabs in index order.
func (c *Classifier) List() []models.TabInfo {
	return lo.Map(c.tabs, func(tab Tab, _ int) models.TabInfo {
		return models.TabInfo{Index: tab.Index, DisplayName: tab.DisplayName}
	})
}

package mastodon

import (
	"context"

	log "github.com/sirupsen/logrus"

	"crossfeed/models"
	"crossfeed/tabs"
)

// SearchClient is the slice of the instance client the fetcher needs
type SearchClient interface {
	SearchStatuses(ctx context.Context, query string, maxID string, limit int) ([]Status, error)
}

type FetcherConfig struct {
	Client   SearchClient
	Tabs     *tabs.Classifier
	PageSize int
	MaxPages int
}

// Fetcher walks the instance's paginated search for a tab's query. The
// search endpoint over-matches (it also hits account names and tags),
// so every status is re-checked against the tab pattern after HTML
// stripping.
type Fetcher struct {
	client   SearchClient
	tabs     *tabs.Classifier
	pageSize int
	maxPages int
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	return &Fetcher{
		client:   cfg.Client,
		tabs:     cfg.Tabs,
		pageSize: cfg.PageSize,
		maxPages: cfg.MaxPages,
	}
}

// Fetch pages through search results until a short page, the page
// budget, or an error. A failed page voids the whole call: a truncated
// result would be indistinguishable from a complete one.
func (f *Fetcher) Fetch(ctx context.Context, tabIndex int) []models.MastodonPost {
	query := f.tabs.SearchQuery(tabIndex)
	if query == "" {
		return []models.MastodonPost{}
	}

	posts := []models.MastodonPost{}
	maxID := ""
	for page := 0; page < f.maxPages; page++ {
		statuses, err := f.client.SearchStatuses(ctx, query, maxID, f.pageSize)
		if err != nil {
			log.WithFields(log.Fields{
				"source": "mastodon",
				"tab":    tabIndex,
				"page":   page,
				"error":  err,
			}).Error("Mastodon search failed, discarding collected pages")
			return []models.MastodonPost{}
		}
		if len(statuses) == 0 {
			break
		}

		for _, status := range statuses {
			if !f.tabs.Matches(tabIndex, StripHTML(status.Content)) {
				continue
			}
			posts = append(posts, toPost(status))
		}

		if len(statuses) < f.pageSize {
			break
		}
		maxID = statuses[len(statuses)-1].Id
	}

	log.WithFields(log.Fields{
		"source":  "mastodon",
		"tab":     tabIndex,
		"matched": len(posts),
	}).Info("Collected Mastodon statuses")
	return posts
}

func toPost(status Status) models.MastodonPost {
	return models.MastodonPost{
		Id:        status.Id,
		Content:   status.Content,
		CreatedAt: status.CreatedAt,
		Url:       status.Url,
		Account: models.MastodonAccount{
			Username:    status.Account.Username,
			Acct:        status.Account.Acct,
			DisplayName: status.Account.DisplayName,
		},
	}
}

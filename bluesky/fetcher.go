package bluesky

import (
	"context"
	"fmt"

	"github.com/bluesky-social/indigo/api/bsky"
	log "github.com/sirupsen/logrus"

	"crossfeed/models"
	"crossfeed/ratelimit"
	"crossfeed/tabs"
)

// FeedClient is the slice of the PDS client the fetcher needs
type FeedClient interface {
	SetAcceptLanguage(languages string)
	GetFeed(ctx context.Context, feedURI string, limit int64) (*bsky.FeedGetFeed_Output, error)
}

type FetcherConfig struct {
	Host        string
	Credentials Credentials
	FeedLimit   int64
	Tabs        *tabs.Classifier
	Limiter     *ratelimit.TokenBucket
}

// Fetcher pulls one page of a tab's feed generator per call. Every call
// authenticates a fresh session, so the token bucket gates the whole
// call including the session create.
type Fetcher struct {
	host      string
	creds     Credentials
	feedLimit int64
	tabs      *tabs.Classifier
	limiter   *ratelimit.TokenBucket

	newClient func(ctx context.Context, host string, creds *Credentials) (FeedClient, error)
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	return &Fetcher{
		host:      cfg.Host,
		creds:     cfg.Credentials,
		feedLimit: cfg.FeedLimit,
		tabs:      cfg.Tabs,
		limiter:   cfg.Limiter,
		newClient: func(ctx context.Context, host string, creds *Credentials) (FeedClient, error) {
			return ClientFromCredentials(ctx, host, creds)
		},
	}
}

// Fetch returns the posts of the tab's feed generator. Every failure
// mode resolves to an empty list; a rate limited call returns before
// touching the network at all.
func (f *Fetcher) Fetch(ctx context.Context, tabIndex int, preferredLanguages string) []models.BlueskyPost {
	if !f.limiter.TryAcquire() {
		log.WithFields(log.Fields{
			"source": "bluesky",
			"tab":    tabIndex,
		}).Debug("Rate limit exhausted, skipping Bluesky fetch")
		return []models.BlueskyPost{}
	}

	client, err := f.newClient(ctx, f.host, &f.creds)
	if err != nil {
		log.WithFields(log.Fields{
			"source": "bluesky",
			"error":  err,
		}).Error("Failed to create Bluesky session")
		return []models.BlueskyPost{}
	}
	client.SetAcceptLanguage(preferredLanguages)

	feedURI := f.tabs.Tab(f.tabs.Clamp(tabIndex)).BlueskyFeed
	feed, err := client.GetFeed(ctx, feedURI, f.feedLimit)
	if err != nil {
		log.WithFields(log.Fields{
			"source": "bluesky",
			"tab":    tabIndex,
			"error":  err,
		}).Error("Failed to fetch Bluesky feed")
		return []models.BlueskyPost{}
	}

	posts := make([]models.BlueskyPost, 0, len(feed.Feed))
	for _, viewPost := range feed.Feed {
		post, err := normalizePost(viewPost)
		if err != nil {
			// One bad post voids the call; partial lists would be
			// indistinguishable from complete ones
			log.WithFields(log.Fields{
				"source": "bluesky",
				"tab":    tabIndex,
				"error":  err,
			}).Error("Failed to normalize Bluesky post")
			return []models.BlueskyPost{}
		}
		posts = append(posts, post)
	}
	return posts
}

func normalizePost(viewPost *bsky.FeedDefs_FeedViewPost) (models.BlueskyPost, error) {
	if viewPost == nil || viewPost.Post == nil {
		return models.BlueskyPost{}, fmt.Errorf("feed item has no post view")
	}
	view := viewPost.Post
	if view.Record == nil {
		return models.BlueskyPost{}, fmt.Errorf("post %s has no record", view.Uri)
	}
	record, ok := view.Record.Val.(*bsky.FeedPost)
	if !ok {
		return models.BlueskyPost{}, fmt.Errorf("post %s record is not a feed post", view.Uri)
	}

	post := models.BlueskyPost{
		Uri:       view.Uri,
		Cid:       view.Cid,
		Text:      record.Text,
		Markdown:  FlattenMarkdown(record.Text, record.Facets),
		Facets:    FacetSpans(record.Text, record.Facets),
		Languages: record.Langs,
		CreatedAt: record.CreatedAt,
		IndexedAt: view.IndexedAt,
		Embed:     embedCard(view.Embed),
	}
	if view.Author != nil {
		post.Author = models.BlueskyAuthor{
			Did:    view.Author.Did,
			Handle: view.Author.Handle,
		}
		if view.Author.DisplayName != nil {
			post.Author.DisplayName = *view.Author.DisplayName
		}
		if view.Author.Avatar != nil {
			post.Author.Avatar = *view.Author.Avatar
		}
	}
	return post, nil
}

func embedCard(embed *bsky.FeedDefs_PostView_Embed) *models.EmbedCard {
	if embed == nil || embed.EmbedExternal_View == nil || embed.EmbedExternal_View.External == nil {
		return nil
	}
	external := embed.EmbedExternal_View.External
	card := &models.EmbedCard{
		Uri:         external.Uri,
		Title:       external.Title,
		Description: external.Description,
	}
	if external.Thumb != nil {
		card.Thumb = *external.Thumb
	}
	return card
}

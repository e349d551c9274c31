package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"crossfeed/models"
)

// The fetcher contracts are one method each so the server can be tested
// with stubs.

type BlueskyFetcher interface {
	Fetch(ctx context.Context, tabIndex int, preferredLanguages string) []models.BlueskyPost
}

type NostrFetcher interface {
	Fetch(ctx context.Context, tabIndex int) []models.NostrPost
}

type MastodonFetcher interface {
	Fetch(ctx context.Context, tabIndex int) []models.MastodonPost
}

// Aggregator fans one feed request out to the three sources. Fetchers
// swallow their own upstream failures and resolve to lists, so sources
// never fail each other.
type Aggregator struct {
	bluesky  BlueskyFetcher
	nostr    NostrFetcher
	mastodon MastodonFetcher
}

func New(bluesky BlueskyFetcher, nostr NostrFetcher, mastodon MastodonFetcher) *Aggregator {
	return &Aggregator{
		bluesky:  bluesky,
		nostr:    nostr,
		mastodon: mastodon,
	}
}

// Aggregate runs the three fetches concurrently and returns their
// lists. An error here means the aggregation itself broke (a fetcher
// panicked), never that an upstream was down; upstream trouble shows up
// as an empty list next to populated ones.
func (a *Aggregator) Aggregate(ctx context.Context, tabIndex int, preferredLanguages string) (*models.FeedResponse, error) {
	run := uuid.NewString()
	started := time.Now()

	log.WithFields(log.Fields{
		"run":       run,
		"tab":       tabIndex,
		"languages": preferredLanguages,
	}).Info("Aggregating feed")

	response := &models.FeedResponse{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		defer recoverFetch(&err, "bluesky")
		response.Bluesky = a.bluesky.Fetch(ctx, tabIndex, preferredLanguages)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverFetch(&err, "nostr")
		response.Nostr = a.nostr.Fetch(ctx, tabIndex)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverFetch(&err, "mastodon")
		response.Mastodon = a.mastodon.Fetch(ctx, tabIndex)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithFields(log.Fields{
			"run":   run,
			"tab":   tabIndex,
			"error": err,
		}).Error("Feed aggregation failed")
		return nil, fmt.Errorf("feed aggregation failed: %w", err)
	}

	// The JSON contract promises three arrays, never nulls
	if response.Bluesky == nil {
		response.Bluesky = []models.BlueskyPost{}
	}
	if response.Nostr == nil {
		response.Nostr = []models.NostrPost{}
	}
	if response.Mastodon == nil {
		response.Mastodon = []models.MastodonPost{}
	}

	log.WithFields(log.Fields{
		"run":      run,
		"tab":      tabIndex,
		"bluesky":  len(response.Bluesky),
		"nostr":    len(response.Nostr),
		"mastodon": len(response.Mastodon),
		"duration": time.Since(started),
	}).Info("Aggregation complete")

	return response, nil
}

// recoverFetch converts a fetcher panic into the group error
func recoverFetch(errp *error, source string) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("%s fetch panicked: %v", source, r)
	}
}

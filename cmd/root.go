/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"crossfeed/aggregator"
	"crossfeed/bluesky"
	"crossfeed/cache"
	"crossfeed/config"
	"crossfeed/mastodon"
	"crossfeed/models"
	"crossfeed/nostr"
	"crossfeed/ratelimit"
	"crossfeed/tabs"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "crossfeed",
		Usage: "Aggregated topic feeds from Bluesky, Nostr and Mastodon",
		Description: `Aggregates posts about configured topics from Bluesky, Nostr
		and Mastodon into one tabbed feed.

		Crossfeed matches posts from all three networks against the regular
		expression configured for each tab. Bluesky posts come from the tab's
		feed generator, Nostr posts are collected from a pool of relays and
		Mastodon posts from the instance's full text search. The combined
		result is served over an HTTP API.

		Flags can generally be set via environment variables, e.g.:

		--config => CROSSFEED_CONFIG=config.toml
		--port => CROSSFEED_PORT=8080
		`,
		Commands: []*cli.Command{
			serveCmd(),
			fetchCmd(),
			initCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// buildAggregator wires the three fetchers from the configuration file
// and the credential flags. Credentials are never read from the file
// itself.
func buildAggregator(ctx *cli.Context) (*aggregator.Aggregator, *tabs.Classifier, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if identifier := ctx.String("bluesky-identifier"); identifier != "" {
		cfg.Bluesky.Identifier = identifier
	}
	cfg.Bluesky.Password = ctx.String("bluesky-password")
	cfg.Mastodon.AccessToken = ctx.String("mastodon-token")

	classifier, err := tabs.InitializeTabs(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tabs: %w", err)
	}

	blueskyFetcher := bluesky.NewFetcher(bluesky.FetcherConfig{
		Host: cfg.Bluesky.Host,
		Credentials: bluesky.Credentials{
			Identifier: cfg.Bluesky.Identifier,
			Password:   cfg.Bluesky.Password,
		},
		FeedLimit: int64(cfg.Bluesky.FeedLimit),
		Tabs:      classifier,
		Limiter:   ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillInterval()),
	})

	nostrFetcher := nostr.NewFetcher(nostr.FetcherConfig{
		Relays:        cfg.Nostr.Relays,
		CollectWindow: cfg.Nostr.CollectWindow(),
		Since:         cfg.Nostr.Since(),
		CacheTTL:      cfg.Nostr.CacheTTL(),
		Tabs:          classifier,
		Cache:         cache.New[[]models.NostrPost](),
	})

	mastodonFetcher := mastodon.NewFetcher(mastodon.FetcherConfig{
		Client:   mastodon.NewClient(cfg.Mastodon.Host, cfg.Mastodon.AccessToken),
		Tabs:     classifier,
		PageSize: cfg.Mastodon.PageSize,
		MaxPages: cfg.Mastodon.MaxPages,
	})

	return aggregator.New(blueskyFetcher, nostrFetcher, mastodonFetcher), classifier, nil
}

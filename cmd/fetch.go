/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch a tab's aggregated feed and print it as JSON",
		Description: `Fetches the aggregated feed for one tab and prints it to stdout.

Returns the Bluesky, Nostr and Mastodon lists as a single JSON object.
Use a tool like jq to process the output.

Prints all other log messages to stderr.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.toml",
				Usage:   "Path to the configuration file",
				EnvVars: []string{"CROSSFEED_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "bluesky-identifier",
				Usage:   "Bluesky handle or DID, overrides the config file",
				EnvVars: []string{"CROSSFEED_BLUESKY_IDENTIFIER"},
			},
			&cli.StringFlag{
				Name:    "bluesky-password",
				Usage:   "Bluesky app password",
				EnvVars: []string{"CROSSFEED_BLUESKY_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "mastodon-token",
				Usage:   "Mastodon access token",
				EnvVars: []string{"CROSSFEED_MASTODON_TOKEN"},
			},
			&cli.IntFlag{
				Name:    "tab",
				Aliases: []string{"t"},
				Value:   0,
				Usage:   "Index of the tab to fetch",
			},
			&cli.StringFlag{
				Name:    "languages",
				Aliases: []string{"l"},
				Usage:   "Preferred languages for Bluesky, e.g. en-US,en",
			},
		},
		Action: func(ctx *cli.Context) error {
			// Keep stdout clean for the feed JSON
			log.SetOutput(os.Stderr)

			agg, classifier, err := buildAggregator(ctx)
			if err != nil {
				return err
			}

			feed, err := agg.Aggregate(ctx.Context, classifier.Clamp(ctx.Int("tab")), ctx.String("languages"))
			if err != nil {
				return err
			}

			feedJson, err := json.MarshalIndent(feed, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(feedJson))

			return nil
		},
	}
}

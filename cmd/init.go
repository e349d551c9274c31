/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/cqroot/prompt"
	"github.com/cqroot/prompt/input"
	"github.com/urfave/cli/v2"

	"crossfeed/bluesky"
	"crossfeed/mastodon"
)

const starterConfig = `# Crossfeed configuration.
#
# Credentials are never read from this file. Export them instead:
#   CROSSFEED_BLUESKY_PASSWORD, CROSSFEED_MASTODON_TOKEN

[bluesky]
identifier = "%s"

[mastodon]
host = "%s"

# One [[tabs]] block per topic. The pattern matches posts from all
# three networks and doubles as the Mastodon search query. Point
# bluesky_feed at a feed generator covering the same topic.

[[tabs]]
display_name = "Bitcoin"
pattern = "bitcoin|btc|sats"
bluesky_feed = "at://did:plc:replace-with-publisher/app.bsky.feed.generator/bitcoin"

[[tabs]]
display_name = "Science"
pattern = "science|research|astronomy"
bluesky_feed = "at://did:plc:replace-with-publisher/app.bsky.feed.generator/science"
`

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a starter configuration file",
		Description: `Creates a starter configuration file with example tabs.

Asks for your Bluesky handle and app password plus your Mastodon
instance and access token, and verifies both credentials before writing
the config. The secrets are not stored; export them via
CROSSFEED_BLUESKY_PASSWORD and CROSSFEED_MASTODON_TOKEN when running
the server.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.toml",
				Usage:   "Path to the configuration file to create",
				EnvVars: []string{"CROSSFEED_CONFIG"},
			},
		},
		Action: func(ctx *cli.Context) error {
			path := ctx.String("config")
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file %s already exists", path)
			}

			handle, err := prompt.New().Ask("Bluesky handle:").Input("myname.bsky.social")
			if err != nil {
				return err
			}

			password, err := prompt.New().Ask("App password:").Input("", input.WithEchoMode(input.EchoNone))
			if err != nil {
				return err
			}

			// Verify the credentials before writing anything
			if _, err := bluesky.ClientFromCredentials(ctx.Context, bluesky.DefaultPDSHost, &bluesky.Credentials{
				Identifier: handle,
				Password:   password,
			}); err != nil {
				return fmt.Errorf("could not create client with provided credentials: %w", err)
			}

			instance, err := prompt.New().Ask("Mastodon instance:").Input("https://mastodon.social")
			if err != nil {
				return err
			}

			token, err := prompt.New().Ask("Mastodon access token:").Input("", input.WithEchoMode(input.EchoNone))
			if err != nil {
				return err
			}

			if _, err := mastodon.NewClient(instance, token).SearchStatuses(ctx.Context, "crossfeed", "", 1); err != nil {
				return fmt.Errorf("could not search with provided token: %w", err)
			}

			contents := fmt.Sprintf(starterConfig, handle, instance)
			if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
				return fmt.Errorf("could not write config file: %w", err)
			}

			fmt.Println("Wrote config to", path)
			fmt.Println("Edit the tabs to taste, then export CROSSFEED_BLUESKY_PASSWORD and CROSSFEED_MASTODON_TOKEN before starting the server.")

			return nil
		},
	}
}

/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"crossfeed/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the crossfeed API",
		Description: `Starts the crossfeed HTTP server.

Launches the HTTP server on the specified or default port. Feeds are
aggregated on demand from Bluesky, Nostr and Mastodon and served via
the HTTP API.`,
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
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port to listen on",
				EnvVars: []string{"CROSSFEED_PORT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level: trace, debug, info, warn, error",
				EnvVars: []string{"CROSSFEED_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format: text or json",
				EnvVars: []string{"CROSSFEED_LOG_FORMAT"},
			},
		},
		Action: func(ctx *cli.Context) error {

			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			log.SetLevel(level)
			if ctx.String("log-format") == "json" {
				log.SetFormatter(&log.JSONFormatter{})
			}

			fmt.Println("Starting crossfeed...")

			agg, classifier, err := buildAggregator(ctx)
			if err != nil {
				return err
			}

			app := server.Server(&server.ServerConfig{
				Aggregator: agg,
				Tabs:       classifier,
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			var wg sync.WaitGroup

			go func() {
				<-c
				fmt.Println("Gracefully shutting down...")
				app.ShutdownWithTimeout(60 * time.Second)
				defer wg.Add(-1)
			}()

			go func() {
				fmt.Println("Starting server...")
				if err := app.Listen(fmt.Sprintf(":%d", ctx.Int("port"))); err != nil {
					log.Panic(err)
				}
			}()

			// Wait for the server to shutdown
			wg.Add(1)
			wg.Wait()

			fmt.Println("Done!")

			return nil
		},
	}
}

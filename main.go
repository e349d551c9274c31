package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"crossfeed/cmd"

	_ "golang.org/x/crypto/x509roots/fallback" // We need this to make TLS work in scratch containers
)

func main() {
	app := cmd.RootApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

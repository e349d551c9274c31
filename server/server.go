package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"

	"crossfeed/models"
	"crossfeed/tabs"
)

// Aggregator is the one call the server makes per feed request
type Aggregator interface {
	Aggregate(ctx context.Context, tabIndex int, preferredLanguages string) (*models.FeedResponse, error)
}

type ServerConfig struct {

	// Aggregator resolves a tab to the three source lists
	Aggregator Aggregator

	// Tabs drives index clamping and the tab listing endpoint
	Tabs *tabs.Classifier
}

// Returns a fiber.App instance to be used as an HTTP server for the crossfeed API
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		// stop timer
		stop := time.Now()

		// Diff
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	app.Get("/feed", func(c *fiber.Ctx) error {
		// An unknown or missing tab falls back to the first tab rather
		// than erroring
		tab := config.Tabs.Clamp(c.QueryInt("activeTab", 0))
		languages := c.Query("preferredLanguages", "")

		log.WithFields(log.Fields{
			"tab":       tab,
			"languages": languages,
		}).Info("Feed requested")

		feed, err := config.Aggregator.Aggregate(c.UserContext(), tab, languages)
		if err != nil {
			log.WithFields(log.Fields{
				"tab":   tab,
				"error": err,
			}).Error("Feed aggregation failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "failed to aggregate feed",
				"details": err.Error(),
			})
		}

		return c.JSON(feed)
	})

	app.Get("/tabs", func(c *fiber.Ctx) error {
		return c.JSON(config.Tabs.List())
	})

	return app
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// TabConfig represents one topic tab. The pattern doubles as the
// classifier regex and the source of the full text search query, and
// bluesky_feed names the feed generator backing the tab.
type TabConfig struct {
	DisplayName string `toml:"display_name"`
	Pattern     string `toml:"pattern"`
	BlueskyFeed string `toml:"bluesky_feed"`
}

// BlueskyConfig holds PDS connection settings. The app password never
// lives in the config file; it arrives via flag or environment.
type BlueskyConfig struct {
	Host       string `toml:"host"`
	Identifier string `toml:"identifier"`
	Password   string `toml:"-"`
	FeedLimit  int    `toml:"feed_limit"`
}

// NostrConfig holds the relay pool and collection timing
type NostrConfig struct {
	Relays          []string `toml:"relays"`
	CollectSeconds  int      `toml:"collect_seconds"`
	SinceDays       int      `toml:"since_days"`
	CacheTTLSeconds int      `toml:"cache_ttl_seconds"`
}

// MastodonConfig points at a single instance. The access token never
// lives in the config file; it arrives via flag or environment.
type MastodonConfig struct {
	Host        string `toml:"host"`
	AccessToken string `toml:"-"`
	PageSize    int    `toml:"page_size"`
	MaxPages    int    `toml:"max_pages"`
}

// RateLimitConfig bounds Bluesky fetches per process
type RateLimitConfig struct {
	Capacity      int `toml:"capacity"`
	RefillSeconds int `toml:"refill_seconds"`
}

// Config represents the top-level configuration
type Config struct {
	Bluesky   BlueskyConfig   `toml:"bluesky"`
	Nostr     NostrConfig     `toml:"nostr"`
	Mastodon  MastodonConfig  `toml:"mastodon"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Tabs      []TabConfig     `toml:"tabs"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Bluesky.Host == "" {
		c.Bluesky.Host = "https://bsky.social"
	}
	if c.Bluesky.FeedLimit == 0 {
		c.Bluesky.FeedLimit = 30
	}
	// An explicitly empty relay list stays empty; only an absent key
	// gets the default pool
	if c.Nostr.Relays == nil {
		c.Nostr.Relays = []string{"wss://relay.damus.io", "wss://nos.lol"}
	}
	if c.Nostr.CollectSeconds == 0 {
		c.Nostr.CollectSeconds = 10
	}
	if c.Nostr.SinceDays == 0 {
		c.Nostr.SinceDays = 14
	}
	if c.Nostr.CacheTTLSeconds == 0 {
		c.Nostr.CacheTTLSeconds = 600
	}
	if c.Mastodon.PageSize == 0 {
		c.Mastodon.PageSize = 40
	}
	if c.Mastodon.MaxPages == 0 {
		c.Mastodon.MaxPages = 10
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 5
	}
	if c.RateLimit.RefillSeconds == 0 {
		c.RateLimit.RefillSeconds = 60
	}
}

func (c *Config) validate() error {
	if len(c.Tabs) == 0 {
		return fmt.Errorf("at least one tab must be configured")
	}
	for i, tab := range c.Tabs {
		if tab.DisplayName == "" {
			return fmt.Errorf("tab %d is missing display_name", i)
		}
		if tab.Pattern == "" {
			return fmt.Errorf("tab %q is missing a pattern", tab.DisplayName)
		}
		if _, err := regexp.Compile(tab.Pattern); err != nil {
			return fmt.Errorf("tab %q has an invalid pattern: %w", tab.DisplayName, err)
		}
		if tab.BlueskyFeed == "" {
			return fmt.Errorf("tab %q is missing bluesky_feed", tab.DisplayName)
		}
	}
	for _, relay := range c.Nostr.Relays {
		parsed, err := url.Parse(relay)
		if err != nil {
			return fmt.Errorf("invalid relay url %q: %w", relay, err)
		}
		if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
			return fmt.Errorf("relay url %q must use the ws or wss scheme", relay)
		}
	}
	if c.Mastodon.Host == "" {
		return fmt.Errorf("mastodon host must be configured")
	}
	if c.Mastodon.PageSize < 1 || c.Mastodon.PageSize > 40 {
		return fmt.Errorf("mastodon page_size must be between 1 and 40, got %d", c.Mastodon.PageSize)
	}
	if c.Mastodon.MaxPages < 1 {
		return fmt.Errorf("mastodon max_pages must be at least 1, got %d", c.Mastodon.MaxPages)
	}
	if c.Bluesky.FeedLimit < 1 || c.Bluesky.FeedLimit > 100 {
		return fmt.Errorf("bluesky feed_limit must be between 1 and 100, got %d", c.Bluesky.FeedLimit)
	}
	if c.RateLimit.Capacity < 1 {
		return fmt.Errorf("ratelimit capacity must be at least 1, got %d", c.RateLimit.Capacity)
	}
	if c.RateLimit.RefillSeconds < 1 {
		return fmt.Errorf("ratelimit refill_seconds must be at least 1, got %d", c.RateLimit.RefillSeconds)
	}
	return nil
}

func (c *NostrConfig) CollectWindow() time.Duration {
	return time.Duration(c.CollectSeconds) * time.Second
}

func (c *NostrConfig) Since() time.Duration {
	return time.Duration(c.SinceDays) * 24 * time.Hour
}

func (c *NostrConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *RateLimitConfig) RefillInterval() time.Duration {
	return time.Duration(c.RefillSeconds) * time.Second
}

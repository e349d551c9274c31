package nostr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"crossfeed/cache"
	"crossfeed/models"
	"crossfeed/tabs"
)

// noteKind is the NIP-01 kind for short text notes
const noteKind = 1

const eventBufferSize = 256

type FetcherConfig struct {
	Relays        []string
	CollectWindow time.Duration
	Since         time.Duration
	CacheTTL      time.Duration
	Tabs          *tabs.Classifier
	Cache         *cache.Cache[[]models.NostrPost]
}

// Fetcher collects note events from a pool of relays. Relays push
// events open-endedly, so each fetch subscribes for a fixed window and
// keeps whatever arrived in time; results are cached per tab.
type Fetcher struct {
	relays []string
	window time.Duration
	since  time.Duration
	ttl    time.Duration
	tabs   *tabs.Classifier
	cache  *cache.Cache[[]models.NostrPost]
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	return &Fetcher{
		relays: cfg.Relays,
		window: cfg.CollectWindow,
		since:  cfg.Since,
		ttl:    cfg.CacheTTL,
		tabs:   cfg.Tabs,
		cache:  cfg.Cache,
	}
}

// Fetch returns note events matching the tab's pattern. A cache hit
// never contacts a relay; a miss collects for the full window, filters,
// and caches the outcome even when it is empty. Relay failures cost
// events, never errors.
func (f *Fetcher) Fetch(ctx context.Context, tabIndex int) []models.NostrPost {
	key := cacheKey(tabIndex)
	if posts, ok := f.cache.Get(key); ok {
		log.WithFields(log.Fields{
			"source": "nostr",
			"tab":    tabIndex,
			"count":  len(posts),
		}).Debug("Serving Nostr posts from cache")
		return posts
	}

	ctx, cancel := context.WithTimeout(ctx, f.window)
	defer cancel()

	filter := Filter{
		Kinds: []int{noteKind},
		Since: time.Now().Add(-f.since).Unix(),
	}
	subID := uuid.NewString()
	events := make(chan Event, eventBufferSize)

	var wg sync.WaitGroup
	for _, relay := range f.relays {
		wg.Add(1)
		go func(relayURL string) {
			defer wg.Done()
			collectFromRelay(ctx, relayURL, subID, filter, events)
		}(relay)
	}

	go func() {
		wg.Wait()
		close(events)
	}()

	// The same event arrives once per relay that has it; keep the
	// first copy by id
	seen := map[string]struct{}{}
	matched := []Event{}
	for event := range events {
		if _, dup := seen[event.Id]; dup {
			continue
		}
		seen[event.Id] = struct{}{}
		if !f.tabs.Matches(tabIndex, event.Content) {
			continue
		}
		matched = append(matched, event)
	}

	posts := lo.Map(matched, func(event Event, _ int) models.NostrPost {
		return toPost(event)
	})
	f.cache.Set(key, posts, f.ttl)

	log.WithFields(log.Fields{
		"source":  "nostr",
		"tab":     tabIndex,
		"matched": len(posts),
		"total":   len(seen),
	}).Info("Collected Nostr events")
	return posts
}

func toPost(event Event) models.NostrPost {
	npub, err := EncodeNpub(event.Pubkey)
	if err != nil {
		log.WithFields(log.Fields{
			"pubkey": event.Pubkey,
			"error":  err,
		}).Debug("Could not encode npub")
	}
	return models.NostrPost{
		Id:        event.Id,
		Pubkey:    event.Pubkey,
		Npub:      npub,
		Content:   event.Content,
		CreatedAt: event.CreatedAt,
		Tags:      event.Tags,
	}
}

func cacheKey(tabIndex int) string {
	return fmt.Sprintf("nostr:%d", tabIndex)
}

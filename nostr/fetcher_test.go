package nostr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossfeed/cache"
	"crossfeed/config"
	"crossfeed/models"
	"crossfeed/tabs"
)

var upgrader = websocket.Upgrader{}

// relayHandler drives one fake relay connection after the REQ frame
// has arrived
type relayHandler func(conn *websocket.Conn, subID string, filter Filter)

// newFakeRelay runs a websocket relay that parses the REQ frame and
// hands the connection to handler. Returns the ws:// url to dial.
func newFakeRelay(t *testing.T, connections *atomic.Int32, handler relayHandler) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if connections != nil {
			connections.Add(1)
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame []json.RawMessage
		if err := json.Unmarshal(data, &frame); err != nil || len(frame) < 3 {
			return
		}
		var label, subID string
		var filter Filter
		if err := json.Unmarshal(frame[0], &label); err != nil || label != "REQ" {
			return
		}
		if err := json.Unmarshal(frame[1], &subID); err != nil {
			return
		}
		if err := json.Unmarshal(frame[2], &filter); err != nil {
			return
		}

		handler(conn, subID, filter)
	}))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func sendEvent(conn *websocket.Conn, subID string, event Event) error {
	frame, err := json.Marshal([]interface{}{"EVENT", subID, event})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func sendEose(conn *websocket.Conn, subID string) error {
	frame, err := json.Marshal([]interface{}{"EOSE", subID})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// blockUntilClosed keeps the server side open until the client hangs up
func blockUntilClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func testEvent(id string, content string) Event {
	return Event{
		Id:        id,
		Pubkey:    "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d",
		CreatedAt: time.Now().Unix(),
		Kind:      noteKind,
		Tags:      [][]string{},
		Content:   content,
	}
}

func newTestFetcher(t *testing.T, relays []string, window time.Duration) *Fetcher {
	t.Helper()
	classifier, err := tabs.InitializeTabs(&config.Config{
		Tabs: []config.TabConfig{
			{
				DisplayName: "Bitcoin",
				Pattern:     "bitcoin|btc",
				BlueskyFeed: "at://did:plc:feeds/app.bsky.feed.generator/bitcoin",
			},
		},
	})
	require.NoError(t, err)

	return NewFetcher(FetcherConfig{
		Relays:        relays,
		CollectWindow: window,
		Since:         14 * 24 * time.Hour,
		CacheTTL:      600 * time.Second,
		Tabs:          classifier,
		Cache:         cache.New[[]models.NostrPost](),
	})
}

func TestFetchCollectsMatchingEvents(t *testing.T) {
	relay := newFakeRelay(t, nil, func(conn *websocket.Conn, subID string, filter Filter) {
		sendEvent(conn, subID, testEvent("e1", "bitcoin is on sale"))
		sendEvent(conn, subID, testEvent("e2", "pictures of my cat"))
		sendEvent(conn, subID, testEvent("e3", "BTC hit a new high"))
		sendEose(conn, subID)
		blockUntilClosed(conn)
	})

	fetcher := newTestFetcher(t, []string{relay}, 500*time.Millisecond)
	posts := fetcher.Fetch(context.Background(), 0)

	require.Len(t, posts, 2)
	assert.Equal(t, "e1", posts[0].Id)
	assert.Equal(t, "e3", posts[1].Id)
	assert.True(t, strings.HasPrefix(posts[0].Npub, "npub1"), "author key should be npub encoded")
}

func TestSubscriptionFilter(t *testing.T) {
	filters := make(chan Filter, 1)
	relay := newFakeRelay(t, nil, func(conn *websocket.Conn, subID string, filter Filter) {
		filters <- filter
		blockUntilClosed(conn)
	})

	before := time.Now().Add(-14 * 24 * time.Hour).Unix()
	fetcher := newTestFetcher(t, []string{relay}, 300*time.Millisecond)
	fetcher.Fetch(context.Background(), 0)
	after := time.Now().Add(-14 * 24 * time.Hour).Unix()

	select {
	case filter := <-filters:
		assert.Equal(t, []int{noteKind}, filter.Kinds)
		assert.GreaterOrEqual(t, filter.Since, before)
		assert.LessOrEqual(t, filter.Since, after)
	case <-time.After(time.Second):
		t.Fatal("relay never received a REQ frame")
	}
}

func TestFetchServesSecondCallFromCache(t *testing.T) {
	var connections atomic.Int32
	relay := newFakeRelay(t, &connections, func(conn *websocket.Conn, subID string, filter Filter) {
		sendEvent(conn, subID, testEvent("e1", "bitcoin never sleeps"))
		blockUntilClosed(conn)
	})

	fetcher := newTestFetcher(t, []string{relay}, 300*time.Millisecond)

	first := fetcher.Fetch(context.Background(), 0)
	require.Len(t, first, 1)
	assert.Equal(t, int32(1), connections.Load())

	start := time.Now()
	second := fetcher.Fetch(context.Background(), 0)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), connections.Load(), "cache hit must not contact the relay")
	assert.Less(t, time.Since(start), 100*time.Millisecond, "cache hit must not wait out a collection window")
}

func TestFetchWindowBoundsEndlessStream(t *testing.T) {
	relay := newFakeRelay(t, nil, func(conn *websocket.Conn, subID string, filter Filter) {
		// A relay that never stops pushing events
		for i := 0; ; i++ {
			if err := sendEvent(conn, subID, testEvent(fmt.Sprintf("e%d", i), "bitcoin stream")); err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	window := 400 * time.Millisecond
	fetcher := newTestFetcher(t, []string{relay}, window)

	start := time.Now()
	posts := fetcher.Fetch(context.Background(), 0)
	elapsed := time.Since(start)

	assert.NotEmpty(t, posts)
	assert.Less(t, elapsed, window+600*time.Millisecond, "fetch must return at the window deadline")
}

func TestFetchUnreachableRelayReturnsEmpty(t *testing.T) {
	fetcher := newTestFetcher(t, []string{"ws://127.0.0.1:1"}, 300*time.Millisecond)

	posts := fetcher.Fetch(context.Background(), 0)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)

	// The empty outcome is still cached
	start := time.Now()
	fetcher.Fetch(context.Background(), 0)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestFetchDeduplicatesAcrossRelays(t *testing.T) {
	shared := testEvent("dup1", "bitcoin on every relay")

	relayA := newFakeRelay(t, nil, func(conn *websocket.Conn, subID string, filter Filter) {
		sendEvent(conn, subID, shared)
		sendEvent(conn, subID, testEvent("a1", "btc from relay a"))
		blockUntilClosed(conn)
	})
	relayB := newFakeRelay(t, nil, func(conn *websocket.Conn, subID string, filter Filter) {
		sendEvent(conn, subID, shared)
		sendEvent(conn, subID, testEvent("b1", "btc from relay b"))
		blockUntilClosed(conn)
	})

	fetcher := newTestFetcher(t, []string{relayA, relayB}, 400*time.Millisecond)
	posts := fetcher.Fetch(context.Background(), 0)

	ids := map[string]bool{}
	for _, post := range posts {
		assert.False(t, ids[post.Id], "event %s delivered twice", post.Id)
		ids[post.Id] = true
	}
	assert.Len(t, posts, 3)
	assert.True(t, ids["dup1"])
	assert.True(t, ids["a1"])
	assert.True(t, ids["b1"])
}

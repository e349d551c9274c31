package nostr

import (
	"context"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	relayConnectionAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossfeed_relay_connection_attempts_total",
		Help: "The total number of connection attempts to Nostr relays",
	})

	relayConnectionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossfeed_relay_connection_errors_total",
		Help: "The total number of relay connection errors encountered",
	})

	relayCurrentConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossfeed_relay_current_connections",
		Help: "The current number of open relay websocket connections",
	})

	relayEventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossfeed_relay_events_received_total",
		Help: "The total number of events received from Nostr relays",
	})

	relaySubscriptionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossfeed_relay_subscription_duration_seconds",
		Help:    "Duration of relay subscriptions",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // Start at 100ms, double each bucket, 10 buckets
	})
)

const (
	wsReadBufferSize   = 1024 * 1024 // 1MB
	wsWriteBufferSize  = 1024        // 1KB
	wsWriteTimeout     = 10 * time.Second
	wsHandshakeTimeout = 10 * time.Second
)

// collectFromRelay opens a subscription against one relay and forwards
// EVENT payloads to events until ctx ends. The caller's context carries
// the collection window deadline; every exit path closes the
// connection.
func collectFromRelay(ctx context.Context, relayURL string, subID string, filter Filter, events chan<- Event) {
	conn, err := dialRelay(ctx, relayURL)
	if err != nil {
		log.WithFields(log.Fields{
			"relay": relayURL,
			"error": err,
		}).Warn("Giving up on relay")
		return
	}

	relayCurrentConnections.Inc()
	subStart := time.Now()
	defer func() {
		conn.Close()
		relaySubscriptionDuration.Observe(time.Since(subStart).Seconds())
		relayCurrentConnections.Dec()
	}()

	req, err := reqMessage(subID, filter)
	if err != nil {
		log.Errorf("Failed to build REQ frame: %s", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		relayConnectionErrors.Inc()
		log.WithFields(log.Fields{
			"relay": relayURL,
			"error": err,
		}).Warn("Failed to send subscription request")
		return
	}

	// Closing the connection on ctx done is what unblocks the read
	// loop below. The REQ write above has completed, so the CLOSE
	// frame is the only remaining writer.
	go func() {
		<-ctx.Done()
		if msg, err := closeMessage(subID); err == nil {
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			_ = conn.WriteMessage(websocket.TextMessage, msg)
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteTimeout))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				relayConnectionErrors.Inc()
				log.WithFields(log.Fields{
					"relay": relayURL,
					"error": err,
				}).Warn("Relay connection dropped")
			}
			return
		}

		event, err := parseEventFrame(data)
		if err != nil {
			log.WithFields(log.Fields{
				"relay": relayURL,
				"error": err,
			}).Debug("Skipping unparseable relay frame")
			continue
		}
		if event == nil {
			continue
		}

		relayEventsReceived.Inc()
		select {
		case events <- *event:
		case <-ctx.Done():
			return
		}
	}
}

// dialRelay connects to a relay with exponential backoff. Retries stop
// when ctx ends, so an unreachable relay costs at most the collection
// window.
func dialRelay(ctx context.Context, relayURL string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		ReadBufferSize:   wsReadBufferSize,
		WriteBufferSize:  wsWriteBufferSize,
		HandshakeTimeout: wsHandshakeTimeout,
		NetDialContext: (&net.Dialer{
			Timeout:   wsHandshakeTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.Multiplier = 1.5
	bo.MaxElapsedTime = 0 // The context bounds the retries, not the backoff

	var conn *websocket.Conn
	operation := func() error {
		relayConnectionAttempts.Inc()

		var dialErr error
		conn, _, dialErr = dialer.DialContext(ctx, relayURL, nil)
		if dialErr != nil {
			relayConnectionErrors.Inc()
			log.WithFields(log.Fields{
				"relay": relayURL,
				"error": dialErr,
			}).Debug("Relay dial failed, will retry")
			return dialErr
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return conn, nil
}

// Package feed implements the websocket client for the external candle
// stream. The stream's protocol is a given, not ours: a candle subscription
// request answered with a full history snapshot, followed by incremental
// "ohlc" bar updates for the forming bucket.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"trading-dashboard/internal/model"
)

// Event is one inbound stream event, already parsed and validated.
// Exactly one of History and Bar is set.
type Event struct {
	History []model.Candle // full snapshot: replaces the candle series
	Bar     *model.Candle  // incremental update for the newest bucket
}

// Config holds the feed connection parameters.
type Config struct {
	URL          string // websocket endpoint
	APIToken     string // optional; empty skips the authorize step
	Symbol       string // instrument to subscribe, e.g. "R_100"
	Granularity  int    // candle bucket size in seconds
	HistoryCount int    // candles requested in the initial snapshot

	// RequestsPerSecond throttles outbound requests; the stream enforces
	// its own limit and disconnects abusers. Defaults to 5.
	RequestsPerSecond float64
}

// Client maintains the stream connection, resubscribing after every
// reconnect so the consumer always starts from a fresh history snapshot.
type Client struct {
	cfg     Config
	limiter *rate.Limiter

	// OnReconnect is called before each reconnection attempt (optional).
	OnReconnect func()

	// OnCandleDropped is called with the number of candles discarded from
	// a history batch due to malformed fields (optional).
	OnCandleDropped func(n int)
}

// NewClient creates a feed client. It does not connect; call Run.
func NewClient(cfg Config) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Run connects to the stream and pushes parsed events into out. Connection
// drops are retried with exponential backoff; each successful reconnect
// resubscribes, which yields a new history snapshot that supersedes all
// state derived from the previous connection. Blocks until ctx is cancelled.
func (c *Client) Run(ctx context.Context, out chan<- Event) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry forever; ctx owns the lifetime
	bo.MaxInterval = 30 * time.Second

	first := true
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !first {
			if c.OnReconnect != nil {
				c.OnReconnect()
			}
			wait := bo.NextBackOff()
			log.Printf("[feed] reconnecting in %s", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		first = false

		err := c.runConn(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[feed] connection lost: %v", err)
	}
}

// runConn performs one connect-subscribe-read cycle.
func (c *Client) runConn(ctx context.Context, out chan<- Event) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.URL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", c.cfg.URL, err)
	}
	defer conn.Close()

	// Close the connection when ctx ends so the blocked read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if c.cfg.APIToken != "" {
		if err := c.send(ctx, conn, map[string]any{"authorize": c.cfg.APIToken}); err != nil {
			return err
		}
	}
	if err := c.subscribe(ctx, conn); err != nil {
		return err
	}
	log.Printf("[feed] connected, subscribed symbol=%s granularity=%ds", c.cfg.Symbol, c.cfg.Granularity)

	return c.readLoop(ctx, conn, out)
}

// subscribe requests the history snapshot with a live candle subscription.
func (c *Client) subscribe(ctx context.Context, conn *websocket.Conn) error {
	count := c.cfg.HistoryCount
	if count <= 0 {
		count = 1000
	}
	return c.send(ctx, conn, map[string]any{
		"ticks_history":     c.cfg.Symbol,
		"adjust_start_time": 1,
		"count":             count,
		"end":               "latest",
		"granularity":       c.cfg.Granularity,
		"style":             "candles",
		"subscribe":         1,
	})
}

// send rate-limits and writes one JSON request.
func (c *Client) send(ctx context.Context, conn *websocket.Conn, msg map[string]any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("feed: write: %w", err)
	}
	return nil
}

// readLoop parses inbound messages and forwards candle events.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- Event) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read: %w", err)
		}

		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[feed] malformed message: %v", err)
			continue
		}

		if errObj, ok := msg["error"].(map[string]any); ok {
			log.Printf("[feed] stream error: code=%v message=%v", errObj["code"], errObj["message"])
			continue
		}

		var ev Event
		switch msg["msg_type"] {
		case "candles", "history":
			candles, dropped := parseHistory(msg)
			if dropped > 0 {
				log.Printf("[feed] dropped %d malformed candles from history batch", dropped)
				if c.OnCandleDropped != nil {
					c.OnCandleDropped(dropped)
				}
			}
			if candles == nil {
				continue
			}
			ev = Event{History: candles}
		case "ohlc":
			bar, err := parseBar(msg)
			if err != nil {
				log.Printf("[feed] dropping bar update: %v", err)
				if c.OnCandleDropped != nil {
					c.OnCandleDropped(1)
				}
				continue
			}
			ev = Event{Bar: &bar}
		default:
			continue // authorize acks, pings, unrelated streams
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- ev:
		}
	}
}

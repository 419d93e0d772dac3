// Package service is the top-level orchestrator for the dashboard core.
// It wires the feed, dispatcher, fanout bus, and sinks, and serializes all
// events through a single processing goroutine so indicator recomputations
// never overlap.
package service

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/internal/bus"
	"trading-dashboard/internal/dispatch"
	"trading-dashboard/internal/feed"
	"trading-dashboard/internal/gateway"
	"trading-dashboard/internal/indicator"
	"trading-dashboard/internal/metrics"
	"trading-dashboard/internal/relay"
	"trading-dashboard/internal/series"
)

// Service wires all subsystems and manages their lifecycle.
type Service struct {
	cfg  *config.Config
	prom *metrics.Metrics

	disp   *dispatch.Dispatcher
	feed   *feed.Client
	fanout *bus.FanOut
	hub    *gateway.Hub
	relay  *relay.Writer // nil when no Redis is configured

	eventCh  chan feed.Event
	configCh chan []indicator.Config
	snapCh   chan dispatch.Snapshot
}

// New creates a Service from the given Config. It connects to Redis when a
// relay address is configured; the feed connects lazily inside Run.
func New(cfg *config.Config) (*Service, error) {
	svc := &Service{
		cfg:      cfg,
		prom:     metrics.New(),
		eventCh:  make(chan feed.Event, 256),
		configCh: make(chan []indicator.Config, 16),
		snapCh:   make(chan dispatch.Snapshot, 64),
	}

	store := series.NewStore(cfg.MaxCandles)
	svc.disp = dispatch.New(store, cfg.Symbol, cfg.Granularity, cfg.ParseIndicators())

	svc.feed = feed.NewClient(feed.Config{
		URL:          cfg.FeedURL,
		APIToken:     cfg.FeedAPIToken,
		Symbol:       cfg.Symbol,
		Granularity:  cfg.Granularity,
		HistoryCount: cfg.HistoryCount,
	})
	svc.feed.OnReconnect = func() { svc.prom.FeedReconnects.Inc() }
	svc.feed.OnCandleDropped = func(n int) { svc.prom.CandlesDropped.Add(float64(n)) }

	svc.fanout = bus.New(64)
	svc.fanout.OnDrop = func(idx int) {
		svc.prom.FanoutDropsTotal.WithLabelValues(subscriberName(idx)).Inc()
	}

	svc.hub = gateway.NewHub(svc.configCh)
	svc.hub.OnClientCount = func(n int) { svc.prom.WSClients.Set(float64(n)) }
	svc.hub.OnSendDrop = func() { svc.prom.WSSendDrops.Inc() }

	if cfg.RedisAddr != "" {
		w, err := relay.New(relay.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPass})
		if err != nil {
			return nil, err
		}
		svc.relay = w
	}

	return svc, nil
}

// subscriberName maps fanout subscriber indexes to metric labels. The
// gateway always subscribes first; the relay, when enabled, second.
func subscriberName(idx int) string {
	switch idx {
	case 0:
		return "gateway"
	case 1:
		return "relay"
	default:
		return "unknown"
	}
}

// Run starts all subsystems and blocks until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	cfg := svc.cfg
	log.Printf("[service] starting dashboard core: symbol=%s granularity=%ds indicators=%q",
		cfg.Symbol, cfg.Granularity, cfg.Indicators)

	// ---- Fanout subscriptions (order defines metric labels) ----
	hubCh := svc.fanout.Subscribe()
	go svc.hub.Run(ctx, hubCh)
	if svc.relay != nil {
		relayCh := svc.fanout.Subscribe()
		go svc.relay.Run(ctx, relayCh)
	}
	go svc.fanout.Run(ctx, svc.snapCh)

	// ---- HTTP: gateway websocket + health ----
	go svc.serveHTTP(ctx)
	go metrics.Serve(ctx, cfg.MetricsAddr)

	// ---- Feed ----
	go func() {
		if err := svc.feed.Run(ctx, svc.eventCh); err != nil && ctx.Err() == nil {
			log.Printf("[service] feed stopped: %v", err)
		}
	}()

	// ---- Event loop (single goroutine; events apply in arrival order) ----
	svc.processLoop(ctx)

	svc.shutdown()
	return nil
}

// processLoop serializes feed events and config changes through the
// dispatcher. Runs until ctx is cancelled.
func (svc *Service) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-svc.eventCh:
			switch {
			case ev.History != nil:
				svc.prom.EventsTotal.WithLabelValues("history").Inc()
				svc.emit(ctx, svc.timed(func() dispatch.Snapshot {
					return svc.disp.HistoryReceived(ev.History)
				}))
			case ev.Bar != nil:
				svc.prom.EventsTotal.WithLabelValues("bar").Inc()
				snap := svc.timed(func() dispatch.Snapshot {
					return svc.disp.BarUpdate(*ev.Bar)
				})
				if last, ok := snap.Candles.Last(); ok && ev.Bar.Time < last.Time {
					svc.prom.StaleBarUpdates.Inc()
				}
				svc.emit(ctx, snap)
			}
		case cfgs := <-svc.configCh:
			svc.prom.EventsTotal.WithLabelValues("config").Inc()
			svc.emit(ctx, svc.timed(func() dispatch.Snapshot {
				return svc.disp.ConfigChange(cfgs)
			}))
		}
	}
}

// timed runs one dispatcher call and records its duration.
func (svc *Service) timed(fn func() dispatch.Snapshot) dispatch.Snapshot {
	start := time.Now()
	snap := fn()
	svc.prom.RecomputeDur.Observe(time.Since(start).Seconds())
	return snap
}

// emit pushes a snapshot to the fanout bus.
func (svc *Service) emit(ctx context.Context, snap dispatch.Snapshot) {
	svc.prom.SnapshotsTotal.Inc()
	svc.prom.SeriesLen.Set(float64(len(snap.Candles)))
	select {
	case <-ctx.Done():
	case svc.snapCh <- snap:
	}
}

// serveHTTP exposes the gateway websocket and a health endpoint.
func (svc *Service) serveHTTP(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", svc.hub.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"symbol":  svc.cfg.Symbol,
			"clients": svc.hub.ClientCount(),
		})
	})

	srv := &http.Server{Addr: svc.cfg.ListenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[service] gateway listening on %s (websocket at /ws)", svc.cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[service] http server error: %v", err)
	}
}

// shutdown closes external connections.
func (svc *Service) shutdown() {
	log.Println("[service] shutting down...")
	if svc.relay != nil {
		if err := svc.relay.Close(); err != nil {
			log.Printf("[service] relay close: %v", err)
		}
	}
	log.Println("[service] shutdown complete.")
}

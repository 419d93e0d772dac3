package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard service.
type Metrics struct {
	EventsTotal     *prometheus.CounterVec // labels: type=history|bar|config
	CandlesDropped  prometheus.Counter
	StaleBarUpdates prometheus.Counter
	FeedReconnects  prometheus.Counter

	RecomputeDur   prometheus.Histogram
	SnapshotsTotal prometheus.Counter
	SeriesLen      prometheus.Gauge

	FanoutDropsTotal *prometheus.CounterVec // labels: subscriber
	WSClients        prometheus.Gauge
	WSSendDrops      prometheus.Counter
}

// New registers and returns all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_events_total",
			Help: "Inbound events processed by the dispatcher",
		}, []string{"type"}),
		CandlesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_candles_dropped_total",
			Help: "Candles dropped at ingestion (malformed or non-finite fields)",
		}),
		StaleBarUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_stale_bar_updates_total",
			Help: "Bar updates ignored because they arrived behind the series tail",
		}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_feed_reconnects_total",
			Help: "Feed websocket reconnection attempts",
		}),
		RecomputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_recompute_duration_seconds",
			Help:    "Full indicator recomputation time per event",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}),
		SnapshotsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_snapshots_total",
			Help: "Snapshots emitted to the fanout bus",
		}),
		SeriesLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_series_length",
			Help: "Current number of retained candles",
		}),
		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_fanout_drops_total",
			Help: "Snapshots dropped by the fanout bus per subscriber",
		}, []string{"subscriber"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_ws_clients",
			Help: "Connected gateway websocket clients",
		}),
		WSSendDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_ws_send_drops_total",
			Help: "Snapshots dropped for slow gateway clients",
		}),
	}

	prometheus.MustRegister(
		m.EventsTotal,
		m.CandlesDropped,
		m.StaleBarUpdates,
		m.FeedReconnects,
		m.RecomputeDur,
		m.SnapshotsTotal,
		m.SeriesLen,
		m.FanoutDropsTotal,
		m.WSClients,
		m.WSSendDrops,
	)

	return m
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[metrics] serving on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[metrics] server error: %v", err)
	}
}

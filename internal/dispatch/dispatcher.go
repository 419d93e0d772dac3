// Package dispatch decides, per inbound event, which indicators to recompute
// and assembles the snapshot handed to the rendering side.
//
// The dispatcher is single-goroutine by design: events are applied in arrival
// order and each recomputation runs to completion before the next event is
// processed. The candle series is threaded through as an explicit value,
// never captured behind shared mutable cells.
package dispatch

import (
	"trading-dashboard/internal/indicator"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/series"
)

// Snapshot is the full derived state emitted after every event: the current
// candle series plus one point series per enabled indicator, keyed by the
// indicator display name (e.g. "SMA_20").
type Snapshot struct {
	Symbol      string                   `json:"symbol"`
	Granularity int                      `json:"granularity"` // candle bucket size in seconds
	Candles     series.Series            `json:"candles"`
	Indicators  map[string][]model.Point `json:"indicators"`
}

// Dispatcher owns the candle series and the active indicator configuration
// between events. Not safe for concurrent use; serialize all calls through a
// single goroutine.
type Dispatcher struct {
	store  *series.Store
	symbol string
	gran   int

	candles series.Series
	configs []indicator.Config

	// Last computed point series per active config name. Reused on config
	// changes for indicators whose period and enabled flag are untouched.
	computed map[string][]model.Point
}

// New creates a dispatcher for one instrument stream.
func New(store *series.Store, symbol string, granularity int, configs []indicator.Config) *Dispatcher {
	return &Dispatcher{
		store:    store,
		symbol:   symbol,
		gran:     granularity,
		configs:  configs,
		computed: make(map[string][]model.Point),
	}
}

// Configs returns the active indicator configuration.
func (d *Dispatcher) Configs() []indicator.Config {
	out := make([]indicator.Config, len(d.configs))
	copy(out, d.configs)
	return out
}

// HistoryReceived replaces the candle series wholesale from a history
// snapshot and recomputes every enabled indicator over the new series.
func (d *Dispatcher) HistoryReceived(candles []model.Candle) Snapshot {
	d.candles = d.store.ReplaceAll(candles)
	d.recomputeAll()
	return d.snapshot()
}

// BarUpdate merges a single bar into the series (append, replace-last, or
// drop-stale) and recomputes every enabled indicator over the result. EMA and
// Wilder smoothing are always reseeded from the start of the retained series,
// so a full recompute is the only mode that keeps their values consistent.
func (d *Dispatcher) BarUpdate(c model.Candle) Snapshot {
	d.candles = d.store.Apply(d.candles, c)
	d.recomputeAll()
	return d.snapshot()
}

// ConfigChange swaps the active indicator configuration without touching the
// candle series. Only indicators whose enabled flag or period changed are
// recomputed; a config disabled since the last event is dropped from the
// snapshot without calling the engine, and re-enabling always recomputes
// fresh from the full retained series; partial smoothing state is never
// resumed.
func (d *Dispatcher) ConfigChange(configs []indicator.Config) Snapshot {
	prev := make(map[indicator.Kind]indicator.Config, len(d.configs))
	for _, cfg := range d.configs {
		prev[cfg.Kind] = cfg
	}

	next := make(map[string][]model.Point, len(configs))
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		old, seen := prev[cfg.Kind]
		if seen && old.Enabled && old.Period == cfg.Period {
			next[cfg.Name()] = d.computed[cfg.Name()]
			continue
		}
		next[cfg.Name()] = indicator.Compute(d.candles, cfg)
	}

	d.configs = append(d.configs[:0:0], configs...)
	d.computed = next
	return d.snapshot()
}

// recomputeAll recomputes every enabled indicator over the current series.
func (d *Dispatcher) recomputeAll() {
	next := make(map[string][]model.Point, len(d.configs))
	for _, cfg := range d.configs {
		if !cfg.Enabled {
			continue
		}
		next[cfg.Name()] = indicator.Compute(d.candles, cfg)
	}
	d.computed = next
}

// snapshot assembles an immutable snapshot for handoff to other goroutines.
// The candle slice is copied because a later replace-last update mutates it
// in place; point slices are rebuilt on every recompute and never mutated,
// so sharing them is safe.
func (d *Dispatcher) snapshot() Snapshot {
	candles := make(series.Series, len(d.candles))
	copy(candles, d.candles)

	inds := make(map[string][]model.Point, len(d.computed))
	for name, pts := range d.computed {
		inds[name] = pts
	}

	return Snapshot{
		Symbol:      d.symbol,
		Granularity: d.gran,
		Candles:     candles,
		Indicators:  inds,
	}
}

package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"trading-dashboard/internal/indicator"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/series"
)

func bar(t int64, close float64) model.Candle {
	return model.Candle{Time: t, Open: close, High: close + 1, Low: close - 1, Close: close}
}

func history(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = bar(int64((i+1)*60), float64(10+i))
	}
	return out
}

func defaultConfigs() []indicator.Config {
	return []indicator.Config{
		{Kind: indicator.KindSMA, Period: 5, Enabled: true},
		{Kind: indicator.KindEMA, Period: 5, Enabled: true},
		{Kind: indicator.KindRSI, Period: 5, Enabled: true},
	}
}

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	return New(series.NewStore(100), "R_100", 60, defaultConfigs())
}

func TestHistoryReceived_ComputesEnabledIndicators(t *testing.T) {
	d := newDispatcher(t)

	snap := d.HistoryReceived(history(10))

	require.Len(t, snap.Candles, 10)
	require.Equal(t, "R_100", snap.Symbol)
	require.Equal(t, 60, snap.Granularity)

	require.Len(t, snap.Indicators["SMA_5"], 6)
	require.Len(t, snap.Indicators["EMA_5"], 6)
	require.Len(t, snap.Indicators["RSI_5"], 5)
}

func TestHistoryReceived_WarmupYieldsEmptySeries(t *testing.T) {
	d := newDispatcher(t)

	snap := d.HistoryReceived(history(3))

	require.Len(t, snap.Candles, 3)
	require.Empty(t, snap.Indicators["SMA_5"])
	require.Empty(t, snap.Indicators["EMA_5"])
	require.Empty(t, snap.Indicators["RSI_5"])
}

func TestBarUpdate_AppendAndReplace(t *testing.T) {
	d := newDispatcher(t)
	d.HistoryReceived(history(10)) // last bar t=600, close=19

	// Append a new bar.
	snap := d.BarUpdate(bar(660, 30))
	require.Len(t, snap.Candles, 11)
	sma := snap.Indicators["SMA_5"]
	require.NotEmpty(t, sma)
	// mean(16,17,18,19,30) = 20
	require.InDelta(t, 20.0, sma[len(sma)-1].Value, 1e-9)

	// Refresh the same forming bar: series length unchanged, value refreshed.
	snap = d.BarUpdate(bar(660, 20))
	require.Len(t, snap.Candles, 11)
	sma = snap.Indicators["SMA_5"]
	// mean(16,17,18,19,20) = 18
	require.InDelta(t, 18.0, sma[len(sma)-1].Value, 1e-9)
}

func TestBarUpdate_StaleIsNoOp(t *testing.T) {
	d := newDispatcher(t)
	before := d.HistoryReceived(history(10))

	// A bar behind the series tail is dropped; the emitted state is unchanged.
	after := d.BarUpdate(bar(60, 999))
	require.Equal(t, before.Candles, after.Candles)
	require.Equal(t, before.Indicators, after.Indicators)
}

func TestConfigChange_DisableRemovesSeries(t *testing.T) {
	d := newDispatcher(t)
	d.HistoryReceived(history(10))

	cfgs := defaultConfigs()
	cfgs[0].Enabled = false // disable SMA
	snap := d.ConfigChange(cfgs)

	require.NotContains(t, snap.Indicators, "SMA_5")
	require.Contains(t, snap.Indicators, "EMA_5")
	require.Contains(t, snap.Indicators, "RSI_5")
	require.Len(t, snap.Candles, 10, "config change must not touch candles")
}

func TestConfigChange_ReusesUnchangedSeries(t *testing.T) {
	d := newDispatcher(t)
	first := d.HistoryReceived(history(10))

	// Change only the RSI period; SMA and EMA configs are untouched.
	cfgs := defaultConfigs()
	cfgs[2].Period = 3
	snap := d.ConfigChange(cfgs)

	require.Contains(t, snap.Indicators, "RSI_3")
	require.NotContains(t, snap.Indicators, "RSI_5")

	// Untouched indicators keep the exact series from the last recompute.
	require.Equal(t, first.Indicators["SMA_5"], snap.Indicators["SMA_5"])
	require.Equal(t, first.Indicators["EMA_5"], snap.Indicators["EMA_5"])
}

func TestConfigChange_ReenableRecomputesFresh(t *testing.T) {
	d := newDispatcher(t)
	d.HistoryReceived(history(10))

	// Disable EMA, advance the series, then re-enable.
	cfgs := defaultConfigs()
	cfgs[1].Enabled = false
	d.ConfigChange(cfgs)
	d.BarUpdate(bar(660, 25))
	d.BarUpdate(bar(720, 26))

	cfgs[1].Enabled = true
	snap := d.ConfigChange(cfgs)

	// The re-enabled EMA must equal a fresh computation over the full
	// retained series, no resumed partial state.
	want := indicator.Compute(snap.Candles, cfgs[1])
	require.Equal(t, want, snap.Indicators["EMA_5"])
}

func TestSnapshot_ImmuneToLaterUpdates(t *testing.T) {
	d := newDispatcher(t)
	d.HistoryReceived(history(10))

	snap := d.BarUpdate(bar(660, 30))
	lastBefore := snap.Candles[len(snap.Candles)-1]

	// Replace-last mutates the dispatcher's series in place; a snapshot
	// already handed off must not observe it.
	d.BarUpdate(bar(660, 99))
	require.Equal(t, lastBefore, snap.Candles[len(snap.Candles)-1])
}

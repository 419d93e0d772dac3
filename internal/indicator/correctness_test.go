package indicator

import (
	"math"
	"testing"

	"trading-dashboard/internal/model"
	"trading-dashboard/internal/series"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

// ramp builds a series of one-minute candles with the given closes.
func ramp(closes ...float64) series.Series {
	s := make(series.Series, len(closes))
	for i, c := range closes {
		s[i] = model.Candle{
			Time: int64(1700000000 + i*60),
			Open: c, High: c + 0.5, Low: c - 0.5, Close: c,
		}
	}
	return s
}

func seq(from, to float64) []float64 {
	var out []float64
	for v := from; v <= to; v++ {
		out = append(out, v)
	}
	return out
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Hand-calculated SMA(3) for a known close series:
	// Closes: 100, 102, 104, 103, 105
	// SMA at candle 3: (100+102+104)/3 = 102.0
	// SMA at candle 4: (102+104+103)/3 = 103.0
	// SMA at candle 5: (104+103+105)/3 = 104.0
	s := ramp(100, 102, 104, 103, 105)

	out := SMA(s, 3)
	if len(out) != 3 {
		t.Fatalf("SMA(3) over 5 candles: got %d points, want 3", len(out))
	}

	expected := []float64{102.0, 103.0, 104.0}
	for i, want := range expected {
		assertClose(t, "SMA(3)", out[i].Value, want, 0.0001)
		if out[i].Time != s[i+2].Time {
			t.Errorf("SMA(3) point %d: time %d, want %d", i, out[i].Time, s[i+2].Time)
		}
	}
}

func TestSMA_WarmupBoundary(t *testing.T) {
	// Empty iff len < period; first value lands exactly at index period-1.
	for n := 0; n < 5; n++ {
		out := SMA(ramp(seq(1, float64(n))...), 5)
		if len(out) != 0 {
			t.Errorf("SMA(5) over %d candles: got %d points, want 0", n, len(out))
		}
	}

	s := ramp(10, 11, 12, 13, 14)
	out := SMA(s, 5)
	if len(out) != 1 {
		t.Fatalf("SMA(5) over 5 candles: got %d points, want 1", len(out))
	}
	if out[0].Time != s[4].Time {
		t.Errorf("first SMA point at time %d, want %d (index period-1)", out[0].Time, s[4].Time)
	}
	assertClose(t, "SMA(5)", out[0].Value, 12.0, 0.0001)
}

func TestSMA_SlidingWindowMatchesNaiveMean(t *testing.T) {
	// The running-sum window must agree with re-summing each window.
	closes := []float64{3.5, 7.25, 1.0, 9.75, 4.5, 2.25, 8.0, 6.5, 0.75, 5.25}
	s := ramp(closes...)
	period := 4

	out := SMA(s, period)
	for i, p := range out {
		sum := 0.0
		for j := i; j < i+period; j++ {
			sum += closes[j]
		}
		assertClose(t, "SMA window "+string(rune('0'+i)), p.Value, sum/float64(period), 1e-9)
	}
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_SeedAndRecurrence(t *testing.T) {
	// EMA(3) over closes [1,2,3,10], k = 2/(3+1) = 0.5:
	// seed at index 2 = (1+2+3)/3 = 2.0
	// index 3 = (10-2)*0.5 + 2 = 6.0
	s := ramp(1, 2, 3, 10)

	out := EMA(s, 3)
	if len(out) != 2 {
		t.Fatalf("EMA(3) over 4 candles: got %d points, want 2", len(out))
	}
	assertClose(t, "EMA(3) seed", out[0].Value, 2.0, 0.0001)
	if out[0].Time != s[2].Time {
		t.Errorf("EMA seed at time %d, want %d", out[0].Time, s[2].Time)
	}
	assertClose(t, "EMA(3) step", out[1].Value, 6.0, 0.0001)
}

func TestEMA_Correctness_Period5(t *testing.T) {
	// EMA(5): k = 2/6. Closes: 44, 44.25, 44.50, 43.75, 44.50, 44.25, 44.00
	// seed = (44+44.25+44.50+43.75+44.50)/5 = 44.20
	// next = (44.25-44.20)*k + 44.20
	// next = (44.00-prev)*k + prev
	k := 2.0 / 6.0
	s := ramp(44, 44.25, 44.50, 43.75, 44.50, 44.25, 44.00)

	out := EMA(s, 5)
	if len(out) != 3 {
		t.Fatalf("EMA(5) over 7 candles: got %d points, want 3", len(out))
	}

	seed := 44.20
	assertClose(t, "EMA(5) seed", out[0].Value, seed, 0.0001)
	e6 := (44.25-seed)*k + seed
	assertClose(t, "EMA(5) candle 6", out[1].Value, e6, 0.0001)
	e7 := (44.00-e6)*k + e6
	assertClose(t, "EMA(5) candle 7", out[2].Value, e7, 0.0001)
}

func TestEMA_Warmup(t *testing.T) {
	if out := EMA(ramp(1, 2), 3); len(out) != 0 {
		t.Errorf("EMA(3) over 2 candles: got %d points, want 0", len(out))
	}
}

// ────────────────────────────────────────────────────────────
// RSI Correctness (Wilder smoothing)
// ────────────────────────────────────────────────────────────

func TestRSI_AllGain(t *testing.T) {
	// Strictly increasing closes: avgLoss stays 0, RSI pins at 100 at
	// every computed point.
	s := ramp(seq(1, 20)...)

	out := RSI(s, 14)
	if len(out) != len(s)-14 {
		t.Fatalf("RSI(14) over %d candles: got %d points, want %d", len(s), len(out), len(s)-14)
	}
	for i, p := range out {
		assertClose(t, "RSI all-gain point "+string(rune('0'+i)), p.Value, 100.0, 0.0001)
	}
}

func TestRSI_AllLoss(t *testing.T) {
	// Strictly decreasing closes: avgGain stays 0, RSI = 0 everywhere.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(100 - i)
	}
	s := ramp(closes...)

	out := RSI(s, 14)
	if len(out) == 0 {
		t.Fatal("RSI(14) over 20 candles: empty output")
	}
	for i, p := range out {
		assertClose(t, "RSI all-loss point "+string(rune('0'+i)), p.Value, 0.0, 0.0001)
	}
}

func TestRSI_FlatSeries(t *testing.T) {
	// No movement at all: avgLoss == 0 triggers the defined edge case.
	closes := make([]float64, 16)
	for i := range closes {
		closes[i] = 50
	}
	out := RSI(ramp(closes...), 14)
	for _, p := range out {
		assertClose(t, "RSI flat", p.Value, 100.0, 0.0001)
	}
}

func TestRSI_Correctness_Period3(t *testing.T) {
	// Hand-calculated RSI(3) over closes 10, 11, 10, 12, 11:
	// deltas: +1, -1, +2, -1
	// seed (deltas 1..3): avgGain = (1+0+2)/3 = 1.0, avgLoss = (0+1+0)/3 = 1/3
	// RSI at index 3 = 100 - 100/(1 + 3) = 75.0
	// step (delta -1): avgGain = (1*2+0)/3 = 2/3, avgLoss = (1/3*2+1)/3 = 5/9
	// RSI at index 4 = 100 - 100/(1 + (2/3)/(5/9)) = 54.545454...
	s := ramp(10, 11, 10, 12, 11)

	out := RSI(s, 3)
	if len(out) != 2 {
		t.Fatalf("RSI(3) over 5 candles: got %d points, want 2", len(out))
	}
	assertClose(t, "RSI(3) seed point", out[0].Value, 75.0, 0.0001)
	assertClose(t, "RSI(3) smoothed point", out[1].Value, 54.545454, 0.0001)
}

func TestRSI_Warmup(t *testing.T) {
	// RSI needs period+1 candles for the first delta window.
	if out := RSI(ramp(seq(1, 14)...), 14); len(out) != 0 {
		t.Errorf("RSI(14) over 14 candles: got %d points, want 0", len(out))
	}
	if out := RSI(ramp(seq(1, 15)...), 14); len(out) != 1 {
		t.Errorf("RSI(14) over 15 candles: got %d points, want 1", len(out))
	}
}

// ────────────────────────────────────────────────────────────
// Cross-cutting properties
// ────────────────────────────────────────────────────────────

func TestDeterminism(t *testing.T) {
	s := ramp(seq(10, 40)...)
	cfgs := []Config{
		{Kind: KindSMA, Period: 7, Enabled: true},
		{Kind: KindEMA, Period: 7, Enabled: true},
		{Kind: KindRSI, Period: 7, Enabled: true},
	}

	for _, cfg := range cfgs {
		a := Compute(s, cfg)
		b := Compute(s, cfg)
		if len(a) != len(b) {
			t.Fatalf("%s: lengths differ: %d vs %d", cfg.Name(), len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("%s point %d differs across identical calls: %+v vs %+v", cfg.Name(), i, a[i], b[i])
			}
		}
	}
}

func TestLinearRamp_EndToEnd(t *testing.T) {
	// 25 one-minute candles, closes 10..34.
	s := ramp(seq(10, 34)...)

	// SMA(20): 6 values, last = mean(15..34) = 24.5.
	sma := SMA(s, 20)
	if len(sma) != 6 {
		t.Fatalf("SMA(20): got %d points, want 6", len(sma))
	}
	assertClose(t, "SMA(20) last", sma[len(sma)-1].Value, 24.5, 0.0001)

	// EMA(20): seed at index 19 = mean(10..29) = 19.5.
	ema := EMA(s, 20)
	if len(ema) != 6 {
		t.Fatalf("EMA(20): got %d points, want 6", len(ema))
	}
	assertClose(t, "EMA(20) seed", ema[0].Value, 19.5, 0.0001)
	if ema[0].Time != s[19].Time {
		t.Errorf("EMA(20) seed at time %d, want %d", ema[0].Time, s[19].Time)
	}

	// RSI(14) on a monotonically increasing series = 100 everywhere.
	rsi := RSI(s, 14)
	if len(rsi) != 11 {
		t.Fatalf("RSI(14): got %d points, want 11", len(rsi))
	}
	for _, p := range rsi {
		assertClose(t, "RSI(14) ramp", p.Value, 100.0, 0.0001)
	}
}

func TestCompute_UnknownKindAndBadPeriod(t *testing.T) {
	s := ramp(seq(1, 10)...)
	if out := Compute(s, Config{Kind: "MACD", Period: 5}); out != nil {
		t.Errorf("unknown kind: got %d points, want none", len(out))
	}
	if out := Compute(s, Config{Kind: KindSMA, Period: 0}); out != nil {
		t.Errorf("period 0: got %d points, want none", len(out))
	}
	if out := Compute(s, Config{Kind: KindRSI, Period: -3}); out != nil {
		t.Errorf("negative period: got %d points, want none", len(out))
	}
}

func TestConfigName(t *testing.T) {
	if got := (Config{Kind: KindSMA, Period: 20}).Name(); got != "SMA_20" {
		t.Errorf("Name() = %q, want SMA_20", got)
	}
	if got := (Config{Kind: KindRSI, Period: 14}).Name(); got != "RSI_14" {
		t.Errorf("Name() = %q, want RSI_14", got)
	}
}

package indicator

import (
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/series"
)

// RSI computes the Relative Strength Index using Wilder's smoothing.
//
// Per-step gains and losses come from close-to-close deltas, the seed
// averages are the simple mean of the first period deltas, and subsequent
// steps use Wilder's recurrence:
//
//	avg = (avg*(period-1) + value) / period
//
// Requires at least period+1 candles (one extra for the first delta);
// the first value lands on the candle at index period.
//
// avgLoss == 0 is a defined edge case, not a fault: an asset that only rose
// reads maximal strength, RSI = 100. A series that only fell has avgGain == 0
// and reads RSI = 0 through the normal formula.
func RSI(s series.Series, period int) []model.Point {
	if period <= 0 || len(s) < period+1 {
		return nil
	}

	out := make([]model.Point, 0, len(s)-period)
	avgGain, avgLoss := 0.0, 0.0

	// Seed: simple mean of the first period gains/losses (deltas 1..period).
	for i := 1; i <= period; i++ {
		delta := s[i].Close - s[i-1].Close
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out = append(out, model.Point{Time: s[period].Time, Value: rsiValue(avgGain, avgLoss)})

	p := float64(period)
	for i := period + 1; i < len(s); i++ {
		delta := s[i].Close - s[i-1].Close
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out = append(out, model.Point{Time: s[i].Time, Value: rsiValue(avgGain, avgLoss)})
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

package indicator

import (
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/series"
)

// EMA computes the exponential moving average of close prices.
//
// The first value is the simple mean of the first period closes, emitted at
// index period-1 (SMA seed). From there the recurrence is
//
//	ema = (close - prev) * k + prev,  k = 2 / (period + 1)
//
// The seed must come from the start of the retained series: EMA is not a
// sliding-window function, and seeding from an arbitrary truncation diverges
// from a continuously-maintained EMA.
func EMA(s series.Series, period int) []model.Point {
	if period <= 0 || len(s) < period {
		return nil
	}

	out := make([]model.Point, 0, len(s)-period+1)
	k := 2.0 / float64(period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += s[i].Close
	}
	ema := seed / float64(period)
	out = append(out, model.Point{Time: s[period-1].Time, Value: ema})

	for i := period; i < len(s); i++ {
		ema = (s[i].Close-ema)*k + ema
		out = append(out, model.Point{Time: s[i].Time, Value: ema})
	}
	return out
}

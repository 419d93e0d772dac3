package indicator

import (
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/series"
)

// SMA computes the simple moving average of close prices over a rolling
// window. Uses a running sum (add entering value, subtract leaving value)
// so a full recompute stays linear in series length; the engine runs on
// every incoming bar.
//
// Returns an empty series while len(s) < period (warm-up); the first value
// lands on the candle at index period-1.
func SMA(s series.Series, period int) []model.Point {
	if period <= 0 || len(s) < period {
		return nil
	}

	out := make([]model.Point, 0, len(s)-period+1)
	sum := 0.0
	for i, c := range s {
		sum += c.Close
		if i >= period {
			sum -= s[i-period].Close
		}
		if i >= period-1 {
			out = append(out, model.Point{Time: c.Time, Value: sum / float64(period)})
		}
	}
	return out
}

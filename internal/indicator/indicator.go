// Package indicator provides technical indicator calculations over candle
// series.
//
// All indicators are pure functions: given the same series and period they
// produce the same output series, with no state shared between calls. Each
// call recomputes from the full retained series, so EMA and Wilder smoothing
// are seeded from the series start, so feeding a truncated tail would
// diverge from the series a continuously-maintained indicator produces.
package indicator

import (
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/series"
)

// Kind identifies an indicator algorithm.
type Kind string

const (
	KindSMA Kind = "SMA"
	KindEMA Kind = "EMA"
	KindRSI Kind = "RSI"
)

// Config specifies a single indicator to compute. Configuration is owned by
// the consumer and passed in on every call; the engine holds none of it.
type Config struct {
	Kind    Kind `json:"kind"`
	Period  int  `json:"period"`
	Enabled bool `json:"enabled"`
}

// Name returns the display key for this config (e.g. "SMA_20", "RSI_14").
func (c Config) Name() string {
	return string(c.Kind) + "_" + itoa(c.Period)
}

// Compute dispatches to the configured indicator. An unknown kind or a
// non-positive period yields an empty series, the same as insufficient
// history: "no output yet" is a normal state, not an error.
func Compute(s series.Series, cfg Config) []model.Point {
	if cfg.Period <= 0 {
		return nil
	}
	switch cfg.Kind {
	case KindSMA:
		return SMA(s, cfg.Period)
	case KindEMA:
		return EMA(s, cfg.Period)
	case KindRSI:
		return RSI(s, cfg.Period)
	default:
		return nil
	}
}

// itoa converts a non-negative int to string without importing strconv.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

package model

import (
	"encoding/json"
	"math"
)

// Candle represents one OHLC bar of the chart series.
// Time is the bucket start in Unix seconds and is the sole ordering key
// within a series.
type Candle struct {
	Time  int64   `json:"time"` // Unix seconds, bucket start
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Valid reports whether all price fields are finite. Candles that fail this
// check are dropped at ingestion, never stored.
func (c Candle) Valid() bool {
	return isFinite(c.Open) && isFinite(c.High) && isFinite(c.Low) && isFinite(c.Close)
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Point is a single computed indicator value aligned to a candle timestamp.
type Point struct {
	Time  int64   `json:"time"` // Unix seconds of the candle that produced this value
	Value float64 `json:"value"`
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

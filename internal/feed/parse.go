package feed

import (
	"fmt"
	"math"
	"strconv"

	"trading-dashboard/internal/model"
)

// parseHistory extracts the candle list from a history snapshot payload.
// The stream serves the list under "candles" or, on some responses,
// "history". Candles with unparseable or non-finite fields are dropped
// individually; a bad entry never aborts the batch. dropped reports how
// many entries were discarded.
func parseHistory(msg map[string]any) (out []model.Candle, dropped int) {
	raw, ok := msg["candles"].([]any)
	if !ok {
		raw, ok = msg["history"].([]any)
	}
	if !ok {
		return nil, 0
	}

	out = make([]model.Candle, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		c, err := parseCandle(entry, "epoch")
		if err != nil {
			dropped++
			continue
		}
		out = append(out, c)
	}
	return out, dropped
}

// parseBar extracts a single bar update from an "ohlc" payload. The bar is
// keyed on its bucket start ("open_time"); streams that omit it fall back to
// the tick epoch.
func parseBar(msg map[string]any) (model.Candle, error) {
	entry, ok := msg["ohlc"].(map[string]any)
	if !ok {
		return model.Candle{}, fmt.Errorf("feed: missing ohlc payload")
	}
	if _, ok := entry["open_time"]; ok {
		return parseCandle(entry, "open_time")
	}
	return parseCandle(entry, "epoch")
}

// parseCandle converts one raw candle object. Price fields arrive as JSON
// numbers or as strings and are parsed to float64 before use.
func parseCandle(entry map[string]any, timeField string) (model.Candle, error) {
	ts, err := toInt64(entry[timeField])
	if err != nil {
		return model.Candle{}, fmt.Errorf("feed: candle %s: %w", timeField, err)
	}

	c := model.Candle{Time: ts}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &c.Open},
		{"high", &c.High},
		{"low", &c.Low},
		{"close", &c.Close},
	} {
		v, err := toFloat(entry[f.name])
		if err != nil {
			return model.Candle{}, fmt.Errorf("feed: candle %s: %w", f.name, err)
		}
		*f.dst = v
	}

	if !c.Valid() {
		return model.Candle{}, fmt.Errorf("feed: candle has non-finite field")
	}
	return c, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", t, err)
		}
		return f, nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("non-finite timestamp")
		}
		return int64(t), nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", t, err)
		}
		return n, nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	default:
		return 0, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

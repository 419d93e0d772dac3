// Package series maintains the ordered, deduplicated, capped candle series
// that the indicator engine computes over. The series is a plain value owned
// by the caller: every mutation returns a new (or truncated) slice and the
// store itself keeps no hidden state beyond the retention cap.
package series

import (
	"sort"

	"trading-dashboard/internal/model"
)

// DefaultMax is the default retention cap for a candle series.
const DefaultMax = 1000

// Series is an ordered candle sequence, unique and ascending by Time.
type Series []model.Candle

// Last returns the most recent candle. ok is false for an empty series.
func (s Series) Last() (model.Candle, bool) {
	if len(s) == 0 {
		return model.Candle{}, false
	}
	return s[len(s)-1], true
}

// Store builds and updates candle series under a fixed retention cap.
type Store struct {
	max int
}

// NewStore creates a store with the given retention cap.
// A cap <= 0 falls back to DefaultMax.
func NewStore(max int) *Store {
	if max <= 0 {
		max = DefaultMax
	}
	return &Store{max: max}
}

// Max returns the retention cap.
func (st *Store) Max() int { return st.max }

// ReplaceAll builds a fresh series from a history snapshot. Candles with
// non-finite price fields are dropped, duplicates by Time are collapsed
// (last occurrence wins), the result is sorted ascending by Time and
// truncated to the retention cap keeping the most recent entries.
func (st *Store) ReplaceAll(candles []model.Candle) Series {
	out := make(Series, 0, len(candles))
	for _, c := range candles {
		if c.Valid() {
			out = append(out, c)
		}
	}

	// Stable sort keeps input order within equal timestamps, so the last
	// occurrence of a duplicate Time survives the dedupe pass below.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })

	deduped := out[:0]
	for i, c := range out {
		if i+1 < len(out) && out[i+1].Time == c.Time {
			continue
		}
		deduped = append(deduped, c)
	}

	if len(deduped) > st.max {
		deduped = deduped[len(deduped)-st.max:]
	}
	return deduped
}

// Apply merges a single bar update into the series and returns the result.
//
//   - candle newer than the last stored bar → append (evicting the oldest
//     bar once the retention cap is exceeded)
//   - candle equal to the last stored Time  → replace in place (the bar is
//     still forming and the same bucket is being refreshed)
//   - candle older than the last stored Time → no-op; stale and
//     out-of-order updates are silently dropped
//
// Invalid (non-finite) candles are dropped the same way stale ones are.
func (st *Store) Apply(s Series, c model.Candle) Series {
	if !c.Valid() {
		return s
	}

	last, ok := s.Last()
	if !ok || c.Time > last.Time {
		s = append(s, c)
		if len(s) > st.max {
			s = s[len(s)-st.max:]
		}
		return s
	}
	if c.Time == last.Time {
		s[len(s)-1] = c
		return s
	}
	return s
}

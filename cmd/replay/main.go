// cmd/replay feeds a recorded candle file through the dispatcher to inspect
// indicator output without a live feed.
//
// The input is a JSON array of candles:
//
//	[{"time":1700000000,"open":10,"high":11,"low":9,"close":10.5}, ...]
//
// Usage:
//
//	go run ./cmd/replay --file=candles.json --indicators=SMA:20,EMA:9,RSI:14 --step
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"trading-dashboard/config"
	"trading-dashboard/internal/dispatch"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/series"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	file := flag.String("file", "", "Path to JSON candle file (required)")
	indicators := flag.String("indicators", "SMA:20,EMA:9,RSI:14", "Indicator specs: KIND:PERIOD,...")
	maxCandles := flag.Int("max", series.DefaultMax, "Series retention cap")
	step := flag.Bool("step", false, "Replay bar-by-bar instead of one history snapshot")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("[replay] read %s: %v", *file, err)
	}
	var candles []model.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		log.Fatalf("[replay] parse %s: %v", *file, err)
	}
	if len(candles) == 0 {
		log.Fatal("[replay] no candles in input")
	}

	cfg := &config.Config{Indicators: *indicators}
	configs := cfg.ParseIndicators()
	if len(configs) == 0 {
		log.Fatal("[replay] no valid indicator specs")
	}

	d := dispatch.New(series.NewStore(*maxCandles), "replay", 0, configs)

	var snap dispatch.Snapshot
	if *step {
		// First bar seeds the series, the rest arrive as incremental updates.
		snap = d.HistoryReceived(candles[:1])
		for _, c := range candles[1:] {
			snap = d.BarUpdate(c)
		}
	} else {
		snap = d.HistoryReceived(candles)
	}

	fmt.Printf("replayed %d candles (%d retained)\n", len(candles), len(snap.Candles))
	for _, cfg := range configs {
		pts := snap.Indicators[cfg.Name()]
		if len(pts) == 0 {
			fmt.Printf("  %-8s warming up (need more candles)\n", cfg.Name())
			continue
		}
		last := pts[len(pts)-1]
		fmt.Printf("  %-8s %d points, last = %.6f @ %d\n", cfg.Name(), len(pts), last.Value, last.Time)
	}
}

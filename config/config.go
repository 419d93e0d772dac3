package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"trading-dashboard/internal/indicator"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Feed
	FeedURL      string
	FeedAPIToken string
	Symbol       string
	Granularity  int // candle bucket size in seconds
	HistoryCount int

	// Series retention
	MaxCandles int

	// Indicator defaults (comma-separated KIND:PERIOD, e.g. "SMA:20,EMA:9,RSI:14")
	Indicators string

	// Infrastructure
	ListenAddr  string // gateway websocket + health
	MetricsAddr string
	RedisAddr   string // empty disables the Redis relay
	RedisPass   string

	LogLevel string
}

// Load reads configuration from a .env file (if present) and environment
// variables with sensible defaults.
func Load() *Config {
	// .env is a development convenience; missing file is not an error.
	_ = godotenv.Load()

	return &Config{
		FeedURL:      getEnv("FEED_URL", "wss://ws.derivws.com/websockets/v3?app_id=1089"),
		FeedAPIToken: getEnv("FEED_API_TOKEN", ""),
		Symbol:       getEnv("SYMBOL", "R_100"),
		Granularity:  getEnvInt("GRANULARITY", 60),
		HistoryCount: getEnvInt("HISTORY_COUNT", 1000),

		MaxCandles: getEnvInt("MAX_CANDLES", 1000),

		Indicators: getEnv("INDICATORS", "SMA:20,EMA:9,RSI:14"),

		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPass:   getEnv("REDIS_PASSWORD", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ParseIndicators parses the Indicators string into indicator configs.
// Invalid entries are skipped with a log line, matching the tolerance the
// rest of the pipeline applies to malformed input.
func (c *Config) ParseIndicators() []indicator.Config {
	parts := strings.Split(c.Indicators, ",")
	out := make([]indicator.Config, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kind, periodStr, ok := strings.Cut(p, ":")
		if !ok {
			log.Printf("[config] skipping malformed indicator spec: %q", p)
			continue
		}
		period, err := strconv.Atoi(strings.TrimSpace(periodStr))
		if err != nil || period <= 0 {
			log.Printf("[config] skipping indicator with invalid period: %q", p)
			continue
		}
		k := indicator.Kind(strings.ToUpper(strings.TrimSpace(kind)))
		switch k {
		case indicator.KindSMA, indicator.KindEMA, indicator.KindRSI:
		default:
			log.Printf("[config] skipping unknown indicator kind: %q", p)
			continue
		}
		out = append(out, indicator.Config{Kind: k, Period: period, Enabled: true})
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

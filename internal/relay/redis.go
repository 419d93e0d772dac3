// Package relay mirrors dispatcher snapshots onto Redis PubSub so consumers
// other than the browser gateway (alerting, recording, a second dashboard
// host) can follow the same stream. PubSub only, nothing is stored.
package relay

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-dashboard/internal/dispatch"
)

const publishTimeout = 2 * time.Second

// Config configures the Redis relay.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes candle and indicator updates to Redis PubSub channels.
type Writer struct {
	client *goredis.Client
}

// New creates a Writer and pings the server.
func New(cfg Config) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("relay: redis ping: %w", err)
	}

	log.Printf("[relay] connected to redis at %s", cfg.Addr)
	return &Writer{client: client}, nil
}

// Run consumes snapshots and publishes them. Blocks until ctx is cancelled
// or the channel is closed.
func (w *Writer) Run(ctx context.Context, snapCh <-chan dispatch.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapCh:
			if !ok {
				return
			}
			w.publish(ctx, snap)
		}
	}
}

// publish emits the newest candle and the newest point of every enabled
// indicator. Fire-and-forget: a publish failure costs one update, the next
// snapshot supersedes it.
func (w *Writer) publish(ctx context.Context, snap dispatch.Snapshot) {
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	suffix := snap.Symbol + ":" + itoa(snap.Granularity) + "s"
	pipe := w.client.Pipeline()

	if last, ok := snap.Candles.Last(); ok {
		pipe.Publish(pctx, "pub:candle:"+suffix, last.JSON())
	}
	for name, pts := range snap.Indicators {
		if len(pts) == 0 {
			continue
		}
		p := pts[len(pts)-1]
		pipe.Publish(pctx, "pub:ind:"+name+":"+suffix,
			fmt.Sprintf(`{"time":%d,"value":%g}`, p.Time, p.Value))
	}

	if _, err := pipe.Exec(pctx); err != nil {
		log.Printf("[relay] publish failed: %v", err)
	}
}

// Close releases the Redis connection.
func (w *Writer) Close() error {
	return w.client.Close()
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

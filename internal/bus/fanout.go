// Package bus broadcasts dispatcher snapshots to every attached consumer
// (websocket gateway, Redis relay). A slow consumer has snapshots dropped
// rather than being allowed to block the event pipeline: each snapshot is
// a complete state, so a dropped one is superseded by the next.
package bus

import (
	"context"
	"log"
	"sync"

	"trading-dashboard/internal/dispatch"
)

// FanOut broadcasts snapshots from a single input channel to N output channels.
type FanOut struct {
	mu      sync.RWMutex
	outputs []chan dispatch.Snapshot
	bufSize int

	// OnDrop is called when a snapshot is dropped for a subscriber.
	// subscriberIdx is the 0-based index of the slow consumer.
	OnDrop func(subscriberIdx int)
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int) *FanOut {
	return &FanOut{
		bufSize: outputBufferSize,
	}
}

// Subscribe creates and returns a new output channel.
func (f *FanOut) Subscribe() <-chan dispatch.Snapshot {
	ch := make(chan dispatch.Snapshot, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, ch)
	f.mu.Unlock()
	return ch
}

// Run reads from the input channel and fans out to all subscribers.
// Blocks until ctx is cancelled or input is closed.
func (f *FanOut) Run(ctx context.Context, input <-chan dispatch.Snapshot) {
	defer func() {
		f.mu.RLock()
		for _, ch := range f.outputs {
			close(ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-input:
			if !ok {
				return
			}
			f.mu.RLock()
			for i, ch := range f.outputs {
				select {
				case ch <- snap:
				default:
					if f.OnDrop != nil {
						f.OnDrop(i)
					} else {
						log.Printf("[bus] output channel %d full, dropping snapshot %s", i, snap.Symbol)
					}
				}
			}
			f.mu.RUnlock()
		}
	}
}

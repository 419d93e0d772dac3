// Package gateway fans dispatcher snapshots out to browser clients over
// websocket and feeds indicator-config changes from clients back into the
// event pipeline. All visual mapping (colors, scales, axes) stays on the
// client; the gateway ships state, nothing more.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"trading-dashboard/internal/dispatch"
	"trading-dashboard/internal/indicator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is served from arbitrary origins during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is the wire frame sent to clients.
type Envelope struct {
	Type string            `json:"type"` // "snapshot"
	Data dispatch.Snapshot `json:"data"`
}

// clientMessage is the wire frame received from clients.
type clientMessage struct {
	Type       string             `json:"type"` // "config"
	Indicators []indicator.Config `json:"indicators"`
}

// Hub manages websocket clients and broadcasts snapshot envelopes.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  []byte // last marshalled envelope, replayed to new clients

	configCh chan<- []indicator.Config

	// Metrics hooks (optional)
	OnClientCount func(n int)
	OnSendDrop    func()
}

// NewHub creates a hub. Config messages received from clients are forwarded
// into configCh for the service loop to serialize.
func NewHub(configCh chan<- []indicator.Config) *Hub {
	return &Hub{
		clients:  make(map[*Client]bool),
		configCh: configCh,
	}
}

// Run consumes snapshots and broadcasts them. Blocks until ctx is cancelled
// or the channel is closed.
func (h *Hub) Run(ctx context.Context, snapCh <-chan dispatch.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case snap, ok := <-snapCh:
			if !ok {
				h.closeAll()
				return
			}
			data, err := json.Marshal(Envelope{Type: "snapshot", Data: snap})
			if err != nil {
				log.Printf("[gateway] snapshot marshal: %v", err)
				continue
			}
			h.broadcast(data)
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket client connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade: %v", err)
		return
	}

	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 64),
	}
	h.register(c)

	// New clients start from the latest known state.
	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()
	if latest != nil {
		c.enqueue(latest)
	}

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	h.latest = data
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.enqueue(data)
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	if h.OnClientCount != nil {
		h.OnClientCount(n)
	}
	log.Printf("[gateway] client connected (%d total)", n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	if h.OnClientCount != nil {
		h.OnClientCount(n)
	}
	log.Printf("[gateway] client disconnected (%d total)", n)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
}

// handleConfig forwards a client's indicator config into the service loop.
// Non-blocking: a stuck pipeline must not back up into connection reads.
func (h *Hub) handleConfig(cfgs []indicator.Config) {
	select {
	case h.configCh <- cfgs:
	default:
		log.Println("[gateway] config channel full, dropping config change")
	}
}

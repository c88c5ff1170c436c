// Package feed streams per-iteration training statistics to WebSocket
// subscribers. It only exports the numbers; rendering them is the
// subscriber's business.
package feed

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/gridpursuit/internal/train"
)

// Event is the envelope for all feed messages.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types sent over the feed.
const (
	EventIteration = "iteration"
	EventFinished  = "finished"
)

const sendBuffer = 16

type conn struct {
	ws   *websocket.Conn
	send chan []byte
}

// Hub fans training events out to connected WebSocket clients. It
// implements train.Observer, so it can be registered straight on a
// trainer.
type Hub struct {
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	conns    map[*conn]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		conns:    make(map[*conn]bool),
	}
}

// ServeHTTP upgrades the request and keeps the connection subscribed until
// it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Feed upgrade failed")
		return
	}
	c := &conn{ws: ws, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go c.writeLoop()

	// Drain (and discard) client frames so pings and closes are handled.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = true
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c] {
		delete(h.conns, c)
		close(c.send)
	}
}

// ObserveIteration broadcasts one round's statistics.
func (h *Hub) ObserveIteration(stats train.IterationStats) {
	h.broadcast(Event{Type: EventIteration, Data: stats})
}

// Finish broadcasts the final outcome and closes all connections.
func (h *Hub) Finish(outcome string, stats train.IterationStats) {
	h.broadcast(Event{Type: EventFinished, Data: map[string]any{
		"outcome": outcome,
		"final":   stats,
	}})
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		delete(h.conns, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("Marshal feed event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		select {
		case c.send <- payload:
		default:
			// Slow consumer; drop the frame rather than stall training.
		}
	}
}

func (c *conn) writeLoop() {
	defer c.ws.Close()
	for msg := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

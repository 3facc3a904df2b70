// Package broadcast fans fusion.Tick results out to connected dashboard
// clients over WebSocket, the same role yoghaf-market-indikator's
// internal/broadcast package plays for its engine snapshots. Informational
// only: nothing here feeds back into the FSMs.
package broadcast

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sentinellabs/sentinelfsm/fusion"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains the set of connected clients and fans out JSON-encoded
// ticks pushed through Publish.
type Hub struct {
	log zerolog.Logger

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	publish    chan fusion.Tick
}

// NewHub constructs a Hub. Run must be started in its own goroutine before
// any client connects.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log.With().Str("component", "broadcast").Logger(),
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		publish:    make(chan fusion.Tick, 64),
	}
}

// Run drives the hub's event loop. It blocks until ctxDone is closed.
func (h *Hub) Run(ctxDone <-chan struct{}) {
	for {
		select {
		case <-ctxDone:
			for c := range h.clients {
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.log.Info().Int("clients", len(h.clients)).Msg("client connected")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Info().Int("clients", len(h.clients)).Msg("client disconnected")
			}
		case tick := <-h.publish:
			msg, err := json.Marshal(tick)
			if err != nil {
				h.log.Error().Err(err).Msg("failed to encode tick")
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client: drop this tick rather than block the hub.
				}
			}
		}
	}
}

// Publish enqueues a tick for broadcast to all connected clients. Safe to
// call from the fusion loop; never blocks longer than the channel buffer.
func (h *Hub) Publish(tick fusion.Tick) {
	select {
	case h.publish <- tick:
	default:
		h.log.Warn().Msg("publish buffer full, dropping tick")
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and registers
// it with the hub for live tick delivery.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

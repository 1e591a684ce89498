// Package admin exposes a read-only operator surface over the federated
// server: HTTP status/metrics endpoints plus a websocket feed of round
// events, adapted from the teacher's internal/api Hub/routes pattern onto
// round lifecycle events instead of CoinJoin alerts.
package admin

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// dashboardPingInterval keeps a dashboard connection alive independently of
// round activity. A CoinJoin alert stream pushes events continuously enough
// that a dead peer surfaces on the next write; a federated round can sit in
// the poll phase for up to RoundTimeout (minutes), so the websocket needs
// its own heartbeat to notice a dropped dashboard between rounds.
const dashboardPingInterval = 30 * time.Second

// dashboardWriteTimeout bounds every write — broadcasts and pings alike —
// so one stalled dashboard socket can't block the others.
const dashboardWriteTimeout = 5 * time.Second

// Hub maintains the set of connected operator dashboards, broadcasts round
// events to all of them, and remembers the most recent event so a dashboard
// that connects mid-round sees the current phase immediately rather than
// waiting for the next broadcast (rounds can take minutes; a freshly opened
// dashboard otherwise shows nothing until the round advances).
type Hub struct {
	clients     map[*websocket.Conn]bool
	broadcast   chan []byte
	mutex       sync.Mutex
	lastMessage []byte
}

// NewHub builds an empty Hub. Call Run in its own goroutine to start
// draining broadcasts.
func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Run drains the broadcast channel, fanning each message out to every
// connected client and caching it for dashboards that connect later. A slow
// or dead client is dropped rather than blocking the others.
func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		h.lastMessage = message
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(dashboardWriteTimeout))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[admin] websocket write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe upgrades an HTTP connection to a websocket, replays the most
// recently broadcast round event so the dashboard isn't blank until the
// next one fires, registers the connection for future broadcasts, and pings
// it on dashboardPingInterval to detect a dead peer during a quiet round.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[admin] failed to upgrade websocket: %v", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	last := h.lastMessage
	h.mutex.Unlock()
	log.Printf("[admin] dashboard connected, total=%d", len(h.clients))

	if last != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(dashboardWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, last); err != nil {
			log.Printf("[admin] failed to replay last round event to new dashboard: %v", err)
		}
	}

	closed := make(chan struct{})
	go h.pingLoop(conn, closed)

	defer func() {
		close(closed)
		h.mutex.Lock()
		delete(h.clients, conn)
		h.mutex.Unlock()
		conn.Close()
		log.Printf("[admin] dashboard disconnected, total=%d", len(h.clients))
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// pingLoop sends a websocket ping every dashboardPingInterval until closed
// fires, so a dashboard sitting through a long round-timeout poll phase is
// still known to be alive.
func (h *Hub) pingLoop(conn *websocket.Conn, closed <-chan struct{}) {
	ticker := time.NewTicker(dashboardPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(dashboardWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast pushes a JSON-encoded event to every connected dashboard.
func (h *Hub) Broadcast(data []byte) {
	h.broadcast <- data
}

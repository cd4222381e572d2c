// Package dashboard exposes live monitor state over a websocket, for a
// browser-based operator view.
package dashboard

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowlane/taskmonitor/monitor"
)

// maxConnections caps concurrent websocket clients, following ws_hub.go's
// connection cap against overload.
const maxConnections = 200

// SnapshotSource is anything that can produce a monitor.Snapshot on
// demand; satisfied by *monitor.Monitor.
type SnapshotSource interface {
	Snapshot() monitor.Snapshot
}

// Hub manages websocket connections and periodically broadcasts a
// monitor's snapshot to every connected client. Adapted from
// MetricsHub (ws_hub.go): same register/unregister channel shape and
// single-broadcaster-goroutine pattern, retargeted from per-tenant
// dashboard metrics to a single monitor's queue snapshot.
type Hub struct {
	source SnapshotSource

	clients    map[*websocket.Conn]*sync.Mutex
	register   chan *websocket.Conn
	unregister chan *websocket.Conn

	mu sync.RWMutex
}

// NewHub creates a hub broadcasting source's snapshot.
func NewHub(source SnapshotSource) *Hub {
	return &Hub{
		source:     source,
		clients:    make(map[*websocket.Conn]*sync.Mutex),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main loop. Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= maxConnections {
				h.mu.Unlock()
				conn.Close()
				log.Printf("dashboard: connection rejected, max connections (%d) reached", maxConnections)
				continue
			}
			h.clients[conn] = &sync.Mutex{}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("dashboard: client registered, total %d", n)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("dashboard: client unregistered, total %d", n)

		case <-ticker.C:
			h.broadcast()
		}
	}
}

func (h *Hub) broadcast() {
	snap := h.source.Snapshot()

	h.mu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, mu := range h.clients {
		conns[conn] = mu
	}
	h.mu.RUnlock()

	for conn, writeMu := range conns {
		writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := conn.WriteJSON(snap)
		writeMu.Unlock()
		if err != nil {
			log.Printf("dashboard: write error: %v", err)
			go h.Unregister(conn)
		}
	}
}

// writePing sends a websocket ping frame, serialized against broadcast's
// writes on the same connection via the per-connection lock — gorilla's
// websocket.Conn allows only one concurrent writer.
func (h *Hub) writePing(conn *websocket.Conn) error {
	h.mu.RLock()
	writeMu, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.PingMessage, nil)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	log.Printf("dashboard: shutting down hub with %d clients", len(h.clients))
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]*sync.Mutex)
}

// Register adds a new client connection.
func (h *Hub) Register(conn *websocket.Conn) {
	h.register <- conn
}

// Unregister removes a client connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.unregister <- conn
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

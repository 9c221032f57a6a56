package dev

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout bounds a single websocket write.
const writeTimeout = 5 * time.Second

// EventHub broadcasts route table events to websocket clients.
//
// Clients connect to /_filemux/events and receive one JSON message per
// event:
//
//	{"type":"add","path":"/api/users/route.get.ts","kind":"route","time":"..."}
type EventHub struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewEventHub creates an event hub.
func NewEventHub(logger *slog.Logger) *EventHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
		logger: logger.With("component", "events"),
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the
// client disconnects.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.drop(conn)
}

// Publish sends ev to all clients. It has the signature expected by
// Watcher.OnEvent.
func (h *EventHub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, client := range clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(client)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

func (h *EventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

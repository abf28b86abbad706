// Package viewer is the live endpoint the relay posts frames to. It keeps
// the latest frame per camera and fans frames out to browser viewers over
// WebSocket and MJPEG.
package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"eventcam/internal/logger"
)

const (
	broadcastBuffer = 16
	writeWait       = 2 * time.Second
)

// Hub broadcasts messages to every connected viewer.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
	logger     *logger.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Warning("Error sending to viewer: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()

		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return
		}
	}
}

// Register adds a viewer connection.
func (h *Hub) Register(client *websocket.Conn) {
	h.register <- client
}

// Unregister removes and closes a viewer connection.
func (h *Hub) Unregister(client *websocket.Conn) {
	h.unregister <- client
}

// Broadcast queues message for all viewers. When viewers are too slow the
// message is dropped and false is returned.
func (h *Hub) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

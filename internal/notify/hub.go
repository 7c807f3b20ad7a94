// Package notify pushes sweep alerts (low stock, approaching expiry) to
// connected dashboard clients over websockets.
package notify

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains the set of active clients and broadcasts alerts
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// If the same subscriber reconnects, close the old connection
			if old, ok := h.clients[client.ID]; ok {
				close(old.send)
				delete(h.clients, client.ID)
			}
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("📱 Dashboard connected: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				log.Printf("📴 Dashboard disconnected: %s", client.ID)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer, drop the message for this client
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to every connected client
func (h *Hub) Broadcast(message interface{}) {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling broadcast: %v", err)
		return
	}

	select {
	case h.broadcast <- jsonMsg:
	default:
		log.Printf("⚠️  Broadcast queue full, dropping message")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

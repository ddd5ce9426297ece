package websocket

import (
	"log"
	"sync"
	"time"
)

// Hub fans catalog events out to every connected feed client
type Hub struct {
	clients map[*Client]bool

	// Outbound events
	broadcast chan *Message

	register   chan *Client
	unregister chan *Client
	quit       chan struct{}

	mu sync.RWMutex
}

// Message is one catalog event as written to the wire
type Message struct {
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub loop; it returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("Feed client registered: UserID=%d, total clients: %d", client.UserID, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("Feed client unregistered: UserID=%d", client.UserID)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	close(h.quit)
}

// BroadcastCatalogEvent queues an event for all clients without blocking the caller.
func (h *Hub) BroadcastCatalogEvent(eventType string, payload map[string]interface{}) {
	message := &Message{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("Broadcast channel full, dropping %s event", eventType)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

package main

import (
	"sync"
)

// Room is the live broadcast group for one room id: the set of currently
// connected clients. Persisted metadata lives in the Registry; this type only
// tracks connections.
type Room struct {
	id      string
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRoom(id string) *Room {
	return &Room{
		id:      id,
		clients: make(map[string]*Client),
	}
}

func (r *Room) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.connID] = c
}

func (r *Room) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c.connID)
}

func (r *Room) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast delivers data to every client except the sender. Delivery is
// best effort: a client whose send buffer is full drops the message.
func (r *Room) Broadcast(senderConnID string, data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.clients {
		if c.connID == senderConnID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client's send buffer full — drop message
		}
	}
}

func (r *Room) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		c.Close()
	}
}

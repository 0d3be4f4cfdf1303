package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Hub owns all live broadcast groups. Registration, removal, and relay all
// funnel through one goroutine, so membership bookkeeping and presence
// broadcasts never race; per-room locks keep broadcasts from blocking other
// rooms.
type Hub struct {
	cfg      *Config
	registry *Registry
	log      zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]*Room

	registerCh   chan *Client
	unregisterCh chan *Client
	relayCh      chan *relayedEvent
}

type relayedEvent struct {
	roomID       string
	senderConnID string
	data         []byte
}

func NewHub(cfg *Config, registry *Registry, log zerolog.Logger) *Hub {
	return &Hub{
		cfg:          cfg,
		registry:     registry,
		log:          log.With().Str("component", "hub").Logger(),
		rooms:        make(map[string]*Room),
		registerCh:   make(chan *Client, 64),
		unregisterCh: make(chan *Client, 64),
		relayCh:      make(chan *relayedEvent, 2048),
	}
}

func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.registerCh:
			h.addClient(client)

		case client := <-h.unregisterCh:
			h.removeClient(client)

		case msg := <-h.relayCh:
			h.broadcast(msg)

		case <-ticker.C:
			h.sweepExpired(ctx)
		}
	}
}

func (h *Hub) Register(c *Client) {
	h.registerCh <- c
}

func (h *Hub) Unregister(c *Client) {
	h.unregisterCh <- c
}

// Relay queues an already-built envelope for broadcast to every other member
// of the room. Fire and forget: once issued there is no delivery guarantee.
func (h *Hub) Relay(roomID, senderConnID string, data []byte) {
	h.relayCh <- &relayedEvent{roomID: roomID, senderConnID: senderConnID, data: data}
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) ClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[roomID]; ok {
		return room.ClientCount()
	}
	return 0
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.roomID]
	if !ok {
		room = NewRoom(c.roomID)
		h.rooms[c.roomID] = room
	}
	h.mu.Unlock()

	// Joiner is added first, then announced to the others only.
	room.Add(c)
	room.Broadcast(c.connID, presenceEvent(eventUserJoined, c.username))
	h.log.Info().Str("room", c.roomID).Str("username", c.username).Msg("client joined")

	go c.ReadPump()
	go c.WritePump()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.roomID]
	if ok {
		room.Remove(c)
		if room.ClientCount() == 0 {
			delete(h.rooms, c.roomID)
		} else {
			room.Broadcast(c.connID, presenceEvent(eventUserLeft, c.username))
		}
	}
	h.mu.Unlock()

	h.log.Info().Str("room", c.roomID).Str("username", c.username).Msg("client left")
}

func (h *Hub) broadcast(msg *relayedEvent) {
	h.mu.RLock()
	room, ok := h.rooms[msg.roomID]
	h.mu.RUnlock()

	if !ok {
		return
	}
	room.Broadcast(msg.senderConnID, msg.data)
}

// sweepExpired tears down live groups whose registry record is gone, so
// connections to destroyed or expired rooms do not linger. A store outage
// leaves existing connections alone; only new joins are refused then.
func (h *Hub) sweepExpired(ctx context.Context) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := h.registry.Get(lookupCtx, id)
		cancel()

		if err == nil || !errors.Is(err, ErrRoomNotFound) {
			continue
		}

		h.mu.Lock()
		if room, ok := h.rooms[id]; ok {
			room.CloseAll()
			delete(h.rooms, id)
			h.log.Info().Str("room", id).Msg("room torn down (record gone)")
		}
		h.mu.Unlock()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range h.rooms {
		room.CloseAll()
	}
	h.rooms = make(map[string]*Room)
}

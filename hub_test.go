package main

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testConfig() *Config {
	return &Config{
		Addr:               ":0",
		Environment:        "test",
		LogLevel:           "disabled",
		RoomTTL:            10 * time.Minute,
		RoomCapacity:       2,
		CreateLimit:        100,
		CreateWindow:       time.Minute,
		HandshakeRatePerIP: 100,
		MaxMessageSize:     65536,
		SweepInterval:      time.Hour,
		ShutdownTimeout:    time.Second,
	}
}

func newTestHub() (*Hub, *Registry) {
	reg := NewRegistry(NewMemStore(), 10*time.Minute, 2)
	return NewHub(testConfig(), reg, zerolog.Nop()), reg
}

func TestHub_RunAndShutdown(t *testing.T) {
	hub, _ := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	// Give it a moment to start
	time.Sleep(10 * time.Millisecond)

	cancel()

	select {
	case <-done:
		// OK
	case <-time.After(2 * time.Second):
		t.Fatal("hub.Run did not return after cancel")
	}
}

func TestHub_Counts(t *testing.T) {
	hub, _ := newTestHub()

	if hub.RoomCount() != 0 {
		t.Errorf("expected 0 rooms, got %d", hub.RoomCount())
	}
	if hub.ClientCount("nonexistent-p") != 0 {
		t.Errorf("expected 0 clients for unknown room, got %d", hub.ClientCount("nonexistent-p"))
	}
}

func TestHub_SweepTearsDownRoomsWithoutRecords(t *testing.T) {
	hub, reg := newTestHub()
	ctx := context.Background()

	doomed, err := reg.Create(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	alive, err := reg.Create(ctx, "")
	if err != nil {
		t.Fatal(err)
	}

	gone := &Client{roomID: doomed.ID, username: "alice", connID: "conn-1", send: make(chan []byte, 1)}
	kept := &Client{roomID: alive.ID, username: "bob", connID: "conn-2", send: make(chan []byte, 1)}
	for _, c := range []*Client{gone, kept} {
		room := NewRoom(c.roomID)
		room.Add(c)
		hub.rooms[c.roomID] = room
	}

	if err := reg.Destroy(ctx, doomed.ID); err != nil {
		t.Fatal(err)
	}

	hub.sweepExpired(ctx)

	if hub.ClientCount(doomed.ID) != 0 {
		t.Errorf("destroyed room still has %d clients", hub.ClientCount(doomed.ID))
	}
	if hub.RoomCount() != 1 {
		t.Errorf("room count = %d, want 1 (only the live room)", hub.RoomCount())
	}

	// The swept client's send channel is closed, which makes its write pump
	// emit the close frame and exit.
	select {
	case _, ok := <-gone.send:
		if ok {
			t.Error("swept client got a message instead of a closed channel")
		}
	default:
		t.Error("swept client's send channel should be closed")
	}

	// The room whose record is intact keeps its connection untouched.
	if hub.ClientCount(alive.ID) != 1 {
		t.Errorf("live room has %d clients, want 1", hub.ClientCount(alive.ID))
	}
	select {
	case <-kept.send:
		t.Error("live room's client should not be closed by the sweep")
	default:
	}
}

func TestHub_RunSweepsOnConfiguredInterval(t *testing.T) {
	reg := NewRegistry(NewMemStore(), 10*time.Minute, 2)
	cfg := testConfig()
	cfg.SweepInterval = 20 * time.Millisecond
	hub := NewHub(cfg, reg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec, err := reg.Create(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	room := NewRoom(rec.ID)
	room.Add(&Client{roomID: rec.ID, username: "alice", connID: "conn-1", send: make(chan []byte, 1)})
	hub.rooms[rec.ID] = room

	if err := reg.Destroy(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}

	go hub.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.RoomCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("ticker sweep never tore down the recordless room")
}

func TestHub_BroadcastToUnknownRoomIsNoop(t *testing.T) {
	hub, _ := newTestHub()

	// Must not panic or create a group.
	hub.broadcast(&relayedEvent{roomID: "gone-p", senderConnID: "c1", data: []byte("x")})
	if hub.RoomCount() != 0 {
		t.Errorf("broadcast to unknown room created a group")
	}
}

package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Client is one live connection bound to a room at handshake time. It exists
// only for the life of the transport; the broker owns it exclusively.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	roomID   string
	username string
	connID   string
	ip       string
	send     chan []byte
	log      zerolog.Logger

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, roomID, username, ip string) *Client {
	connID := uuid.NewString()
	return &Client{
		hub:      hub,
		conn:     conn,
		roomID:   roomID,
		username: username,
		connID:   connID,
		ip:       ip,
		send:     make(chan []byte, sendBufferSize),
		log: hub.log.With().
			Str("room", roomID).
			Str("username", username).
			Str("conn", connID[:8]).
			Logger(),
	}
}

// ReadPump reads client events and hands message payloads to the hub. Its
// deferred unregister is the single exit path for any disconnect cause, which
// is what makes the leave broadcast fire exactly once.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("read error")
			}
			return
		}

		var in event
		if err := json.Unmarshal(raw, &in); err != nil {
			c.log.Debug().Err(err).Msg("malformed event dropped")
			continue
		}
		if in.Type != eventSendMessage || len(in.Content) == 0 {
			continue
		}

		// The content payload is relayed untouched; only the envelope is
		// rebuilt with the sender identity and a server timestamp.
		c.hub.Relay(c.roomID, c.connID, messageEvent(c.username, in.Content))
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// E2E test: exercises a live cinder server end to end — creates a room,
// admits two members through the gate, relays a message both ways, bounces a
// third visitor, then destroys the room.
// Usage: go run ./cmd/e2etest -base http://localhost:8080
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var baseURL = flag.String("base", "http://localhost:8080", "cinder server base URL")

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	// --- Create a room ---
	log.Println(">> Creating room...")
	resp, err := http.Post(*baseURL+"/api/room", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		log.Fatal("create:", err)
	}
	var created struct {
		RoomID string `json:"roomId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		log.Fatal("decode create response:", err)
	}
	resp.Body.Close()
	log.Printf("   Room %s created ✓", created.RoomID)

	// --- Two members pass the gate, third bounces ---
	noRedirect := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	for i := 1; i <= 2; i++ {
		r, err := noRedirect.Get(*baseURL + "/room/" + created.RoomID)
		if err != nil {
			log.Fatalf("gate admit %d: %v", i, err)
		}
		if r.StatusCode != http.StatusOK {
			log.Fatalf("gate admit %d: status=%d", i, r.StatusCode)
		}
		r.Body.Close()
	}
	log.Println("   Two members admitted ✓")

	r3, err := noRedirect.Get(*baseURL + "/room/" + created.RoomID)
	if err != nil {
		log.Fatal("gate third:", err)
	}
	r3.Body.Close()
	if loc := r3.Header.Get("Location"); !strings.Contains(loc, "room-full") {
		log.Fatalf("third visitor should bounce with room-full, got status=%d location=%q", r3.StatusCode, loc)
	}
	log.Println("   Third visitor bounced (room-full) ✓")

	// --- Connect both members ---
	aliceConn := dial(created.RoomID, "alice", "")
	defer aliceConn.Close()
	log.Println("   alice connected ✓")

	bobConn := dial(created.RoomID, "bob", "")
	defer bobConn.Close()
	log.Println("   bob connected ✓")

	// alice should see bob join
	ev := readEvent(aliceConn, "user-joined")
	log.Printf("   alice saw %s join ✓", ev.Username)

	// --- Relay both ways ---
	send(aliceConn, `"opaque-ciphertext-from-alice"`)
	ev = readEvent(bobConn, "receive-message")
	log.Printf("   bob received %s from %s ✓", ev.Content, ev.Username)

	send(bobConn, `"opaque-ciphertext-from-bob"`)
	ev = readEvent(aliceConn, "receive-message")
	log.Printf("   alice received %s from %s ✓", ev.Content, ev.Username)

	// --- Destroy ---
	log.Println(">> Destroying room...")
	resp, err = http.Post(*baseURL+"/api/room/"+created.RoomID+"/destroy", "application/json", nil)
	if err != nil {
		log.Fatal("destroy:", err)
	}
	resp.Body.Close()

	metaResp, err := http.Get(*baseURL + "/api/room/" + created.RoomID + "/meta")
	if err != nil {
		log.Fatal("meta after destroy:", err)
	}
	metaResp.Body.Close()
	if metaResp.StatusCode != http.StatusNotFound {
		log.Fatalf("meta after destroy: want 404, got %d", metaResp.StatusCode)
	}
	log.Println("   Room gone ✓")

	fmt.Println()
	log.Println("E2E TEST PASSED")
	os.Exit(0)
}

type wsEvent struct {
	Type      string          `json:"type"`
	Username  string          `json:"username"`
	Content   json.RawMessage `json:"content"`
	Timestamp int64           `json:"timestamp"`
	Message   string          `json:"message"`
}

func dial(roomID, username, password string) *websocket.Conn {
	wsBase := strings.Replace(*baseURL, "http", "ws", 1)
	params := url.Values{
		"room":     {roomID},
		"username": {username},
	}
	if password != "" {
		params.Set("password", password)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws?"+params.Encode(), nil)
	if err != nil {
		log.Fatalf("%s connect: %v", username, err)
	}
	return conn
}

func send(conn *websocket.Conn, content string) {
	msg := fmt.Sprintf(`{"type":"send-message","content":%s}`, content)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		log.Fatal("send:", err)
	}
}

func readEvent(conn *websocket.Conn, wantType string) wsEvent {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("read (waiting for %s): %v", wantType, err)
		}
		var ev wsEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Fatal("decode event:", err)
		}
		if ev.Type == wantType {
			return ev
		}
	}
}

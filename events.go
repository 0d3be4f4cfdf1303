package main

import (
	"encoding/json"
	"time"
)

const (
	eventUserJoined     = "user-joined"
	eventUserLeft       = "user-left"
	eventReceiveMessage = "receive-message"
	eventSendMessage    = "send-message"
	eventError          = "error"
)

// Error messages recognized by clients.
const (
	errMsgRoomNotFound = "Room not found or expired"
	errMsgPassword     = "Password required"
	errMsgUnavailable  = "Service unavailable"
)

// event is the wire envelope for both directions. Content is relayed as an
// opaque byte string; the server never inspects or transforms it.
type event struct {
	Type      string          `json:"type"`
	Username  string          `json:"username,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Message   string          `json:"message,omitempty"`
}

func presenceEvent(kind, username string) []byte {
	data, _ := json.Marshal(event{
		Type:      kind,
		Username:  username,
		Timestamp: time.Now().UnixMilli(),
	})
	return data
}

func messageEvent(username string, content json.RawMessage) []byte {
	data, _ := json.Marshal(event{
		Type:      eventReceiveMessage,
		Username:  username,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	})
	return data
}

func errorEvent(message string) []byte {
	data, _ := json.Marshal(event{
		Type:    eventError,
		Message: message,
	})
	return data
}

// Package server defines the closed event vocabulary exchanged with clients
// and shared utility helpers reused across client and hub logic.
package server

import (
	"encoding/json"
	"strings"
)

// Inbound event names accepted from clients.
const (
	EventSetUsername = "set_username"
	EventMessage     = "message"
	EventPing        = "ping"
)

// Outbound event names emitted to clients.
const (
	EventUserList       = "user_list"
	EventPrivateMessage = "private_message"
	EventError          = "error"
	EventPong           = "pong"
)

// Envelope is the wire frame for every event in either direction. Data holds
// the event-specific payload and is decoded only after the event name is
// dispatched.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SetUsernamePayload is the inbound set_username payload.
type SetUsernamePayload struct {
	Username string `json:"username" validate:"required"`
}

// MessagePayload is the inbound message payload.
type MessagePayload struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text" validate:"required,max=500"`
}

// UserListEvent carries the full presence list. Clients must treat every
// user_list as authoritative, not incremental.
type UserListEvent struct {
	Users []string `json:"users"`
}

// PrivateMessageEvent is the delivered message record. The identical record
// is sent to both recipient and sender.
type PrivateMessageEvent struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// ErrorEvent is the single outward error shape.
type ErrorEvent struct {
	Message string `json:"message"`
}

// PongEvent answers an application-level ping.
type PongEvent struct {
	Timestamp string `json:"timestamp"`
}

// encodeEvent marshals a payload into a wire-ready envelope frame.
func encodeEvent(name string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: name, Data: data})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

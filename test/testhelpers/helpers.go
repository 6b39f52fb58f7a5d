// Package testhelpers provides common utilities for testing the DriftChat
// relay end to end: starting a relay instance, dialing websocket clients, and
// exchanging event envelopes.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/driftchat/driftchat/internal/server"
)

// Relay bundles a running relay instance for a test.
type Relay struct {
	Server *httptest.Server
	Hub    *server.Hub
}

// StartRelay boots a full relay (hub + routes) on an ephemeral port and
// registers cleanup with the test.
func StartRelay(t *testing.T) *Relay {
	t.Helper()

	cfg := server.NewConfig()
	log := zap.NewNop()

	hub := server.NewHub(log)
	go hub.Run()

	mux := server.SetupRoutes(hub, cfg, log)
	ts := httptest.NewServer(mux)

	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
	})

	return &Relay{Server: ts, Hub: hub}
}

// WebSocketURL converts the test server's base URL into the ws:// endpoint.
func (r *Relay) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(r.Server.URL, "http") + "/ws"
}

// ConnectWebSocket dials the relay's websocket endpoint with an allowed
// origin header and registers connection cleanup with the test.
func ConnectWebSocket(t *testing.T, relay *Relay) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", "http://localhost:8080")

	conn, resp, err := dialer.Dial(relay.WebSocketURL(), headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect websocket: %v", err)
	}

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Envelope mirrors the wire frame used by the relay.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// SendEvent writes one event envelope to the connection.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload for %q: %v", event, err)
	}
	if err := conn.WriteJSON(Envelope{Event: event, Data: data}); err != nil {
		t.Fatalf("Failed to send %q event: %v", event, err)
	}
}

// ReceiveEvent reads the next event envelope, failing the test on timeout.
func ReceiveEvent(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(3 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	return env
}

// WaitForEvent reads envelopes until one with the given name arrives,
// skipping unrelated events.
func WaitForEvent(t *testing.T, conn *websocket.Conn, event string) Envelope {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		env := ReceiveEvent(t, conn)
		if env.Event == event {
			return env
		}
	}

	t.Fatalf("Timed out waiting for %q event", event)
	return Envelope{}
}

// DecodeData unmarshals an envelope's payload into out.
func DecodeData(t *testing.T, env Envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("Failed to decode %q payload: %v", env.Event, err)
	}
}

// SetUsername claims a username and waits for the confirming user_list.
func SetUsername(t *testing.T, conn *websocket.Conn, username string) {
	t.Helper()
	SendEvent(t, conn, "set_username", map[string]string{"username": username})
	WaitForEvent(t, conn, "user_list")
}

// ExpectUserList waits for a user_list event and asserts its contents.
func ExpectUserList(t *testing.T, conn *websocket.Conn, want []string) {
	t.Helper()

	env := WaitForEvent(t, conn, "user_list")
	var list struct {
		Users []string `json:"users"`
	}
	DecodeData(t, env, &list)

	if len(list.Users) != len(want) {
		t.Fatalf("Expected user list %v, got %v", want, list.Users)
	}
	for i := range want {
		if list.Users[i] != want[i] {
			t.Fatalf("Expected user list %v, got %v", want, list.Users)
		}
	}
}

// ExpectError waits for an error event and asserts its message.
func ExpectError(t *testing.T, conn *websocket.Conn, wantMessage string) {
	t.Helper()

	env := WaitForEvent(t, conn, "error")
	var errEvent struct {
		Message string `json:"message"`
	}
	DecodeData(t, env, &errEvent)

	if errEvent.Message != wantMessage {
		t.Errorf("Expected error message %q, got %q", wantMessage, errEvent.Message)
	}
}

// ExpectClosed asserts that the connection is closed by the server.
func ExpectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(3 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// MakeRequest creates and executes an HTTP request with a short timeout.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

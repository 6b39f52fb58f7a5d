package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub() *Hub {
	return NewHub(zap.NewNop())
}

// newTestClient creates a connection-less client and registers it with the
// hub directly; without a websocket connection no pumps are started, so every
// queued frame stays readable from the send channel.
func newTestClient(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := NewClient(nil, h, "127.0.0.1:9999", NewConfig(), zap.NewNop())
	h.addClient(c)
	return c
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// bindClient claims a username for the client and drains the resulting
// presence broadcast from every connected client.
func bindClient(t *testing.T, h *Hub, c *Client, username string) {
	t.Helper()
	h.handleSetUsername(c, rawJSON(t, map[string]string{"username": username}))
	_, bound := h.registry.Identity(c.id)
	require.True(t, bound, "bind for %q did not succeed", username)
	for _, client := range h.clientSnapshot() {
		drainEvents(client)
	}
}

// nextEvent reads one queued outbound envelope from the client.
func nextEvent(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		require.True(t, ok, "send channel closed while waiting for event")
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Envelope{}
	}
}

func decodeData(t *testing.T, env Envelope, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

// requireNoEvent asserts the client has nothing queued.
func requireNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.send:
		t.Fatalf("unexpected event queued: %s", frame)
	default:
	}
}

// requireClosed drains the client's send channel and asserts it was closed.
func requireClosed(t *testing.T, c *Client) {
	t.Helper()
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("send channel was not closed")
			return
		}
	}
}

func drainEvents(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

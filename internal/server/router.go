// Package server dispatches inbound events and routes directed messages by
// identity rather than by connection handle.
package server

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// dispatch routes one decoded inbound frame to its handler. Unknown event
// names are reported to the sender as a generic soft error.
func (h *Hub) dispatch(client *Client, env Envelope) {
	switch env.Event {
	case EventSetUsername:
		h.handleSetUsername(client, env.Data)
	case EventMessage:
		h.routeMessage(client, env.Data)
	case EventPing:
		h.handlePing(client)
	default:
		h.log.Warn("unknown inbound event",
			zap.String("event", env.Event), zap.String("conn_id", client.id))
		h.reportError(client, errInternal)
	}
}

// handleSetUsername binds the claimed identity to the connection. The
// uniqueness check and the bind are one atomic registry operation; a hard
// failure terminates the connection after the error is delivered.
func (h *Hub) handleSetUsername(client *Client, data json.RawMessage) {
	payload, err := validateUsername(data)
	if err != nil {
		h.reportError(client, err)
		return
	}

	if err := h.registry.Bind(client.id, payload.Username); err != nil {
		h.reportError(client, err)
		return
	}

	h.log.Info("username set",
		zap.String("username", payload.Username), zap.String("conn_id", client.id))
	h.broadcastPresence()
}

// routeMessage resolves the recipient through the registry and delivers the
// identical message record to both recipient and sender. Every failure is
// reported to the sender only; no partial message ever reaches a third party.
func (h *Hub) routeMessage(client *Client, data json.RawMessage) {
	from, identified := h.registry.Identity(client.id)
	if !identified {
		h.reportError(client, errUsernameNotSet)
		return
	}

	payload, err := validateMessage(data)
	if err != nil {
		h.reportError(client, err)
		return
	}

	recipientID, found := h.registry.Resolve(payload.To)
	if !found {
		h.reportError(client, errRecipientNotFound)
		return
	}

	msg := PrivateMessageEvent{
		Text:      Sanitize(payload.Text),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		From:      from,
		To:        payload.To,
	}

	// The recipient may disconnect between resolution and delivery; that
	// delivery is dropped and the sender still receives the echo.
	h.sendEventTo(recipientID, EventPrivateMessage, msg)
	h.sendEvent(client, EventPrivateMessage, msg)

	h.log.Debug("routed message",
		zap.String("from", msg.From), zap.String("to", msg.To))
}

// handlePing answers the liveness probe. No registry state is touched.
func (h *Hub) handlePing(client *Client) {
	h.sendEvent(client, EventPong, PongEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// reportError emits the outward error event for a failure condition. Hard
// errors additionally release the connection's session state and close it; a
// connection that cannot identify itself safely cannot continue.
func (h *Hub) reportError(client *Client, err error) {
	re := asRelayError(err)
	if re == errInternal && err != errInternal {
		h.log.Error("unexpected handler failure",
			zap.String("conn_id", client.id), zap.Error(err))
	}

	h.sendEvent(client, EventError, ErrorEvent{Message: re.message})

	if re.hard {
		h.log.Info("closing connection after hard error",
			zap.String("conn_id", client.id), zap.String("reason", re.message))
		h.disconnectClient(client)
	}
}

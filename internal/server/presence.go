package server

import "go.uber.org/zap"

// broadcastPresence fans the full current identity list out to every
// connection, identified or not. The snapshot is taken under the registry's
// lock; delivery happens afterwards so no network-facing work holds it.
func (h *Hub) broadcastPresence() {
	users := h.registry.Snapshot()

	frame, err := encodeEvent(EventUserList, UserListEvent{Users: users})
	if err != nil {
		h.log.Error("failed to encode user list", zap.Error(err))
		return
	}

	clients := h.clientSnapshot()
	for _, client := range clients {
		if !h.safeSend(client, frame) {
			h.log.Debug("dropped presence update for unavailable client",
				zap.String("conn_id", client.id))
		}
	}

	h.log.Info("broadcast presence",
		zap.Strings("users", users), zap.Int("recipients", len(clients)))
}

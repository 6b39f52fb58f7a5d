// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the status page.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler returns the handler for WebSocket upgrade requests. It
// validates that the request uses the GET method, upgrades the connection,
// and registers the new client with the hub, which launches its pumps.
func WebSocketHandler(hub *Hub, cfg Config, log *zap.Logger) http.HandlerFunc {
	policy := newOriginPolicy(cfg.Origins(), log)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     policy.checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr, cfg, log)
		select {
		case hub.register <- client:
		case <-hub.ctx.Done():
			_ = conn.Close()
		}
	}
}

// HealthHandler provides a simple health check endpoint that returns server
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "DriftChat server is running!")
}

// StatusHandler serves an HTML status page with the live connected-client
// count.
func StatusHandler(hub *Hub) http.HandlerFunc {
	const statusTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Chat Server Status</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .status { color: green; font-weight: bold; }
        .info { background: #f0f0f0; padding: 20px; border-radius: 5px; }
    </style>
</head>
<body>
    <h1>Chat Server Status</h1>
    <p class="status">Server is running!</p>
    <div class="info">
        <h3>Connection Information:</h3>
        <p><strong>WebSocket endpoint:</strong> /ws</p>
        <p><strong>Connected Clients:</strong> %d</p>
    </div>
    <p>Open your chat client to connect to this server.</p>
</body>
</html>`

	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprintf(w, statusTemplate, hub.ClientCount())
	}
}

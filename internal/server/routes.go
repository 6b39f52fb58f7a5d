// Package server wires HTTP handlers into a ServeMux for the DriftChat
// application via routing helpers.
package server

import (
	"net/http"

	"go.uber.org/zap"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, WebSocket endpoint, and the status page.
func SetupRoutes(hub *Hub, cfg Config, log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", WebSocketHandler(hub, cfg, log))
	mux.HandleFunc("/status", StatusHandler(hub))
	return mux
}

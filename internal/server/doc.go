// Package server implements the core WebSocket relay for DriftChat.
//
// The implementation is organized into specialized files: the session
// registry that owns the connection/identity bijection, the message router,
// payload validation and sanitization, presence broadcasting, the hub that
// manages client connections, and the HTTP plumbing around them.
package server

// Package server coordinates client registration, event delivery, and
// connection cleanup for the DriftChat relay via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Hub manages all WebSocket client connections. It owns the session registry,
// consumes the register/unregister channels, and ensures thread-safe delivery
// through mutex protection. Event handlers run on the clients' read
// goroutines; the registry serializes everything they share.
type Hub struct {
	clients    map[string]*Client
	registry   *SessionRegistry
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	log        *zap.Logger
}

// NewHub creates a Hub with an empty registry, ready to manage connections
// once Run is started.
func NewHub(log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		registry:   NewSessionRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        log,
	}
}

// Registry exposes the hub's session registry.
func (h *Hub) Registry() *SessionRegistry {
	return h.registry
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. This method should be called in a separate goroutine as it
// runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// addClient records the connection with the registry, adds it to the client
// set, and launches its pumps. Presence is not broadcast here; the list only
// changes when an identity is bound.
func (h *Hub) addClient(client *Client) {
	h.registry.Register(client.id, client.addr)

	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.log.Info("client connected",
		zap.String("conn_id", client.id),
		zap.String("remote_addr", client.addr),
		zap.Int("total_clients", clientCount))

	if client.conn == nil {
		return
	}
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// removeClient tears down the connection and releases its identity. Invoking
// it twice for the same client is a no-op on the second call. A released
// identity triggers a presence rebroadcast.
func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)

	username, released := h.registry.Unregister(client.id)

	h.log.Info("client disconnected",
		zap.String("conn_id", client.id),
		zap.String("remote_addr", client.addr),
		zap.String("username", username),
		zap.Int("total_clients", clientCount))

	if released {
		h.broadcastPresence()
	}
}

// safeSend queues a frame for a client without blocking and without touching
// the network. Delivery to a closed or saturated client is dropped.
func (h *Hub) safeSend(client *Client, frame []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn("recovered from panic in safeSend", zap.Any("panic", r))
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client.id]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- frame:
		return true
	default:
		return false
	}
}

// sendEvent delivers a single event to one client. A failed delivery is a
// documented drop, not an error.
func (h *Hub) sendEvent(client *Client, name string, payload any) {
	frame, err := encodeEvent(name, payload)
	if err != nil {
		h.log.Error("failed to encode event",
			zap.String("event", name), zap.Error(err))
		return
	}
	if !h.safeSend(client, frame) {
		h.log.Debug("dropped event for unavailable client",
			zap.String("event", name), zap.String("conn_id", client.id))
	}
}

// sendEventTo delivers an event by connection id. The client may have
// disconnected since it was resolved; the delivery is then dropped.
func (h *Hub) sendEventTo(connID, name string, payload any) {
	h.mutex.RLock()
	client, ok := h.clients[connID]
	h.mutex.RUnlock()
	if !ok {
		h.log.Debug("recipient connection gone before delivery",
			zap.String("event", name), zap.String("conn_id", connID))
		return
	}
	h.sendEvent(client, name, payload)
}

// clientSnapshot returns a thread-safe snapshot of all current clients.
func (h *Hub) clientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return lo.Values(h.clients)
}

// disconnectClient removes the client's session state and initiates
// connection close. Used for hard errors after the error event has been
// queued: closing the send channel lets the write pump drain the queue, emit
// the close frame, and close the underlying connection.
func (h *Hub) disconnectClient(client *Client) {
	h.removeClient(client)
}

// shutdownClients gracefully closes all active client connections.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	clients := h.clientSnapshot()
	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("error closing client connection",
					zap.String("remote_addr", client.addr), zap.Error(err))
			}
		}
	}

	h.log.Info("closed client connections", zap.Int("count", len(clients)))
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

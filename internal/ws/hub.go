package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub is the process-wide registry of active WebSocket connections keyed by
// principal id. It is a cache of who is reachable right now, populated on
// connect, purged on disconnect and rebuildable from zero; it is never the
// source of truth for anything.
type Hub struct {
	mu           sync.RWMutex
	conns        map[string]map[string]*connection
	writeTimeout time.Duration
	log          *zap.Logger
}

// connection wraps a socket with a write lock; gorilla allows only one
// concurrent writer per conn.
type connection struct {
	mu   sync.Mutex
	sock *websocket.Conn
}

func NewHub(writeTimeout time.Duration, log *zap.Logger) *Hub {
	return &Hub{
		conns:        make(map[string]map[string]*connection),
		writeTimeout: writeTimeout,
		log:          log,
	}
}

// Register adds a connection for the principal and returns its handle for
// Unregister. A principal may hold several connections (multi-device).
func (h *Hub) Register(principalID string, sock *websocket.Conn) string {
	connID := uuid.NewString()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[principalID] == nil {
		h.conns[principalID] = make(map[string]*connection)
	}
	h.conns[principalID][connID] = &connection{sock: sock}
	return connID
}

// Unregister removes a connection for the principal.
func (h *Hub) Unregister(principalID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.conns[principalID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.conns, principalID)
		}
	}
}

// Online reports whether the principal has at least one active connection.
func (h *Hub) Online(principalID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[principalID]) > 0
}

// SendToPrincipal writes the event envelope to every active connection of
// the principal. An offline principal is not an error; the event is simply
// dropped. Each write carries a bounded deadline so a dead peer cannot stall
// the caller, and failed connections are closed and evicted.
func (h *Hub) SendToPrincipal(principalID, event string, payload any) error {
	envelope := map[string]any{
		"type": event,
		"data": payload,
	}

	h.mu.RLock()
	targets := make(map[string]*connection, len(h.conns[principalID]))
	for id, c := range h.conns[principalID] {
		targets[id] = c
	}
	h.mu.RUnlock()

	var failed []string
	for id, c := range targets {
		c.mu.Lock()
		c.sock.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		err := c.sock.WriteJSON(envelope)
		c.mu.Unlock()
		if err != nil {
			c.sock.Close()
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		h.Unregister(principalID, id)
	}
	if len(failed) > 0 && len(failed) == len(targets) {
		return fmt.Errorf("all %d connections of principal failed", len(failed))
	}
	return nil
}

// BroadcastToAll sends the event to every connected principal. Used for
// presence announcements only.
func (h *Hub) BroadcastToAll(event string, payload any) {
	h.mu.RLock()
	principals := make([]string, 0, len(h.conns))
	for id := range h.conns {
		principals = append(principals, id)
	}
	h.mu.RUnlock()

	for _, id := range principals {
		if err := h.SendToPrincipal(id, event, payload); err != nil {
			h.log.Debug("presence broadcast failed", zap.String("principal", id), zap.Error(err))
		}
	}
}

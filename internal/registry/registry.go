package registry

import (
	"sync"

	"github.com/google/uuid"
)

// StatusHandler is invoked when a user's presence flips. It runs outside the
// registry lock.
type StatusHandler func(userID uuid.UUID, online bool)

// Registry is the in-process online set. Presence is a reference count over
// live connections, not a boolean: a user stays online until the last
// connection unregisters. The registry holds no durable state; a restart
// empties it.
type Registry struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]map[string]struct{}
	onChange    StatusHandler
}

func New() *Registry {
	return &Registry{
		connections: make(map[uuid.UUID]map[string]struct{}),
	}
}

// SetStatusHandler installs the presence-change callback. Call before any
// connection registers; the hub wires its global broadcast here.
func (r *Registry) SetStatusHandler(h StatusHandler) {
	r.mu.Lock()
	r.onChange = h
	r.mu.Unlock()
}

// Register records a connection. Idempotent per (user, connection) pair.
// Returns true when the user transitioned offline -> online.
func (r *Registry) Register(userID uuid.UUID, connectionID string) bool {
	r.mu.Lock()
	conns, known := r.connections[userID]
	if !known {
		conns = make(map[string]struct{})
		r.connections[userID] = conns
	}
	conns[connectionID] = struct{}{}
	handler := r.onChange
	r.mu.Unlock()

	cameOnline := !known
	if cameOnline && handler != nil {
		handler(userID, true)
	}
	return cameOnline
}

// Unregister drops a connection. Returns true when the user transitioned
// online -> offline (last connection closed).
func (r *Registry) Unregister(userID uuid.UUID, connectionID string) bool {
	r.mu.Lock()
	conns, known := r.connections[userID]
	if !known {
		r.mu.Unlock()
		return false
	}
	delete(conns, connectionID)
	wentOffline := len(conns) == 0
	if wentOffline {
		delete(r.connections, userID)
	}
	handler := r.onChange
	r.mu.Unlock()

	if wentOffline && handler != nil {
		handler(userID, false)
	}
	return wentOffline
}

// ListOnline returns a snapshot of currently online user ids.
func (r *Registry) ListOnline() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(r.connections))
	for userID := range r.connections {
		users = append(users, userID)
	}
	return users
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.connections[userID]
	return ok
}

// ConnectionCount reports how many live connections a user has.
func (r *Registry) ConnectionCount(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections[userID])
}

// Package presence tracks which users are reachable over a live connection
// and turns connection edges into persisted state changes and broadcasts.
package presence

import (
	"sync"

	"baatcheet/pkg/metrics"
)

// Registry maps a user to the set of connection IDs currently bound to that
// identity. It is the hot, authoritative presence view: a user is online
// iff their set is non-empty. Entries live and die with connect/disconnect
// only; nothing expires by timeout. In-memory, single-process.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]struct{}
}

// NewRegistry returns an empty registry. Construct one per process and pass
// it to the gateway and tracker; it holds no persistent state.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[string]struct{})}
}

// AddConnection inserts connID into the user's set and reports whether the
// set transitioned from empty to non-empty. Idempotent per distinct connID.
func (r *Registry) AddConnection(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
		metrics.OnlineUsers.Inc()
	}
	if _, dup := set[connID]; !dup {
		set[connID] = struct{}{}
		metrics.ActiveConnections.Inc()
	}
	return !ok
}

// RemoveConnection deletes connID from the user's set. When the set becomes
// empty the user entry is removed entirely and true is returned (the user
// is now fully offline).
func (r *Registry) RemoveConnection(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, exists := set[connID]; exists {
		delete(set, connID)
		metrics.ActiveConnections.Dec()
	}
	if len(set) == 0 {
		delete(r.conns, userID)
		metrics.OnlineUsers.Dec()
		return true
	}
	return false
}

// ActiveConnections returns a snapshot of the user's connection IDs.
func (r *Registry) ActiveConnections(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[userID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// OnlineUsers returns the IDs of all users with a live connection.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

// Drain clears all entries. Called on shutdown after the transport has
// closed its connections.
func (r *Registry) Drain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, set := range r.conns {
		metrics.ActiveConnections.Sub(float64(len(set)))
		metrics.OnlineUsers.Dec()
		delete(r.conns, userID)
	}
}

// Package runtime owns the per-node connection state and the background
// workers that keep it consistent. It contains no business rules.
package runtime

import (
	"sync"

	"chathub/contract"
)

// Registry maps each user to their single active session on this node.
// One mutex guards the whole map so register/unregister for the same user
// is a single atomic slot replace, never a check-then-act pair.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]contract.Session)}
}

// Register installs the session as the user's sole connection on this node
// and returns the session it displaced, if any. The caller is responsible
// for closing the evicted session; the registry never performs I/O under
// its lock.
func (r *Registry) Register(userID string, sess contract.Session) (contract.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted, replaced := r.sessions[userID]
	r.sessions[userID] = sess
	return evicted, replaced
}

// Unregister removes the user's slot only if it still holds this exact
// session. A stale close racing a fresh connect therefore cannot knock out
// the newer session.
func (r *Registry) Unregister(userID string, sess contract.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[userID]; ok && current == sess {
		delete(r.sessions, userID)
	}
}

func (r *Registry) Lookup(userID string) (contract.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[userID]
	return sess, ok
}

func (r *Registry) IsOnline(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// Users snapshots the ids currently connected to this node. Used by the
// presence heartbeat to refresh TTL entries.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.sessions))
	for userID := range r.sessions {
		users = append(users, userID)
	}
	return users
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

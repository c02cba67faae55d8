package server

import "sync"

// ConnRegistry maps a user id to that user's currently-open session. One
// entry per logged-in user; a reconnect silently replaces the earlier entry
// (last writer wins). All operations are short critical sections with no
// network I/O under the lock.
type ConnRegistry struct {
	mu    sync.RWMutex
	conns map[string]*Session
}

// NewConnRegistry creates an empty connection registry.
func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{conns: make(map[string]*Session)}
}

// Register binds userID to sess, replacing any previous binding.
func (r *ConnRegistry) Register(userID string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = sess
}

// Lookup returns the session currently bound to userID.
func (r *ConnRegistry) Lookup(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.conns[userID]
	return sess, ok
}

// Unregister removes the binding for userID, but only if it still points at
// sess. A slow teardown must never clobber the entry of a newer connection
// that reconnected under the same user id.
func (r *ConnRegistry) Unregister(userID string, sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.conns[userID]; ok && cur == sess {
		delete(r.conns, userID)
		return true
	}
	return false
}

// IDs returns a snapshot of all registered user ids.
func (r *ConnRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// Sessions returns a snapshot of all registered sessions, for fan-out after
// the lock is released.
func (r *ConnRegistry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.conns))
	for _, sess := range r.conns {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Len returns the number of registered users.
func (r *ConnRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

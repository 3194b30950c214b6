// Package session tracks the process-wide mapping between user identity and
// the zero-or-one live connection currently serving it.
package session

import "sync"

// Conn is a live connection handle capable of receiving server→client pushes.
// Push must not block indefinitely; implementations are expected to buffer
// and drop rather than stall the caller.
type Conn interface {
	Push(event string, payload interface{}) error
}

// Session is the handle returned by Register. Unregister checks its
// generation so a stale disconnect can never evict a newer connection for
// the same identity.
type Session struct {
	UserID     string
	generation uint64
}

type entry struct {
	conn       Conn
	generation uint64
}

// Registry is the identity → connection map. At most one live connection per
// identity; a new Register for the same identity supersedes the old mapping
// (last-connected-wins). Constructor-injected, no global singleton.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
	nextGen uint64
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register maps userID to conn, overwriting any existing mapping. The
// returned Session must be passed to Unregister when the connection closes.
func (r *Registry) Register(userID string, conn Conn) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextGen++
	r.entries[userID] = entry{conn: conn, generation: r.nextGen}
	return Session{UserID: userID, generation: r.nextGen}
}

// Unregister removes the mapping only if it still belongs to sess. Returns
// false when the mapping was already replaced by a newer connection.
func (r *Registry) Unregister(sess Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.entries[sess.UserID]
	if !ok || cur.generation != sess.generation {
		return false
	}
	delete(r.entries, sess.UserID)
	return true
}

// Lookup returns the live connection for userID, if any.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[userID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// IsOnline reports whether userID currently has a live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[userID]
	return ok
}

// Package server tracks which display name is bound to which live connection
// via the SessionRegistry type.
package server

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// session is the registry's record of one live connection. The registry holds
// only lookup state; the transport owns the connection itself.
type session struct {
	id          string
	remoteAddr  string
	connectedAt time.Time
	username    string
}

// SessionRegistry owns the bijection between live connection ids and bound
// usernames. It is the only shared mutable state in the relay; every compound
// operation runs inside a single critical section so that no caller can
// observe a half-updated mapping.
type SessionRegistry struct {
	mu     sync.RWMutex
	byConn map[string]*session
	byName map[string]string
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byConn: make(map[string]*session),
		byName: make(map[string]string),
	}
}

// Register inserts an unbound session record for a newly established
// connection. Registering the same id twice is a programming error; the
// second call overwrites the first.
func (r *SessionRegistry) Register(connID, remoteAddr string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byConn[connID] = &session{
		id:          connID,
		remoteAddr:  remoteAddr,
		connectedAt: time.Now(),
	}
}

// Bind atomically claims username for connID. The uniqueness check and both
// map inserts happen under one lock so concurrent claims for the same name
// cannot both succeed. A connection binds at most once.
func (r *SessionRegistry) Bind(connID, username string) error {
	if username == "" {
		return errInvalidUsername
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.byConn[connID]
	if !ok {
		return errInternal
	}
	if sess.username != "" {
		return errUsernameAlreadySet
	}
	if _, taken := r.byName[username]; taken {
		return errUsernameTaken
	}

	sess.username = username
	r.byName[username] = connID
	return nil
}

// Unregister removes the connection and releases its identity if one was
// bound, returning the released username. Calling it again for the same id is
// a no-op.
func (r *SessionRegistry) Unregister(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)

	if sess.username == "" {
		return "", false
	}
	delete(r.byName, sess.username)
	return sess.username, true
}

// Resolve returns the connection id currently bound to username.
func (r *SessionRegistry) Resolve(username string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.byName[username]
	return connID, ok
}

// Identity returns the username bound to connID, if any.
func (r *SessionRegistry) Identity(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.byConn[connID]
	if !ok || sess.username == "" {
		return "", false
	}
	return sess.username, true
}

// Snapshot returns a sorted point-in-time copy of all bound usernames. The
// copy is taken under the lock; callers never see the live map.
func (r *SessionRegistry) Snapshot() []string {
	r.mu.RLock()
	users := lo.Keys(r.byName)
	r.mu.RUnlock()

	sort.Strings(users)
	return users
}

// Len reports the number of registered connections, bound or not.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

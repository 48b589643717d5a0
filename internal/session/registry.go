package session

import (
	"sync"

	"github.com/quizhall/quizhall/internal/content"
)

// Registry owns the set of live sessions. Sessions enter fully constructed
// (questions already loaded) and leave only through Remove.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// CreateOrReset installs a fresh session for the ID, discarding any prior
// run. Concurrent calls for the same ID serialize on the registry lock, so
// exactly one winner's session is visible, never an interleaved state.
func (r *Registry) CreateOrReset(sessionID string, questions []content.Question) *Session {
	sess := newSession(sessionID, questions)

	r.mu.Lock()
	r.sessions[sessionID] = sess
	r.mu.Unlock()

	return sess
}

// Get looks up a live session.
func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Remove discards a session. Finished sessions stay resident until the
// surrounding deployment calls this explicitly.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

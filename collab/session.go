package collab

import (
	"sync"

	"github.com/NTDKhoa04/bloggin-be/core"
)

// Session ties a live connection to a draft and the role the user held when
// the connection was authorized. It is immutable for the connection's
// lifetime; a revoked role takes effect on the next reconnect.
type Session struct {
	ConnID  string
	UserID  string
	DraftID string
	Role    core.Role
}

type sessionRegistry struct {
	mu     sync.RWMutex
	byConn map[string]*Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{byConn: make(map[string]*Session)}
}

func (r *sessionRegistry) add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[s.ConnID] = s
}

func (r *sessionRegistry) get(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byConn[connID]
	return s, ok
}

// remove deletes the session and returns it, if it existed.
func (r *sessionRegistry) remove(connID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byConn[connID]
	if ok {
		delete(r.byConn, connID)
	}
	return s, ok
}

// countForDraft returns how many live sessions reference a draft.
func (r *sessionRegistry) countForDraft(draftID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.byConn {
		if s.DraftID == draftID {
			n++
		}
	}
	return n
}

package bridge

import (
	"errors"
	"sync"
)

// Registry errors.
var (
	ErrDuplicateCall = errors.New("bridge: call already registered")
	ErrUnknownCall   = errors.New("bridge: unknown call")
)

// Registry tracks live sessions by call SID. Sessions are added when
// the webhook accepts a call and removed after the bridge persists the
// summary, so the registry only ever holds in-flight calls.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under its call SID.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.CallSID()]; ok {
		return ErrDuplicateCall
	}
	r.sessions[s.CallSID()] = s
	return nil
}

// Get returns the session for a call SID.
func (r *Registry) Get(callSID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[callSID]
	if !ok {
		return nil, ErrUnknownCall
	}
	return s, nil
}

// Remove drops a session from the registry. Removing an absent SID is
// a no-op so bridge teardown and webhook errors can both call it.
func (r *Registry) Remove(callSID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, callSID)
}

// Count returns the number of in-flight calls.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

package service

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
)

// SessionRegistry keeps the live sessions of the HTTP surface keyed by session ID. Sessions share nothing with each
// other; the registry only maps IDs to them.
type SessionRegistry struct {
	Identity *IdentityService

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry authenticating through identity.
func NewSessionRegistry(identity *IdentityService) *SessionRegistry {
	return &SessionRegistry{
		Identity: identity,
		sessions: make(map[string]*Session),
	}
}

// Start authenticates a holder and registers the new session.
func (r *SessionRegistry) Start(ctx context.Context, identifier string, secret string) (*Session, error) {
	session, err := r.Identity.Authenticate(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	return session, nil
}

// Get returns the session with the given ID or `errorcode.ErrorNotFound`.
func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, errorcode.ErrorNotFound
	}

	return session, nil
}

// End removes the session and wipes its signing identity. Ending an unknown session returns `errorcode.ErrorNotFound`.
func (r *SessionRegistry) End(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return errorcode.ErrorNotFound
	}

	session.Close()
	log.WithField("session", id).Debug("session ended")
	return nil
}

// EndAll wipes every registered session. Used on shutdown.
func (r *SessionRegistry) EndAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

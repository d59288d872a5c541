package domain

import (
	"sync"
	"time"
)

// Identity is the validated identity extracted from a bearer credential.
type Identity struct {
	ID        int64
	Role      string
	Name      string
	Email     string
	ExpiresAt time.Time
}

// Session is the ephemeral per-connection state. Identity is fixed for the
// lifetime of the connection; there is no mid-connection re-validation.
type Session struct {
	ConnID       string
	identity     *Identity
	createdAt    time.Time
	lastActiveAt time.Time
	mu           sync.RWMutex
}

func NewSession(connID string) *Session {
	now := time.Now()
	return &Session{
		ConnID:       connID,
		createdAt:    now,
		lastActiveAt: now,
	}
}

// Authenticate attaches a validated identity to the session.
func (s *Session) Authenticate(id *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
	s.lastActiveAt = time.Now()
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// Identity returns the attached identity, or nil when the session has not
// authenticated yet.
func (s *Session) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// UserID returns the authenticated user id, or 0 when unauthenticated.
func (s *Session) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return 0
	}
	return s.identity.ID
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}

package client

import (
	"sync"
	"time"
)

// Identity es el usuario autenticado de la sesión.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

// Session guarda el token actual. Se crea en Login y se limpia en Logout o ante un 401.
type Session struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	identity  Identity
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) set(token string, expiresAt time.Time, id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiresAt
	s.identity = id
}

// Clear descarta token e identidad.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.identity = Identity{}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Active: hay token y no venció a now.
func (s *Session) Active(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	return s.expiresAt.IsZero() || now.Before(s.expiresAt)
}

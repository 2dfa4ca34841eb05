// Package auth holds the bearer credential used against the visit API and
// the token checks shared with the sandbox backend.
package auth

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNoCredentials is returned when no token has been configured.
	ErrNoCredentials = errors.New("not logged in (run 'nb login')")
	// ErrSessionExpired is returned once the server has rejected the token
	// or its exp claim has passed.
	ErrSessionExpired = errors.New("session expired (run 'nb login')")
)

// Session is the client's view of the current credential.
type Session struct {
	mu      sync.Mutex
	token   string
	expired bool
	onExp   []func()
	now     func() time.Time
}

// NewSession creates a session for the given bearer token.
func NewSession(token string) *Session {
	return &Session{token: token, now: time.Now}
}

// Token returns the bearer token to attach to a request.
// A token whose exp claim has passed expires the session.
func (s *Session) Token() (string, error) {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return "", ErrNoCredentials
	}
	if s.expired {
		s.mu.Unlock()
		return "", ErrSessionExpired
	}
	if exp, ok := ExpiresAt(s.token); ok && !s.now().Before(exp) {
		hooks := s.expireLocked()
		s.mu.Unlock()
		runHooks(hooks)
		return "", ErrSessionExpired
	}
	tok := s.token
	s.mu.Unlock()
	return tok, nil
}

// Expired reports whether the session has been marked expired.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// OnExpired registers fn to run the first time the session expires.
func (s *Session) OnExpired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExp = append(s.onExp, fn)
}

// MarkExpired records that the server rejected the token. Hooks run once.
func (s *Session) MarkExpired() {
	s.mu.Lock()
	hooks := s.expireLocked()
	s.mu.Unlock()
	runHooks(hooks)
}

// expireLocked flips the session to expired and returns the hooks to run.
// It returns nil if the session had already expired. Callers hold s.mu.
func (s *Session) expireLocked() []func() {
	if s.expired {
		return nil
	}
	s.expired = true
	return append([]func(){}, s.onExp...)
}

func runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}

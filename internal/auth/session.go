package auth

import (
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
)

// SessionTTL is the absolute session lifetime. Sessions expire 24 hours
// after creation regardless of activity; there is no sliding refresh.
const SessionTTL = 24 * time.Hour

// Session is one authenticated admin session.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStore holds active sessions. The in-memory implementation suits a
// single-instance deployment; multi-instance deployments swap in a shared
// backing store behind the same interface.
type SessionStore interface {
	Create(username string) (*Session, error)
	// Get returns the session for token, or nil when absent or expired.
	Get(token string) *Session
	Delete(token string)
}

// MemorySessionStore keeps sessions in a mutex-guarded map.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

var _ SessionStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(username string) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &Session{
		Token:     token,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}

	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()

	return session, nil
}

func (s *MemorySessionStore) Get(token string) *Session {
	if token == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil
	}
	if s.now().After(session.ExpiresAt) {
		delete(s.sessions, token)
		return nil
	}
	return session
}

func (s *MemorySessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Len reports the number of stored sessions, expired ones included until
// their next lookup.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func generateToken() (string, error) {
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("failed to generate session token")
	}
	return hex.EncodeToString(key), nil
}

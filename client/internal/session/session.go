package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKey is the single storage key holding the token.
const TokenKey = "token"

// Store is durable key/value storage for the credential.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// State is the in-memory view of the credential, mirrored to a Store.
type State struct {
	mu    sync.RWMutex
	store Store
	token string
}

// New creates a State initialised from store.
func New(store Store) (*State, error) {
	token, _, err := store.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("session: load credential: %w", err)
	}
	return &State{store: store, token: token}, nil
}

// SetCredential persists token and then makes it visible to readers.
// An empty token clears the credential.
func (s *State) SetCredential(token string) error {
	if token == "" {
		return s.ClearCredential()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(TokenKey, token); err != nil {
		return fmt.Errorf("session: persist credential: %w", err)
	}
	s.token = token
	return nil
}

// ClearCredential removes the token from storage and memory.
func (s *State) ClearCredential() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(TokenKey); err != nil {
		return fmt.Errorf("session: erase credential: %w", err)
	}
	s.token = ""
	return nil
}

// HasCredential reports whether a non-empty token is held.
func (s *State) HasCredential() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Credential returns the current token, or "" when anonymous.
func (s *State) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Claims is what the client can read from a JWT credential without the
// server's key.
type Claims struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp
}

// Claims decodes the credential as an unverified JWT. The second result is
// false when anonymous or when the token is not a JWT; the client treats
// such tokens as opaque.
func (s *State) Claims() (Claims, bool) {
	token := s.Credential()
	if token == "" {
		return Claims{}, false
	}
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, false
	}
	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, true
}

// Expired reports whether the credential is a JWT whose exp is at or before now.
// Opaque tokens never expire client-side.
func (s *State) Expired(now time.Time) bool {
	c, ok := s.Claims()
	if !ok || c.ExpiresAt.IsZero() {
		return false
	}
	return !c.ExpiresAt.After(now)
}

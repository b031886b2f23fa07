// Package session holds the operator-supplied social network cookies used for
// authenticated follower lookups.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

type State string

const (
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateAuthenticated   State = "AUTHENTICATED"
)

const (
	CookieAuthToken = "li_at"
	CookieSessionID = "JSESSIONID"
)

var ErrBlankCredentials = errors.New("both credential values are required")

// Credentials are the two opaque cookie values copied from a browser session.
type Credentials struct {
	AuthToken string
	SessionID string
}

// Fingerprint identifies the credentials without exposing them. Cache keys use it
// so that entries fetched under different sessions never mix.
func (c *Credentials) Fingerprint() string {
	if c == nil {
		return "anonymous"
	}
	hash := sha256.Sum256([]byte(c.AuthToken + "|" + c.SessionID))
	return hex.EncodeToString(hash[:8])
}

type Store struct {
	mu          sync.RWMutex
	credentials *Credentials
}

func NewStore() *Store {
	return &Store{}
}

// Login stores both values and moves the store to AUTHENTICATED. A blank value
// leaves the state untouched.
func (s *Store) Login(authToken, sessionID string) error {
	authToken = strings.TrimSpace(authToken)
	sessionID = strings.TrimSpace(sessionID)
	if authToken == "" || sessionID == "" {
		return ErrBlankCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = &Credentials{AuthToken: authToken, SessionID: sessionID}

	slog.Info("Session authenticated")
	return nil
}

func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.credentials != nil {
		slog.Info("Session cleared")
	}
	s.credentials = nil
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.credentials == nil {
		return StateUnauthenticated
	}
	return StateAuthenticated
}

// Credentials returns a copy of the stored values, or nil when unauthenticated.
func (s *Store) Credentials() *Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.credentials == nil {
		return nil
	}
	creds := *s.credentials
	return &creds
}

// Package session caches the tokens the auth API hands out alongside its
// envelopes. It is the local-session capability the navigation reactor
// clears on logout; persistence beyond process memory is the embedding
// application's concern.
package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openmerce/authflow/envelope"
	apperrors "github.com/openmerce/authflow/internal/errors"
)

// Store holds the session and access tokens for the current browser-like
// session. Safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	sessionToken string
	accessToken  string
}

// NewStore returns an empty token store.
func NewStore() *Store {
	return &Store{}
}

// Update captures tokens from an envelope's meta section. Tokens are only
// ever replaced, never cleared here: the server omits them on responses
// that don't rotate them.
func (s *Store) Update(meta envelope.Meta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if meta.SessionToken != "" {
		s.sessionToken = meta.SessionToken
	}
	if meta.AccessToken != "" {
		s.accessToken = meta.AccessToken
	}
}

// SessionToken returns the current session token, or "" when none is held.
func (s *Store) SessionToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionToken
}

// AccessToken returns the current access token, or "" when none is held.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Clear drops both tokens. Called by the navigation reactor on logout,
// before redirecting.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionToken = ""
	s.accessToken = ""
}

// AccessClaims decodes the access token's claims without verifying its
// signature. The client holds no verification key; these claims are for
// display and refresh scheduling only and must never gate authorization.
func (s *Store) AccessClaims() (jwt.MapClaims, error) {
	token := s.AccessToken()
	if token == "" {
		return nil, apperrors.ErrNoAccessToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, apperrors.Wrapf(err, "[Store AccessClaims] failed to decode access token")
	}
	return claims, nil
}

// AccessExpiry returns the access token's expiry, when the token is present
// and carries an exp claim.
func (s *Store) AccessExpiry() (time.Time, bool) {
	claims, err := s.AccessClaims()
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

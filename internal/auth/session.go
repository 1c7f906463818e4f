// Package auth holds the signed-in account for API calls.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/verte-zerg/ieltsmock/internal/model"
)

// TokenStore persists the signed-in account between runs.
type TokenStore interface {
	SaveToken(ctx context.Context, token string, user model.User) error
	LoadToken(ctx context.Context) (token string, user model.User, ok bool, err error)
	ClearToken(ctx context.Context) error
}

// Session is the explicit authentication context handed to API clients.
// Login sets it, Logout clears it.
type Session struct {
	mu    sync.RWMutex
	store TokenStore
	token string
	user  model.User
}

// NewSession returns a signed-out session. A nil store keeps the session in memory only.
func NewSession(store TokenStore) *Session {
	return &Session{store: store}
}

// Restore loads a previously saved account, if any.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	token, user, ok, err := s.store.LoadToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to load saved credentials: %w", err)
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()
	return nil
}

// UseToken sets a token for this process without persisting it.
func (s *Session) UseToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Login stores the token and account returned by the API.
func (s *Session) Login(ctx context.Context, token string, user model.User) error {
	if s.store != nil {
		if err := s.store.SaveToken(ctx, token, user); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}
	}
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()
	return nil
}

// Logout forgets the account locally and in the store.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = model.User{}
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	if err := s.store.ClearToken(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Token returns the bearer token or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed-in account.
func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.token != ""
}

// SetUser refreshes the cached account after a profile call.
func (s *Session) SetUser(ctx context.Context, user model.User) error {
	s.mu.Lock()
	s.user = user
	token := s.token
	s.mu.Unlock()
	if s.store == nil || token == "" {
		return nil
	}
	return s.store.SaveToken(ctx, token, user)
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

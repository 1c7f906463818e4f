package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ieltsmock/internal/model"
)

type memoryStore struct {
	token   string
	user    model.User
	ok      bool
	saveErr error
}

func (m *memoryStore) SaveToken(_ context.Context, token string, user model.User) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token, m.user, m.ok = token, user, true
	return nil
}

func (m *memoryStore) LoadToken(context.Context) (string, model.User, bool, error) {
	return m.token, m.user, m.ok, nil
}

func (m *memoryStore) ClearToken(context.Context) error {
	m.token, m.user, m.ok = "", model.User{}, false
	return nil
}

func TestLoginLogoutPersists(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	s := NewSession(store)
	assert.False(t, s.Authenticated())

	user := model.User{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, s.Login(ctx, "tok", user))
	assert.True(t, s.Authenticated())
	assert.Equal(t, "tok", store.token)

	restored := NewSession(store)
	require.NoError(t, restored.Restore(ctx))
	got, ok := restored.User()
	assert.True(t, ok)
	assert.Equal(t, user, got)

	require.NoError(t, restored.Logout(ctx))
	assert.False(t, restored.Authenticated())
	assert.False(t, store.ok)
}

func TestLoginSaveFailureKeepsSignedOut(t *testing.T) {
	s := NewSession(&memoryStore{saveErr: errors.New("disk full")})
	require.Error(t, s.Login(context.Background(), "tok", model.User{}))
	assert.False(t, s.Authenticated())
}

func TestUseTokenIsInMemory(t *testing.T) {
	store := &memoryStore{}
	s := NewSession(store)
	s.UseToken("env-token")
	assert.Equal(t, "env-token", s.Token())
	assert.False(t, store.ok)

	require.NoError(t, s.SetUser(context.Background(), model.User{Name: "Env"}))
	u, _ := s.User()
	assert.Equal(t, "Env", u.Name)
}

func TestNilStoreSession(t *testing.T) {
	s := NewSession(nil)
	require.NoError(t, s.Restore(context.Background()))
	require.NoError(t, s.Login(context.Background(), "tok", model.User{}))
	require.NoError(t, s.Logout(context.Background()))
	assert.Empty(t, s.Token())
}

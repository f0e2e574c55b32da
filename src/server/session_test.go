package server

import (
	"testing"
	"time"

	db "spotserv/src/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager(t *testing.T) {
	sessions, err := NewSessionManager("secret", time.Hour, db.NewAuthDataBase())
	require.NoError(t, err)

	token, expires, err := sessions.Issue("alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	t.Run("Verify", func(t *testing.T) {
		claims, err := sessions.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other, err := NewSessionManager("other-secret", time.Hour, db.NewAuthDataBase())
		require.NoError(t, err)
		_, err = other.Verify(token)
		assert.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := sessions.Verify("")
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("Expired", func(t *testing.T) {
		sessions.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { sessions.now = time.Now }()
		_, err := sessions.Verify(token)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("Revoke", func(t *testing.T) {
		sessions.Revoke(token)
		_, err := sessions.Verify(token)
		assert.ErrorIs(t, err, ErrSessionRevoked)
	})
}

func TestSessionManagerNeedsSecret(t *testing.T) {
	_, err := NewSessionManager("", time.Hour, db.NewAuthDataBase())
	assert.Error(t, err)
}

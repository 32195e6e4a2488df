package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", 900)

	token, err := m.GenerateAccessToken("user-1", "Alice", "alice@example.com")
	require.NoError(t, err)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "Alice", claims.Nickname)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestManager_Expired(t *testing.T) {
	m := NewManager("test-secret", -60)
	token, err := m.GenerateAccessToken("user-1", "", "")
	require.NoError(t, err)

	_, err = m.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_WrongSecret(t *testing.T) {
	token, err := NewManager("one", 900).GenerateAccessToken("user-1", "", "")
	require.NoError(t, err)

	_, err = NewManager("two", 900).VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewManager("two", 900).VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

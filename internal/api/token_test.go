package api

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{"sub": "u1"}
	if !expiresAt.IsZero() {
		claims["exp"] = expiresAt.Unix()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := NewFileTokenStore(path)

	// Empty store loads as empty string, not an error.
	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save("abc123"))

	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	// Clearing twice is fine.
	require.NoError(t, store.Clear())
}

func TestMemoryTokenStoreRoundTrip(t *testing.T) {
	store := NewMemoryTokenStore()

	require.NoError(t, store.Save("tok"))
	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestTokenUsable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "empty token", token: "", want: false},
		{name: "whitespace token", token: "   ", want: false},
		{name: "opaque non-JWT token", token: "opaque-session-id", want: true},
		{name: "jwt without exp", token: signedToken(t, time.Time{}), want: true},
		{name: "jwt expiring tomorrow", token: signedToken(t, now.Add(24*time.Hour)), want: true},
		{name: "jwt expired yesterday", token: signedToken(t, now.Add(-24*time.Hour)), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenUsable(tt.token, now))
		})
	}
}

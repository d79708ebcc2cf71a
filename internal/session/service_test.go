package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challz/internal/api"
	"challz/internal/apitest"
	"challz/internal/models"
	"challz/internal/session"
)

func newTestService(t *testing.T) (*session.Service, *apitest.Server, api.TokenStore) {
	t.Helper()

	server := apitest.New()
	t.Cleanup(server.Close)

	cfg := api.DefaultClientConfig()
	cfg.BaseURL = server.URL

	tokens := api.NewMemoryTokenStore()
	client := api.NewClient(cfg, tokens, nil)

	return session.NewService(client, nil, nil), server, tokens
}

func TestServiceStartsLoading(t *testing.T) {
	svc, _, _ := newTestService(t)

	assert.True(t, svc.Loading())
	assert.False(t, svc.Configured())
	_, ok := svc.Current()
	assert.False(t, ok)
}

func TestResolveWithoutTokenLeavesLoggedOut(t *testing.T) {
	svc, _, _ := newTestService(t)

	svc.Resolve(context.Background())

	assert.False(t, svc.Loading())
	assert.True(t, svc.Configured())
	_, ok := svc.Current()
	assert.False(t, ok)
}

func TestResolveWithTokenRestoresSession(t *testing.T) {
	svc, server, tokens := newTestService(t)
	server.SeedUser("tok-1", models.User{ID: "u1", Username: "tester"})
	require.NoError(t, tokens.Save("tok-1"))

	svc.Resolve(context.Background())

	user, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)
}

func TestResolveWithStaleTokenLeavesLoggedOut(t *testing.T) {
	svc, _, tokens := newTestService(t)
	require.NoError(t, tokens.Save("unknown-token"))

	svc.Resolve(context.Background())

	assert.True(t, svc.Configured())
	_, ok := svc.Current()
	assert.False(t, ok)
}

func TestSignInStoresTokenAndUser(t *testing.T) {
	svc, _, tokens := newTestService(t)

	user, err := svc.SignIn(context.Background(), "alice@example.com", "secret12")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	current, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, user.ID, current.ID)

	token, err := tokens.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestSignInFailureChangesNothing(t *testing.T) {
	svc, _, tokens := newTestService(t)

	_, err := svc.SignIn(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	_, ok := svc.Current()
	assert.False(t, ok)

	token, _ := tokens.Load()
	assert.Empty(t, token)
}

func TestSignInValidatesCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "secret12"},
		{name: "malformed email", email: "not-an-email", password: "secret12"},
		{name: "empty password", email: "alice@example.com", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignIn(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			assert.True(t, api.IsErrorType(err, "VALIDATION_ERROR"))
		})
	}
}

func TestSignUpAutoLogin(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, err := svc.SignUp(context.Background(), "newuser", "new@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "newuser", user.Username)

	current, ok := svc.Current()
	require.True(t, ok)
	assert.Equal(t, user.ID, current.ID)
}

func TestSignUpConflictSurfacesError(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SignUp(context.Background(), "taken", "taken@example.com", "secret123")
	require.Error(t, err)

	apiErr, ok := api.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "username already exists", apiErr.DisplayMessage())
}

func TestLogoutAlwaysClearsLocally(t *testing.T) {
	svc, _, tokens := newTestService(t)

	_, err := svc.SignIn(context.Background(), "alice@example.com", "secret12")
	require.NoError(t, err)

	// Invalidate the token server-side first; logout must still log out.
	require.NoError(t, tokens.Save("no-longer-valid"))

	svc.Logout(context.Background())

	_, ok := svc.Current()
	assert.False(t, ok)

	token, _ := tokens.Load()
	assert.Empty(t, token)
}

func TestRequireUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RequireUser()
	assert.ErrorIs(t, err, session.ErrLoginRequired)

	_, err = svc.SignIn(context.Background(), "alice@example.com", "secret12")
	require.NoError(t, err)

	user, err := svc.RequireUser()
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

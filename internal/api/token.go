package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ===============================
// TOKEN STORE
// ===============================

// TokenStore persists the session token between runs. Implementations must
// be safe for concurrent use; the client and the session service share one
// store.
type TokenStore interface {
	// Load returns the stored token, or "" when none is stored.
	Load() (string, error)
	// Save replaces the stored token.
	Save(token string) error
	// Clear removes the stored token. Clearing an empty store is a no-op.
	Clear() error
}

// ===============================
// FILE TOKEN STORE
// ===============================

// fileTokenStore keeps the token in a single file under the user's home
// directory, created with 0600 permissions.
type fileTokenStore struct {
	mu   sync.Mutex
	path string
}

// NewFileTokenStore creates a file-backed token store at path
func NewFileTokenStore(path string) TokenStore {
	return &fileTokenStore{path: path}
}

func (s *fileTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read token file: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

func (s *fileTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}

	return nil
}

func (s *fileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}

	return nil
}

// ===============================
// MEMORY TOKEN STORE
// ===============================

// memoryTokenStore keeps the token in memory only. Used in tests and for
// ephemeral sessions.
type memoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore creates an in-memory token store
func NewMemoryTokenStore() TokenStore {
	return &memoryTokenStore{}
}

func (s *memoryTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memoryTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *memoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// ===============================
// TOKEN INSPECTION
// ===============================

// TokenUsable reports whether token looks like a still-valid JWT. The
// signature is never verified here, only the server can do that; this check
// exists so a locally-expired token is treated as absent instead of sent on
// a request that is guaranteed to 401. Opaque non-JWT tokens pass the check
// unchanged.
func TokenUsable(token string, now time.Time) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}

	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		// Not a JWT at all; let the server decide.
		return true
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	return now.Before(exp.Time)
}

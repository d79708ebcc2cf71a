package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"challz/internal/api"
	"challz/internal/events"
	"challz/internal/models"
	"challz/internal/validation"
)

// ErrLoginRequired is returned by RequireUser when no session exists. The
// UI maps it to the login redirect instead of an error banner.
var ErrLoginRequired = errors.New("login required")

// ===============================
// SERVICE
// ===============================

// Service owns the client's authentication state: the current user, the
// persisted token, and the boot-time resolve. It is an explicit dependency
// injected into consumers; nothing reads session state ambiently.
//
// All state is mutex-guarded because the feed controller, the mutation
// worker and the UI loop share one instance.
type Service struct {
	client *api.Client
	bus    *events.Bus
	logger *zap.Logger

	mu         sync.RWMutex
	user       *models.User
	loading    bool
	configured bool
}

// NewService creates a new session service. The service starts in the
// loading state until the first Resolve completes.
func NewService(client *api.Client, bus *events.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		client:  client,
		bus:     bus,
		logger:  logger,
		loading: true,
	}
}

// ===============================
// SESSION RESOLUTION
// ===============================

// Resolve performs the one boot-time session lookup. Any failure, network
// or 401, is indistinguishable from "no session": the user stays nil and no
// error is surfaced. Loading is false once Resolve returns.
func (s *Service) Resolve(ctx context.Context) {
	defer s.finishResolve()

	var user models.User
	if err := s.client.Get(ctx, "/auth/me", true, &user); err != nil {
		s.logger.Debug("session resolve found no session", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	s.logger.Info("session resolved", zap.String("user_id", user.ID))
}

func (s *Service) finishResolve() {
	s.mu.Lock()
	s.loading = false
	s.configured = true
	s.mu.Unlock()
}

// ===============================
// SIGN IN / SIGN UP / LOGOUT
// ===============================

// SignIn exchanges credentials for a session. The token is persisted and
// the user becomes current on success; failure returns a display-ready
// error and changes nothing.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	req := models.SignInRequest{Email: email, Password: password}
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, api.NewValidationError(err.Error(), err)
	}

	var resp models.SessionResponse
	if err := s.client.Post(ctx, "/auth/login", req, false, &resp); err != nil {
		return nil, err
	}

	if resp.Token == "" || resp.User == nil {
		return nil, api.NewValidationError("login response missing session", nil)
	}

	s.adoptSession(resp.Token, resp.User)

	s.logger.Info("user signed in", zap.String("user_id", resp.User.ID))
	return resp.User, nil
}

// SignUp creates an account. When the backend auto-logs-in (response
// carries a token) the new user becomes current; otherwise the caller is
// expected to sign in separately.
func (s *Service) SignUp(ctx context.Context, username, email, password string) (*models.User, error) {
	req := models.SignUpRequest{Username: username, Email: email, Password: password}
	if err := validation.ValidateStruct(&req); err != nil {
		return nil, api.NewValidationError(err.Error(), err)
	}

	var resp models.SessionResponse
	if err := s.client.Post(ctx, "/auth/register", req, false, &resp); err != nil {
		return nil, err
	}

	if resp.Token != "" && resp.User != nil {
		s.adoptSession(resp.Token, resp.User)
		s.logger.Info("user signed up and in", zap.String("user_id", resp.User.ID))
	}

	return resp.User, nil
}

// Logout ends the session. The server call is fire-and-forget; local state
// and the persisted token are cleared unconditionally so the client is
// always logged out afterwards.
func (s *Service) Logout(ctx context.Context) {
	if err := s.client.Post(ctx, "/auth/logout", nil, true, nil); err != nil {
		s.logger.Debug("server logout failed, clearing locally", zap.Error(err))
	}

	s.mu.Lock()
	userID := ""
	if s.user != nil {
		userID = s.user.ID
	}
	s.user = nil
	s.mu.Unlock()

	if err := s.client.Tokens().Clear(); err != nil {
		s.logger.Warn("token clear failed", zap.Error(err))
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.UserSignedOut, UserID: userID})
	}
}

func (s *Service) adoptSession(token string, user *models.User) {
	if err := s.client.Tokens().Save(token); err != nil {
		s.logger.Warn("token persist failed, session is in-memory only", zap.Error(err))
	}

	s.mu.Lock()
	s.user = user
	s.loading = false
	s.configured = true
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(events.Event{Type: events.UserSignedIn, UserID: user.ID})
	}
}

// ===============================
// STATE ACCESSORS
// ===============================

// Current returns the session user and whether one exists.
func (s *Service) Current() (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.user != nil
}

// RequireUser returns the session user or ErrLoginRequired.
func (s *Service) RequireUser() (*models.User, error) {
	if user, ok := s.Current(); ok {
		return user, nil
	}
	return nil, ErrLoginRequired
}

// Loading reports whether the boot-time resolve is still in flight.
func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Configured reports whether the first resolve has completed, successfully
// or not. Gated UI renders nothing until this is true.
func (s *Service) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configured
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"challz/internal/config"
)

// ===============================
// CLIENT CONFIGURATION
// ===============================

// ClientConfig holds API client configuration
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	UserAgent      string
}

// DefaultClientConfig returns a default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "http://localhost:4000",
		RequestTimeout: 15 * time.Second,
		UserAgent:      "challz-client/1.0",
	}
}

// ClientConfigFromApp derives a client configuration from the application config
func ClientConfigFromApp(cfg *config.Config) *ClientConfig {
	c := DefaultClientConfig()
	c.BaseURL = cfg.API.BaseURL
	c.RequestTimeout = cfg.API.RequestTimeout
	return c
}

// ===============================
// CLIENT
// ===============================

// Client is the single gateway to the Challz backend. Every remote call in
// the codebase goes through Request so that authentication, error mapping
// and logging behave identically everywhere.
type Client struct {
	httpClient *http.Client
	config     *ClientConfig
	tokens     TokenStore
	logger     *zap.Logger
}

// NewClient creates a new API client
func NewClient(cfg *ClientConfig, tokens TokenStore, logger *zap.Logger) *Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		config:     cfg,
		tokens:     tokens,
		logger:     logger,
	}
}

// Tokens exposes the client's token store so the session service can share it.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// BaseURL returns the configured backend base URL
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// ===============================
// REQUEST EXECUTION
// ===============================

// errorBody matches the two error payload shapes the backend emits.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Request performs an HTTP exchange against the backend and decodes the JSON
// response into out (which may be nil when no body is expected). A non-2xx
// status always produces an error and never partial data. When authRequired
// is set and no usable token exists, the request is not sent at all.
func (c *Client) Request(ctx context.Context, method, endpoint string, body interface{}, authRequired bool, out interface{}) error {
	u, err := c.buildURL(endpoint)
	if err != nil {
		return NewValidationError(fmt.Sprintf("invalid endpoint %q", endpoint), err)
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return NewValidationError("could not encode request body", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return NewTransportError(endpoint, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	if err := c.attachAuth(req, endpoint, authRequired); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api request failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return NewTransportError(endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapErrorResponse(resp, endpoint)
	}

	if resp.StatusCode == http.StatusNoContent || out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDecodeError(endpoint, err)
	}

	return nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, endpoint string, authRequired bool, out interface{}) error {
	return c.Request(ctx, http.MethodGet, endpoint, nil, authRequired, out)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, endpoint string, body interface{}, authRequired bool, out interface{}) error {
	return c.Request(ctx, http.MethodPost, endpoint, body, authRequired, out)
}

// attachAuth sets the Authorization header. A bearer token is attached on
// every request when one is available; when authRequired is set and no
// usable token exists the request fails locally with UNAUTHENTICATED.
func (c *Client) attachAuth(req *http.Request, endpoint string, authRequired bool) error {
	token, err := c.tokens.Load()
	if err != nil {
		c.logger.Warn("token store read failed", zap.Error(err))
		token = ""
	}

	if !TokenUsable(token, time.Now()) {
		token = ""
	}

	if token == "" {
		if authRequired {
			return NewUnauthenticatedError(endpoint)
		}
		return nil
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// mapErrorResponse turns a non-2xx response into an APIError, preferring the
// backend's own error text when the body carries one.
func (c *Client) mapErrorResponse(resp *http.Response, endpoint string) error {
	message := fmt.Sprintf("request failed with status %d", resp.StatusCode)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil && len(data) > 0 {
		var parsed errorBody
		if json.Unmarshal(data, &parsed) == nil {
			if parsed.Error != "" {
				message = parsed.Error
			} else if parsed.Message != "" {
				message = parsed.Message
			}
		}
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return NewNotFoundError(message, endpoint)
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewUnauthorizedError(message, endpoint)
	default:
		return NewServerError(message, endpoint, resp.StatusCode)
	}
}

// buildURL joins the base URL with the endpoint path, keeping any query
// string the endpoint carries.
func (c *Client) buildURL(endpoint string) (string, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", err
	}

	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(ref.Path, "/") {
		ref.Path = "/" + ref.Path
	}

	return base.ResolveReference(ref).String(), nil
}

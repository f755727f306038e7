// Package transport implements the HTTP client for the headless auth API.
// The API answers every auth-related call with an envelope body, including
// 401 and 410 responses; the client decodes all three uniformly and feeds
// each envelope into the auth state store, so classification and navigation
// happen as a side effect of every call made here.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openmerce/authflow/authstate"
	"github.com/openmerce/authflow/envelope"
	apperrors "github.com/openmerce/authflow/internal/errors"
	"github.com/openmerce/authflow/internal/utils"
)

// Headless API endpoint paths, relative to the configured base URL.
const (
	PathSession           = "/auth/session"
	PathLogin             = "/auth/login"
	PathSignup            = "/auth/signup"
	PathVerifyEmail       = "/auth/email/verify"
	PathRequestLoginCode  = "/auth/code/request"
	PathConfirmLoginCode  = "/auth/code/confirm"
	PathMFAAuthenticate   = "/auth/2fa/authenticate"
	PathReauthenticate    = "/auth/reauthenticate"
	PathMFAReauthenticate = "/auth/2fa/reauthenticate"
	PathProviderToken     = "/auth/provider/token"
)

const sessionTokenHeader = "X-Session-Token"

// TokenStore is the slice of the local session the client needs: a session
// token to attach to requests and a sink for rotated tokens.
type TokenStore interface {
	SessionToken() string
	Update(meta envelope.Meta)
}

// Client talks to the headless auth API. Every envelope it receives, error
// shaped or not, goes through the store's single ingestion point.
type Client struct {
	baseURL string
	http    *http.Client
	store   *authstate.Store
	tokens  TokenStore
	log     zerolog.Logger
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for tests
// and custom transports).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client's logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client rooted at baseURL (e.g.
// "https://api.example.com/_allauth/app/v1").
func NewClient(baseURL string, store *authstate.Store, tokens TokenStore, options ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		store:   store,
		tokens:  tokens,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Session fetches the current authentication status. Called on bootstrap
// and on periodic refresh.
func (c *Client) Session(ctx context.Context) (*envelope.Envelope, error) {
	return c.do(ctx, http.MethodGet, PathSession, nil)
}

// Logout ends the session server-side. The server answers with a 401
// envelope, whose ingestion triggers the logged-out reaction locally.
func (c *Client) Logout(ctx context.Context) (*envelope.Envelope, error) {
	return c.do(ctx, http.MethodDelete, PathSession, nil)
}

// Credentials identifies a user for password login. Exactly one of Email or
// Username should be set.
type Credentials struct {
	Email    string
	Username string
	Password string
}

type loginPayload struct {
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	Password string  `json:"password"`
}

// Login submits password credentials.
func (c *Client) Login(ctx context.Context, creds Credentials) (*envelope.Envelope, error) {
	payload := loginPayload{Password: creds.Password}
	if creds.Email != "" {
		payload.Email = utils.Ptr(creds.Email)
	}
	if creds.Username != "" {
		payload.Username = utils.Ptr(creds.Username)
	}
	return c.do(ctx, http.MethodPost, PathLogin, payload)
}

// SignupDetails carries the fields of a new account.
type SignupDetails struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, details SignupDetails) (*envelope.Envelope, error) {
	return c.do(ctx, http.MethodPost, PathSignup, details)
}

// VerifyEmail submits an email verification key.
func (c *Client) VerifyEmail(ctx context.Context, key string) (*envelope.Envelope, error) {
	return c.do(ctx, http.MethodPost, PathVerifyEmail, map[string]string{"key": key})
}

// RequestLoginCode asks the server to send a one-time login code.
func (c *Client) RequestLoginCode(ctx context.Context, email string) (*envelope.Envelope, error) {
	return c.do(ctx, http.MethodPost, PathRequestLoginCode, map[string]string{"email": email})
}

// ConfirmLoginCode submits the received one-time login code.
func (c *Client) ConfirmLoginCode(ctx context.Context, code string) (*envelope.Envelope, error) {
	return c.do(ctx, http.MethodPost, PathConfirmLoginCode, map[string]string{"code": code})
}

// MFAAuthenticate answers an mfa_authenticate challenge with a TOTP or
// recovery code.
func (c *Client) MFAAuthenticate(ctx context.Context, code string) (*envelope.Envelope, error) {
	return c.do(ctx, http.MethodPost, PathMFAAuthenticate, map[string]string{"code": code})
}

// Reauthenticate re-proves identity with the account password.
func (c *Client) Reauthenticate(ctx context.Context, password string) (*envelope.Envelope, error) {
	return c.do(ctx, http.MethodPost, PathReauthenticate, map[string]string{"password": password})
}

// MFAReauthenticate answers an mfa_reauthenticate challenge.
func (c *Client) MFAReauthenticate(ctx context.Context, code string) (*envelope.Envelope, error) {
	return c.do(ctx, http.MethodPost, PathMFAReauthenticate, map[string]string{"code": code})
}

// ProviderToken submits a verified third-party ID token to complete a
// provider_token flow.
func (c *Client) ProviderToken(ctx context.Context, provider, idToken string) (*envelope.Envelope, error) {
	payload := map[string]any{
		"provider": provider,
		"token":    map[string]string{"id_token": idToken},
		"process":  "login",
	}
	return c.do(ctx, http.MethodPost, PathProviderToken, payload)
}

// do performs one call and routes the resulting envelope through the store.
// 200, 401, and 410 bodies are all envelopes and all succeed from the
// caller's perspective; any other status is an error because the server
// broke the envelope contract.
func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope.Envelope, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("[Client do] failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("[Client do] failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if token := c.tokens.SessionToken(); token != "" {
		req.Header.Set(sessionTokenHeader, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[Client do] %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusUnauthorized, http.StatusGone:
	default:
		return nil, fmt.Errorf("[Client do] %s %s returned status %d: %w",
			method, path, resp.StatusCode, apperrors.ErrUnexpectedResponse)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[Client do] failed to read response body: %w", err)
	}
	env, err := envelope.Parse(raw)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Client do] %s %s", method, path)
	}

	c.tokens.Update(env.Meta)
	if _, err := c.store.Ingest(env); err != nil {
		return nil, apperrors.Wrapf(err, "[Client do] %s %s", method, path)
	}

	c.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", int(env.Status)).
		Msg("auth call completed")
	return env, nil
}

// Package provider handles the provider_redirect and provider_token flows:
// it builds the third-party authorization URL, and verifies the ID token
// that comes back before the raw token is handed to the auth API. The auth
// API is the authority on whether the provider identity maps to an account;
// this package only guards the round-trip (state, nonce, signature).
package provider

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	apperrors "github.com/openmerce/authflow/internal/errors"
)

// Provider drives the OIDC round-trip for one configured identity provider.
type Provider struct {
	name     string
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// New discovers the provider's endpoints from its issuer URL.
func New(ctx context.Context, name, issuer, clientID, clientSecret, redirectURL string, scopes []string) (*Provider, error) {
	discovered, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[provider New] failed to discover issuer %q: %w", issuer, err)
	}
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	return &Provider{
		name: name,
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     discovered.Endpoint(),
			Scopes:       scopes,
		},
		verifier: discovered.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// NewWithEndpoint builds a provider from explicit endpoints, skipping
// discovery (primarily for testing).
func NewWithEndpoint(name string, oauth oauth2.Config, verifier *oidc.IDTokenVerifier) *Provider {
	return &Provider{name: name, oauth: oauth, verifier: verifier}
}

// Name returns the provider identifier the auth API knows this provider by.
func (p *Provider) Name() string {
	return p.name
}

// Redirect is a prepared authorization round-trip. State and Nonce must be
// retained by the caller and checked on the way back.
type Redirect struct {
	URL   string
	State string
	Nonce string
}

// BeginRedirect generates fresh state and nonce values and the
// authorization URL that carries them.
func (p *Provider) BeginRedirect() Redirect {
	state := uuid.NewString()
	nonce := uuid.NewString()
	return Redirect{
		URL:   p.oauth.AuthCodeURL(state, oidc.Nonce(nonce)),
		State: state,
		Nonce: nonce,
	}
}

// Exchange trades the callback code for the provider's raw ID token. The
// caller must already have compared the callback state to Redirect.State;
// gotState is checked again here so a missed comparison fails closed.
func (p *Provider) Exchange(ctx context.Context, redirect Redirect, gotState, code string) (string, error) {
	if gotState != redirect.State {
		return "", apperrors.ErrStateMismatch
	}
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("[Provider Exchange] token exchange failed: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", apperrors.ErrNoIDToken
	}
	return rawIDToken, nil
}

// Verify checks the ID token's signature, audience, and nonce. The
// returned token's claims may be used for display before the auth API
// confirms the login.
func (p *Provider) Verify(ctx context.Context, redirect Redirect, rawIDToken string) (*oidc.IDToken, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("[Provider Verify] id token verification failed: %w", err)
	}
	if idToken.Nonce != redirect.Nonce {
		return nil, apperrors.ErrNonceMismatch
	}
	return idToken, nil
}

// Package auth runs the Google sign-in code flow and hands the resulting
// access token to the backend.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"labelmail/config"
	"labelmail/utils"
)

var (
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrMissingCode   = errors.New("authorization code missing")
)

// Identity is what the verified ID token says about the user.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// ValidateFunc verifies a Google ID token for audience.
type ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleProvider wraps the OAuth2 config of the app.
type GoogleProvider struct {
	conf     *oauth2.Config
	validate ValidateFunc
}

// NewGoogleProvider builds the provider from config. The redirect defaults
// to <public url>/auth/callback.
func NewGoogleProvider(cfg config.GoogleConfig, publicURL string) *GoogleProvider {
	redirect := cfg.RedirectURL
	if redirect == "" {
		redirect = publicURL + "/auth/callback"
	}
	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirect,
			Scopes:       cfg.Scopes,
		},
		validate: idtoken.Validate,
	}
}

// WithEndpoint points the provider at another token endpoint.
func (p *GoogleProvider) WithEndpoint(ep oauth2.Endpoint) *GoogleProvider {
	p.conf.Endpoint = ep
	return p
}

// WithValidator replaces the ID token check.
func (p *GoogleProvider) WithValidator(v ValidateFunc) *GoogleProvider {
	p.validate = v
	return p
}

// Configured reports whether a client id is set.
func (p *GoogleProvider) Configured() bool {
	return p.conf.ClientID != ""
}

// NewState returns a random OAuth state value.
func NewState() string {
	return uuid.NewString()
}

// AuthURL is the Google consent page for state.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.conf.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades an authorization code for tokens. When Google returns an
// id_token it must validate against the client id.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, *Identity, error) {
	if code == "" {
		return nil, nil, ErrMissingCode
	}

	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return tok, nil, nil
	}

	payload, err := p.validate(ctx, raw, p.conf.ClientID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid id token: %w", err)
	}

	id := &Identity{Subject: payload.Subject}
	if v, ok := payload.Claims["email"].(string); ok {
		id.Email = v
	}
	if v, ok := payload.Claims["email_verified"].(bool); ok {
		id.EmailVerified = v
	}
	if v, ok := payload.Claims["name"].(string); ok {
		id.Name = v
	}
	utils.Log.WithField("sub", id.Subject).Debug("Google identity verified for %s", id.Email)
	return tok, id, nil
}

// CheckState compares the callback state with the stored one.
func CheckState(stored, got string) error {
	if stored == "" || got == "" || stored != got {
		return ErrStateMismatch
	}
	return nil
}

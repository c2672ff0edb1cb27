package oidc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ProviderConfig describes one upstream identity provider. Values are
// read at startup and never mutated afterwards.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string

	// DiscoveryURL is the issuer; endpoints are fetched from
	// {DiscoveryURL}/.well-known/openid-configuration.
	DiscoveryURL string

	RedirectURI string
	Scopes      []string
	Enabled     bool
}

// Validate reports the first configuration problem, or nil.
func (c ProviderConfig) Validate() error {
	if c.Name == "" {
		return errors.New("provider name is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("provider %s: client id is required", c.Name)
	}
	if c.DiscoveryURL == "" {
		return fmt.Errorf("provider %s: discovery url is required", c.Name)
	}
	if _, err := url.Parse(c.DiscoveryURL); err != nil {
		return fmt.Errorf("provider %s: invalid discovery url: %v", c.Name, err)
	}
	if c.RedirectURI == "" {
		return fmt.Errorf("provider %s: redirect uri is required", c.Name)
	}
	return nil
}

// discoveryClaims captures the extra endpoints go-oidc discovers but does
// not expose through its typed API.
type discoveryClaims struct {
	RevocationEndpoint    string `json:"revocation_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
	UserInfoEndpoint      string `json:"userinfo_endpoint"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
}

// Provider wraps a discovered upstream: the go-oidc verifier for ID
// tokens and the oauth2 config for code exchange and refresh.
type Provider struct {
	cfg        ProviderConfig
	verifier   *gooidc.IDTokenVerifier
	oauth      *oauth2.Config
	endpoints  discoveryClaims
	httpClient *http.Client
}

// NewProvider runs OIDC discovery against cfg.DiscoveryURL and builds the
// verifier and oauth2 configuration from the advertised endpoints.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}
	if !slices.Contains(scopes, gooidc.ScopeOpenID) {
		return nil, fmt.Errorf("provider %s: openid scope is required", cfg.Name)
	}

	httpClient, _ := ctx.Value(oauth2.HTTPClient).(*http.Client)
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	discovered, err := gooidc.NewProvider(gooidc.ClientContext(ctx, httpClient), cfg.DiscoveryURL)
	if err != nil {
		return nil, fmt.Errorf("provider %s: discovery failed: %w", cfg.Name, err)
	}

	var extra discoveryClaims
	if err := discovered.Claims(&extra); err != nil {
		return nil, fmt.Errorf("provider %s: discovery document: %w", cfg.Name, err)
	}

	endpoint := discovered.Endpoint()
	// Credentials go in the request body so exchange behaves the same
	// across IDPs that disagree about Basic auth.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Provider{
		cfg: cfg,
		verifier: discovered.Verifier(&gooidc.Config{
			ClientID: cfg.ClientID,
		}),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		endpoints:  extra,
		httpClient: httpClient,
	}, nil
}

// Name returns the configured provider name.
func (p *Provider) Name() string { return p.cfg.Name }

// AuthURL returns the authorization endpoint URL carrying state.
func (p *Provider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for the upstream token set.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.oauth.Exchange(p.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("provider %s: code exchange: %w", p.cfg.Name, err)
	}
	return tok, nil
}

// Identity is the subset of ID-token claims the engine maps to an
// internal account.
type Identity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// VerifyIDToken checks the id_token carried in tok (signature, issuer,
// audience, expiry) and returns the identity claims. A token response
// without an id_token is rejected.
func (p *Provider) VerifyIDToken(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("provider %s: token response has no id_token", p.cfg.Name)
	}

	idToken, err := p.verifier.Verify(p.clientContext(ctx), raw)
	if err != nil {
		return nil, fmt.Errorf("provider %s: id token rejected: %w", p.cfg.Name, err)
	}

	var id Identity
	if err := idToken.Claims(&id); err != nil {
		return nil, fmt.Errorf("provider %s: id token claims: %w", p.cfg.Name, err)
	}
	if id.Subject == "" {
		return nil, fmt.Errorf("provider %s: id token missing sub", p.cfg.Name)
	}
	return &id, nil
}

// Refresh obtains a fresh upstream token set from a refresh token.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := p.oauth.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("provider %s: upstream refresh: %w", p.cfg.Name, err)
	}
	return tok, nil
}

// RevokeUpstream revokes a refresh token at the provider's RFC 7009
// revocation endpoint. Providers that advertise no such endpoint are a
// no-op success.
func (p *Provider) RevokeUpstream(ctx context.Context, refreshToken string) error {
	if p.endpoints.RevocationEndpoint == "" {
		return nil
	}

	form := url.Values{
		"token":           {refreshToken},
		"token_type_hint": {"refresh_token"},
		"client_id":       {p.cfg.ClientID},
		"client_secret":   {p.cfg.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoints.RevocationEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("provider %s: revocation request: %w", p.cfg.Name, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider %s: revocation call: %w", p.cfg.Name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider %s: revocation returned %d", p.cfg.Name, resp.StatusCode)
	}
	return nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

package vexauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/vexenlabs/vexauth/oidc"
)

// OIDCAuthURL starts an upstream login against provider and returns the
// authorization URL to redirect to. Empty means the provider is unknown
// or no providers were configured.
func (e *Engine) OIDCAuthURL(provider, state string) string {
	if e.openid == nil {
		return ""
	}
	return e.openid.InitiateAuth(provider, state)
}

// OIDCCallback completes an upstream login. The upstream identity is
// mapped to a local account (created on first login) and the internal
// token pair is issued through the same path as Login.
func (e *Engine) OIDCCallback(ctx context.Context, provider, code, state string) (*LoginResult, error) {
	if e.openid == nil {
		return nil, ErrProviderUnknown
	}

	res, err := e.openid.HandleCallback(ctx, provider, code, state)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Subject:      res.Subject,
	}, nil
}

// OIDCRefreshUpstream obtains a fresh upstream token set from an
// upstream refresh token. Internal refresh stays on Engine.Refresh.
func (e *Engine) OIDCRefreshUpstream(ctx context.Context, provider, upstreamRefreshToken string) (*oauth2.Token, error) {
	if e.openid == nil {
		return nil, ErrProviderUnknown
	}
	return e.openid.Refresh(ctx, provider, upstreamRefreshToken)
}

// OIDCLogoutUpstream revokes an upstream refresh token at the provider.
func (e *Engine) OIDCLogoutUpstream(ctx context.Context, provider, upstreamRefreshToken string) error {
	if e.openid == nil {
		return ErrProviderUnknown
	}
	return e.openid.Logout(ctx, provider, upstreamRefreshToken)
}

// issuerAdapter exposes the engine's issuance path to the oidc service.
type issuerAdapter struct{ e *Engine }

func (a issuerAdapter) IssueTokens(ctx context.Context, subject, email string) (string, string, error) {
	return a.e.issueTokens(ctx, subject, email)
}

// resolverAdapter maps verified upstream identities to directory
// accounts, creating one on first login.
type resolverAdapter struct{ e *Engine }

func (a resolverAdapter) ResolveIdentity(ctx context.Context, provider string, id *oidc.Identity) (string, error) {
	e := a.e
	if e.users == nil {
		return "", ErrEngineNotReady
	}
	if id.Email == "" {
		return "", fmt.Errorf("provider %s returned no email", provider)
	}

	u, err := e.users.GetByEmail(ctx, id.Email)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := e.clock()
	if u == nil {
		u, err = e.users.Create(ctx, &User{
			Email:    id.Email,
			Name:     id.Name,
			Provider: provider,
		})
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	e.touchLastLogin(ctx, u.Subject, now)
	u.LastLogin = now
	e.cacheSession(ctx, u)

	return u.Subject, nil
}

package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oauth2-proxy/mockoidc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type stubIssuer struct {
	calls    int
	lastSub  string
	lastMail string
}

func (s *stubIssuer) IssueTokens(_ context.Context, subject, email string) (string, string, error) {
	s.calls++
	s.lastSub = subject
	s.lastMail = email
	return "internal-access", "internal-refresh", nil
}

type stubResolver struct {
	subject string
	calls   int
}

func (s *stubResolver) ResolveIdentity(_ context.Context, _ string, id *Identity) (string, error) {
	s.calls++
	if s.subject != "" {
		return s.subject, nil
	}
	return "local:" + id.Subject, nil
}

func newTestService(t *testing.T, issuer TokenIssuer, resolver IdentityResolver) (*Service, *mockoidc.MockOIDC) {
	t.Helper()

	m, err := mockoidc.Run()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown() })

	cfg := ProviderConfig{
		Name:         "mock",
		ClientID:     m.Config().ClientID,
		ClientSecret: m.Config().ClientSecret,
		DiscoveryURL: m.Issuer(),
		RedirectURI:  "http://127.0.0.1/callback",
		Enabled:      true,
	}

	svc, err := NewService(context.Background(), []ProviderConfig{cfg}, ServiceConfig{}, issuer, resolver, zap.NewNop())
	require.NoError(t, err)
	return svc, m
}

// authorize follows the authorization URL without chasing the redirect
// and pulls code and state out of the Location header.
func authorize(t *testing.T, authURL string) (code, state string) {
	t.Helper()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(authURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return loc.Query().Get("code"), loc.Query().Get("state")
}

func TestAuthorizationCodeFlow(t *testing.T) {
	issuer := &stubIssuer{}
	resolver := &stubResolver{subject: "user-42"}
	svc, m := newTestService(t, issuer, resolver)

	m.QueueUser(&mockoidc.MockUser{
		Subject:       "upstream-sub",
		Email:         "a@x.com",
		EmailVerified: true,
	})

	authURL := svc.InitiateAuth("mock", "state-1")
	require.NotEmpty(t, authURL)

	code, state := authorize(t, authURL)
	require.NotEmpty(t, code)
	require.Equal(t, "state-1", state)

	res, err := svc.HandleCallback(context.Background(), "mock", code, state)
	require.NoError(t, err)
	require.Equal(t, "internal-access", res.AccessToken)
	require.Equal(t, "internal-refresh", res.RefreshToken)
	require.Equal(t, "user-42", res.Subject)
	require.NotNil(t, res.Upstream)

	require.Equal(t, 1, resolver.calls)
	require.Equal(t, 1, issuer.calls)
	require.Equal(t, "user-42", issuer.lastSub)
	require.Equal(t, "a@x.com", issuer.lastMail)
}

func TestCallbackStateMismatch(t *testing.T) {
	issuer := &stubIssuer{}
	svc, m := newTestService(t, issuer, &stubResolver{})
	m.QueueUser(&mockoidc.MockUser{Subject: "s", Email: "s@x.com"})

	authURL := svc.InitiateAuth("mock", "good-state")
	require.NotEmpty(t, authURL)
	code, _ := authorize(t, authURL)

	_, err := svc.HandleCallback(context.Background(), "mock", code, "never-issued")
	require.ErrorIs(t, err, ErrStateMismatch)
	require.Zero(t, issuer.calls)
}

func TestCallbackStateSingleUse(t *testing.T) {
	issuer := &stubIssuer{}
	svc, m := newTestService(t, issuer, &stubResolver{})
	m.QueueUser(&mockoidc.MockUser{Subject: "s", Email: "s@x.com"})

	authURL := svc.InitiateAuth("mock", "once")
	code, state := authorize(t, authURL)

	_, err := svc.HandleCallback(context.Background(), "mock", code, state)
	require.NoError(t, err)

	_, err = svc.HandleCallback(context.Background(), "mock", code, state)
	require.ErrorIs(t, err, ErrStateMismatch)
	require.Equal(t, 1, issuer.calls)
}

func TestUnknownProvider(t *testing.T) {
	svc, _ := newTestService(t, &stubIssuer{}, &stubResolver{})

	require.Empty(t, svc.InitiateAuth("nope", "state"))

	_, err := svc.HandleCallback(context.Background(), "nope", "code", "state")
	require.ErrorIs(t, err, ErrProviderUnknown)

	_, err = svc.Refresh(context.Background(), "nope", "rt")
	require.ErrorIs(t, err, ErrProviderUnknown)

	require.ErrorIs(t, svc.Logout(context.Background(), "nope", "rt"), ErrProviderUnknown)
}

func TestDisabledProviderNotRegistered(t *testing.T) {
	m, err := mockoidc.Run()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown() })

	cfg := ProviderConfig{
		Name:         "off",
		ClientID:     m.Config().ClientID,
		ClientSecret: m.Config().ClientSecret,
		DiscoveryURL: m.Issuer(),
		RedirectURI:  "http://127.0.0.1/callback",
		Enabled:      false,
	}
	svc, err := NewService(context.Background(), []ProviderConfig{cfg}, ServiceConfig{}, &stubIssuer{}, &stubResolver{}, nil)
	require.NoError(t, err)

	require.Empty(t, svc.Providers())
	require.Empty(t, svc.InitiateAuth("off", "state"))
}

func TestForeignSignatureIDTokenRejected(t *testing.T) {
	svc, m := newTestService(t, &stubIssuer{}, &stubResolver{})

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": m.Issuer(),
		"aud": m.Config().ClientID,
		"sub": "attacker",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}).SignedString(key)
	require.NoError(t, err)

	p := svc.providers["mock"]
	tok := (&oauth2.Token{AccessToken: "x"}).WithExtra(map[string]interface{}{"id_token": forged})
	_, err = p.VerifyIDToken(context.Background(), tok)
	require.Error(t, err)
}

func TestTokenWithoutIDTokenRejected(t *testing.T) {
	svc, _ := newTestService(t, &stubIssuer{}, &stubResolver{})

	p := svc.providers["mock"]
	_, err := p.VerifyIDToken(context.Background(), &oauth2.Token{AccessToken: "bare"})
	require.Error(t, err)
}

func TestUpstreamRefresh(t *testing.T) {
	svc, m := newTestService(t, &stubIssuer{}, &stubResolver{})
	m.QueueUser(&mockoidc.MockUser{Subject: "s", Email: "s@x.com"})

	authURL := svc.InitiateAuth("mock", "refresh-state")
	code, state := authorize(t, authURL)

	res, err := svc.HandleCallback(context.Background(), "mock", code, state)
	require.NoError(t, err)
	require.NotEmpty(t, res.Upstream.RefreshToken)

	fresh, err := svc.Refresh(context.Background(), "mock", res.Upstream.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, fresh.AccessToken)
}

func TestLogoutWithoutRevocationEndpoint(t *testing.T) {
	svc, m := newTestService(t, &stubIssuer{}, &stubResolver{})
	m.QueueUser(&mockoidc.MockUser{Subject: "s", Email: "s@x.com"})

	authURL := svc.InitiateAuth("mock", "logout-state")
	code, state := authorize(t, authURL)
	res, err := svc.HandleCallback(context.Background(), "mock", code, state)
	require.NoError(t, err)

	// mockoidc advertises no revocation endpoint, so upstream logout is
	// a successful no-op.
	require.NoError(t, svc.Logout(context.Background(), "mock", res.Upstream.RefreshToken))
}

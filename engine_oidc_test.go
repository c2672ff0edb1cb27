package vexauth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/oauth2-proxy/mockoidc"

	"github.com/vexenlabs/vexauth/oidc"
	"github.com/vexenlabs/vexauth/store"
)

func newOIDCTestEngine(t *testing.T) (*Engine, *fakeDirectory, *mockoidc.MockOIDC) {
	t.Helper()

	m, err := mockoidc.Run()
	if err != nil {
		t.Fatalf("mockoidc.Run error: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown() })

	users := newFakeDirectory()

	cfg := Config{JWT: testJWTConfig()}
	cfg.OIDC.Providers = []oidc.ProviderConfig{{
		Name:         "mock",
		ClientID:     m.Config().ClientID,
		ClientSecret: m.Config().ClientSecret,
		DiscoveryURL: m.Issuer(),
		RedirectURI:  "http://127.0.0.1/callback",
		Enabled:      true,
	}}

	e, err := New().
		WithConfig(cfg).
		WithTokenStore(store.NewMemory()).
		WithUserDirectory(users).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return e, users, m
}

func fetchAuthCode(t *testing.T, authURL string) (code, state string) {
	t.Helper()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(authURL)
	if err != nil {
		t.Fatalf("authorize request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("authorize status = %d, want 302", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	return loc.Query().Get("code"), loc.Query().Get("state")
}

func TestOIDCFirstLoginCreatesAccount(t *testing.T) {
	e, users, m := newOIDCTestEngine(t)
	ctx := context.Background()

	m.QueueUser(&mockoidc.MockUser{
		Subject:       "upstream-7",
		Email:         "b@x.com",
		EmailVerified: true,
	})

	authURL := e.OIDCAuthURL("mock", "st-1")
	if authURL == "" {
		t.Fatal("expected an authorization URL")
	}

	code, state := fetchAuthCode(t, authURL)
	res, err := e.OIDCCallback(ctx, "mock", code, state)
	if err != nil {
		t.Fatalf("OIDCCallback error: %v", err)
	}

	u, err := users.GetByEmail(ctx, "b@x.com")
	if err != nil || u == nil {
		t.Fatalf("expected account created for b@x.com, got %+v err=%v", u, err)
	}
	if u.Provider != "mock" {
		t.Fatalf("provider = %q, want mock", u.Provider)
	}
	if res.Subject != u.Subject {
		t.Fatalf("result subject %q != directory subject %q", res.Subject, u.Subject)
	}

	// The issued pair goes through the same lifecycle as a password login.
	claims, err := e.Verify(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Email != "b@x.com" {
		t.Fatalf("claims email = %q, want b@x.com", claims.Email)
	}
	if err := e.Logout(ctx, res.RefreshToken); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if _, err := e.Verify(ctx, res.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify after logout = %v, want ErrTokenInvalid", err)
	}
}

func TestOIDCRepeatLoginReusesAccount(t *testing.T) {
	e, users, m := newOIDCTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		m.QueueUser(&mockoidc.MockUser{Subject: "upstream-7", Email: "b@x.com"})
		authURL := e.OIDCAuthURL("mock", "st-"+string(rune('a'+i)))
		code, state := fetchAuthCode(t, authURL)
		if _, err := e.OIDCCallback(ctx, "mock", code, state); err != nil {
			t.Fatalf("OIDCCallback %d error: %v", i, err)
		}
	}

	users.mu.Lock()
	count := len(users.byID)
	users.mu.Unlock()
	if count != 1 {
		t.Fatalf("directory holds %d accounts, want 1", count)
	}
}

func TestOIDCStateMismatchIssuesNothing(t *testing.T) {
	e, _, m := newOIDCTestEngine(t)
	ctx := context.Background()

	m.QueueUser(&mockoidc.MockUser{Subject: "upstream-7", Email: "b@x.com"})
	authURL := e.OIDCAuthURL("mock", "real-state")
	code, _ := fetchAuthCode(t, authURL)

	_, err := e.OIDCCallback(ctx, "mock", code, "forged-state")
	if !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("err = %v, want ErrStateMismatch", err)
	}
}

func TestOIDCWithoutProvidersConfigured(t *testing.T) {
	e, _ := newTestEngine(t, false)
	ctx := context.Background()

	if got := e.OIDCAuthURL("mock", "st"); got != "" {
		t.Fatalf("OIDCAuthURL = %q, want empty", got)
	}
	if _, err := e.OIDCCallback(ctx, "mock", "c", "s"); !errors.Is(err, ErrProviderUnknown) {
		t.Fatalf("OIDCCallback err = %v, want ErrProviderUnknown", err)
	}
	if err := e.OIDCLogoutUpstream(ctx, "mock", "rt"); !errors.Is(err, ErrProviderUnknown) {
		t.Fatalf("OIDCLogoutUpstream err = %v, want ErrProviderUnknown", err)
	}
}

package vexauth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vexenlabs/vexauth/cache"
	"github.com/vexenlabs/vexauth/oidc"
	"github.com/vexenlabs/vexauth/store"
	"github.com/vexenlabs/vexauth/token"
)

// Engine coordinates the token lifecycle: password and OIDC login,
// verification, refresh, logout and bulk revocation. The durable store
// is the source of truth; the cache tier only accelerates reads and its
// failures never surface to callers.
type Engine struct {
	cfg      Config
	codec    *token.Codec
	cache    cache.SessionCache
	store    store.TokenStore
	creds    CredentialStore
	users    UserDirectory
	verifier PasswordVerifier
	openid   *oidc.Service
	log      *zap.Logger

	// ownsCache marks a Redis client the builder created from a URL,
	// which Close then owns.
	ownsCache bool

	now func() time.Time
}

// Close releases resources the engine owns. Injected clients and stores
// stay open; they belong to the caller.
func (e *Engine) Close() error {
	if e.ownsCache {
		return e.cache.Close()
	}
	return nil
}

// Ping reports whether the acceleration tier is reachable. The engine
// works without it; this is for health endpoints.
func (e *Engine) Ping(ctx context.Context) error {
	return e.cache.Ping(ctx)
}

// Providers returns the names of the enabled OIDC providers.
func (e *Engine) Providers() []string {
	if e.openid == nil {
		return nil
	}
	return e.openid.Providers()
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// issueTokens is the single issuance path shared by Login and the OIDC
// callback. The durable Save is the durability boundary: nothing is
// returned until the refresh record is persisted. Cache writes after
// that point are best effort.
func (e *Engine) issueTokens(ctx context.Context, subject, email string) (access, refresh string, err error) {
	refresh, refreshClaims, err := e.codec.IssueRefresh(subject, email)
	if err != nil {
		return "", "", err
	}
	refreshHash := e.codec.Hash(refresh)

	access, accessClaims, err := e.codec.IssueAccess(subject, email, refreshHash)
	if err != nil {
		return "", "", err
	}

	rec := &store.Record{
		Subject:   subject,
		TokenHash: refreshHash,
		IssuedAt:  refreshClaims.IssuedAt.Time,
		ExpiresAt: refreshClaims.ExpiresAt.Time,
	}
	if err := e.store.Save(ctx, rec); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.cache.SetRefreshOwner(ctx, refreshHash, subject, e.codec.RefreshTTL()); err != nil {
		e.cacheDegraded("set refresh owner", err)
	}
	if err := e.cache.SetAccessClaims(ctx, e.codec.Hash(access), accessClaims, e.codec.AccessTTL()); err != nil {
		e.cacheDegraded("set access claims", err)
	}

	return access, refresh, nil
}

// cacheSession refreshes the cached session summary. Best effort.
func (e *Engine) cacheSession(ctx context.Context, u *User) {
	if u == nil {
		return
	}
	summary := &cache.Summary{
		Subject:   u.Subject,
		Email:     u.Email,
		Name:      u.Name,
		Provider:  u.Provider,
		LastLogin: u.LastLogin,
	}
	if err := e.cache.SetSession(ctx, u.Subject, summary, e.codec.RefreshTTL()); err != nil {
		e.cacheDegraded("set session", err)
	}
}

func (e *Engine) cacheDegraded(op string, err error) {
	e.log.Warn("cache degraded", zap.String("op", op), zap.Error(err))
}

// touchLastLogin stamps the directory and is best effort: a login never
// fails because the timestamp write did.
func (e *Engine) touchLastLogin(ctx context.Context, subject string, at time.Time) {
	if e.users == nil {
		return
	}
	if err := e.users.UpdateLastLogin(ctx, subject, at); err != nil {
		e.log.Warn("last login update failed", zap.String("subject", subject), zap.Error(err))
	}
}

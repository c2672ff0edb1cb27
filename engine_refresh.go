package vexauth

import (
	"context"
	"fmt"

	"github.com/vexenlabs/vexauth/token"
)

// Refresh exchanges a live refresh token for a new access token. The
// refresh token itself is returned unchanged: families are not rotated,
// they live until expiry or revocation. The durable store is always
// consulted; the cache can identify the owner but never prove a family
// unrevoked.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, ok := e.codec.Verify(refreshToken, token.TypeRefresh)
	if !ok {
		return nil, ErrTokenInvalid
	}

	hash := e.codec.Hash(refreshToken)

	rec, err := e.store.GetByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if rec == nil || !rec.Valid(e.clock()) {
		return nil, ErrTokenInvalid
	}

	access, accessClaims, err := e.codec.IssueAccess(rec.Subject, claims.Email, hash)
	if err != nil {
		return nil, err
	}

	if err := e.cache.SetAccessClaims(ctx, e.codec.Hash(access), accessClaims, e.codec.AccessTTL()); err != nil {
		e.cacheDegraded("set access claims", err)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refreshToken,
		Subject:      rec.Subject,
	}, nil
}

package vexauth

import (
	"context"
	"fmt"
	"time"

	"github.com/vexenlabs/vexauth/token"
)

// Verify checks an access token and returns its claims. The cache may
// satisfy the signature check, but revocation is always confirmed
// against the durable store through the token's refresh family: a cache
// that wrongly reports a token live cannot resurrect a revoked session.
func (e *Engine) Verify(ctx context.Context, accessToken string) (*token.Claims, error) {
	hash := e.codec.Hash(accessToken)

	claims, err := e.cache.GetAccessClaims(ctx, hash)
	if err != nil {
		e.cacheDegraded("get access claims", err)
		claims = nil
	}

	fromCache := claims != nil
	if claims == nil {
		var ok bool
		claims, ok = e.codec.Verify(accessToken, token.TypeAccess)
		if !ok {
			return nil, ErrTokenInvalid
		}
	}

	if claims.RefreshHash == "" {
		return nil, ErrTokenInvalid
	}

	rec, err := e.store.GetByHash(ctx, claims.RefreshHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if rec == nil || !rec.Valid(e.clock()) {
		return nil, ErrTokenInvalid
	}

	if !fromCache && claims.ExpiresAt != nil {
		if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
			if err := e.cache.SetAccessClaims(ctx, hash, claims, ttl); err != nil {
				e.cacheDegraded("fill access claims", err)
			}
		}
	}

	return claims, nil
}

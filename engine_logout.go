package vexauth

import (
	"context"
	"fmt"
)

// Logout revokes the refresh family behind refreshToken. The token is
// hashed without verification, so expired or malformed tokens are a
// harmless no-op, and revoking an already-revoked family succeeds
// again. Only a store failure is an error.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	hash := e.codec.Hash(refreshToken)

	rec, err := e.store.GetByHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if _, err := e.store.Revoke(ctx, hash); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if rec == nil {
		return nil
	}

	// Tombstone before any dependent cache entries can be refilled.
	if err := e.cache.MarkRevoked(ctx, hash, e.codec.RefreshTTL()); err != nil {
		e.cacheDegraded("mark revoked", err)
	}
	if err := e.cache.DeleteSession(ctx, rec.Subject); err != nil {
		e.cacheDegraded("delete session", err)
	}

	return nil
}

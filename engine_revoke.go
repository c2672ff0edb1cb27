package vexauth

import (
	"context"
	"fmt"
)

// RevokeAllForUser revokes every refresh family the store holds for
// subject and returns the number newly revoked. The store revocation
// must complete; the cache sweep afterwards is best effort, so cached
// access entries may lag briefly before their store confirmation fails.
func (e *Engine) RevokeAllForUser(ctx context.Context, subject string) (int64, error) {
	n, err := e.store.RevokeAllForUser(ctx, subject)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.cache.RevokeAllForUser(ctx, subject); err != nil {
		e.cacheDegraded("revoke all for user", err)
	}
	if err := e.cache.DeleteSession(ctx, subject); err != nil {
		e.cacheDegraded("delete session", err)
	}

	return n, nil
}

package vexauth

import (
	"context"
	"fmt"
)

// Session returns the session summary for subject, from the cache when
// possible and the directory otherwise. (nil, nil) means the subject is
// unknown.
func (e *Engine) Session(ctx context.Context, subject string) (*SessionSummary, error) {
	summary, err := e.cache.GetSession(ctx, subject)
	if err != nil {
		e.cacheDegraded("get session", err)
	} else if summary != nil {
		return summary, nil
	}

	if e.users == nil {
		return nil, ErrEngineNotReady
	}

	u, err := e.users.GetByID(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if u == nil {
		return nil, nil
	}

	e.cacheSession(ctx, u)

	return &SessionSummary{
		Subject:   u.Subject,
		Email:     u.Email,
		Name:      u.Name,
		Provider:  u.Provider,
		LastLogin: u.LastLogin,
	}, nil
}

// DeleteExpiredTokens purges store records whose expiry has passed.
// Meant for a maintenance loop, never a request path.
func (e *Engine) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	n, err := e.store.DeleteExpired(ctx, e.clock())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

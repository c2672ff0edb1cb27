package vexauth

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Login authenticates email and plaintext password and issues a token
// pair. Unknown email and wrong password both return
// ErrInvalidCredentials; the unknown-email path still runs a hash
// comparison against a decoy so the two cases take similar time.
func (e *Engine) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	if e.creds == nil {
		return nil, ErrEngineNotReady
	}

	cred, err := e.creds.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if cred == nil {
		_, _ = e.verifier.Verify(pass, e.verifier.DummyHash())
		return nil, ErrInvalidCredentials
	}

	ok, err := e.verifier.Verify(pass, cred.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	access, refresh, err := e.issueTokens(ctx, cred.Subject, email)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	e.touchLastLogin(ctx, cred.Subject, now)

	if e.users != nil {
		u, err := e.users.GetByID(ctx, cred.Subject)
		if err != nil {
			e.log.Debug("directory lookup after login failed",
				zap.String("subject", cred.Subject), zap.Error(err))
		} else if u != nil {
			u.LastLogin = now
			e.cacheSession(ctx, u)
		}
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Subject:      cred.Subject,
	}, nil
}

package vexauth

import (
	"errors"

	"github.com/vexenlabs/vexauth/oidc"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password. The two cases are never distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid is returned for any token that cannot be accepted:
	// malformed, expired, wrong type, unknown, or revoked. The reasons are
	// never distinguished to callers.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrStoreUnavailable wraps durable-store failures. Unlike cache
	// failures these always surface: the store is the source of truth.
	ErrStoreUnavailable = errors.New("token store unavailable")

	// ErrEngineNotReady is returned when an operation needs a collaborator
	// the engine was built without.
	ErrEngineNotReady = errors.New("engine missing required collaborator")

	// ErrProviderUnknown and friends from the oidc package surface
	// unchanged through the engine's OIDC methods.
	ErrProviderUnknown        = oidc.ErrProviderUnknown
	ErrStateMismatch          = oidc.ErrStateMismatch
	ErrProviderExchangeFailed = oidc.ErrExchangeFailed
	ErrIdentityRejected       = oidc.ErrIdentityRejected
)

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/vexenlabs/vexauth/token"
)

// ErrUnavailable wraps every backend failure so callers can treat the whole
// acceleration tier as a single degradable dependency.
var ErrUnavailable = errors.New("session cache unavailable")

// Summary is the denormalized, cache-only projection of a user's session.
// It is rebuildable from the durable profile at any time; absence is never
// an error.
type Summary struct {
	Subject   string    `json:"subject"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	LastLogin time.Time `json:"last_login"`
}

// SessionCache is the optional acceleration tier in front of the durable
// token store. Implementations hold verified access-token claims, refresh
// hash to subject mappings, session summaries, and revocation markers.
//
// Every operation is best-effort from the engine's point of view: a miss and
// a backend failure are handled identically, and no error from this
// interface ever becomes a user-visible failure. The cache must never be the
// sole record of a credential's validity.
type SessionCache interface {
	// GetAccessClaims returns the cached claims for an access-token hash,
	// or (nil, nil) on a miss.
	GetAccessClaims(ctx context.Context, hash string) (*token.Claims, error)
	SetAccessClaims(ctx context.Context, hash string, claims *token.Claims, ttl time.Duration) error

	// GetRefreshOwner returns the subject owning a refresh-token hash, or
	// "" on a miss. Presence identifies the subject only; it is never proof
	// of non-revocation.
	GetRefreshOwner(ctx context.Context, hash string) (string, error)
	SetRefreshOwner(ctx context.Context, hash, subject string, ttl time.Duration) error

	// MarkRevoked writes a tombstone for hash lasting ttl, so a concurrent
	// cache fill racing a revoke cannot resurrect the entry.
	MarkRevoked(ctx context.Context, hash string, ttl time.Duration) error
	IsRevoked(ctx context.Context, hash string) (bool, error)

	GetSession(ctx context.Context, subject string) (*Summary, error)
	SetSession(ctx context.Context, subject string, summary *Summary, ttl time.Duration) error
	DeleteSession(ctx context.Context, subject string) error

	// RevokeAllForUser tombstones every tracked token hash for subject.
	RevokeAllForUser(ctx context.Context, subject string) error

	Ping(ctx context.Context) error
	Close() error
}

// Noop is the cache variant used when the acceleration tier is disabled.
// Reads always miss, writes are discarded, and nothing ever fails, which
// keeps the engine's flows free of nil checks.
type Noop struct{}

// NewNoop returns the no-op cache.
func NewNoop() Noop { return Noop{} }

func (Noop) GetAccessClaims(context.Context, string) (*token.Claims, error) { return nil, nil }
func (Noop) SetAccessClaims(context.Context, string, *token.Claims, time.Duration) error {
	return nil
}
func (Noop) GetRefreshOwner(context.Context, string) (string, error)         { return "", nil }
func (Noop) SetRefreshOwner(context.Context, string, string, time.Duration) error {
	return nil
}
func (Noop) MarkRevoked(context.Context, string, time.Duration) error { return nil }
func (Noop) IsRevoked(context.Context, string) (bool, error)          { return false, nil }
func (Noop) GetSession(context.Context, string) (*Summary, error)     { return nil, nil }
func (Noop) SetSession(context.Context, string, *Summary, time.Duration) error {
	return nil
}
func (Noop) DeleteSession(context.Context, string) error    { return nil }
func (Noop) RevokeAllForUser(context.Context, string) error { return nil }
func (Noop) Ping(context.Context) error                     { return nil }
func (Noop) Close() error                                   { return nil }

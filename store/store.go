package store

import (
	"context"
	"time"
)

// Record is the durable representation of a refresh token. The raw token
// value never appears here; TokenHash is the SHA-256 hex digest and the only
// lookup key.
type Record struct {
	Subject   string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// Expired reports whether the record's lifetime has elapsed at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Valid reports whether the record can still back a refresh: not revoked and
// not expired. Once Revoked is set it can never be cleared.
func (r *Record) Valid(now time.Time) bool {
	return !r.Revoked && !r.Expired(now)
}

// TokenStore persists refresh-token records and is the source of truth for
// revocation. Implementations must provide read-after-write consistency for
// a single record: a Save or Revoke observed to complete must be visible to
// the next GetByHash.
type TokenStore interface {
	// Save persists a new record. It is the durability boundary of every
	// login: issuance must not be reported successful until Save returns.
	Save(ctx context.Context, rec *Record) error

	// GetByHash returns the record for a token hash, or (nil, nil) when no
	// such record exists.
	GetByHash(ctx context.Context, hash string) (*Record, error)

	// Revoke marks the record revoked and reports whether it was found.
	// Revoking an absent or already-revoked record is not an error.
	Revoke(ctx context.Context, hash string) (bool, error)

	// RevokeAllForUser revokes every record for subject and returns the
	// number of records newly revoked.
	RevokeAllForUser(ctx context.Context, subject string) (int64, error)

	// DeleteExpired removes records whose expiry lies before now and
	// returns the number deleted. Expiry purging is lazy; callers run this
	// from a maintenance loop, never from a request path.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

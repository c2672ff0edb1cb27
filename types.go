package vexauth

import (
	"context"
	"time"

	"github.com/vexenlabs/vexauth/cache"
)

// LoginResult carries the token pair handed back by Login, Refresh and
// the OIDC callback.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Subject      string
}

// Credential is a password login record. Subject is the stable internal
// identifier; PasswordHash is a PHC-encoded argon2id hash.
type Credential struct {
	Subject      string
	PasswordHash string
}

// CredentialStore looks up password credentials. nil means the email is
// unknown; implementations must not treat that as an error.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*Credential, error)
}

// User is an account as the directory knows it.
type User struct {
	Subject   string
	Email     string
	Name      string
	Provider  string
	LastLogin time.Time
}

// UserDirectory resolves and maintains accounts. Both login flows use
// it: the password flow for session summaries, the OIDC flow to map and
// create accounts on first upstream login.
type UserDirectory interface {
	GetByID(ctx context.Context, subject string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create registers a new account and returns it with Subject set.
	Create(ctx context.Context, u *User) (*User, error)

	UpdateLastLogin(ctx context.Context, subject string, at time.Time) error
}

// PasswordVerifier checks a plaintext password against a stored hash.
// DummyHash supplies a decoy hash so Login spends the same verification
// work whether or not the email exists.
type PasswordVerifier interface {
	Verify(password, hash string) (bool, error)
	DummyHash() string
}

// SessionSummary is the cached per-user session view.
type SessionSummary = cache.Summary

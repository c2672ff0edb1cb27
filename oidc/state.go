package oidc

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// NewState returns a fresh random state value for InitiateAuth:
// 32 bytes of entropy, base64url without padding.
func NewState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Stage identifies how far an authorization attempt has progressed.
type Stage int

const (
	StageInitiated Stage = iota
	StageAuthorized
	StageExchanged
	StageVerified
	StageMapped
	StageIssued
)

func (s Stage) String() string {
	switch s {
	case StageInitiated:
		return "initiated"
	case StageAuthorized:
		return "authorized"
	case StageExchanged:
		return "exchanged"
	case StageVerified:
		return "verified"
	case StageMapped:
		return "mapped"
	case StageIssued:
		return "issued"
	default:
		return "unknown"
	}
}

type attempt struct {
	provider  string
	stage     Stage
	expiresAt time.Time
}

// stateRegistry tracks in-flight authorization attempts keyed by the
// opaque state value. States are single use: consume removes the entry
// whether or not the callback succeeds afterwards.
type stateRegistry struct {
	mu       sync.Mutex
	ttl      time.Duration
	attempts map[string]attempt
	now      func() time.Time
}

const defaultStateTTL = 10 * time.Minute

func newStateRegistry(ttl time.Duration) *stateRegistry {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &stateRegistry{
		ttl:      ttl,
		attempts: make(map[string]attempt),
		now:      time.Now,
	}
}

func (r *stateRegistry) put(state, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.attempts[state] = attempt{
		provider:  provider,
		stage:     StageInitiated,
		expiresAt: r.now().Add(r.ttl),
	}
}

// consume removes state and reports whether it was a live attempt for
// provider. Expired or unknown states fail; a second consume of the
// same state also fails.
func (r *stateRegistry) consume(state, provider string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attempts[state]
	if !ok {
		return false
	}
	delete(r.attempts, state)

	if a.provider != provider {
		return false
	}
	return r.now().Before(a.expiresAt)
}

func (r *stateRegistry) sweepLocked() {
	if len(r.attempts) == 0 {
		return
	}
	now := r.now()
	for k, a := range r.attempts {
		if now.After(a.expiresAt) {
			delete(r.attempts, k)
		}
	}
}

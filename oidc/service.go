package oidc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var (
	// ErrProviderUnknown is returned for provider names that are not
	// configured or were disabled at startup.
	ErrProviderUnknown = errors.New("unknown identity provider")

	// ErrStateMismatch is returned when a callback carries a state value
	// that was never issued, already used, or expired.
	ErrStateMismatch = errors.New("authorization state mismatch")

	// ErrExchangeFailed is returned when the upstream code exchange or
	// refresh call fails.
	ErrExchangeFailed = errors.New("provider exchange failed")

	// ErrIdentityRejected is returned when the ID token fails
	// verification or cannot be mapped to an internal account.
	ErrIdentityRejected = errors.New("upstream identity rejected")
)

// TokenIssuer mints the internal token pair once an upstream identity is
// mapped to a local subject. The engine's password login path and this
// package share one implementation.
type TokenIssuer interface {
	IssueTokens(ctx context.Context, subject, email string) (access, refresh string, err error)
}

// IdentityResolver maps a verified upstream identity to an internal
// subject, creating the account on first login.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, provider string, id *Identity) (subject string, err error)
}

// Result is the outcome of a completed callback: the internal token
// pair plus the upstream token set for callers that manage upstream
// refresh or logout themselves.
type Result struct {
	AccessToken  string
	RefreshToken string
	Subject      string
	Upstream     *oauth2.Token
}

// ServiceConfig tunes the flow service.
type ServiceConfig struct {
	// StateTTL bounds how long an initiated authorization may wait for
	// its callback. Zero selects a 10 minute default.
	StateTTL time.Duration
}

// Service drives the authorization-code flow across the configured
// providers. The provider set is fixed at construction.
type Service struct {
	providers map[string]*Provider
	states    *stateRegistry
	issuer    TokenIssuer
	resolver  IdentityResolver
	log       *zap.Logger
}

// NewService discovers every enabled provider in cfgs and returns a
// flow service over them. Disabled entries are skipped; a failed
// discovery for an enabled entry fails construction.
func NewService(
	ctx context.Context,
	cfgs []ProviderConfig,
	svcCfg ServiceConfig,
	issuer TokenIssuer,
	resolver IdentityResolver,
	log *zap.Logger,
) (*Service, error) {
	if issuer == nil || resolver == nil {
		return nil, errors.New("oidc: issuer and resolver are required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	providers := make(map[string]*Provider, len(cfgs))
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		if _, dup := providers[cfg.Name]; dup {
			return nil, fmt.Errorf("oidc: duplicate provider %s", cfg.Name)
		}
		p, err := NewProvider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		providers[cfg.Name] = p
	}

	return &Service{
		providers: providers,
		states:    newStateRegistry(svcCfg.StateTTL),
		issuer:    issuer,
		resolver:  resolver,
		log:       log,
	}, nil
}

// Providers returns the names of the enabled providers.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

// InitiateAuth records state for provider and returns the authorization
// URL to redirect the user to. The empty string means the provider is
// unknown or disabled.
func (s *Service) InitiateAuth(provider, state string) string {
	p, ok := s.providers[provider]
	if !ok || state == "" {
		return ""
	}

	s.states.put(state, provider)
	s.log.Debug("authorization initiated",
		zap.String("provider", provider),
		zap.String("stage", StageInitiated.String()))
	return p.AuthURL(state)
}

// HandleCallback completes an authorization: the state must match a
// live single-use attempt, the code is exchanged, the ID token verified,
// and the upstream identity resolved to an internal subject before the
// internal token pair is issued. Any failure returns nil with nothing
// issued.
func (s *Service) HandleCallback(ctx context.Context, provider, code, state string) (*Result, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, ErrProviderUnknown
	}

	if !s.states.consume(state, provider) {
		return nil, ErrStateMismatch
	}
	s.logStage(provider, StageAuthorized)

	upstream, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	s.logStage(provider, StageExchanged)

	id, err := p.VerifyIDToken(ctx, upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityRejected, err)
	}
	s.logStage(provider, StageVerified)

	subject, err := s.resolver.ResolveIdentity(ctx, provider, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityRejected, err)
	}
	s.logStage(provider, StageMapped)

	access, refresh, err := s.issuer.IssueTokens(ctx, subject, id.Email)
	if err != nil {
		return nil, err
	}
	s.logStage(provider, StageIssued)

	return &Result{
		AccessToken:  access,
		RefreshToken: refresh,
		Subject:      subject,
		Upstream:     upstream,
	}, nil
}

// Refresh obtains a fresh upstream token set from an upstream refresh
// token. Internal token refresh is the engine's concern, not this one.
func (s *Service) Refresh(ctx context.Context, provider, upstreamRefreshToken string) (*oauth2.Token, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, ErrProviderUnknown
	}

	tok, err := p.Refresh(ctx, upstreamRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	return tok, nil
}

// Logout revokes the upstream refresh token at the provider, when the
// provider advertises a revocation endpoint.
func (s *Service) Logout(ctx context.Context, provider, upstreamRefreshToken string) error {
	p, ok := s.providers[provider]
	if !ok {
		return ErrProviderUnknown
	}
	return p.RevokeUpstream(ctx, upstreamRefreshToken)
}

func (s *Service) logStage(provider string, stage Stage) {
	s.log.Debug("authorization progressed",
		zap.String("provider", provider),
		zap.String("stage", stage.String()))
}

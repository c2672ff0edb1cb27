package vexauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/vexenlabs/vexauth/cache"
	"github.com/vexenlabs/vexauth/oidc"
	"github.com/vexenlabs/vexauth/token"
)

// JWTConfig controls internal token issuance.
type JWTConfig struct {
	// Method selects the signing algorithm: token.MethodHS256 (default)
	// or token.MethodEd25519.
	Method token.Method

	// Secret is the HS256 key. Required for hs256.
	Secret []byte

	// PrivateKey and PublicKey are the Ed25519 pair, raw or PEM.
	// Required for ed25519.
	PrivateKey []byte
	PublicKey  []byte

	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// CacheConfig controls the Redis acceleration tier. Disabled means every
// read goes to the durable store; nothing else changes behavior.
type CacheConfig struct {
	Enabled bool

	// URL is a redis connection string (redis://...). Ignored when a
	// client is injected through the builder.
	URL string

	// Prefix namespaces every key. Empty selects cache.DefaultPrefix.
	Prefix string
}

// OIDCConfig controls the upstream login flow.
type OIDCConfig struct {
	Providers []oidc.ProviderConfig

	// StateTTL bounds how long an initiated authorization may wait for
	// its callback. Zero selects the oidc package default.
	StateTTL time.Duration
}

// Config is the engine configuration. It is read during Build and never
// consulted again.
type Config struct {
	JWT   JWTConfig
	Cache CacheConfig
	OIDC  OIDCConfig
}

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
	defaultLeeway     = 30 * time.Second
)

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Method:     token.MethodHS256,
			AccessTTL:  defaultAccessTTL,
			RefreshTTL: defaultRefreshTTL,
			Leeway:     defaultLeeway,
		},
	}
}

// normalize fills zero values with defaults. Called once during Build.
func (c *Config) normalize() {
	if c.JWT.Method == "" {
		c.JWT.Method = token.MethodHS256
	}
	if c.JWT.AccessTTL <= 0 {
		c.JWT.AccessTTL = defaultAccessTTL
	}
	if c.JWT.RefreshTTL <= 0 {
		c.JWT.RefreshTTL = defaultRefreshTTL
	}
	if c.JWT.Leeway < 0 {
		c.JWT.Leeway = 0
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = cache.DefaultPrefix
	}
}

// Validate reports the first configuration problem, or nil.
func (c *Config) Validate() error {
	switch c.JWT.Method {
	case token.MethodHS256:
		if len(c.JWT.Secret) < 32 {
			return errors.New("jwt secret must be at least 32 bytes for hs256")
		}
	case token.MethodEd25519:
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("jwt ed25519 key pair is required")
		}
	default:
		return fmt.Errorf("unknown jwt signing method %q", c.JWT.Method)
	}

	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("jwt access ttl must be shorter than refresh ttl")
	}

	for _, p := range c.OIDC.Providers {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

package vexauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vexenlabs/vexauth/cache"
	"github.com/vexenlabs/vexauth/oidc"
	"github.com/vexenlabs/vexauth/password"
	"github.com/vexenlabs/vexauth/store"
	"github.com/vexenlabs/vexauth/token"
)

// Builder assembles an Engine. Collaborators not supplied fall back to
// in-process defaults where one exists; the token store defaults to the
// in-memory implementation, which is only appropriate for tests and
// single-node setups.
type Builder struct {
	config Config

	redis    redis.UniversalClient
	tokens   store.TokenStore
	creds    CredentialStore
	users    UserDirectory
	verifier PasswordVerifier
	log      *zap.Logger

	built bool
}

// New returns a Builder with default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis injects a Redis client for the acceleration tier, taking
// precedence over Config.Cache.URL. Implies Cache.Enabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTokenStore sets the durable refresh-token store.
func (b *Builder) WithTokenStore(ts store.TokenStore) *Builder {
	b.tokens = ts
	return b
}

// WithCredentialStore sets the password credential lookup.
func (b *Builder) WithCredentialStore(cs CredentialStore) *Builder {
	b.creds = cs
	return b
}

// WithUserDirectory sets the account directory.
func (b *Builder) WithUserDirectory(ud UserDirectory) *Builder {
	b.users = ud
	return b
}

// WithPasswordVerifier replaces the default argon2id verifier.
func (b *Builder) WithPasswordVerifier(pv PasswordVerifier) *Builder {
	b.verifier = pv
	return b
}

// WithLogger sets the engine logger. Default is a no-op logger.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.log = log
	return b
}

// Build validates the configuration, connects the cache tier, discovers
// the configured OIDC providers and returns the engine. ctx bounds the
// discovery calls only.
func (b *Builder) Build(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := b.config
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(token.Config{
		Method:     cfg.JWT.Method,
		Secret:     cfg.JWT.Secret,
		PrivateKey: cfg.JWT.PrivateKey,
		PublicKey:  cfg.JWT.PublicKey,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Leeway:     cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	log := b.log
	if log == nil {
		log = zap.NewNop()
	}

	sessions, ownsRedis, err := b.buildCache(cfg)
	if err != nil {
		return nil, err
	}

	tokens := b.tokens
	if tokens == nil {
		log.Warn("no token store configured, using in-memory store")
		tokens = store.NewMemory()
	}

	verifier := b.verifier
	if verifier == nil {
		verifier = password.Default()
	}

	e := &Engine{
		cfg:       cfg,
		codec:     codec,
		cache:     sessions,
		store:     tokens,
		creds:     b.creds,
		users:     b.users,
		verifier:  verifier,
		log:       log,
		ownsCache: ownsRedis,
	}

	if len(cfg.OIDC.Providers) > 0 {
		svc, err := oidc.NewService(
			ctx,
			cfg.OIDC.Providers,
			oidc.ServiceConfig{StateTTL: cfg.OIDC.StateTTL},
			issuerAdapter{e},
			resolverAdapter{e},
			log.Named("oidc"),
		)
		if err != nil {
			return nil, err
		}
		e.openid = svc
	}

	return e, nil
}

func (b *Builder) buildCache(cfg Config) (cache.SessionCache, bool, error) {
	if b.redis != nil {
		return cache.NewRedis(b.redis, cfg.Cache.Prefix), false, nil
	}
	if !cfg.Cache.Enabled {
		return cache.NewNoop(), false, nil
	}
	if cfg.Cache.URL == "" {
		return nil, false, errors.New("cache enabled without a redis url or injected client")
	}

	opts, err := redis.ParseURL(cfg.Cache.URL)
	if err != nil {
		return nil, false, fmt.Errorf("invalid cache url: %v", err)
	}
	return cache.NewRedis(redis.NewClient(opts), cfg.Cache.Prefix), true, nil
}

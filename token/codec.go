package token

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type is the declared purpose of a token, carried in the "typ" claim.
// Verification fails when the declared type does not match the expected use.
type Type string

const (
	// TypeAccess marks short-lived API credentials.
	TypeAccess Type = "access"
	// TypeRefresh marks the longer-lived tokens used to mint new access tokens.
	TypeRefresh Type = "refresh"
)

// Method selects the signing algorithm for internally issued tokens.
type Method string

const (
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 Method = "hs256"
	// MethodEd25519 signs with an Ed25519 private key.
	MethodEd25519 Method = "ed25519"
)

// ErrSigningKey indicates missing or invalid key material. It is the only
// failure Issue can produce; verification failures are reported as a false
// result, never as an error.
var ErrSigningKey = errors.New("invalid signing key configuration")

// Config holds the immutable codec parameters.
type Config struct {
	Method     Method
	Secret     []byte // hs256
	PrivateKey []byte // ed25519, raw or PEM
	PublicKey  []byte // ed25519, raw or PEM
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// Claims is the payload of every internally issued token.
//
// RefreshHash is set only on access tokens: it is the SHA-256 of the refresh
// token the access token was minted alongside, and ties the access token's
// validity to its refresh family's revocation state.
type Claims struct {
	Email       string `json:"email,omitempty"`
	TokenType   Type   `json:"typ"`
	RefreshHash string `json:"rth,omitempty"`
	jwt.RegisteredClaims
}

// Codec creates and verifies signed tokens. It is stateless and safe for
// concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates the key material up front so that Issue can only fail
// on a subsequent key parse, never on input shape.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: access and refresh TTLs must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway")
	}
	switch cfg.Method {
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, ErrSigningKey
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) == 0 && len(cfg.PrivateKey) == 0 {
			return nil, ErrSigningKey
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
	default:
		return nil, errors.New("token: unsupported signing method")
	}
	return &Codec{config: cfg}, nil
}

// IssueAccess mints an access token for subject. refreshHash binds the token
// to the refresh family it belongs to.
func (c *Codec) IssueAccess(subject, email, refreshHash string) (string, *Claims, error) {
	return c.issue(subject, email, TypeAccess, refreshHash, c.config.AccessTTL)
}

// IssueRefresh mints a refresh token for subject.
func (c *Codec) IssueRefresh(subject, email string) (string, *Claims, error) {
	return c.issue(subject, email, TypeRefresh, "", c.config.RefreshTTL)
}

func (c *Codec) issue(subject, email string, typ Type, refreshHash string, ttl time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		Email:       email,
		TokenType:   typ,
		RefreshHash: refreshHash,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// jti makes tokens issued within the same second distinct, so
			// their hashes never collide in the store or cache.
			ID: uuid.NewString(),
		},
	}

	tok := jwt.NewWithClaims(c.method(), claims)
	key, err := c.signKey()
	if err != nil {
		return "", nil, err
	}
	signed, err := tok.SignedString(key)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks signature, expiry, and the declared token type. Expired,
// malformed, or wrong-type tokens yield (nil, false); that is an expected
// outcome, not an error.
func (c *Codec) Verify(raw string, want Type) (*Claims, bool) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return c.verifyKey()
	})
	if err != nil {
		return nil, false
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, false
	}
	if claims.TokenType != want {
		return nil, false
	}
	return claims, true
}

// Hash returns the SHA-256 hex digest of raw. Hashes are the only form in
// which token material is ever stored, cached, or logged.
func (c *Codec) Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// AccessTTL reports the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.config.AccessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.config.RefreshTTL }

func (c *Codec) method() jwt.SigningMethod {
	if c.config.Method == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (c *Codec) signKey() (interface{}, error) {
	if c.config.Method == MethodEd25519 {
		return parseEdPrivateKey(c.config.PrivateKey)
	}
	return c.config.Secret, nil
}

func (c *Codec) verifyKey() (interface{}, error) {
	if c.config.Method == MethodEd25519 {
		if len(c.config.PublicKey) > 0 {
			return parseEdPublicKey(c.config.PublicKey)
		}
		priv, err := parseEdPrivateKey(c.config.PrivateKey)
		if err != nil {
			return nil, err
		}
		return priv.Public(), nil
	}
	return c.config.Secret, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, ErrSigningKey
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, ErrSigningKey
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, ErrSigningKey
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, ErrSigningKey
	}
	return edKey, nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vexenlabs/vexauth/token"
)

// DefaultPrefix namespaces every key written by the Redis cache.
const DefaultPrefix = "va"

// Redis is the go-redis backed SessionCache. Verified claims and session
// summaries are stored as JSON, refresh ownership as a plain string, and
// revocation as a tombstone key whose TTL matches the remaining lifetime of
// the token it shadows. A per-user set of token hashes supports bulk
// revocation.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis session cache on top of an existing client.
// prefix defaults to DefaultPrefix when empty.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) accessKey(hash string) string     { return r.prefix + ":at:" + hash }
func (r *Redis) refreshKey(hash string) string    { return r.prefix + ":rt:" + hash }
func (r *Redis) sessionKey(subject string) string { return r.prefix + ":us:" + subject }
func (r *Redis) revokedKey(hash string) string    { return r.prefix + ":rv:" + hash }
func (r *Redis) userSetKey(subject string) string { return r.prefix + ":ut:" + subject }

// GetAccessClaims returns cached access-token claims. A revocation marker
// for the same hash forces a miss even when the claims entry still exists.
func (r *Redis) GetAccessClaims(ctx context.Context, hash string) (*token.Claims, error) {
	revoked, err := r.IsRevoked(ctx, hash)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, nil
	}

	data, err := r.client.Get(ctx, r.accessKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var claims token.Claims
	if err := json.Unmarshal(data, &claims); err != nil {
		// Corrupt entry: drop it and fall back to the durable path.
		_ = r.client.Del(ctx, r.accessKey(hash)).Err()
		return nil, nil
	}
	return &claims, nil
}

func (r *Redis) SetAccessClaims(ctx context.Context, hash string, claims *token.Claims, ttl time.Duration) error {
	if claims == nil || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(claims)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.accessKey(hash), data, ttl)
		if claims.Subject != "" {
			pipe.SAdd(ctx, r.userSetKey(claims.Subject), hash)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) GetRefreshOwner(ctx context.Context, hash string) (string, error) {
	revoked, err := r.IsRevoked(ctx, hash)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", nil
	}

	subject, err := r.client.Get(ctx, r.refreshKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return subject, nil
}

func (r *Redis) SetRefreshOwner(ctx context.Context, hash, subject string, ttl time.Duration) error {
	if subject == "" || ttl <= 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.refreshKey(hash), subject, ttl)
		pipe.SAdd(ctx, r.userSetKey(subject), hash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// MarkRevoked writes the tombstone before deleting the cached entries, so a
// reader racing this call can never observe the entry without the marker.
func (r *Redis) MarkRevoked(ctx context.Context, hash string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.revokedKey(hash), "1", ttl)
		pipe.Del(ctx, r.accessKey(hash), r.refreshKey(hash))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) IsRevoked(ctx context.Context, hash string) (bool, error) {
	n, err := r.client.Exists(ctx, r.revokedKey(hash)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

func (r *Redis) GetSession(ctx context.Context, subject string) (*Summary, error) {
	data, err := r.client.Get(ctx, r.sessionKey(subject)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		_ = r.client.Del(ctx, r.sessionKey(subject)).Err()
		return nil, nil
	}
	return &summary, nil
}

func (r *Redis) SetSession(ctx context.Context, subject string, summary *Summary, ttl time.Duration) error {
	if summary == nil || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.sessionKey(subject), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) DeleteSession(ctx context.Context, subject string) error {
	if err := r.client.Del(ctx, r.sessionKey(subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeAllForUser tombstones every hash tracked for subject. Each marker
// inherits the remaining TTL of the entry it shadows so markers never
// outlive the credentials they block.
func (r *Redis) RevokeAllForUser(ctx context.Context, subject string) error {
	setKey := r.userSetKey(subject)
	hashes, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for _, hash := range hashes {
		var ttl time.Duration
		for _, key := range []string{r.accessKey(hash), r.refreshKey(hash)} {
			pttl, err := r.client.PTTL(ctx, key).Result()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			if pttl > ttl {
				ttl = pttl
			}
		}
		if ttl <= 0 {
			// Entry already expired; nothing left to shadow.
			continue
		}
		if err := r.MarkRevoked(ctx, hash, ttl); err != nil {
			return err
		}
	}

	if err := r.client.Del(ctx, setKey).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping reports point-in-time backend availability.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

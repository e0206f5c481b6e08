// Package session wraps the shared revocation cache.
//
// One redis keyspace carries two opposite meanings: presence of a refresh
// token means "this is the live member of an active session" (allow-list),
// presence of an access token jti means "reject until natural expiry"
// (deny-list). The façade methods keep that duality out of call sites.
package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	liveKeyPrefix = "live:" // key: raw refresh token
	denyKeyPrefix = "deny:" // key: access token jti
)

// Store is the revocation cache over a single redis client.
type Store struct {
	rdb *redis.Client
}

// NewStore constructs a Store.
func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

// MarkSessionLive registers refreshToken as the live member of its session.
// TTL must equal the refresh token lifetime.
func (s *Store) MarkSessionLive(ctx context.Context, refreshToken string, ttl time.Duration) error {
	return s.rdb.Set(ctx, liveKeyPrefix+refreshToken, 1, ttl).Err()
}

// ConsumeSession atomically removes the allow-list entry and reports whether
// it existed. For a given token exactly one concurrent caller observes true;
// everyone else loses the delete and must fail closed. There is no separate
// exists check: check-then-delete would open a window for double rotation.
func (s *Store) ConsumeSession(ctx context.Context, refreshToken string) (bool, error) {
	n, err := s.rdb.Del(ctx, liveKeyPrefix+refreshToken).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DropSession removes the allow-list entry regardless of whether it existed.
func (s *Store) DropSession(ctx context.Context, refreshToken string) error {
	return s.rdb.Del(ctx, liveKeyPrefix+refreshToken).Err()
}

// Blacklist rejects the access token id until its natural expiry. A
// non-positive TTL means the token is already expired and the signature check
// will reject it on its own.
func (s *Store) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, denyKeyPrefix+jti, 1, ttl).Err()
}

// IsBlacklisted reports whether the access token id is on the deny-list.
func (s *Store) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, denyKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

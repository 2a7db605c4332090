package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eventgate/internal/domain"
)

const revokedKeyPrefix = "revoked_token:"

type redisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore returns a TokenRevocationStore backed by Redis.
// Each revoked token id is stored with a TTL equal to the token's remaining
// lifetime, so revocation survives restarts, is shared across instances, and
// cleans itself up.
func NewRedisRevocationStore(client *redis.Client) domain.TokenRevocationStore {
	return &redisRevocationStore{client: client}
}

func (s *redisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; nothing to track.
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *redisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := s.client.Get(ctx, revokedKeyPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return true, nil
}

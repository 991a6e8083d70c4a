package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

const userStatusKeyPrefix = "identity:user-status:"

// StatusCacheRepository caches the active flag of accounts in Redis.
type StatusCacheRepository struct {
	client *redis.Client
}

// NewStatusCacheRepository constructs a cache repository. A nil client turns
// every read into a miss and every write into a no-op.
func NewStatusCacheRepository(client *redis.Client) *StatusCacheRepository {
	return &StatusCacheRepository{client: client}
}

// Get returns the cached status or appErrors.ErrCacheMiss.
func (r *StatusCacheRepository) Get(ctx context.Context, userID string) (bool, error) {
	if r.client == nil {
		return false, appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, userStatusKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, appErrors.ErrCacheMiss
		}
		return false, fmt.Errorf("redis get status %s: %w", userID, err)
	}

	return raw == "1", nil
}

// Set stores the status with the given TTL.
func (r *StatusCacheRepository) Set(ctx context.Context, userID string, active bool, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	value := "0"
	if active {
		value = "1"
	}
	if err := r.client.Set(ctx, userStatusKey(userID), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set status %s: %w", userID, err)
	}
	return nil
}

// Delete evicts the cached status of a user.
func (r *StatusCacheRepository) Delete(ctx context.Context, userID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, userStatusKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete status %s: %w", userID, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *StatusCacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func userStatusKey(userID string) string {
	return userStatusKeyPrefix + userID
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

// StatusCache caches the active flag of accounts.
type StatusCache interface {
	Get(ctx context.Context, userID string) (bool, error)
	Set(ctx context.Context, userID string, active bool, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}

type statusReader interface {
	IsActive(ctx context.Context, id string) (bool, error)
}

// UserStatusService answers whether an account may act, on every request.
type UserStatusService struct {
	users   statusReader
	cache   StatusCache
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
	group   singleflight.Group
}

// NewUserStatusService constructs the service. A nil cache or a non-positive
// ttl reads the store every time.
func NewUserStatusService(users statusReader, cache StatusCache, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *UserStatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		cache = nil
	}
	return &UserStatusService{users: users, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

// IsActive reports whether userID exists and is not banned.
func (s *UserStatusService) IsActive(ctx context.Context, userID string) (bool, error) {
	if s.cache != nil {
		start := time.Now()
		active, err := s.cache.Get(ctx, userID)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return active, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("user status cache lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	v, err, _ := s.group.Do(userID, func() (interface{}, error) {
		active, err := s.users.IsActive(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, userID, active, s.ttl); err != nil {
				s.logger.Warn("failed to cache user status", zap.String("user_id", userID), zap.Error(err))
			}
		}
		return active, nil
	})
	if err != nil {
		return false, appErrors.Opaque(err, appErrors.ErrInternal)
	}
	return v.(bool), nil
}

// Invalidate evicts the cached status of userID.
func (s *UserStatusService) Invalidate(ctx context.Context, userID string) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate user status", zap.String("user_id", userID), zap.Error(err))
	}
}

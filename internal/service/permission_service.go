package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

// PermissionService grants and lists user permissions.
type PermissionService struct {
	store  PermissionStore
	logger *zap.Logger
	now    Clock
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(store PermissionStore, logger *zap.Logger, clock Clock) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = systemClock
	}
	return &PermissionService{store: store, logger: logger, now: clock}
}

// AssignMissing grants every permission whose name matches one of roles and
// that userID does not hold yet. The user is recorded as the grantor.
func (s *PermissionService) AssignMissing(ctx context.Context, userID string, roles []string) (int, error) {
	if len(roles) == 0 {
		return 0, nil
	}
	candidates, err := s.store.FindByNames(ctx, roles)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}
	held, err := s.store.IDsForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	owned := make(map[int64]struct{}, len(held))
	for _, id := range held {
		owned[id] = struct{}{}
	}

	granted := 0
	now := s.now()
	for _, perm := range candidates {
		if _, ok := owned[perm.ID]; ok {
			continue
		}
		grant := &models.UserPermission{
			UserID:       userID,
			PermissionID: perm.ID,
			AssignedBy:   userID,
			AssignedAt:   now,
		}
		if err := s.store.Grant(ctx, grant); err != nil {
			return granted, err
		}
		granted++
	}
	if granted > 0 {
		s.logger.Info("assigned missing permissions", zap.String("user_id", userID), zap.Int("count", granted))
	}
	return granted, nil
}

// ListForUser returns the permissions held by userID.
func (s *PermissionService) ListForUser(ctx context.Context, userID string) ([]models.UserPermissionDetail, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "user id is required")
	}
	items, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list user permissions", zap.String("user_id", userID), zap.Error(err))
		return nil, appErrors.Opaque(err, appErrors.ErrInternal)
	}
	if items == nil {
		items = []models.UserPermissionDetail{}
	}
	return items, nil
}

// HasPermission reports whether userID holds the named permission.
func (s *PermissionService) HasPermission(ctx context.Context, userID, name string) (bool, error) {
	ok, err := s.store.HasPermission(ctx, userID, name)
	if err != nil {
		return false, appErrors.Opaque(err, appErrors.ErrInternal)
	}
	return ok, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/stemkit-identity/internal/models"
)

// PermissionRepository manages the permission catalog and user grants.
type PermissionRepository struct {
	db Queryer
}

// NewPermissionRepository constructs a PermissionRepository.
func NewPermissionRepository(db Queryer) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// FindByNames returns the permissions whose names match any of names, ignoring case.
func (r *PermissionRepository) FindByNames(ctx context.Context, names []string) ([]models.Permission, error) {
	if len(names) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	const query = `SELECT id, name, description FROM permissions WHERE LOWER(name) = ANY($1) ORDER BY id`
	var perms []models.Permission
	if err := sqlx.SelectContext(ctx, r.db, &perms, query, pq.Array(lowered)); err != nil {
		return nil, fmt.Errorf("find permissions by name: %w", err)
	}
	return perms, nil
}

// IDsForUser lists the permission ids granted to a user.
func (r *PermissionRepository) IDsForUser(ctx context.Context, userID string) ([]int64, error) {
	const query = `SELECT permission_id FROM user_permissions WHERE user_id = $1`
	var ids []int64
	if err := sqlx.SelectContext(ctx, r.db, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list user permission ids: %w", err)
	}
	return ids, nil
}

// Grant records a permission for a user; an existing grant is left untouched.
func (r *PermissionRepository) Grant(ctx context.Context, grant *models.UserPermission) error {
	if grant.AssignedAt.IsZero() {
		grant.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO user_permissions (user_id, permission_id, assigned_by, assigned_at) VALUES (:user_id, :permission_id, :assigned_by, :assigned_at) ON CONFLICT (user_id, permission_id) DO NOTHING`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, grant); err != nil {
		return fmt.Errorf("grant permission: %w", err)
	}
	return nil
}

// ListForUser returns the permissions of a user with the granting user's name.
func (r *PermissionRepository) ListForUser(ctx context.Context, userID string) ([]models.UserPermissionDetail, error) {
	const query = `SELECT p.id AS permission_id, p.name AS permission_name, p.description, COALESCE(a.full_name, a.username) AS assigned_by_name
FROM user_permissions up
JOIN permissions p ON p.id = up.permission_id
LEFT JOIN users a ON a.id = up.assigned_by
WHERE up.user_id = $1
ORDER BY p.name`
	var items []models.UserPermissionDetail
	if err := sqlx.SelectContext(ctx, r.db, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list user permissions: %w", err)
	}
	return items, nil
}

// HasPermission reports whether the user holds the named permission.
func (r *PermissionRepository) HasPermission(ctx context.Context, userID, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_permissions up JOIN permissions p ON p.id = up.permission_id WHERE up.user_id = $1 AND LOWER(p.name) = LOWER($2))`
	var ok bool
	if err := sqlx.GetContext(ctx, r.db, &ok, query, userID, name); err != nil {
		return false, fmt.Errorf("check user permission: %w", err)
	}
	return ok, nil
}

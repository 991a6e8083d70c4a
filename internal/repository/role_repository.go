package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/stemkit-identity/internal/models"
)

// RoleRepository reads the role catalog and manages user-role links.
type RoleRepository struct {
	db Queryer
}

// NewRoleRepository constructs a RoleRepository.
func NewRoleRepository(db Queryer) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindByName resolves a role case-insensitively.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	const query = `SELECT id, name FROM roles WHERE LOWER(name) = LOWER($1) LIMIT 1`
	var role models.Role
	if err := sqlx.GetContext(ctx, r.db, &role, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find role by name: %w", err)
	}
	return &role, nil
}

// AssignToUser links a role to a user. The (user_id, role_id) pair is unique.
func (r *RoleRepository) AssignToUser(ctx context.Context, userID string, roleID int64) error {
	const query = `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, userID, roleID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// NamesForUser lists the role names held by a user.
func (r *RoleRepository) NamesForUser(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = $1 ORDER BY r.name`
	var names []string
	if err := sqlx.SelectContext(ctx, r.db, &names, query, userID); err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	return names, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/stemkit-identity/internal/models"
)

const userColumns = `id, username, email, password_hash, full_name, phone, address, active, external_provider, created_at, updated_at`

// UserRepository provides database access for accounts.
type UserRepository struct {
	db Queryer
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db Queryer) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return r.get(ctx, "find user by id", query, id)
}

// FindByEmail returns a user by case-insensitive email match.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	return r.get(ctx, "find user by email", query, email)
}

// FindByLogin matches either email or username, case-insensitively. An email
// match wins when both columns match different rows.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) OR LOWER(username) = LOWER($1) ORDER BY (LOWER(email) = LOWER($1)) DESC LIMIT 1`
	return r.get(ctx, "find user by login", query, login)
}

// ExistsByUsernameOrEmail reports whether either identifier is already taken.
func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($2))`
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, username, email); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	const query = `INSERT INTO users (id, username, email, password_hash, full_name, phone, address, active, external_provider, created_at, updated_at) VALUES (:id, :username, :email, :password_hash, :full_name, :phone, :address, :active, :external_provider, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// SetActive flips the account status. It reports false when the row was
// already in the requested state or does not exist.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool, updatedAt time.Time) (bool, error) {
	const query = `UPDATE users SET active = $2, updated_at = $3 WHERE id = $1 AND active <> $2`
	res, err := r.db.ExecContext(ctx, query, id, active, updatedAt)
	if err != nil {
		return false, fmt.Errorf("set user active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set user active rows: %w", err)
	}
	return affected == 1, nil
}

// IsActive returns the persisted status of a user.
func (r *UserRepository) IsActive(ctx context.Context, id string) (bool, error) {
	const query = `SELECT active FROM users WHERE id = $1`
	var active bool
	if err := sqlx.GetContext(ctx, r.db, &active, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, err
		}
		return false, fmt.Errorf("read user status: %w", err)
	}
	return active, nil
}

func (r *UserRepository) get(ctx context.Context, op, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := sqlx.GetContext(ctx, r.db, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

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

// RefreshTokenRepository persists refresh tokens. Every state transition is a
// single conditional statement so concurrent callers cannot both succeed.
type RefreshTokenRepository struct {
	db Queryer
}

// NewRefreshTokenRepository constructs a RefreshTokenRepository.
func NewRefreshTokenRepository(db Queryer) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create stores a new refresh token.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, created_at, created_by_ip, expires_at, revoked_at, revoked_by_ip, replaced_by_token) VALUES (:id, :user_id, :token, :created_at, :created_by_ip, :expires_at, :revoked_at, :revoked_by_ip, :replaced_by_token)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindByToken fetches a token by its opaque value.
func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, created_at, created_by_ip, expires_at, revoked_at, revoked_by_ip, replaced_by_token FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := sqlx.GetContext(ctx, r.db, &rt, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeIfActive marks the token revoked only if it is still active at
// revokedAt. It reports whether this call performed the transition.
func (r *RefreshTokenRepository) RevokeIfActive(ctx context.Context, token string, revokedAt time.Time, revokedByIP string, replacedBy *string) (bool, error) {
	const query = `UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3, replaced_by_token = $4 WHERE token = $1 AND revoked_at IS NULL AND expires_at > $2`
	res, err := r.db.ExecContext(ctx, query, token, revokedAt, revokedByIP, replacedBy)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token rows: %w", err)
	}
	return affected == 1, nil
}

// RevokeAllForUser revokes every active token held by a user.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string, revokedAt time.Time, revokedByIP string) (int64, error) {
	const query = `UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3 WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2`
	res, err := r.db.ExecContext(ctx, query, userID, revokedAt, revokedByIP)
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens rows: %w", err)
	}
	return affected, nil
}

// Delete removes a token row. It reports whether a row was removed.
func (r *RefreshTokenRepository) Delete(ctx context.Context, token string) (bool, error) {
	const query = `DELETE FROM refresh_tokens WHERE token = $1`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("delete refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete refresh token rows: %w", err)
	}
	return affected == 1, nil
}

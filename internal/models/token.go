package models

import "time"

// RefreshToken represents a persisted refresh token. A token is active while it
// is neither revoked nor past its expiry.
type RefreshToken struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"user_id"`
	Token           string     `db:"token" json:"-"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	CreatedByIP     string     `db:"created_by_ip" json:"created_by_ip"`
	ExpiresAt       time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt       *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokedByIP     *string    `db:"revoked_by_ip" json:"revoked_by_ip,omitempty"`
	ReplacedByToken *string    `db:"replaced_by_token" json:"-"`
}

// IsRevoked reports whether the token was terminated before expiry.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired reports whether now is at or past the expiry.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token can still be exchanged.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}

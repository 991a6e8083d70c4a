package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SystemActor marks revocations performed by the platform rather than a client.
const SystemActor = "system"

// RegisterRequest creates a local account.
type RegisterRequest struct {
	Username string  `json:"username" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	Role     string  `json:"role"`
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	IP       string  `json:"-"`
}

// LoginRequest holds local credentials.
type LoginRequest struct {
	EmailOrUsername string `json:"email_or_username" validate:"required"`
	Password        string `json:"password" validate:"required"`
	IP              string `json:"-"`
}

// ExternalLoginRequest carries a third-party identity assertion.
type ExternalLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
	IP      string `json:"-"`
}

// RefreshTokenRequest exchanges a refresh token for a new pair.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
}

// LogoutRequest terminates one session.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
}

// AuthResult is returned by every flow that issues a token pair.
type AuthResult struct {
	Success               bool      `json:"success"`
	Message               string    `json:"message"`
	AccessToken           string    `json:"access_token,omitempty"`
	RefreshToken          string    `json:"refresh_token,omitempty"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at,omitempty"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at,omitempty"`
	User                  *UserInfo `json:"user,omitempty"`
}

// ActionResult is returned by flows that do not issue tokens.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// AccessClaims is the payload of a signed access token. Account status is
// deliberately absent: it is re-read on every request.
type AccessClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthenticatedIdentity is the verified caller handed from transport to services.
type AuthenticatedIdentity struct {
	UserID string
	Roles  []string
	IP     string
}

// HasRole reports whether the identity carries role (case-insensitive).
func (i AuthenticatedIdentity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// ExternalIdentity is the verified content of a third-party assertion.
type ExternalIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

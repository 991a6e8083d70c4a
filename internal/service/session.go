package service

import (
	"context"
	"strings"
	"time"

	"github.com/noah-isme/stemkit-identity/internal/models"
)

// Components bundles the collaborators shared by the identity flows.
type Components struct {
	Stores      Stores
	Runner      TxRunner
	Hasher      *PasswordHasher
	Signer      AccessTokenIssuer
	Ledger      *RefreshTokenLedger
	Permissions *PermissionService
	Status      *UserStatusService
	Audit       *AuditService
	Metrics     *MetricsService
	Clock       Clock
}

func (c Components) clock() Clock {
	if c.Clock == nil {
		return systemClock
	}
	return c.Clock
}

// issueSession signs an access token for user and persists a new refresh
// token through ledger.
func issueSession(ctx context.Context, signer AccessTokenIssuer, ledger *RefreshTokenLedger, user *models.User, roles []string, ip, message string) (*models.AuthResult, error) {
	accessToken, accessExpires, err := signer.IssueAccessToken(user.ID, roles)
	if err != nil {
		return nil, err
	}
	refresh, err := ledger.Issue(ctx, user.ID, ip)
	if err != nil {
		return nil, err
	}
	return newAuthResult(user, roles, accessToken, accessExpires, refresh, message), nil
}

func newAuthResult(user *models.User, roles []string, accessToken string, accessExpires time.Time, refresh *models.RefreshToken, message string) *models.AuthResult {
	return &models.AuthResult{
		Success:               true,
		Message:               message,
		AccessToken:           accessToken,
		RefreshToken:          refresh.Token,
		AccessTokenExpiresAt:  accessExpires,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
		User: &models.UserInfo{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Roles:    roles,
		},
	}
}

func isBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

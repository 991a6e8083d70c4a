package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

// SessionService exchanges refresh tokens for new token pairs.
type SessionService struct {
	c      Components
	logger *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(c Components, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{c: c, logger: logger}
}

// Refresh rotates presented and returns a new token pair. Expired, revoked and
// unknown tokens are indistinguishable to the caller.
func (s *SessionService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (result *models.AuthResult, err error) {
	defer func() { s.c.Metrics.RecordAuthOperation(OperationRefresh, err) }()

	presented := strings.TrimSpace(req.RefreshToken)
	if presented == "" {
		return nil, appErrors.ErrInvalidToken
	}

	current, err := s.c.Ledger.GetActive(ctx, presented)
	if err != nil {
		return nil, s.fail(err)
	}

	user, err := s.c.Stores.Users.FindByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("refresh token owner missing", zap.String("token_id", current.ID))
			return nil, appErrors.ErrInvalidToken
		}
		return nil, s.fail(err)
	}
	if !user.Active {
		s.logger.Info("refresh rejected for inactive user", zap.String("user_id", user.ID))
		return nil, appErrors.ErrInvalidToken
	}

	roles, err := s.c.Stores.Roles.NamesForUser(ctx, user.ID)
	if err != nil {
		return nil, s.fail(err)
	}
	accessToken, accessExpires, err := s.c.Signer.IssueAccessToken(user.ID, roles)
	if err != nil {
		return nil, s.fail(err)
	}

	_, next, err := s.c.Ledger.Rotate(ctx, current, req.IP)
	if err != nil {
		return nil, s.fail(err)
	}

	s.c.Audit.Record(models.AuditActionRefresh, user.ID, user.ID, req.IP, nil)
	return newAuthResult(user, roles, accessToken, accessExpires, next, "Token refreshed"), nil
}

func (s *SessionService) fail(err error) error {
	if isTerminalTokenError(err) {
		s.logger.Info("refresh token rejected", zap.String("reason", err.Error()))
		return appErrors.ErrInvalidToken
	}
	s.logger.Error("token refresh failed", zap.Error(err))
	return appErrors.Opaque(err, appErrors.ErrRefreshFailed)
}

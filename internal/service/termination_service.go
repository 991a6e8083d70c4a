package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/stemkit-identity/internal/models"
	"github.com/noah-isme/stemkit-identity/pkg/config"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

// TerminationService ends sessions: logout of one token, and ban/unban of an
// account.
type TerminationService struct {
	c          Components
	logoutMode string
	logger     *zap.Logger
}

// NewTerminationService constructs a TerminationService. logoutMode is either
// config.LogoutModeRevoke or config.LogoutModeDelete.
func NewTerminationService(c Components, logoutMode string, logger *zap.Logger) *TerminationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if logoutMode != config.LogoutModeDelete {
		logoutMode = config.LogoutModeRevoke
	}
	return &TerminationService{c: c, logoutMode: logoutMode, logger: logger}
}

// Logout terminates the session behind token.
func (s *TerminationService) Logout(ctx context.Context, req models.LogoutRequest) (result *models.ActionResult, err error) {
	defer func() { s.c.Metrics.RecordAuthOperation(OperationLogout, err) }()

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		return nil, appErrors.ErrInvalidToken
	}

	var ended *models.RefreshToken
	if s.logoutMode == config.LogoutModeDelete {
		ended, err = s.c.Ledger.Delete(ctx, token)
	} else {
		ended, err = s.c.Ledger.Revoke(ctx, token, req.IP)
	}
	if err != nil {
		if errors.Is(err, errRefreshTokenNotFound) {
			return nil, appErrors.ErrInvalidToken
		}
		s.logger.Error("logout failed", zap.Error(err))
		return nil, appErrors.Opaque(err, appErrors.ErrLogoutFailed)
	}

	s.c.Audit.Record(models.AuditActionLogout, ended.UserID, ended.UserID, req.IP, map[string]string{"mode": s.logoutMode})
	return &models.ActionResult{Success: true, Message: "Logged out successfully"}, nil
}

// BanUser deactivates userID and revokes every active refresh token it holds.
func (s *TerminationService) BanUser(ctx context.Context, userID string, actor models.AuthenticatedIdentity) (result *models.ActionResult, err error) {
	defer func() { s.c.Metrics.RecordAuthOperation(OperationBan, err) }()

	if strings.TrimSpace(userID) == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "user id is required")
	}

	var revoked int64
	err = s.c.Runner.WithinTx(ctx, func(st Stores) error {
		if err := s.setActive(ctx, st, userID, false); err != nil {
			return err
		}
		var err error
		revoked, err = s.c.Ledger.WithStore(st.RefreshTokens).RevokeAllForUser(ctx, userID, revokedBy(actor))
		return err
	})
	if err != nil {
		return nil, s.fail("ban user failed", userID, err)
	}

	s.c.Status.Invalidate(ctx, userID)
	s.c.Audit.Record(models.AuditActionBan, userID, actor.UserID, actor.IP, nil)
	s.logger.Info("user banned", zap.String("user_id", userID), zap.String("actor_id", actor.UserID), zap.Int64("revoked_tokens", revoked))
	return &models.ActionResult{Success: true, Message: "User has been banned"}, nil
}

// UnbanUser reactivates userID. Revoked tokens stay revoked.
func (s *TerminationService) UnbanUser(ctx context.Context, userID string, actor models.AuthenticatedIdentity) (result *models.ActionResult, err error) {
	defer func() { s.c.Metrics.RecordAuthOperation(OperationUnban, err) }()

	if strings.TrimSpace(userID) == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "user id is required")
	}

	err = s.c.Runner.WithinTx(ctx, func(st Stores) error {
		return s.setActive(ctx, st, userID, true)
	})
	if err != nil {
		return nil, s.fail("unban user failed", userID, err)
	}

	s.c.Status.Invalidate(ctx, userID)
	s.c.Audit.Record(models.AuditActionUnban, userID, actor.UserID, actor.IP, nil)
	s.logger.Info("user unbanned", zap.String("user_id", userID), zap.String("actor_id", actor.UserID))
	return &models.ActionResult{Success: true, Message: "User has been unbanned"}, nil
}

func (s *TerminationService) setActive(ctx context.Context, st Stores, userID string, active bool) error {
	conflict := appErrors.ErrAlreadyBanned
	if active {
		conflict = appErrors.ErrNotBanned
	}

	user, err := st.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrUserNotFound
		}
		return err
	}
	if user.Active == active {
		return conflict
	}

	changed, err := st.Users.SetActive(ctx, userID, active, s.c.clock()())
	if err != nil {
		return err
	}
	if !changed {
		return conflict
	}
	return nil
}

func revokedBy(actor models.AuthenticatedIdentity) string {
	if ip := strings.TrimSpace(actor.IP); ip != "" {
		return ip
	}
	return models.SystemActor
}

func (s *TerminationService) fail(msg, userID string, err error) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	s.logger.Error(msg, zap.String("user_id", userID), zap.Error(err))
	return appErrors.Opaque(err, appErrors.ErrInternal)
}

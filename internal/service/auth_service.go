package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

const invalidCredentialsMessage = "invalid username/email or password"

// AuthService provides password authentication.
type AuthService struct {
	c         Components
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(c Components, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{c: c, validator: validate, logger: logger}
}

// Login authenticates a user and returns issued tokens. Unknown users and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (result *models.AuthResult, err error) {
	defer func() { s.c.Metrics.RecordAuthOperation(OperationLogin, err) }()

	req.EmailOrUsername = strings.TrimSpace(req.EmailOrUsername)
	if isBlank(req.EmailOrUsername, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "email or username and password are required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid login payload")
	}

	user, err := s.c.Stores.Users.FindByLogin(ctx, req.EmailOrUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.c.Hasher.Burn(req.Password)
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, invalidCredentialsMessage)
		}
		return nil, s.fail("failed to fetch user", err)
	}

	if !user.HasLocalPassword() {
		return nil, appErrors.ErrPasswordLoginUnavailable
	}

	ok, err := s.c.Hasher.Verify(req.Password, *user.PasswordHash)
	if err != nil {
		return nil, s.fail("stored password hash is unreadable", err)
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, invalidCredentialsMessage)
	}

	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	roles, err := s.c.Stores.Roles.NamesForUser(ctx, user.ID)
	if err != nil {
		return nil, s.fail("failed to load user roles", err)
	}

	result, err = issueSession(ctx, s.c.Signer, s.c.Ledger, user, roles, req.IP, "Login successful")
	if err != nil {
		return nil, s.fail("failed to issue session", err)
	}

	assignPermissions(ctx, s.c.Permissions, s.logger, user.ID, roles)
	s.c.Audit.Record(models.AuditActionLogin, user.ID, user.ID, req.IP, nil)
	return result, nil
}

// fail reports every unexpected fault, connectivity included, as LOGIN_FAILED.
func (s *AuthService) fail(msg string, err error) error {
	s.logger.Error(msg, zap.Bool("transient", appErrors.IsTransient(err)), zap.Error(err))
	var typed *appErrors.Error
	if errors.As(err, &typed) && typed.Status < 500 {
		return typed
	}
	return appErrors.Wrap(err, appErrors.ErrLoginFailed.Code, appErrors.ErrLoginFailed.Status, appErrors.ErrLoginFailed.Message)
}

func assignPermissions(ctx context.Context, permissions *PermissionService, logger *zap.Logger, userID string, roles []string) {
	if permissions == nil {
		return
	}
	if _, err := permissions.AssignMissing(ctx, userID, roles); err != nil {
		logger.Warn("failed to assign missing permissions", zap.String("user_id", userID), zap.Error(err))
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

// RegistrationService creates local accounts.
type RegistrationService struct {
	c         Components
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(c Components, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RegistrationService{c: c, validator: validate, logger: logger}
}

// Register creates the user, its role link and role profile, and an initial
// token pair in one transaction. Nothing is persisted when any step fails.
func (s *RegistrationService) Register(ctx context.Context, req models.RegisterRequest) (result *models.AuthResult, err error) {
	defer func() { s.c.Metrics.RecordAuthOperation(OperationRegister, err) }()

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if isBlank(req.Username, req.Email, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "username, email and password are required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid registration payload")
	}

	hash, err := s.c.Hasher.Hash(req.Password)
	if err != nil {
		return nil, s.fail(req, err)
	}

	now := s.c.clock()()
	err = s.c.Runner.WithinTx(ctx, func(st Stores) error {
		exists, err := st.Users.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
		if err != nil {
			return err
		}
		if exists {
			return appErrors.ErrAlreadyExists
		}

		roleName, ok := models.CanonicalSelfRegistrableRole(req.Role)
		if !ok {
			return appErrors.ErrInvalidRole
		}
		role, err := st.Roles.FindByName(ctx, roleName)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.ErrRoleNotFound
			}
			return err
		}

		user := &models.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: &hash,
			FullName:     req.FullName,
			Phone:        req.Phone,
			Address:      req.Address,
			Active:       true,
			CreatedAt:    now,
		}
		if err := st.Users.Create(ctx, user); err != nil {
			return err
		}
		if err := st.Roles.AssignToUser(ctx, user.ID, role.ID); err != nil {
			return err
		}
		if err := createProfile(ctx, st.Profiles, roleName, user.ID, now); err != nil {
			return err
		}

		roles := []string{role.Name}
		result, err = issueSession(ctx, s.c.Signer, s.c.Ledger.WithStore(st.RefreshTokens), user, roles, req.IP, "Registration successful")
		return err
	})
	if err != nil {
		return nil, s.fail(req, err)
	}

	s.c.Audit.Record(models.AuditActionRegister, result.User.ID, result.User.ID, req.IP, map[string]string{"role": result.User.Roles[0]})
	s.logger.Info("user registered", zap.String("user_id", result.User.ID), zap.String("role", result.User.Roles[0]))
	return result, nil
}

func (s *RegistrationService) fail(req models.RegisterRequest, err error) error {
	if appErrors.IsUniqueViolation(err) {
		return appErrors.ErrAlreadyExists
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	s.logger.Error("registration failed", zap.String("username", req.Username), zap.Error(err))
	return appErrors.Opaque(err, appErrors.ErrRegistrationFailed)
}

func createProfile(ctx context.Context, profiles ProfileStore, role, userID string, now time.Time) error {
	switch role {
	case models.RoleCustomer:
		return profiles.CreateCustomer(ctx, &models.CustomerProfile{UserID: userID, RegistrationDate: now})
	case models.RoleStaff:
		return profiles.CreateStaff(ctx, &models.StaffProfile{UserID: userID})
	default:
		return nil
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

// AssertionVerifier validates a third-party identity assertion.
type AssertionVerifier interface {
	Verify(ctx context.Context, assertion string) (*models.ExternalIdentity, error)
}

// OIDCVerifier validates OpenID Connect ID tokens against the issuer's keys.
type OIDCVerifier struct {
	provider string
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers issuer and builds a verifier bound to clientID.
func NewOIDCVerifier(ctx context.Context, provider, issuer, clientID string) (*OIDCVerifier, error) {
	discovered, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", issuer, err)
	}
	return &OIDCVerifier{
		provider: provider,
		verifier: discovered.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// NewOIDCVerifierWithKeys builds a verifier over a fixed key set.
func NewOIDCVerifierWithKeys(provider, issuer, clientID string, keys oidc.KeySet, now func() time.Time) *OIDCVerifier {
	return &OIDCVerifier{
		provider: provider,
		verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: clientID, Now: now}),
	}
}

type externalClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
}

// Verify checks signature, issuer, audience and expiry, and requires an email claim.
func (v *OIDCVerifier) Verify(ctx context.Context, assertion string) (*models.ExternalIdentity, error) {
	token, err := v.verifier.Verify(ctx, assertion)
	if err != nil {
		return nil, err
	}
	var claims externalClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, errors.New("assertion has no email claim")
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, errors.New("assertion email is not verified")
	}
	return &models.ExternalIdentity{
		Provider: v.provider,
		Subject:  token.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
	}, nil
}

// ExternalIdentityService signs users in with a third-party assertion.
type ExternalIdentityService struct {
	c        Components
	verifier AssertionVerifier
	logger   *zap.Logger
}

// NewExternalIdentityService constructs an ExternalIdentityService.
func NewExternalIdentityService(c Components, verifier AssertionVerifier, logger *zap.Logger) *ExternalIdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExternalIdentityService{c: c, verifier: verifier, logger: logger}
}

// Login maps the assertion to a local user, creating a Customer account on
// first sight, and issues a token pair.
func (s *ExternalIdentityService) Login(ctx context.Context, req models.ExternalLoginRequest) (result *models.AuthResult, err error) {
	defer func() { s.c.Metrics.RecordAuthOperation(OperationExternalLogin, err) }()

	if strings.TrimSpace(req.IDToken) == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "id token is required")
	}
	if s.verifier == nil {
		return nil, appErrors.Clone(appErrors.ErrLoginFailed, "external login is not enabled")
	}

	identity, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		s.logger.Info("external assertion rejected", zap.Error(err))
		return nil, appErrors.ErrInvalidExternalToken
	}

	user, created, err := s.resolveUser(ctx, identity)
	if err != nil {
		return nil, s.fail("failed to resolve external user", err)
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
	s.c.Audit.Record(models.AuditActionExternalLogin, user.ID, user.ID, req.IP, map[string]string{
		"provider": identity.Provider,
		"created":  fmt.Sprintf("%t", created),
	})
	return result, nil
}

func (s *ExternalIdentityService) resolveUser(ctx context.Context, identity *models.ExternalIdentity) (*models.User, bool, error) {
	user, err := s.c.Stores.Users.FindByEmail(ctx, identity.Email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	user, err = s.createUser(ctx, identity)
	if err != nil {
		if appErrors.IsUniqueViolation(err) {
			// Lost a race with a concurrent first login for the same email.
			user, err = s.c.Stores.Users.FindByEmail(ctx, identity.Email)
			return user, false, err
		}
		return nil, false, err
	}
	s.logger.Info("external user created", zap.String("user_id", user.ID), zap.String("provider", identity.Provider))
	return user, true, nil
}

func (s *ExternalIdentityService) createUser(ctx context.Context, identity *models.ExternalIdentity) (*models.User, error) {
	now := s.c.clock()()
	provider := identity.Provider
	user := &models.User{
		Username:         identity.Email,
		Email:            identity.Email,
		Active:           true,
		ExternalProvider: &provider,
		CreatedAt:        now,
	}
	if name := strings.TrimSpace(identity.Name); name != "" {
		user.FullName = &name
	}

	err := s.c.Runner.WithinTx(ctx, func(st Stores) error {
		role, err := st.Roles.FindByName(ctx, models.RoleCustomer)
		if err != nil {
			return err
		}
		if err := st.Users.Create(ctx, user); err != nil {
			return err
		}
		if err := st.Roles.AssignToUser(ctx, user.ID, role.ID); err != nil {
			return err
		}
		return createProfile(ctx, st.Profiles, models.RoleCustomer, user.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *ExternalIdentityService) fail(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	var typed *appErrors.Error
	if errors.As(err, &typed) && typed.Status < 500 {
		return typed
	}
	return appErrors.Wrap(err, appErrors.ErrLoginFailed.Code, appErrors.ErrLoginFailed.Status, appErrors.ErrLoginFailed.Message)
}

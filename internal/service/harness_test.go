package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/stemkit-identity/internal/models"
	"github.com/noah-isme/stemkit-identity/pkg/config"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "stemkit"
	testAudience = "stemkit-clients"
)

type harness struct {
	store   *memStore
	clock   *fixedClock
	signer  *TokenSigner
	metrics *MetricsService
	c       Components

	registration *RegistrationService
	auth         *AuthService
	sessions     *SessionService
	termination  *TerminationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithMode(t, config.LogoutModeRevoke)
}

func newHarnessWithMode(t *testing.T, logoutMode string) *harness {
	t.Helper()
	store := newMemStore()
	clock := newFixedClock()

	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	signer, err := NewTokenSigner(TokenSignerConfig{Secret: testSecret, Issuer: testIssuer, Audience: testAudience}, clock.Now)
	require.NoError(t, err)

	metrics := NewMetricsService()
	c := Components{
		Stores:      store.stores(),
		Runner:      store,
		Hasher:      hasher,
		Signer:      signer,
		Ledger:      NewRefreshTokenLedger(memTokens{store}, store, DefaultRefreshTokenTTL, clock.Now),
		Permissions: NewPermissionService(memPermissions{store}, nil, clock.Now),
		Status:      NewUserStatusService(store, nil, 0, metrics, nil),
		Metrics:     metrics,
		Clock:       clock.Now,
	}

	return &harness{
		store:        store,
		clock:        clock,
		signer:       signer,
		metrics:      metrics,
		c:            c,
		registration: NewRegistrationService(c, nil, nil),
		auth:         NewAuthService(c, nil, nil),
		sessions:     NewSessionService(c, nil),
		termination:  NewTerminationService(c, logoutMode, nil),
	}
}

func (h *harness) register(t *testing.T, username, email, password, role string) *models.AuthResult {
	t.Helper()
	res, err := h.registration.Register(context.Background(), models.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
		Role:     role,
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)
	return res
}

func (h *harness) seedExternalUser(t *testing.T, email string) *models.User {
	t.Helper()
	provider := "Google"
	user := &models.User{Username: email, Email: email, Active: true, ExternalProvider: &provider, CreatedAt: h.clock.Now()}
	require.NoError(t, h.store.Create(context.Background(), user))
	require.NoError(t, memRoles{h.store}.AssignToUser(context.Background(), user.ID, 1))
	return user
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
}

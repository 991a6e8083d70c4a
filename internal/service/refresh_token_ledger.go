package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

const (
	// DefaultRefreshTokenTTL is the lifetime of a refresh token.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	refreshTokenBytes = 32
)

var (
	errRefreshTokenNotFound = errors.New("refresh token not found")
	errRefreshTokenExpired  = errors.New("refresh token expired")
	errRefreshTokenRevoked  = errors.New("refresh token revoked")
	errRefreshTokenInactive = errors.New("refresh token no longer active")
)

// isTerminalTokenError reports whether err describes a token the caller can
// no longer use.
func isTerminalTokenError(err error) bool {
	return errors.Is(err, errRefreshTokenNotFound) ||
		errors.Is(err, errRefreshTokenExpired) ||
		errors.Is(err, errRefreshTokenRevoked) ||
		errors.Is(err, errRefreshTokenInactive)
}

// RefreshTokenLedger owns the refresh token lifecycle.
type RefreshTokenLedger struct {
	store  RefreshTokenStore
	runner TxRunner
	ttl    time.Duration
	now    Clock
}

// NewRefreshTokenLedger constructs a ledger. runner may be nil, in which case
// rotation runs directly against store.
func NewRefreshTokenLedger(store RefreshTokenStore, runner TxRunner, ttl time.Duration, clock Clock) *RefreshTokenLedger {
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}
	if clock == nil {
		clock = systemClock
	}
	return &RefreshTokenLedger{store: store, runner: runner, ttl: ttl, now: clock}
}

// WithStore returns a copy of the ledger bound to store, for use inside an
// enclosing transaction.
func (l *RefreshTokenLedger) WithStore(store RefreshTokenStore) *RefreshTokenLedger {
	clone := *l
	clone.store = store
	clone.runner = nil
	return &clone
}

// Issue creates and persists a new refresh token for userID.
func (l *RefreshTokenLedger) Issue(ctx context.Context, userID, createdByIP string) (*models.RefreshToken, error) {
	token, err := l.newToken(userID, createdByIP)
	if err != nil {
		return nil, err
	}
	if err := l.store.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// GetActive returns the token only while it is neither revoked nor expired.
func (l *RefreshTokenLedger) GetActive(ctx context.Context, value string) (*models.RefreshToken, error) {
	token, err := l.find(ctx, value)
	if err != nil {
		return nil, err
	}
	if token.IsRevoked() {
		return nil, errRefreshTokenRevoked
	}
	if token.IsExpired(l.now()) {
		return nil, errRefreshTokenExpired
	}
	return token, nil
}

// Rotate revokes old and persists its successor in one transaction. The
// revoke is conditional, so of two concurrent rotations of the same token only
// one succeeds; the other gets errRefreshTokenInactive.
func (l *RefreshTokenLedger) Rotate(ctx context.Context, old *models.RefreshToken, createdByIP string) (*models.RefreshToken, *models.RefreshToken, error) {
	next, err := l.newToken(old.UserID, createdByIP)
	if err != nil {
		return nil, nil, err
	}
	revokedAt := next.CreatedAt

	err = l.within(ctx, func(store RefreshTokenStore) error {
		ok, err := store.RevokeIfActive(ctx, old.Token, revokedAt, createdByIP, &next.Token)
		if err != nil {
			return err
		}
		if !ok {
			return errRefreshTokenInactive
		}
		return store.Create(ctx, next)
	})
	if err != nil {
		return nil, nil, err
	}

	revoked := *old
	revoked.RevokedAt = &revokedAt
	revoked.RevokedByIP = &createdByIP
	revoked.ReplacedByToken = &next.Token
	return &revoked, next, nil
}

// Revoke marks a single token revoked and returns it. A token that is already
// inactive is left as is.
func (l *RefreshTokenLedger) Revoke(ctx context.Context, value, revokedByIP string) (*models.RefreshToken, error) {
	token, err := l.find(ctx, value)
	if err != nil {
		return nil, err
	}
	now := l.now()
	if !token.IsActive(now) {
		return token, nil
	}
	ok, err := l.store.RevokeIfActive(ctx, value, now, revokedByIP, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Ended concurrently; report the stored state.
		return l.find(ctx, value)
	}
	token.RevokedAt = &now
	token.RevokedByIP = &revokedByIP
	return token, nil
}

// RevokeAllForUser revokes every active token of userID.
func (l *RefreshTokenLedger) RevokeAllForUser(ctx context.Context, userID, revokedByIP string) (int64, error) {
	return l.store.RevokeAllForUser(ctx, userID, l.now(), revokedByIP)
}

// Delete hard-removes a token row and returns what was removed.
func (l *RefreshTokenLedger) Delete(ctx context.Context, value string) (*models.RefreshToken, error) {
	token, err := l.find(ctx, value)
	if err != nil {
		return nil, err
	}
	removed, err := l.store.Delete(ctx, value)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, errRefreshTokenNotFound
	}
	return token, nil
}

func (l *RefreshTokenLedger) find(ctx context.Context, value string) (*models.RefreshToken, error) {
	token, err := l.store.FindByToken(ctx, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errRefreshTokenNotFound
		}
		return nil, err
	}
	return token, nil
}

func (l *RefreshTokenLedger) within(ctx context.Context, fn func(RefreshTokenStore) error) error {
	if l.runner == nil {
		return fn(l.store)
	}
	return l.runner.WithinTx(ctx, func(st Stores) error {
		return fn(st.RefreshTokens)
	})
}

func (l *RefreshTokenLedger) newToken(userID, createdByIP string) (*models.RefreshToken, error) {
	if strings.TrimSpace(createdByIP) == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "ip address is required to issue a refresh token")
	}
	value, err := randomToken()
	if err != nil {
		return nil, err
	}
	now := l.now()
	return &models.RefreshToken{
		ID:          uuid.NewString(),
		UserID:      userID,
		Token:       value,
		CreatedAt:   now,
		CreatedByIP: createdByIP,
		ExpiresAt:   now.Add(l.ttl),
	}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

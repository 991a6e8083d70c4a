package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

func newTestLedger() (*RefreshTokenLedger, *memStore, *fixedClock) {
	store := newMemStore()
	clock := newFixedClock()
	return NewRefreshTokenLedger(memTokens{store}, store, 0, clock.Now), store, clock
}

func TestLedgerIssue(t *testing.T) {
	ledger, _, clock := newTestLedger()

	token, err := ledger.Issue(context.Background(), "u1", "10.0.0.1")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token.Token)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.Equal(t, clock.Now().Add(7*24*time.Hour), token.ExpiresAt)
	assert.Equal(t, "10.0.0.1", token.CreatedByIP)
	assert.Nil(t, token.RevokedAt)
}

func TestLedgerIssueRequiresIP(t *testing.T) {
	ledger, _, _ := newTestLedger()

	_, err := ledger.Issue(context.Background(), "u1", "  ")
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)
}

func TestLedgerRotateRoundTrip(t *testing.T) {
	ledger, _, _ := newTestLedger()
	ctx := context.Background()

	tokenA, err := ledger.Issue(ctx, "u1", "10.0.0.1")
	require.NoError(t, err)

	revoked, tokenB, err := ledger.Rotate(ctx, tokenA, "10.0.0.2")
	require.NoError(t, err)
	require.NotNil(t, revoked.ReplacedByToken)
	assert.Equal(t, tokenB.Token, *revoked.ReplacedByToken)
	assert.Equal(t, "10.0.0.2", *revoked.RevokedByIP)
	assert.NotEqual(t, tokenA.Token, tokenB.Token)

	_, err = ledger.GetActive(ctx, tokenA.Token)
	assert.ErrorIs(t, err, errRefreshTokenRevoked)

	active, err := ledger.GetActive(ctx, tokenB.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", active.UserID)

	_, _, err = ledger.Rotate(ctx, tokenA, "10.0.0.3")
	assert.ErrorIs(t, err, errRefreshTokenInactive)
}

func TestLedgerRotateFailureKeepsOldTokenActive(t *testing.T) {
	ledger, store, _ := newTestLedger()
	ctx := context.Background()

	tokenA, err := ledger.Issue(ctx, "u1", "10.0.0.1")
	require.NoError(t, err)

	store.failOn("tokens.Create", assert.AnError)
	_, _, err = ledger.Rotate(ctx, tokenA, "10.0.0.2")
	require.Error(t, err)

	_, err = ledger.GetActive(ctx, tokenA.Token)
	assert.NoError(t, err)
	assert.Len(t, store.tokensFor("u1"), 1)
}

func TestLedgerGetActiveExpired(t *testing.T) {
	ledger, _, clock := newTestLedger()
	ctx := context.Background()

	token, err := ledger.Issue(ctx, "u1", "10.0.0.1")
	require.NoError(t, err)

	clock.Advance(7 * 24 * time.Hour)
	_, err = ledger.GetActive(ctx, token.Token)
	assert.ErrorIs(t, err, errRefreshTokenExpired)

	_, _, err = ledger.Rotate(ctx, token, "10.0.0.1")
	assert.ErrorIs(t, err, errRefreshTokenInactive)
}

func TestLedgerGetActiveUnknown(t *testing.T) {
	ledger, _, _ := newTestLedger()

	_, err := ledger.GetActive(context.Background(), "missing")
	assert.ErrorIs(t, err, errRefreshTokenNotFound)
}

func TestLedgerRevokeAllForUser(t *testing.T) {
	ledger, store, _ := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := ledger.Issue(ctx, "u1", "10.0.0.1")
		require.NoError(t, err)
	}
	_, err := ledger.Issue(ctx, "u2", "10.0.0.1")
	require.NoError(t, err)

	n, err := ledger.RevokeAllForUser(ctx, "u1", models.SystemActor)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	for _, token := range store.tokensFor("u1") {
		require.NotNil(t, token.RevokedByIP)
		assert.Equal(t, models.SystemActor, *token.RevokedByIP)
	}
	for _, token := range store.tokensFor("u2") {
		assert.Nil(t, token.RevokedAt)
	}
}

func TestLedgerRevokeAndDelete(t *testing.T) {
	ledger, store, _ := newTestLedger()
	ctx := context.Background()

	first, err := ledger.Issue(ctx, "u1", "10.0.0.1")
	require.NoError(t, err)
	second, err := ledger.Issue(ctx, "u1", "10.0.0.1")
	require.NoError(t, err)

	revoked, err := ledger.Revoke(ctx, first.Token, "10.0.0.9")
	require.NoError(t, err)
	require.NotNil(t, revoked.RevokedAt)

	_, err = ledger.Revoke(ctx, first.Token, "10.0.0.9")
	assert.NoError(t, err)

	deleted, err := ledger.Delete(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, second.Token, deleted.Token)
	assert.Len(t, store.tokensFor("u1"), 1)

	_, err = ledger.Delete(ctx, second.Token)
	assert.ErrorIs(t, err, errRefreshTokenNotFound)
}

type rotatedDuringRevoke struct {
	memTokens
	rotate func()
}

func (r rotatedDuringRevoke) RevokeIfActive(ctx context.Context, token string, revokedAt time.Time, revokedByIP string, replacedBy *string) (bool, error) {
	r.rotate()
	return r.memTokens.RevokeIfActive(ctx, token, revokedAt, revokedByIP, replacedBy)
}

func TestLedgerRevokeReportsConcurrentRotation(t *testing.T) {
	ledger, store, _ := newTestLedger()
	ctx := context.Background()

	issued, err := ledger.Issue(ctx, "u1", "10.0.0.1")
	require.NoError(t, err)

	racing := ledger.WithStore(rotatedDuringRevoke{
		memTokens: memTokens{store},
		rotate: func() {
			_, _, err := ledger.Rotate(ctx, issued, "10.0.0.2")
			require.NoError(t, err)
		},
	})

	revoked, err := racing.Revoke(ctx, issued.Token, "10.0.0.9")
	require.NoError(t, err)
	require.NotNil(t, revoked.RevokedByIP)
	assert.Equal(t, "10.0.0.2", *revoked.RevokedByIP)
	assert.NotNil(t, revoked.ReplacedByToken)
}

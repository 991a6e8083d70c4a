package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

func TestAssignMissingGrantsOnlyMatchingPermissions(t *testing.T) {
	h := newHarness(t)
	fullName := "Alice Doe"
	registered, err := h.registration.Register(context.Background(), models.RegisterRequest{
		Username: "alice", Email: "alice@x.com", Password: "Secr3t!", Role: "Customer", FullName: &fullName, IP: "10.0.0.1",
	})
	require.NoError(t, err)
	svc := h.c.Permissions

	granted, err := svc.AssignMissing(context.Background(), registered.User.ID, []string{"customer", "Unknown"})
	require.NoError(t, err)
	assert.Equal(t, 1, granted)

	granted, err = svc.AssignMissing(context.Background(), registered.User.ID, []string{"Customer"})
	require.NoError(t, err)
	assert.Zero(t, granted)

	items, err := svc.ListForUser(context.Background(), registered.User.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.RoleCustomer, items[0].PermissionName)
	require.NotNil(t, items[0].AssignedBy)
	assert.Equal(t, "Alice Doe", *items[0].AssignedBy)

	ok, err := svc.HasPermission(context.Background(), registered.User.ID, "CUSTOMER")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListForUserEmpty(t *testing.T) {
	h := newHarness(t)

	items, err := h.c.Permissions.ListForUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = h.c.Permissions.ListForUser(context.Background(), "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)
}

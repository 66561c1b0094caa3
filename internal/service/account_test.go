package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamau/tokenvault/internal/domain"
	"github.com/mkamau/tokenvault/internal/repository"
	"github.com/mkamau/tokenvault/internal/service"
	"github.com/mkamau/tokenvault/internal/testutil"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewAccountService(repository.NewAccountRepository(db))
	ctx := context.Background()

	created, err := svc.Register(ctx, "alice", "password123", domain.AccountRoleUser)
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Handle)
	assert.Equal(t, domain.AccountRoleUser, created.Role)
	assert.Equal(t, int64(0), created.Balance)
	assert.False(t, created.Frozen)

	authed, err := svc.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, authed.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong-password")
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Authenticate(ctx, "nobody", "password123")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRegister_HandleTaken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewAccountService(repository.NewAccountRepository(db))
	ctx := context.Background()

	_, err := svc.Register(ctx, "bob", "password123", domain.AccountRoleUser)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "bob", "otherpassword", domain.AccountRoleUser)
	require.ErrorIs(t, err, domain.ErrHandleTaken)
}

func TestRegister_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewAccountService(repository.NewAccountRepository(db))
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "password123", domain.AccountRoleUser)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.Register(ctx, "carol", "short", domain.AccountRoleUser)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestSetFrozen(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewAccountService(repository.NewAccountRepository(db))
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "dave_fr", 500)
	admin := testutil.SeedAdmin(t, db, "admin_fr")

	require.NoError(t, svc.SetFrozen(ctx, acct.ID, true, admin.ID))

	got, err := svc.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, got.Frozen)

	// Freezing twice is a no-op.
	require.NoError(t, svc.SetFrozen(ctx, acct.ID, true, admin.ID))

	require.NoError(t, svc.SetFrozen(ctx, acct.ID, false, admin.ID))
	got, err = svc.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.False(t, got.Frozen)
}

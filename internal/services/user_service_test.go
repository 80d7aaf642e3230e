package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/signup/internal/registration"
	"github.com/charlesng35/signup/pkg/crypto"
)

func TestUserServiceCreateFromFlow(t *testing.T) {
	svc, err := NewUserService(openServiceTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := svc.AccountExists(ctx, "ada@example.com")
	require.NoError(t, err)
	require.False(t, exists)

	flow := newHashedFlow(t, "Ada@Example.com", tokenSettingsAt(testNow, time.Hour))
	account, err := svc.CreateUserAndAccount(ctx, flow)
	require.NoError(t, err)
	require.NotEmpty(t, account.ID)
	require.Equal(t, "ada@example.com", account.Identifier)

	exists, err = svc.AccountExists(ctx, "ADA@example.com")
	require.NoError(t, err)
	require.True(t, exists)

	user, err := svc.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, account.ID, user.ID)
	require.True(t, user.IsActive)
	require.Equal(t, "Test", user.Attributes["name"])
	require.True(t, crypto.VerifyPassword(user.Password, "secret-pass"))
}

func TestUserServiceRejectsDuplicateAccount(t *testing.T) {
	svc, err := NewUserService(openServiceTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.CreateUserAndAccount(ctx, newHashedFlow(t, "ada@example.com", tokenSettingsAt(testNow, time.Hour)))
	require.NoError(t, err)

	_, err = svc.CreateUserAndAccount(ctx, newHashedFlow(t, "ada@example.com", tokenSettingsAt(testNow, time.Hour)))
	require.ErrorIs(t, err, registration.ErrAccountExists)
}

func TestUserServiceGetByEmailNotFound(t *testing.T) {
	svc, err := NewUserService(openServiceTestDB(t))
	require.NoError(t, err)

	_, err = svc.GetByEmail(context.Background(), "missing@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)

	exists, err := svc.AccountExists(context.Background(), "  ")
	require.NoError(t, err)
	require.False(t, exists)
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/signup/internal/models"
)

func TestTransactorRollsBackOnError(t *testing.T) {
	db := openServiceTestDB(t)
	tx, err := NewTransactor(db)
	require.NoError(t, err)
	users, err := NewUserService(db)
	require.NoError(t, err)

	boom := errors.New("abort")
	err = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := users.CreateUserAndAccount(ctx, newHashedFlow(t, "ada@example.com", tokenSettingsAt(testNow, time.Hour))); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestTransactorCommitsAndJoinsNestedCalls(t *testing.T) {
	db := openServiceTestDB(t)
	tx, err := NewTransactor(db)
	require.NoError(t, err)
	users, err := NewUserService(db)
	require.NoError(t, err)

	err = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return tx.WithinTransaction(ctx, func(inner context.Context) error {
			_, err := users.CreateUserAndAccount(inner, newHashedFlow(t, "ada@example.com", tokenSettingsAt(testNow, time.Hour)))
			return err
		})
	})
	require.NoError(t, err)

	exists, err := users.AccountExists(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestNewTransactorRequiresDB(t *testing.T) {
	_, err := NewTransactor(nil)
	require.Error(t, err)
}

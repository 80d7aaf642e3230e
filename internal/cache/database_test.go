package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/signup/internal/database/testutil"
)

func TestDatabaseStoreIncrementWithinWindow(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewDatabaseStore(db)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "ip|/api/registration", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	now = now.Add(20 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "ip|/api/registration", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 40*time.Second, ttl)

	count, _, err = store.IncrementWithTTL(ctx, "other", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestDatabaseStoreRestartsExpiredWindow(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewDatabaseStore(db)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := store.IncrementWithTTL(ctx, "key", time.Minute)
		require.NoError(t, err)
	}

	now = now.Add(time.Minute)
	count, ttl, err := store.IncrementWithTTL(ctx, "key", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)
}

func TestNewDatabaseStoreRequiresDB(t *testing.T) {
	_, err := NewDatabaseStore(nil)
	require.Error(t, err)
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewDatabaseStore(db)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, err = store.IncrementWithTTL(ctx, "short", time.Second)
	require.NoError(t, err)
	_, _, err = store.IncrementWithTTL(ctx, "long", time.Hour)
	require.NoError(t, err)

	removed, err := store.PurgeExpired(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	count, _, err := store.IncrementWithTTL(ctx, "long", time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisConfig{Address: mr.Addr(), Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestRedisStoreIncrementWithTTL(t *testing.T) {
	mr, store := newTestRedisStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "ip|/api/registration", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)
	require.True(t, mr.Exists("signup:ip|/api/registration"))

	count, ttl, err = store.IncrementWithTTL(ctx, "ip|/api/registration", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Minute)

	mr.FastForward(61 * time.Second)

	count, _, err = store.IncrementWithTTL(ctx, "ip|/api/registration", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestRedisStoreRepairsMissingExpiry(t *testing.T) {
	mr, store := newTestRedisStore(t)

	require.NoError(t, mr.Set("signup:stuck", "5"))

	count, ttl, err := store.IncrementWithTTL(context.Background(), "stuck", 30*time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 6, count)
	require.Equal(t, 30*time.Second, ttl)
	require.Equal(t, 30*time.Second, mr.TTL("signup:stuck"))
}

func TestNewRedisStoreValidation(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	require.Error(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisStore(context.Background(), RedisConfig{Address: addr, Timeout: 200 * time.Millisecond})
	require.Error(t, err)

	_, err = NewRedisStoreFromClient(nil)
	require.Error(t, err)
}

func TestRedisStorePing(t *testing.T) {
	mr, store := newTestRedisStore(t)
	require.NoError(t, store.Ping(context.Background()))

	mr.SetError("LOADING")
	require.Error(t, store.Ping(context.Background()))
}

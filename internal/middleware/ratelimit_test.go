package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/signup/internal/cache"
	"github.com/charlesng35/signup/internal/database/testutil"
)

func newLimitedRouter(store RateStore, limit int, window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(store, limit, window))
	r.POST("/api/registration", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/api/registration", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	store := NewMemoryRateStore(time.Minute)
	t.Cleanup(store.Close)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	r := newLimitedRouter(store, 2, time.Minute)

	for i := 0; i < 2; i++ {
		w := serve(r, http.MethodPost, "/api/registration")
		require.Equal(t, http.StatusCreated, w.Code)
	}
	require.Equal(t, "0", serve(r, http.MethodPost, "/api/registration").Header().Get("X-RateLimit-Remaining"))

	w := serve(r, http.MethodPost, "/api/registration")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "60", w.Header().Get("Retry-After"))
	require.Contains(t, w.Body.String(), "RATE_LIMIT")

	// Separate counters per method and route.
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/registration").Code)

	now = now.Add(time.Minute)
	require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/api/registration").Code)
}

func TestMemoryRateStoreSweep(t *testing.T) {
	store := NewMemoryRateStore(time.Hour)
	t.Cleanup(store.Close)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	_, _, err := store.Increment(context.Background(), "a", time.Second)
	require.NoError(t, err)
	now = now.Add(2 * time.Second)
	store.sweep()
	require.Empty(t, store.data)
}

func TestRateLimitWithDatabaseStore(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	backend, err := cache.NewDatabaseStore(db)
	require.NoError(t, err)
	store, err := NewCacheRateStore(backend)
	require.NoError(t, err)

	r := newLimitedRouter(store, 1, time.Minute)
	require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/api/registration").Code)
	require.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/api/registration").Code)
}

type failingRateStore struct{}

func (failingRateStore) Increment(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("unavailable")
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := newLimitedRouter(failingRateStore{}, 1, time.Minute)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/api/registration").Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	r := newLimitedRouter(nil, 1, time.Minute)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/api/registration").Code)
	}

	_, err := NewCacheRateStore(nil)
	require.Error(t, err)
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/signup/internal/app"
	testutil "github.com/charlesng35/signup/internal/database/testutil"
	"github.com/charlesng35/signup/internal/middleware"
	"github.com/charlesng35/signup/internal/monitoring"
	"github.com/charlesng35/signup/internal/registration"
)

type registrarStub struct {
	registered int
	activated  []string
	confirmed  []string
}

func (s *registrarStub) Register(_ context.Context, _ registration.LinkBuilder, input registration.RegisterInput) (*registration.RegisterResult, error) {
	s.registered++
	flow := registration.RestoreFlow(registration.FlowSnapshot{ID: "flow-1", Email: input.Email})
	return &registration.RegisterResult{Flow: flow, Validation: registration.NewResult()}, nil
}

func (s *registrarStub) ActivateAccount(_ context.Context, _ registration.LinkBuilder, token string) (registration.Outcome, error) {
	s.activated = append(s.activated, token)
	return registration.OutcomeSuccess, nil
}

func (s *registrarStub) ConfirmAccount(_ context.Context, token string) (registration.Outcome, error) {
	s.confirmed = append(s.confirmed, token)
	return registration.OutcomeTokenNotFound, nil
}

func testConfig() *app.Config {
	cfg := &app.Config{}
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"
	cfg.Email.SenderName = "Signup"
	cfg.Registration.PasswordMinLength = 8
	cfg.Registration.RateLimit = app.RateLimitConfig{Requests: 2, Window: time.Minute}
	return cfg
}

func newTestRouter(t *testing.T, cfg *app.Config, stub *registrarStub, opts ...RouterOption) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := middleware.NewMemoryRateStore(time.Minute)
	t.Cleanup(store.Close)

	router, err := NewRouter(db, cfg, stub, store, opts...)
	require.NoError(t, err)
	return router
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouterRegistrationRoutes(t *testing.T) {
	stub := &registrarStub{}
	router := newTestRouter(t, testConfig(), stub)

	rec := serve(router, http.MethodGet, "/api/registration", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var index struct {
		Data struct {
			ApplicationName   string `json:"application_name"`
			PasswordMinLength int    `json:"password_min_length"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &index))
	require.Equal(t, "Signup", index.Data.ApplicationName)
	require.Equal(t, 8, index.Data.PasswordMinLength)

	rec = serve(router, http.MethodPost, "/api/registration",
		`{"email":"ada@example.com","password":"secret-pass","password_confirmation":"secret-pass"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, stub.registered)

	rec = serve(router, http.MethodGet, "/api/registration/activate?token=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"abc"}, stub.activated)

	rec = serve(router, http.MethodGet, "/api/registration/confirm?token=xyz", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, []string{"xyz"}, stub.confirmed)
}

func TestRouterRateLimitsRegistration(t *testing.T) {
	stub := &registrarStub{}
	router := newTestRouter(t, testConfig(), stub)

	body := `{"email":"ada@example.com","password":"secret-pass","password_confirmation":"secret-pass"}`
	for i := 0; i < 2; i++ {
		rec := serve(router, http.MethodPost, "/api/registration", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := serve(router, http.MethodPost, "/api/registration", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, 2, stub.registered)

	// Only submissions are limited.
	rec = serve(router, http.MethodGet, "/api/registration", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, testConfig(), &registrarStub{})

	rec := serve(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "signup_api_latency_seconds")
}

func TestRouterReadinessChecks(t *testing.T) {
	down := monitoring.NewCheck("redis", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "refused"}
	})
	router := newTestRouter(t, testConfig(), &registrarStub{}, WithReadinessCheck(down), nil)

	rec := serve(router, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"component":"redis"`)
	require.Contains(t, rec.Body.String(), `"component":"database"`)

	rec = serve(router, http.MethodGet, "/health/live", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterMonitoringDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Monitoring.Health.Enabled = false
	cfg.Monitoring.Prometheus.Enabled = false
	router := newTestRouter(t, cfg, &registrarStub{})

	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/health", "").Code)
	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/health/ready", "").Code)
	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/metrics", "").Code)
}

func TestRouterCustomMetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Monitoring.Prometheus.Endpoint = "internal/metrics"
	router := newTestRouter(t, cfg, &registrarStub{})

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/internal/metrics", "").Code)
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t, testConfig(), &registrarStub{})

	rec := serve(router, http.MethodGet, "/api/unknown", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"success":false`)
}

func TestNewRouterValidatesDependencies(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	store := middleware.NewMemoryRateStore(0)
	t.Cleanup(store.Close)

	_, err := NewRouter(nil, testConfig(), &registrarStub{}, store)
	require.Error(t, err)
	_, err = NewRouter(db, nil, &registrarStub{}, store)
	require.Error(t, err)
	_, err = NewRouter(db, testConfig(), nil, store)
	require.Error(t, err)
	_, err = NewRouter(db, testConfig(), &registrarStub{}, nil)
	require.Error(t, err)
}

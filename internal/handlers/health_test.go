package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/signup/internal/handlers/testutil"
	"github.com/charlesng35/signup/internal/monitoring"
)

type healthBody struct {
	Status string                   `json:"status"`
	Checks []monitoring.ProbeResult `json:"checks"`
}

func TestHealthHandler(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, path := range []string{"/health", "/health/ready"} {
		resp := env.Request(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, resp.Code, path)

		var body healthBody
		testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &body)
		require.Equal(t, "up", body.Status)
		require.Len(t, body.Checks, 1)
		require.Equal(t, "database", body.Checks[0].Component)
		require.Equal(t, monitoring.StatusUp, body.Checks[0].Status)
	}

	resp := env.Request(http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestHealthHandler_DatabaseDown(t *testing.T) {
	env := testutil.NewEnv(t)

	sqlDB, err := env.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	resp := env.Request(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)

	payload := testutil.DecodeResponse(t, resp)
	require.False(t, payload.Success)
	require.Equal(t, "SERVICE_UNAVAILABLE", payload.Error.Code)

	var body healthBody
	testutil.DecodeInto(t, payload.Data, &body)
	require.Equal(t, "down", body.Status)

	resp = env.Request(http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestHealthHandler_DegradedStaysAvailable(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithReadinessCheck(monitoring.NewCheck("redis", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "redis unavailable"}
	})))

	resp := env.Request(http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body healthBody
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &body)
	require.Equal(t, "degraded", body.Status)
	require.Len(t, body.Checks, 2)
}

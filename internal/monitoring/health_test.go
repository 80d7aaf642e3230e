package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/signup/internal/monitoring"
)

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "database", report.Checks[0].Component)
	require.Equal(t, "redis", report.Checks[1].Component)

	live := manager.EvaluateLiveness(context.Background())
	require.True(t, live.Success)
	require.Equal(t, monitoring.StatusUp, live.Status)
	require.Empty(t, live.Checks)
}

func TestHealthManagerDegradedDoesNotMaskDown(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("a", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("b", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
}

func TestHealthManagerRecoversPanics(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterLiveness(monitoring.NewCheck("boom", func(context.Context) monitoring.ProbeResult {
		panic("probe exploded")
	}))
	manager.RegisterLiveness(monitoring.NewCheck("", nil))

	report := manager.EvaluateLiveness(context.Background())
	require.False(t, report.Success)
	require.Len(t, report.Checks, 1)
	require.Equal(t, "boom", report.Checks[0].Component)
	require.Equal(t, "probe exploded", report.Checks[0].Details)
}

func TestNewCheckWithoutProbe(t *testing.T) {
	t.Parallel()

	result := monitoring.NewCheck("empty", nil).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
}

func TestResultFromError(t *testing.T) {
	t.Parallel()

	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError(nil, time.Millisecond).Status)
	require.Equal(t, monitoring.StatusDown, monitoring.ResultFromError(errors.New("refused"), 0).Status)
	require.Equal(t, monitoring.StatusDegraded, monitoring.ResultFromError(context.DeadlineExceeded, 0).Status)
	require.Zero(t, monitoring.ResultFromError(nil, -time.Second).Duration)
}

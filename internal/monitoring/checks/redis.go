package checks

import (
	"context"
	"time"

	"github.com/charlesng35/signup/internal/monitoring"
)

const defaultRedisTimeout = 2 * time.Second

// RedisPinger is the part of the Redis counter store the probe needs.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis returns a readiness probe for the Redis rate limit store. A configured but
// unreachable Redis degrades readiness since requests fall back to the database.
func Redis(client RedisPinger, enabled bool, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		switch {
		case !enabled:
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "redis disabled"}
		case client == nil:
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "redis unavailable"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultRedisTimeout))
		defer cancel()

		result := monitoring.ResultFromError(client.Ping(probeCtx), time.Since(start))
		if result.Status == monitoring.StatusDown {
			result.Status = monitoring.StatusDegraded
		}
		return result
	})
}

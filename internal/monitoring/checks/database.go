package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/signup/internal/database"
	"github.com/charlesng35/signup/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database returns a readiness probe that pings the registration database.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}
		err := database.Ping(ctx, db, chooseTimeout(timeout, defaultDatabaseTimeout))
		return monitoring.ResultFromError(err, time.Since(start))
	})
}

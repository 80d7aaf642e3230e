package checks

import (
	"context"
	"time"

	"github.com/charlesng35/signup/internal/monitoring"
)

// MaintenanceReporter exposes the outcome of the most recent cleanup run.
type MaintenanceReporter interface {
	LastRun() (at time.Time, err error)
}

// Maintenance reports degraded when the last flow cleanup failed.
func Maintenance(reporter MaintenanceReporter) monitoring.Check {
	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		if reporter == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "flow cleanup disabled"}
		}

		at, err := reporter.LastRun()
		switch {
		case at.IsZero():
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "pending first run"}
		case err != nil:
			return monitoring.ProbeResult{
				Status:  monitoring.StatusDegraded,
				Details: "last run " + at.UTC().Format(time.RFC3339) + " failed: " + err.Error(),
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
}

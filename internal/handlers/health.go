package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/signup/internal/monitoring"
	"github.com/charlesng35/signup/pkg/logger"
	"github.com/charlesng35/signup/pkg/response"
)

const healthUnavailableCode = "SERVICE_UNAVAILABLE"

// HealthHandler serves liveness and readiness reports.
type HealthHandler struct {
	manager *monitoring.HealthManager
	now     func() time.Time
}

// NewHealthHandler constructs a HealthHandler around manager.
func NewHealthHandler(manager *monitoring.HealthManager) (*HealthHandler, error) {
	if manager == nil {
		return nil, errors.New("health handler: manager is required")
	}
	return &HealthHandler{manager: manager, now: time.Now}, nil
}

type healthPayload struct {
	Status    monitoring.ProbeStatus   `json:"status"`
	Checks    []monitoring.ProbeResult `json:"checks"`
	CheckedAt time.Time                `json:"checked_at"`
}

// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	h.write(c, h.manager.EvaluateLiveness(c.Request.Context()))
}

// GET /health and /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	h.write(c, h.manager.EvaluateReadiness(c.Request.Context()))
}

// write answers 503 only when a probe is down. Degraded dependencies have fallbacks.
func (h *HealthHandler) write(c *gin.Context, report monitoring.HealthReport) {
	payload := healthPayload{
		Status:    report.Status,
		Checks:    report.Checks,
		CheckedAt: h.now().UTC(),
	}

	if report.Status != monitoring.StatusDown {
		if report.Status == monitoring.StatusDegraded {
			logger.WithModule("health").Info("dependency degraded", zap.Any("checks", report.Checks))
		}
		response.Success(c, http.StatusOK, payload)
		return
	}

	logger.WithModule("health").Warn("health check failed", zap.Any("checks", report.Checks))
	c.JSON(http.StatusServiceUnavailable, response.Response{
		Success: false,
		Data:    payload,
		Error: &response.ErrorInfo{
			Code:    healthUnavailableCode,
			Message: "Service unavailable",
		},
	})
}

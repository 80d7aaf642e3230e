package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/signup/internal/app"
	"github.com/charlesng35/signup/internal/handlers"
	"github.com/charlesng35/signup/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, manager *monitoring.HealthManager) error {
	if !cfg.Monitoring.Health.Enabled {
		return nil
	}

	handler, err := handlers.NewHealthHandler(manager)
	if err != nil {
		return err
	}
	r.GET("/health", handler.Ready)
	r.GET("/health/live", handler.Live)
	r.GET("/health/ready", handler.Ready)
	return nil
}

func registerMetricsRoutes(r *gin.Engine, cfg *app.Config) {
	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}

	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}

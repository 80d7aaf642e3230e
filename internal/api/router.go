package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/signup/internal/app"
	"github.com/charlesng35/signup/internal/handlers"
	"github.com/charlesng35/signup/internal/middleware"
	"github.com/charlesng35/signup/internal/monitoring"
	"github.com/charlesng35/signup/internal/monitoring/checks"
)

const (
	registrationPrefix = "/api/registration"
	activationRoute    = "/activate"
	confirmationRoute  = "/confirm"
)

type routerOptions struct {
	readiness []monitoring.Check
}

// RouterOption customises NewRouter.
type RouterOption func(*routerOptions)

// WithReadinessCheck adds a probe to /health/ready next to the database probe.
func WithReadinessCheck(check monitoring.Check) RouterOption {
	return func(o *routerOptions) {
		o.readiness = append(o.readiness, check)
	}
}

// NewRouter builds the Gin engine, wires middleware and registers the registration routes.
func NewRouter(db *gorm.DB, cfg *app.Config, registrar handlers.Registrar, rateStore middleware.RateStore, opts ...RouterOption) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if registrar == nil {
		return nil, fmt.Errorf("registration service must be provided")
	}
	if rateStore == nil {
		return nil, fmt.Errorf("rate limit store must be provided")
	}

	var options routerOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	health := monitoring.NewHealthManager()
	health.RegisterReadiness(checks.Database(db, 0))
	for _, check := range options.readiness {
		health.RegisterReadiness(check)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	if err := registerHealthRoutes(r, cfg, health); err != nil {
		return nil, err
	}
	registerMetricsRoutes(r, cfg)

	registrationHandler, err := handlers.NewRegistrationHandler(registrar, handlers.RegistrationOptions{
		ApplicationName:   strings.TrimSpace(cfg.Email.SenderName),
		PublicBaseURL:     cfg.Registration.PublicBaseURL,
		PasswordMinLength: cfg.Registration.PasswordMinLength,
		ActivationPath:    registrationPrefix + activationRoute,
		ConfirmationPath:  registrationPrefix + confirmationRoute,
	})
	if err != nil {
		return nil, err
	}

	limit := cfg.Registration.RateLimit
	registerRegistrationRoutes(r.Group(registrationPrefix), registrationHandler,
		middleware.RateLimit(rateStore, limit.Requests, limit.Window))

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/signup/internal/api"
	"github.com/charlesng35/signup/internal/app"
	"github.com/charlesng35/signup/internal/app/maintenance"
	"github.com/charlesng35/signup/internal/cache"
	"github.com/charlesng35/signup/internal/database"
	"github.com/charlesng35/signup/internal/middleware"
	"github.com/charlesng35/signup/internal/monitoring/checks"
	"github.com/charlesng35/signup/internal/registration"
	"github.com/charlesng35/signup/internal/services"
	"github.com/charlesng35/signup/pkg/logger"
	"github.com/charlesng35/signup/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB           *gorm.DB
	Redis        *cache.RedisStore
	MemoryRate   *middleware.MemoryRateStore
	RateStore    middleware.RateStore
	Registration *registration.Service
	Cleaner      *maintenance.Cleaner
	Router       *gin.Engine
}

// bootstrapRuntime initialises the database, rate limit store, registration service and HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore, err := cache.NewDatabaseStore(stack.DB)
	if err != nil {
		log.Warn("database cache unavailable; rate limits will be tracked in memory", zap.Error(err))
		dbStore = nil
	}

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed rate limiting", zap.Error(err))
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	stack.RateStore, err = selectRateStore(stack, dbStore)
	if err != nil {
		return nil, err
	}

	stack.Registration, err = initialiseRegistration(cfg, stack.DB)
	if err != nil {
		return nil, err
	}

	if cfg.Maintenance.FlowCleanup.Enabled {
		flows, err := services.NewFlowRepository(stack.DB)
		if err != nil {
			return nil, fmt.Errorf("initialise flow repository: %w", err)
		}
		opts := []maintenance.Option{maintenance.WithSchedule(cfg.Maintenance.FlowCleanup.Schedule)}
		if dbStore != nil {
			opts = append(opts, maintenance.WithCachePurger(dbStore))
		}
		stack.Cleaner, err = maintenance.NewCleaner(flows, opts...)
		if err != nil {
			return nil, fmt.Errorf("initialise maintenance jobs: %w", err)
		}
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(stack.DB, cfg, stack.Registration, stack.RateStore, readinessChecks(cfg, stack)...)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func readinessChecks(cfg *app.Config, stack *runtimeStack) []api.RouterOption {
	var redis checks.RedisPinger
	if stack.Redis != nil {
		redis = stack.Redis
	}
	var cleaner checks.MaintenanceReporter
	if stack.Cleaner != nil {
		cleaner = stack.Cleaner
	}

	return []api.RouterOption{
		api.WithReadinessCheck(checks.Redis(redis, cfg.Cache.Redis.Enabled, cfg.Cache.Redis.Timeout)),
		api.WithReadinessCheck(checks.Maintenance(cleaner)),
	}
}

// selectRateStore prefers Redis, then the database counter table, then process memory.
func selectRateStore(stack *runtimeStack, dbStore *cache.DatabaseStore) (middleware.RateStore, error) {
	switch {
	case stack.Redis != nil:
		return middleware.NewCacheRateStore(stack.Redis)
	case dbStore != nil:
		return middleware.NewCacheRateStore(dbStore)
	default:
		stack.MemoryRate = middleware.NewMemoryRateStore(0)
		return stack.MemoryRate, nil
	}
}

func initialiseRegistration(cfg *app.Config, db *gorm.DB) (*registration.Service, error) {
	flows, err := services.NewFlowRepository(db)
	if err != nil {
		return nil, fmt.Errorf("initialise flow repository: %w", err)
	}

	users, err := services.NewUserService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	emails, err := services.NewEmailService(mailer)
	if err != nil {
		return nil, fmt.Errorf("initialise email service: %w", err)
	}

	tx, err := services.NewTransactor(db)
	if err != nil {
		return nil, fmt.Errorf("initialise transactor: %w", err)
	}

	validator, err := registration.NewUniquenessValidator(users, nil)
	if err != nil {
		return nil, fmt.Errorf("initialise registration validator: %w", err)
	}

	svc, err := registration.NewService(flows, validator, emails, users, services.BcryptHasher{},
		cfg.RegistrationServiceConfig(),
		registration.WithTransactor(tx),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise registration service: %w", err)
	}
	return svc, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs still running at shutdown", zap.Error(ctx.Err()))
		}
	}

	if s.MemoryRate != nil {
		s.MemoryRate.Close()
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(dbCfg.Driver)))

	return db, nil
}

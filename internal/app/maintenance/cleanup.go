package maintenance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/signup/pkg/logger"
	"github.com/charlesng35/signup/pkg/metrics"
)

const defaultFlowSpec = "@daily"

// FlowPurger removes registration flows whose tokens have all expired.
type FlowPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// CachePurger removes expired rate limit counters from the database cache.
type CachePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner periodically purges abandoned registration flows and stale cache counters.
type Cleaner struct {
	flows    FlowPurger
	cache    CachePurger
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	schedule string

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the purge job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithCachePurger also purges expired database cache counters on each run.
func WithCachePurger(cache CachePurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = cache
	}
}

// NewCleaner constructs a Cleaner for the given flow store.
func NewCleaner(flows FlowPurger, opts ...Option) (*Cleaner, error) {
	if flows == nil {
		return nil, errors.New("maintenance: flow purger is required")
	}

	cleaner := &Cleaner{
		flows:    flows,
		now:      time.Now,
		schedule: defaultFlowSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner, nil
}

// Start registers the purge job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("registration flow cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	c.log.Info("registration flow cleanup scheduled", zap.String("schedule", c.schedule))
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured purge sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	now := c.now()
	var errs error

	removed, err := c.flows.PurgeExpired(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if removed > 0 {
		metrics.FlowsPurged.Add(float64(removed))
		c.log.Info("purged expired registration flows", zap.Int64("count", removed))
	}

	if c.cache != nil {
		if _, err := c.cache.PurgeExpired(ctx, now); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	c.mu.Lock()
	c.lastRun, c.lastErr = now, errs
	c.mu.Unlock()

	return errs
}

// LastRun reports when RunOnce last executed and the error it returned.
func (c *Cleaner) LastRun() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun, c.lastErr
}

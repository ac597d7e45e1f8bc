package cache

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// config holds the settings assembled via functional options.
type config struct {
	durable       Durable
	namespace     string
	now           func() time.Time
	logger        log.FieldLogger
	metrics       *Metrics
	staleRatio    float64
	sweepInterval time.Duration
	fetchTimeout  time.Duration
	abandonAfter  time.Duration
	dropAfter     time.Duration
}

func defaultConfig() config {
	return config{
		namespace:     "newsreader:",
		now:           time.Now,
		logger:        log.StandardLogger(),
		staleRatio:    0.7,
		sweepInterval: time.Minute,
		fetchTimeout:  60 * time.Second,
		abandonAfter:  10 * time.Second,
		dropAfter:     30 * time.Second,
	}
}

// Option configures a Manager or Coordinator.
type Option func(*config)

// WithDurable mirrors entries written with durable=true into d.
func WithDurable(d Durable) Option {
	return func(c *config) { c.durable = d }
}

// WithNamespace prefixes every durable key so several managers can share
// one store.
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for background failures.
func WithLogger(l log.FieldLogger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the collectors the manager updates.
func WithMetrics(m *Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithStaleRatio sets the fraction of the TTL after which an entry is
// considered stale.
func WithStaleRatio(r float64) Option {
	return func(c *config) {
		if r > 0 && r <= 1 {
			c.staleRatio = r
		}
	}
}

// WithSweepInterval sets how often Start's maintenance loop runs.
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// WithFetchTimeout sets the hard ceiling applied to every coordinated
// operation.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithPendingLimits sets when an in-flight marker stops deduplicating
// (abandon) and when maintenance forgets it (drop).
func WithPendingLimits(abandon, drop time.Duration) Option {
	return func(c *config) {
		if abandon > 0 {
			c.abandonAfter = abandon
		}
		if drop > 0 {
			c.dropAfter = drop
		}
	}
}

func buildConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.metrics == nil {
		cfg.metrics = NewMetrics(nil)
	}
	return cfg
}

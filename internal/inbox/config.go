package inbox

import (
	"time"

	"github.com/nhle/newsreader/internal/model"
)

// Config holds the pagination and catch-up tuning of a Pipeline.
type Config struct {
	// PageSize is the number of items a full page carries.
	PageSize int

	// InitialPages are fetched in parallel when a view loads.
	InitialPages int

	// BatchPages are fetched per catch-up batch.
	BatchPages int

	// BatchDelay separates consecutive catch-up batches.
	BatchDelay time.Duration

	// MaxPages bounds how far pagination may go for one view.
	MaxPages int

	// Freshness is how long a loaded view is served without refetching.
	Freshness time.Duration

	PageTTL   time.Duration
	CountsTTL time.Duration

	// ResumeOnActivate restarts an unfinished catch-up loop when a
	// fresh view is activated again.
	ResumeOnActivate bool
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return ConfigFrom(model.DefaultAppConfig().Inbox)
}

// ConfigFrom converts the file configuration, filling unset values.
func ConfigFrom(c model.InboxConfig) Config {
	cfg := Config{
		PageSize:         c.PageSize,
		InitialPages:     c.InitialPages,
		BatchPages:       c.BatchPages,
		BatchDelay:       model.Millis(c.BatchDelayMs, 500*time.Millisecond),
		MaxPages:         c.MaxPages,
		Freshness:        model.Seconds(c.FreshnessSec, 5*time.Minute),
		PageTTL:          model.Seconds(c.PageTTLSec, 2*time.Minute),
		CountsTTL:        model.Seconds(c.CountsTTLSec, 30*time.Second),
		ResumeOnActivate: c.ResumeOnActivate,
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.PageSize < 1 {
		c.PageSize = 20
	}
	if c.InitialPages < 1 {
		c.InitialPages = 3
	}
	if c.BatchPages < 1 {
		c.BatchPages = 3
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.MaxPages < 1 {
		c.MaxPages = 250
	}
	if c.Freshness <= 0 {
		c.Freshness = 5 * time.Minute
	}
	if c.PageTTL <= 0 {
		c.PageTTL = 2 * time.Minute
	}
	if c.CountsTTL <= 0 {
		c.CountsTTL = 30 * time.Second
	}
	return c
}

// Package setup assembles the runtime graph from configuration: durable
// store, cache, remote, normalizer and inbox pipeline.
package setup

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/nhle/newsreader/internal/cache"
	"github.com/nhle/newsreader/internal/credential"
	"github.com/nhle/newsreader/internal/inbox"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/normalize"
	"github.com/nhle/newsreader/internal/source"
	"github.com/nhle/newsreader/internal/source/api"
	"github.com/nhle/newsreader/internal/source/email"
	"github.com/nhle/newsreader/internal/store"
)

// ErrNotConfigured is returned when the remote has not been configured.
var ErrNotConfigured = errors.New("remote not configured, run 'newsreader configure'")

// Options are the process-level collaborators shared by every service.
type Options struct {
	Logger         log.FieldLogger
	Registerer     prometheus.Registerer
	TracerProvider trace.TracerProvider

	// Remote replaces the configured remote, mainly for tests.
	Remote source.Remote
}

// Services is the assembled runtime.
type Services struct {
	Config     *model.AppConfig
	Store      store.Store
	Cache      *cache.Manager
	Remote     source.Remote
	Normalizer *normalize.Normalizer
	Pipeline   *inbox.Pipeline
}

// Build wires every service from cfg. The cache maintenance loop is
// started; Close stops everything again.
func Build(cfg *model.AppConfig, opts Options) (*Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	remote := opts.Remote
	if remote == nil {
		r, err := NewRemote(cfg.Remote, cfg.Inbox.PageSize)
		if err != nil {
			return nil, err
		}
		remote = r
	}

	durable, err := store.Open(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("opening cache store: %w", err)
	}

	cm := cache.NewManager(CacheOptions(cfg.Cache, durable, logger, opts.Registerer)...)
	cm.Start()

	norm := normalize.New(cm, time.Duration(cfg.Cache.SenderTTLHours)*time.Hour, logger)

	pipeOpts := []inbox.Option{inbox.WithLogger(logger)}
	if opts.TracerProvider != nil {
		pipeOpts = append(pipeOpts, inbox.WithTracerProvider(opts.TracerProvider))
	}
	p := inbox.New(remote, norm, cm, inbox.ConfigFrom(cfg.Inbox), pipeOpts...)

	logger.WithFields(log.Fields{
		"remote":  remote.Name(),
		"durable": cfg.Cache.Durable,
	}).Info("services ready")

	return &Services{
		Config:     cfg,
		Store:      durable,
		Cache:      cm,
		Remote:     remote,
		Normalizer: norm,
		Pipeline:   p,
	}, nil
}

// CacheOptions translates the cache configuration into manager options.
// durable may be nil.
func CacheOptions(cfg model.CacheConfig, durable store.Store, logger log.FieldLogger, reg prometheus.Registerer) []cache.Option {
	opts := []cache.Option{
		cache.WithLogger(logger),
		cache.WithMetrics(cache.NewMetrics(reg)),
		cache.WithSweepInterval(model.Seconds(cfg.SweepIntervalSec, time.Minute)),
		cache.WithFetchTimeout(model.Seconds(cfg.FetchTimeoutSec, 60*time.Second)),
		cache.WithPendingLimits(
			model.Seconds(cfg.PendingAbandonSec, 10*time.Second),
			model.Seconds(cfg.PendingDropSec, 30*time.Second),
		),
	}
	if cfg.StaleRatio > 0 {
		opts = append(opts, cache.WithStaleRatio(cfg.StaleRatio))
	}
	if durable != nil {
		opts = append(opts, cache.WithDurable(durable))
	}
	return opts
}

// NewRemote builds the configured remote, reading its secret from the
// keyring (or NEWSREADER_SECRET).
func NewRemote(cfg model.RemoteConfig, pageSize int) (source.Remote, error) {
	if cfg.User == "" {
		return nil, ErrNotConfigured
	}
	secret, err := credential.Lookup(credential.Key(cfg.Kind, cfg.User))
	if err != nil {
		return nil, fmt.Errorf("loading %s credentials: %w", cfg.Kind, err)
	}

	switch cfg.Kind {
	case "api", "":
		if cfg.BaseURL == "" {
			return nil, ErrNotConfigured
		}
		return api.NewAdapter(cfg.BaseURL, secret, pageSize, cfg.RequestsPerSecond), nil
	case "imap":
		if cfg.IMAPHost == "" {
			return nil, ErrNotConfigured
		}
		return email.NewAdapter(cfg.IMAPHost, cfg.IMAPPort, cfg.User, secret, cfg.TLS, pageSize), nil
	default:
		return nil, fmt.Errorf("unknown remote kind %q", cfg.Kind)
	}
}

// Close stops the pipeline, the cache maintenance loop and the store.
func (s *Services) Close() error {
	s.Pipeline.Close()
	s.Cache.Close()
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			return fmt.Errorf("closing cache store: %w", err)
		}
	}
	return nil
}

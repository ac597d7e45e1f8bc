package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/setup"
)

// session is the assembled service graph plus the process-level
// observability it was built with.
type session struct {
	*setup.Services

	tp      *sdktrace.TracerProvider
	metrics *http.Server
}

func loadConfig(c *cli.Context) (*model.AppConfig, error) {
	return model.LoadConfig(c.String("config"))
}

// start loads the config and builds every service. Spans go to traceOut
// when --trace is set.
func start(c *cli.Context, traceOut io.Writer) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	rt := &session{}
	opts := setup.Options{Logger: log.StandardLogger()}

	if c.Bool("trace") {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(traceOut), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		rt.tp = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		otel.SetTracerProvider(rt.tp)
		opts.TracerProvider = rt.tp
	}

	if addr := c.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		opts.Registerer = reg
		rt.metrics = serveMetrics(addr, reg)
	}

	svc, err := setup.Build(cfg, opts)
	if err != nil {
		rt.shutdown()
		return nil, err
	}
	rt.Services = svc
	return rt, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.WithField("addr", addr).Info("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	return srv
}

// Close stops the services, then the metrics server and tracer.
func (rt *session) Close() {
	if rt.Services != nil {
		if err := rt.Services.Close(); err != nil {
			log.WithError(err).Warn("closing services")
		}
	}
	rt.shutdown()
}

func (rt *session) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rt.metrics != nil {
		_ = rt.metrics.Shutdown(ctx)
	}
	if rt.tp != nil {
		if err := rt.tp.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("flushing spans")
		}
	}
}

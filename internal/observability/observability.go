// Package observability wires structured logging and Prometheus metrics
// for the chess-report service.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Metrics records per-operation counters and timings for a named component.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, component string)
	RecordOperationSuccess(ctx context.Context, operation, component string)
	RecordOperationFailure(ctx context.Context, operation, component string)
	RecordOperationDuration(ctx context.Context, operation, component string, duration time.Duration)
}

// Observability bundles the logger, metrics, tracer, and the metrics
// HTTP server.
type Observability struct {
	Logger  *slog.Logger
	Metrics Metrics
	Tracer  trace.Tracer

	registry *prometheus.Registry
	server   *http.Server
}

// Config controls how the observability stack is built.
type Config struct {
	ServiceName    string
	Environment    string
	LogLevel       string
	MetricsAddress string
}

// Init builds the logger and metrics registry. The metrics HTTP server is
// not started until Serve is called.
func Init(cfg Config) *Observability {
	level := parseLevel(cfg.LogLevel)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With(
		slog.String("service", cfg.ServiceName),
		slog.String("env", cfg.Environment),
	)

	registry := prometheus.NewRegistry()
	metrics := newPrometheusMetrics(registry, cfg.ServiceName)

	var server *http.Server
	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return &Observability{
		Logger:   logger,
		Metrics:  metrics,
		Tracer:   otel.Tracer(cfg.ServiceName),
		registry: registry,
		server:   server,
	}
}

// Serve runs the /metrics endpoint until the listener closes. It is a
// no-op when no metrics address was configured.
func (o *Observability) Serve() error {
	if o.server == nil {
		return nil
	}
	if err := o.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the metrics server.
func (o *Observability) Shutdown(ctx context.Context) error {
	if o.server == nil {
		return nil
	}
	return o.server.Shutdown(ctx)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package observability bundles the logger, tracer and metrics registry that
// every module receives.
package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/Black-And-White-Club/ctf-engine"

// Observability is passed by value into every module constructor.
type Observability struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Registry *prometheus.Registry
	Metrics  metrics.FlagMetrics
}

// Config selects the log format and level.
type Config struct {
	Environment string
	Level       slog.Level
	Output      io.Writer
}

// New builds a JSON logger, the global tracer and a fresh prometheus registry
// holding the engine's collectors.
func New(cfg Config) (Observability, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.Level})).
		With(slog.String("service", "ctf-engine"), slog.String("environment", cfg.Environment))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := metrics.NewPrometheus(registry)
	if err != nil {
		return Observability{}, err
	}

	return Observability{
		Logger:   logger,
		Tracer:   otel.Tracer(instrumentationName),
		Registry: registry,
		Metrics:  m,
	}, nil
}

// NewNoop is the observability used by tests and one-shot commands.
func NewNoop(logger *slog.Logger) Observability {
	if logger == nil {
		logger = slog.Default()
	}
	return Observability{
		Logger:   logger,
		Tracer:   noop.NewTracerProvider().Tracer(instrumentationName),
		Registry: prometheus.NewRegistry(),
		Metrics:  metrics.NewNoop(),
	}
}

package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics records service operation outcomes.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// FlagMetrics adds submission classification counts.
type FlagMetrics interface {
	OperationMetrics
	RecordSubmission(ctx context.Context, result string)
}

type noop struct{}

// NewNoop returns metrics that discard everything.
func NewNoop() FlagMetrics { return noop{} }

func (noop) RecordOperationAttempt(context.Context, string, string)                 {}
func (noop) RecordOperationSuccess(context.Context, string, string)                 {}
func (noop) RecordOperationFailure(context.Context, string, string)                 {}
func (noop) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (noop) RecordSubmission(context.Context, string)                               {}

// Prometheus implements FlagMetrics on a prometheus registry.
type Prometheus struct {
	attempts    *prometheus.CounterVec
	successes   *prometheus.CounterVec
	failures    *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	submissions *prometheus.CounterVec
}

// NewPrometheus registers the engine's collectors on reg. Collectors that are
// already registered are reused.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	labels := []string{"operation", "service"}
	p := &Prometheus{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, labels),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "operation_success_total",
			Help:      "Service operations that completed without an infrastructure error.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "operation_failure_total",
			Help:      "Service operations that failed with an infrastructure error or panic.",
		}, labels),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ctf",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, labels),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctf",
			Name:      "flag_submissions_total",
			Help:      "Flag submissions by frozen classification.",
		}, []string{"result"}),
	}

	p.attempts = register(reg, p.attempts)
	p.successes = register(reg, p.successes)
	p.failures = register(reg, p.failures)
	p.durations = register(reg, p.durations)
	p.submissions = register(reg, p.submissions)
	return p, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (p *Prometheus) RecordOperationAttempt(_ context.Context, operation, service string) {
	p.attempts.WithLabelValues(operation, service).Inc()
}

func (p *Prometheus) RecordOperationSuccess(_ context.Context, operation, service string) {
	p.successes.WithLabelValues(operation, service).Inc()
}

func (p *Prometheus) RecordOperationFailure(_ context.Context, operation, service string) {
	p.failures.WithLabelValues(operation, service).Inc()
}

func (p *Prometheus) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	p.durations.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (p *Prometheus) RecordSubmission(_ context.Context, result string) {
	p.submissions.WithLabelValues(result).Inc()
}

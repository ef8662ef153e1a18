// Package lanternmetrics defines the metrics recorded by the lantern module.
package lanternmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LanternMetrics is the metrics surface used by the lantern service and scheduler.
type LanternMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, d time.Duration)

	// RecordGuess counts guess outcomes: success, wrong, lockout, conflict.
	RecordGuess(ctx context.Context, outcome string)
	RecordResetTick(ctx context.Context, stationsReset, failures int)
	RecordHandlerAttempt(ctx context.Context, handler string)
	RecordHandlerSuccess(ctx context.Context, handler string)
	RecordHandlerFailure(ctx context.Context, handler string)
	RecordHandlerDuration(ctx context.Context, handler string, d time.Duration)
}

type prometheusMetrics struct {
	opAttempts   *prometheus.CounterVec
	opSuccesses  *prometheus.CounterVec
	opFailures   *prometheus.CounterVec
	opDuration   *prometheus.HistogramVec
	guesses      *prometheus.CounterVec
	resetTicks   prometheus.Counter
	resetStation *prometheus.CounterVec
	hAttempts    *prometheus.CounterVec
	hSuccesses   *prometheus.CounterVec
	hFailures    *prometheus.CounterVec
	hDuration    *prometheus.HistogramVec
}

// NewPrometheus registers the lantern collectors on reg.
func NewPrometheus(reg prometheus.Registerer) LanternMetrics {
	m := &prometheusMetrics{
		opAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lantern", Name: "operation_attempts_total",
			Help: "Service operations started.",
		}, []string{"operation", "service"}),
		opSuccesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lantern", Name: "operation_success_total",
			Help: "Service operations completed without infrastructure error.",
		}, []string{"operation", "service"}),
		opFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lantern", Name: "operation_failure_total",
			Help: "Service operations that failed with an infrastructure error or panic.",
		}, []string{"operation", "service"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lantern", Name: "operation_duration_seconds",
			Help:    "Service operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lantern", Name: "guesses_total",
			Help: "Guess attempts by outcome.",
		}, []string{"outcome"}),
		resetTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lantern", Name: "reset_ticks_total",
			Help: "Station reset sweeps executed.",
		}),
		resetStation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lantern", Name: "station_resets_total",
			Help: "Per-station resets by result.",
		}, []string{"result"}),
		hAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lantern", Name: "handler_attempts_total",
			Help: "Messages received per handler.",
		}, []string{"handler"}),
		hSuccesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lantern", Name: "handler_success_total",
			Help: "Messages handled successfully per handler.",
		}, []string{"handler"}),
		hFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lantern", Name: "handler_failure_total",
			Help: "Messages that failed per handler.",
		}, []string{"handler"}),
		hDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lantern", Name: "handler_duration_seconds",
			Help:    "Handler latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler"}),
	}

	reg.MustRegister(
		m.opAttempts, m.opSuccesses, m.opFailures, m.opDuration,
		m.guesses, m.resetTicks, m.resetStation,
		m.hAttempts, m.hSuccesses, m.hFailures, m.hDuration,
	)
	return m
}

func (m *prometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.opAttempts.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.opSuccesses.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.opFailures.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, d time.Duration) {
	m.opDuration.WithLabelValues(operation, service).Observe(d.Seconds())
}

func (m *prometheusMetrics) RecordGuess(_ context.Context, outcome string) {
	m.guesses.WithLabelValues(outcome).Inc()
}

func (m *prometheusMetrics) RecordResetTick(_ context.Context, stationsReset, failures int) {
	m.resetTicks.Inc()
	m.resetStation.WithLabelValues("ok").Add(float64(stationsReset))
	m.resetStation.WithLabelValues("failed").Add(float64(failures))
}

func (m *prometheusMetrics) RecordHandlerAttempt(_ context.Context, handler string) {
	m.hAttempts.WithLabelValues(handler).Inc()
}

func (m *prometheusMetrics) RecordHandlerSuccess(_ context.Context, handler string) {
	m.hSuccesses.WithLabelValues(handler).Inc()
}

func (m *prometheusMetrics) RecordHandlerFailure(_ context.Context, handler string) {
	m.hFailures.WithLabelValues(handler).Inc()
}

func (m *prometheusMetrics) RecordHandlerDuration(_ context.Context, handler string, d time.Duration) {
	m.hDuration.WithLabelValues(handler).Observe(d.Seconds())
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

// NewNoop returns a LanternMetrics that records nothing.
func NewNoop() LanternMetrics { return NoOpMetrics{} }

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoOpMetrics) RecordGuess(context.Context, string)                                    {}
func (NoOpMetrics) RecordResetTick(context.Context, int, int)                              {}
func (NoOpMetrics) RecordHandlerAttempt(context.Context, string)                           {}
func (NoOpMetrics) RecordHandlerSuccess(context.Context, string)                           {}
func (NoOpMetrics) RecordHandlerFailure(context.Context, string)                           {}
func (NoOpMetrics) RecordHandlerDuration(context.Context, string, time.Duration)           {}

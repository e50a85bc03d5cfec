// Package observe provides application-wide observability primitives for
// Kavach: OpenTelemetry metrics, tracing helpers, structured logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Kavach metrics.
const meterName = "github.com/kavachapp/kavach"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Pipeline counters ---

	// FramesProcessed counts audio frames entering the pipeline. Use with
	// attribute: attribute.String("gate", "voiced"|"silent").
	FramesProcessed metric.Int64Counter

	// InferenceSkips counts classifier cycles skipped because the previous
	// inference was still in flight.
	InferenceSkips metric.Int64Counter

	// ThreatTransitions counts threat level changes. Use with attributes:
	//   attribute.String("level", ...), attribute.String("source", ...)
	ThreatTransitions metric.Int64Counter

	// DispatchAttempts counts emergency actions. Use with attributes:
	//   attribute.String("kind", "call"|"sms"), attribute.String("status", "ok"|"error"|"debounced")
	DispatchAttempts metric.Int64Counter

	// CountdownOutcomes counts terminal countdown transitions. Use with
	// attribute: attribute.String("outcome", "cancelled"|"expired").
	CountdownOutcomes metric.Int64Counter

	// --- Latency histograms ---

	// InferenceDuration tracks classifier inference latency.
	InferenceDuration metric.Float64Histogram

	// --- Gauges ---

	// ActiveSessions tracks the number of live monitoring sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// per-frame inference latencies.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.FramesProcessed, err = m.Int64Counter("kavach.audio.frames",
		metric.WithDescription("Audio frames processed, by silence-gate result."),
	); err != nil {
		return nil, err
	}
	if met.InferenceSkips, err = m.Int64Counter("kavach.classifier.skips",
		metric.WithDescription("Classifier cycles skipped because an inference was in flight."),
	); err != nil {
		return nil, err
	}
	if met.ThreatTransitions, err = m.Int64Counter("kavach.threat.transitions",
		metric.WithDescription("Threat level transitions by level and contributing source."),
	); err != nil {
		return nil, err
	}
	if met.DispatchAttempts, err = m.Int64Counter("kavach.dispatch.attempts",
		metric.WithDescription("Emergency dispatch actions by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.CountdownOutcomes, err = m.Int64Counter("kavach.countdown.outcomes",
		metric.WithDescription("Terminal countdown transitions by outcome."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.InferenceDuration, err = m.Float64Histogram("kavach.classifier.duration",
		metric.WithDescription("Latency of classifier inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.ActiveSessions, err = m.Int64UpDownCounter("kavach.active_sessions",
		metric.WithDescription("Number of live monitoring sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("kavach.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordFrame records one processed audio frame with its silence-gate
// result.
func (m *Metrics) RecordFrame(ctx context.Context, silent bool) {
	gate := "voiced"
	if silent {
		gate = "silent"
	}
	m.FramesProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("gate", gate)),
	)
}

// RecordThreatTransition records one threat level change with the standard
// attribute set.
func (m *Metrics) RecordThreatTransition(ctx context.Context, level, source string) {
	m.ThreatTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("level", level),
			attribute.String("source", source),
		),
	)
}

// RecordDispatch records one emergency dispatch action with the standard
// attribute set.
func (m *Metrics) RecordDispatch(ctx context.Context, kind, status string) {
	m.DispatchAttempts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordCountdownOutcome records one terminal countdown transition.
func (m *Metrics) RecordCountdownOutcome(ctx context.Context, outcome string) {
	m.CountdownOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordInference records one classifier inference with its latency and
// final status.
func (m *Metrics) RecordInference(ctx context.Context, seconds float64, status string) {
	m.InferenceDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// Package observe provides application-wide observability primitives for
// jielong: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all jielong metrics.
const meterName = "github.com/MrWong99/jielong"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// SubmitDuration tracks how long one submit transition holds the
	// channel lock.
	SubmitDuration metric.Float64Histogram

	// IndexBuildDuration tracks vocabulary loading and indexing at startup.
	IndexBuildDuration metric.Float64Histogram

	// --- Counters ---

	// TurnsAccepted counts successful chain turns. Use with attribute:
	//   attribute.String("mode", ...)
	TurnsAccepted metric.Int64Counter

	// Rejections counts rejected submissions. Use with attribute:
	//   attribute.String("reason", ...)
	Rejections metric.Int64Counter

	// SessionsStarted counts started sessions. Use with attribute:
	//   attribute.String("mode", ...)
	SessionsStarted metric.Int64Counter

	// SessionsEnded counts destroyed sessions. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("outcome", ...)
	SessionsEnded metric.Int64Counter

	// Restrictions counts arcade restrictions applied. Use with attribute:
	//   attribute.String("rule", ...)
	Restrictions metric.Int64Counter

	// StatsDropped counts play statistics discarded because the recorder
	// queue was full or the store kept failing.
	StatsDropped metric.Int64Counter

	// --- Distributions ---

	// CandidateSetSize tracks the size of the legal next-word set after
	// each transition.
	CandidateSetSize metric.Int64Histogram

	// --- Gauges ---

	// ActiveSessions tracks the number of live chain sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Submits are
// in-memory and usually finish well under a millisecond.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1, 1,
}

var sizeBuckets = []float64{
	0, 1, 2, 5, 10, 20, 50, 100, 200, 500, 1000,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SubmitDuration, err = m.Float64Histogram("jielong.submit.duration",
		metric.WithDescription("Latency of one submit transition."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.IndexBuildDuration, err = m.Float64Histogram("jielong.index.build.duration",
		metric.WithDescription("Latency of loading and indexing the vocabulary."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.CandidateSetSize, err = m.Int64Histogram("jielong.candidates",
		metric.WithDescription("Size of the legal next-word set after a transition."),
		metric.WithExplicitBucketBoundaries(sizeBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TurnsAccepted, err = m.Int64Counter("jielong.turns.accepted",
		metric.WithDescription("Total accepted chain turns by mode."),
	); err != nil {
		return nil, err
	}
	if met.Rejections, err = m.Int64Counter("jielong.turns.rejected",
		metric.WithDescription("Total rejected submissions by reason."),
	); err != nil {
		return nil, err
	}
	if met.SessionsStarted, err = m.Int64Counter("jielong.sessions.started",
		metric.WithDescription("Total started sessions by mode."),
	); err != nil {
		return nil, err
	}
	if met.SessionsEnded, err = m.Int64Counter("jielong.sessions.ended",
		metric.WithDescription("Total ended sessions by mode and outcome."),
	); err != nil {
		return nil, err
	}
	if met.Restrictions, err = m.Int64Counter("jielong.arcade.restrictions",
		metric.WithDescription("Total arcade restrictions applied by rule."),
	); err != nil {
		return nil, err
	}
	if met.StatsDropped, err = m.Int64Counter("jielong.stats.dropped",
		metric.WithDescription("Total play statistics records that were discarded."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("jielong.active_sessions",
		metric.WithDescription("Number of live chain sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("jielong.http.request.duration",
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordTurn records an accepted turn and the size of the resulting
// candidate set.
func (m *Metrics) RecordTurn(ctx context.Context, mode string, candidates int) {
	m.TurnsAccepted.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	m.CandidateSetSize.Record(ctx, int64(candidates))
}

// RecordRejection records a rejected submission.
func (m *Metrics) RecordRejection(ctx context.Context, reason string) {
	m.Rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordSessionStart records a started session and raises the active gauge.
func (m *Metrics) RecordSessionStart(ctx context.Context, mode string) {
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	m.SessionsStarted.Add(ctx, 1, attrs)
	m.ActiveSessions.Add(ctx, 1)
}

// RecordSessionEnd records a destroyed session and lowers the active gauge.
func (m *Metrics) RecordSessionEnd(ctx context.Context, mode, outcome string) {
	m.SessionsEnded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	))
	m.ActiveSessions.Add(ctx, -1)
}

// RecordStartFailure records a session that could not start. The active
// gauge is left alone since it was never raised.
func (m *Metrics) RecordStartFailure(ctx context.Context, mode string) {
	m.SessionsEnded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", "failed"),
	))
}

// RecordRestriction records an applied arcade restriction.
func (m *Metrics) RecordRestriction(ctx context.Context, rule string) {
	m.Restrictions.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule)))
}

// RecordSubmitDuration records the latency of one submit transition.
func (m *Metrics) RecordSubmitDuration(ctx context.Context, d time.Duration) {
	m.SubmitDuration.Record(ctx, d.Seconds())
}

// Package observe provides application-wide observability primitives for
// claimwright: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all claimwright metrics.
const meterName = "github.com/MrWong99/claimwright"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscriptionDuration tracks C7 utterance transcription latency.
	TranscriptionDuration metric.Float64Histogram

	// EmbeddingDuration tracks C1 embedding-adapter latency (ingest and
	// query paths).
	EmbeddingDuration metric.Float64Histogram

	// RetrievalDuration tracks C4 hybrid retrieval latency.
	RetrievalDuration metric.Float64Histogram

	// AdjudicationDuration tracks C9 LLM adjudication latency.
	AdjudicationDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts inference-adapter calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ClaimsExtracted counts extracted claims. Use with attribute:
	//   attribute.String("kind", ...) — fact, opinion, prediction
	ClaimsExtracted metric.Int64Counter

	// ValidationsCompleted counts finished validations. Use with attribute:
	//   attribute.String("status", ...) — confirmed, contradicted, uncertain, no_data
	ValidationsCompleted metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts inference-adapter errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live recording sessions across
	// all devices.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveDevices tracks the number of connected edge recorders.
	ActiveDevices metric.Int64UpDownCounter

	// QueueDepth tracks the number of queued-plus-running jobs in the C5
	// job queue, by resource class. Use with attribute:
	//   attribute.String("class", ...) — gpu, llm, cpu
	QueueDepth metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) spanning
// sub-second retrieval calls up to multi-minute transcription runs.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscriptionDuration, err = m.Float64Histogram("claimwright.transcription.duration",
		metric.WithDescription("Latency of C7 utterance transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EmbeddingDuration, err = m.Float64Histogram("claimwright.embedding.duration",
		metric.WithDescription("Latency of C1 embedding-adapter calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RetrievalDuration, err = m.Float64Histogram("claimwright.retrieval.duration",
		metric.WithDescription("Latency of C4 hybrid knowledge-base retrieval."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AdjudicationDuration, err = m.Float64Histogram("claimwright.adjudication.duration",
		metric.WithDescription("Latency of C9 LLM adjudication calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("claimwright.provider.requests",
		metric.WithDescription("Total inference-adapter requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ClaimsExtracted, err = m.Int64Counter("claimwright.claims.extracted",
		metric.WithDescription("Total claims extracted, by claim kind."),
	); err != nil {
		return nil, err
	}
	if met.ValidationsCompleted, err = m.Int64Counter("claimwright.validations.completed",
		metric.WithDescription("Total validations completed, by verdict status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("claimwright.provider.errors",
		metric.WithDescription("Total inference-adapter errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("claimwright.active_sessions",
		metric.WithDescription("Number of live recording sessions across all devices."),
	); err != nil {
		return nil, err
	}
	if met.ActiveDevices, err = m.Int64UpDownCounter("claimwright.active_devices",
		metric.WithDescription("Number of connected edge recorders."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("claimwright.queue.depth",
		metric.WithDescription("Queued-plus-running jobs in the job queue, by resource class."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("claimwright.http.request.duration",
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

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordClaimExtracted is a convenience method that records a claims-
// extracted counter increment for the given claim kind.
func (m *Metrics) RecordClaimExtracted(ctx context.Context, kind string) {
	m.ClaimsExtracted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordValidationCompleted is a convenience method that records a
// validations-completed counter increment for the given verdict status.
func (m *Metrics) RecordValidationCompleted(ctx context.Context, status string) {
	m.ValidationsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// Package observe provides application-wide observability primitives for
// the ASR bridge: OpenTelemetry metrics, distributed tracing, structured
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

// meterName is the instrumentation scope name used for all bridge metrics.
const meterName = "github.com/MrWong99/hermes-asr"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TranscriptionDuration tracks speech-to-text latency per finished
	// session, measured around the engine call.
	TranscriptionDuration metric.Float64Histogram

	// UtteranceSeconds tracks the audio length of finished sessions.
	UtteranceSeconds metric.Float64Histogram

	// TrainDuration tracks training runs, including the directory swap.
	TrainDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// TextCaptured counts published transcriptions. Use with attributes:
	//   attribute.String("site_id", ...), attribute.String("reason", ...)
	TextCaptured metric.Int64Counter

	// Messages counts bus messages. Use with attributes:
	//   attribute.String("direction", "in"|"out"), attribute.String("topic", ...)
	Messages metric.Int64Counter

	// TrainRuns counts training requests by status.
	TrainRuns metric.Int64Counter

	// PronounceRequests counts g2p requests by status.
	PronounceRequests metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of open listening sessions across all
	// sites.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) suited to
// batch transcription of short voice commands.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscriptionDuration, err = m.Float64Histogram("hermes_asr.transcription.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceSeconds, err = m.Float64Histogram("hermes_asr.utterance.seconds",
		metric.WithDescription("Audio length of finished listening sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TrainDuration, err = m.Float64Histogram("hermes_asr.train.duration",
		metric.WithDescription("Duration of training runs."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("hermes_asr.provider.requests",
		metric.WithDescription("Total provider requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.TextCaptured, err = m.Int64Counter("hermes_asr.text_captured",
		metric.WithDescription("Total published transcriptions by site and finalize reason."),
	); err != nil {
		return nil, err
	}
	if met.Messages, err = m.Int64Counter("hermes_asr.messages",
		metric.WithDescription("Total bus messages by direction and topic."),
	); err != nil {
		return nil, err
	}
	if met.TrainRuns, err = m.Int64Counter("hermes_asr.train.runs",
		metric.WithDescription("Total training requests by status."),
	); err != nil {
		return nil, err
	}
	if met.PronounceRequests, err = m.Int64Counter("hermes_asr.g2p.requests",
		metric.WithDescription("Total pronunciation requests by status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("hermes_asr.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("hermes_asr.active_sessions",
		metric.WithDescription("Number of open listening sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("hermes_asr.http.request.duration",
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

// RecordTextCaptured records one published transcription. reason is "stop",
// "silence" or "timeout".
func (m *Metrics) RecordTextCaptured(ctx context.Context, siteID, reason string) {
	m.TextCaptured.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("site_id", siteID),
			attribute.String("reason", reason),
		),
	)
}

// RecordMessage records one bus message. direction is "in" or "out".
func (m *Metrics) RecordMessage(ctx context.Context, direction, topic string) {
	m.Messages.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("direction", direction),
			attribute.String("topic", topic),
		),
	)
}

// RecordTrain records the outcome of a training request.
func (m *Metrics) RecordTrain(ctx context.Context, status string) {
	m.TrainRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordPronounce records the outcome of a pronunciation request.
func (m *Metrics) RecordPronounce(ctx context.Context, status string) {
	m.PronounceRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

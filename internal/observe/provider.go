package observe

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ServiceName is reported as service.name.
const ServiceName = "hermes-asr"

// ProviderConfig describes the bridge instance and how its telemetry leaves
// the process.
type ProviderConfig struct {
	ServiceVersion string

	// InstanceID becomes service.instance.id. The MQTT client id is used
	// when set; empty means a random id per process.
	InstanceID string

	// Broker and SiteIDs describe the Hermes bus the instance serves.
	Broker  string
	SiteIDs []string

	// Prometheus enables the Prometheus exporter behind /metrics. Without it
	// metrics are recorded but not exported.
	Prometheus bool

	// Registerer receives the Prometheus collector. Nil means
	// [prometheus.DefaultRegisterer], which promhttp.Handler serves.
	Registerer prometheus.Registerer

	// SampleRatio is the fraction of root spans recorded, 0 to 1. Unsampled
	// spans still carry trace ids for log correlation.
	SampleRatio float64

	// TraceExporter receives sampled spans. Nil records spans without
	// exporting them.
	TraceExporter sdktrace.SpanExporter
}

// Resource builds the OTel resource for cfg.
func Resource(cfg ProviderConfig) (*resource.Resource, error) {
	instance := cfg.InstanceID
	if instance == "" {
		instance = uuid.NewString()
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("service.instance.id", instance),
		attribute.String("messaging.system", "mqtt"),
	}
	if cfg.Broker != "" {
		attrs = append(attrs, attribute.String("hermes.broker", cfg.Broker))
	}
	if len(cfg.SiteIDs) > 0 {
		attrs = append(attrs, attribute.StringSlice("hermes.site_ids", cfg.SiteIDs))
	}
	// Schemaless so the merge never conflicts with the SDK default's schema.
	return resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
}

// InitProvider registers global meter and tracer providers built from cfg
// and returns a shutdown function that flushes both.
func InitProvider(_ context.Context, cfg ProviderConfig) (shutdown func(context.Context) error, err error) {
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return nil, fmt.Errorf("observe: sample ratio %g outside [0, 1]", cfg.SampleRatio)
	}
	res, err := Resource(cfg)
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.Prometheus {
		var promOpts []promexporter.Option
		if cfg.Registerer != nil {
			promOpts = append(promOpts, promexporter.WithRegisterer(cfg.Registerer))
		}
		exp, err := promexporter.New(promOpts...)
		if err != nil {
			return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(exp))
	}
	mp := sdkmetric.NewMeterProvider(mpOpts...)

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

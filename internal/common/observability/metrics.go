// internal/common/observability/metrics.go
package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/otlptranslator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Observability records recommendation metrics through an OpenTelemetry meter
// whose readings are exported on the Prometheus registry.
type Observability struct {
	meterProvider *metric.MeterProvider
	computed      otelmetric.Int64Counter
	returned      otelmetric.Int64Histogram
	duration      otelmetric.Float64Histogram
}

// New builds the meter provider. A nil registerer uses the Prometheus default
// registry, which is what /metrics serves. Names are underscore escaped with
// unit and counter suffixes, so recommendations.computed is exported as
// recommendations_computed_total next to the promauto collectors.
func New(serviceName, version string, registerer promclient.Registerer) (*Observability, error) {
	opts := []prometheus.Option{
		prometheus.WithTranslationStrategy(otlptranslator.UnderscoreEscapingWithSuffixes),
	}
	if registerer != nil {
		opts = append(opts, prometheus.WithRegisterer(registerer))
	}
	exporter, err := prometheus.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)
	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	computed, err := meter.Int64Counter(
		"recommendations.computed",
		otelmetric.WithDescription("Number of recommendation requests computed"),
	)
	if err != nil {
		return nil, err
	}
	returned, err := meter.Int64Histogram(
		"recommendations.returned",
		otelmetric.WithDescription("Number of places returned per request"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"recommendations.duration",
		otelmetric.WithDescription("Recommendation computation duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		meterProvider: provider,
		computed:      computed,
		returned:      returned,
		duration:      duration,
	}, nil
}

// Noop returns an Observability that records nothing.
func Noop() *Observability {
	return &Observability{}
}

// RecordRecommendation records one finished request.
func (o *Observability) RecordRecommendation(ctx context.Context, transport, status string, count int, elapsed time.Duration) {
	if o == nil || o.computed == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("transport", transport),
		attribute.String("status", status),
	)
	o.computed.Add(ctx, 1, attrs)
	o.returned.Record(ctx, int64(count), attrs)
	o.duration.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}

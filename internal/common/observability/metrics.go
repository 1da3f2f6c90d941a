package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	jobDuration    otelmetric.Float64Histogram
	quoteCounter   otelmetric.Int64Counter
	quoteTotal     otelmetric.Int64Histogram
}

func New(serviceName string) *Observability {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	o := &Observability{
		tracerProvider: tp,
		tracer:         tp.Tracer(serviceName),
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	o.meterProvider = provider

	meter := provider.Meter(serviceName)

	o.jobDuration, _ = meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	o.quoteCounter, _ = meter.Int64Counter(
		"quotes.calculated",
		otelmetric.WithDescription("Number of vehicle price quotes calculated"),
	)

	o.quoteTotal, _ = meter.Int64Histogram(
		"quotes.total_price",
		otelmetric.WithDescription("Total price of calculated quotes"),
		otelmetric.WithUnit("SEK"),
	)

	return o
}

// StartSpan starts a span named name. A nil Observability yields a no-op span.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return noop.NewTracerProvider().Tracer("").Start(ctx, name)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration) {
	if o != nil && o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
		))
	}
}

func (o *Observability) RecordQuote(ctx context.Context, tenantID, source string, totalPrice int64) {
	if o == nil || o.quoteCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("source", source),
	)
	o.quoteCounter.Add(ctx, 1, attrs)
	if o.quoteTotal != nil {
		o.quoteTotal.Record(ctx, totalPrice, attrs)
	}
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}

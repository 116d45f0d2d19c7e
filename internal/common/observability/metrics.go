package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Options struct {
	ServiceName string
	// JaegerEndpoint enables tracing when set, e.g. http://jaeger:14268/api/traces.
	JaegerEndpoint string
	// SpanExporter overrides the jaeger exporter.
	SpanExporter sdktrace.SpanExporter
	// Registerer defaults to the prometheus default registerer.
	Registerer promclient.Registerer
}

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer

	jobCounter      otelmetric.Int64Counter
	jobDuration     otelmetric.Float64Histogram
	groupCounter    otelmetric.Int64Counter
	candidateGauge  otelmetric.Int64Histogram
	enrichmentCalls otelmetric.Int64Counter
}

func New(opts Options) (*Observability, error) {
	var exporterOpts []prometheus.Option
	if opts.Registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(opts.Registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))

	provider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(provider)

	o := &Observability{
		meterProvider: provider,
		meter:         provider.Meter(opts.ServiceName),
		tracer:        noop.NewTracerProvider().Tracer(opts.ServiceName),
	}

	spanExporter := opts.SpanExporter
	if spanExporter == nil && opts.JaegerEndpoint != "" {
		spanExporter, err = jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(opts.JaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("create jaeger exporter: %w", err)
		}
	}
	if spanExporter != nil {
		o.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spanExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(o.tracerProvider)
		o.tracer = o.tracerProvider.Tracer(opts.ServiceName)
	}

	if err := o.initInstruments(); err != nil {
		return nil, err
	}
	return o, nil
}

// Instrument names carry an otel_ prefix so they never collide with the
// promauto collectors on the same registry.
func (o *Observability) initInstruments() error {
	var err error
	if o.jobCounter, err = o.meter.Int64Counter(
		"otel_jobs_processed",
		otelmetric.WithDescription("Number of jobs processed"),
	); err != nil {
		return err
	}
	if o.jobDuration, err = o.meter.Float64Histogram(
		"otel_jobs_duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	); err != nil {
		return err
	}
	if o.groupCounter, err = o.meter.Int64Counter(
		"otel_buyer_groups_composed",
		otelmetric.WithDescription("Buyer groups composed"),
	); err != nil {
		return err
	}
	if o.candidateGauge, err = o.meter.Int64Histogram(
		"otel_buyer_groups_candidates",
		otelmetric.WithDescription("Candidates considered per composition"),
	); err != nil {
		return err
	}
	o.enrichmentCalls, err = o.meter.Int64Counter(
		"otel_enrichment_calls",
		otelmetric.WithDescription("Enrichment provider calls"),
	)
	return err
}

// StartSpan starts a span on the configured tracer. Without an exporter the
// span is a no-op.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordGroupComposed(ctx context.Context, valid bool, candidates int) {
	o.groupCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("valid", valid)))
	o.candidateGauge.Record(ctx, int64(candidates))
}

func (o *Observability) RecordEnrichmentCall(ctx context.Context, provider, status string) {
	o.enrichmentCalls.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var firstErr error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if err := o.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Package observability provides OpenTelemetry tracing for flowgraph scans.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/efebarandurmaz/flowgraph/internal/config"
)

const (
	// TracerName is the name used for the flowgraph tracer.
	TracerName = "github.com/efebarandurmaz/flowgraph"
)

// TracingConfig configures the OpenTelemetry tracing.
type TracingConfig struct {
	// ServiceName is the name of the service (default: "flowgraph")
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Environment is the deployment environment (dev, staging, prod)
	Environment string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317")
	// If empty, tracing is disabled.
	OTLPEndpoint string

	// SampleRate is the trace sampling rate (0.0 to 1.0, default: 1.0)
	SampleRate float64
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "flowgraph",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// FromConfig maps the tracing section onto a TracingConfig for the named service.
func FromConfig(cfg config.TracingConfig, serviceName, version string) *TracingConfig {
	tc := DefaultTracingConfig()
	tc.ServiceName = serviceName
	if version != "" {
		tc.ServiceVersion = version
	}
	tc.OTLPEndpoint = cfg.Endpoint
	if cfg.Environment != "" {
		tc.Environment = cfg.Environment
	}
	tc.SampleRate = cfg.SampleRate
	return tc
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes OpenTelemetry tracing.
// Returns a no-op tracer if OTLPEndpoint is empty.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// Shutdown gracefully shuts down the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// SpanKind constants for flowgraph operations.
const (
	SpanKindScan     = "scan"
	SpanKindProvider = "provider"
	SpanKindStage    = "stage"
	SpanKindSink     = "sink"
)

// StartScanSpan starts the root span of a scan.
func StartScanSpan(ctx context.Context, projectID, sourceRoot string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	return tracer.Start(ctx, "scan",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("flowgraph.span.kind", SpanKindScan),
			attribute.String("scan.project_id", projectID),
			attribute.String("scan.source_root", sourceRoot),
		),
	)
}

// StartProviderSpan starts a span for one fact provider run.
func StartProviderSpan(ctx context.Context, provider string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	return tracer.Start(ctx, fmt.Sprintf("provider.%s", provider),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("flowgraph.span.kind", SpanKindProvider),
			attribute.String("provider.name", provider),
		),
	)
}

// RecordProviderResult records how many facts a provider contributed.
func RecordProviderResult(span trace.Span, factCount int, duration time.Duration) {
	span.SetAttributes(
		attribute.Int("provider.fact_count", factCount),
		attribute.Int64("provider.duration_ms", duration.Milliseconds()),
	)
}

// StartStageSpan starts a span for one assembler stage.
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	return tracer.Start(ctx, fmt.Sprintf("assemble.%s", stage),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("flowgraph.span.kind", SpanKindStage),
			attribute.String("stage.name", stage),
		),
	)
}

// RecordStageResult records the graph size after a stage and the number of
// facts it skipped.
func RecordStageResult(span trace.Span, nodes, edges, skipped int) {
	span.SetAttributes(
		attribute.Int("stage.node_count", nodes),
		attribute.Int("stage.edge_count", edges),
		attribute.Int("stage.skipped", skipped),
	)
}

// StartSinkSpan starts a span for writing a graph to an external sink.
func StartSinkSpan(ctx context.Context, sink, graphID string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	return tracer.Start(ctx, fmt.Sprintf("sink.%s", sink),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("flowgraph.span.kind", SpanKindSink),
			attribute.String("sink.name", sink),
			attribute.String("graph.id", graphID),
		),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

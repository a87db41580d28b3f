package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/efebarandurmaz/flowgraph/internal/config"
)

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.ServiceName != "flowgraph" {
		t.Fatalf("expected service name 'flowgraph', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestFromConfig(t *testing.T) {
	tc := FromConfig(config.TracingConfig{Endpoint: "otel:4317", SampleRate: 0.25}, "flowgraph-worker", "1.4.0")
	if tc.ServiceName != "flowgraph-worker" || tc.ServiceVersion != "1.4.0" {
		t.Fatalf("unexpected identity %+v", tc)
	}
	if tc.OTLPEndpoint != "otel:4317" || tc.SampleRate != 0.25 {
		t.Fatalf("unexpected exporter settings %+v", tc)
	}
	if tc.Environment != "development" {
		t.Fatalf("expected default environment, got %q", tc.Environment)
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{
		ServiceName: "test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
	if tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracing_NilConfig(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
}

func TestScanSpans(t *testing.T) {
	ctx, scan := StartScanSpan(context.Background(), "orders", "/src")
	if scan == nil {
		t.Fatal("expected non-nil scan span")
	}
	pctx, provider := StartProviderSpan(ctx, "java")
	RecordProviderResult(provider, 12, 30*time.Millisecond)
	provider.End()

	_, stage := StartStageSpan(pctx, "dedupe-methods")
	RecordStageResult(stage, 4, 0, 1)
	stage.End()
	scan.End()
}

func TestStartSinkSpan(t *testing.T) {
	_, span := StartSinkSpan(context.Background(), "neo4j", "g1")
	if span == nil {
		t.Fatal("expected non-nil span")
	}
	span.End()
}

func TestRecordError(t *testing.T) {
	_, span := StartStageSpan(context.Background(), "link-calls")

	// Should not panic with nil
	RecordError(span, nil)

	RecordError(span, errors.New("test error"))
	span.End()
}

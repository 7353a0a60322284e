package otel_test

import (
	"context"
	"testing"
	"time"

	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	cdpotel "github.com/petal-labs/cdpmcp/otel"
	"github.com/petal-labs/cdpmcp/tool"
)

// newTestMeter returns a meter backed by a manual reader for collecting metrics in tests.
func newTestMeter() (*metric.ManualReader, *metric.MeterProvider) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return reader, mp
}

// newTestTracer returns a tracer backed by an in-memory span exporter.
func newTestTracer() (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return exporter, tp
}

func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func sumTotal(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s type = %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestToolObserverRecordsMetrics(t *testing.T) {
	reader, mp := newTestMeter()
	observer, err := cdpotel.NewToolObserver(mp.Meter("test"), noop.NewTracerProvider().Tracer("test"))
	if err != nil {
		t.Fatalf("NewToolObserver() error = %v", err)
	}

	observer.ObserveExecute(tool.ExecuteObservation{
		ID:          "one",
		Operation:   "execute",
		ToolName:    "blur",
		Argv:        []string{"/cdp/blur", "blur", "a.ana", "b.ana", "20"},
		StartedAt:   time.Now(),
		DurationMS:  250,
		ExitCode:    1,
		StdoutBytes: 10,
		StderrBytes: 5,
		Spawned:     true,
	})
	observer.ObserveExecute(tool.ExecuteObservation{
		ID:        "two",
		Operation: "execute",
		ToolName:  "nonexistent_tool_xyz",
		ErrorCode: tool.ToolErrorCodeExecutableNotFound,
	})

	rm := collectMetrics(t, reader)

	executions := findMetric(rm, "cdpmcp.tool.executions")
	if executions == nil {
		t.Fatal("cdpmcp.tool.executions metric not found")
	}
	if got := sumTotal(t, executions); got != 2 {
		t.Fatalf("executions = %d, want 2", got)
	}

	failures := findMetric(rm, "cdpmcp.tool.failures")
	if failures == nil {
		t.Fatal("cdpmcp.tool.failures metric not found")
	}
	if got := sumTotal(t, failures); got != 1 {
		t.Fatalf("failures = %d, want 1", got)
	}

	output := findMetric(rm, "cdpmcp.tool.output.bytes")
	if output == nil {
		t.Fatal("cdpmcp.tool.output.bytes metric not found")
	}
	if got := sumTotal(t, output); got != 15 {
		t.Fatalf("output bytes = %d, want 15", got)
	}

	latency := findMetric(rm, "cdpmcp.tool.latency")
	if latency == nil {
		t.Fatal("cdpmcp.tool.latency metric not found")
	}
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("cdpmcp.tool.latency type = %T, want Histogram[float64]", latency.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Fatalf("latency datapoints = %+v, want one spawned sample", hist.DataPoints)
	}
	if hist.DataPoints[0].Sum != 0.25 {
		t.Fatalf("latency sum = %v, want 0.25", hist.DataPoints[0].Sum)
	}
}

func TestToolObserverRecordsSpans(t *testing.T) {
	exporter, tp := newTestTracer()
	_, mp := newTestMeter()
	observer, err := cdpotel.NewToolObserver(mp.Meter("test"), tp.Tracer("test"))
	if err != nil {
		t.Fatalf("NewToolObserver() error = %v", err)
	}

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	observer.ObserveExecute(tool.ExecuteObservation{
		ID: "ok", Operation: "execute", ToolName: "modify", StartedAt: start, DurationMS: 40, ExitCode: 3, Spawned: true,
	})
	observer.ObserveExecute(tool.ExecuteObservation{
		ID: "bad", Operation: "usage", ToolName: "pitch", StartedAt: start, ErrorCode: tool.ToolErrorCodeSpawnFailure,
	})

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	if spans[0].Name != "tool.execute" {
		t.Fatalf("span name = %q, want tool.execute", spans[0].Name)
	}
	if spans[0].Status.Code != otelcodes.Ok {
		t.Fatalf("non-zero exit span status = %v, want Ok", spans[0].Status.Code)
	}
	if got := spans[0].EndTime.Sub(spans[0].StartTime); got != 40*time.Millisecond {
		t.Fatalf("span duration = %s, want 40ms", got)
	}
	if spans[1].Status.Code != otelcodes.Error || spans[1].Status.Description != tool.ToolErrorCodeSpawnFailure {
		t.Fatalf("failed span status = %+v", spans[1].Status)
	}
}

func TestNilToolObserverIsSafe(t *testing.T) {
	var observer *cdpotel.ToolObserver
	observer.ObserveExecute(tool.ExecuteObservation{ToolName: "blur"})
}

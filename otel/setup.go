// Package otel wires command adapter observations into OpenTelemetry metrics and traces.
package otel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const instrumentationName = "github.com/petal-labs/cdpmcp"

// Config selects where telemetry goes. An empty Endpoint keeps everything in-process.
type Config struct {
	// Endpoint is an OTLP/HTTP collector, either host:port or a full URL.
	Endpoint    string
	ServiceName string
	Insecure    bool
}

// Telemetry is the installed provider pair and the observer bound to it.
type Telemetry struct {
	Observer       *ToolObserver
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	if t.TracerProvider != nil {
		errs = append(errs, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errs = append(errs, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Setup builds SDK providers, registers them globally and returns a ToolObserver. Spans are
// exported over OTLP/HTTP when cfg.Endpoint is set. Extra metric readers (for example a
// ManualReader in tests) are attached to the meter provider.
func Setup(ctx context.Context, cfg Config, readers ...sdkmetric.Reader) (*Telemetry, error) {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "cdpmcp"
	}
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		exporter, err := otlptracehttp.New(ctx, exporterOptions(endpoint, cfg.Insecure)...)
		if err != nil {
			return nil, fmt.Errorf("otel: create otlp trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(traceOpts...)

	metricOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		metricOpts = append(metricOpts, sdkmetric.WithReader(reader))
	}
	mp := sdkmetric.NewMeterProvider(metricOpts...)

	otelapi.SetTracerProvider(tp)
	otelapi.SetMeterProvider(mp)

	observer, err := NewToolObserver(mp.Meter(instrumentationName), tp.Tracer(instrumentationName))
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, fmt.Errorf("otel: create tool observer: %w", err)
	}
	return &Telemetry{Observer: observer, TracerProvider: tp, MeterProvider: mp}, nil
}

func exporterOptions(endpoint string, insecure bool) []otlptracehttp.Option {
	var opts []otlptracehttp.Option
	if strings.Contains(endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	}
	return opts
}

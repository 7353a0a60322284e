package otel

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/cdpmcp/tool"
)

// ToolObserver records command adapter executions into OpenTelemetry.
type ToolObserver struct {
	tracer trace.Tracer

	executions metric.Int64Counter
	failures   metric.Int64Counter
	latency    metric.Float64Histogram
	output     metric.Int64Counter
}

// NewToolObserver creates a tool observer bound to the provided meter/tracer.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	executions, err := meter.Int64Counter(
		"cdpmcp.tool.executions",
		metric.WithDescription("Number of tool executions, including usage queries"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"cdpmcp.tool.failures",
		metric.WithDescription("Number of calls that failed before or while spawning a process"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"cdpmcp.tool.latency",
		metric.WithDescription("Tool process wall time in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	output, err := meter.Int64Counter(
		"cdpmcp.tool.output.bytes",
		metric.WithDescription("Bytes captured from tool stdout and stderr"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &ToolObserver{
		tracer:     tracer,
		executions: executions,
		failures:   failures,
		latency:    latency,
		output:     output,
	}, nil
}

// ObserveExecute records one execution.
func (o *ToolObserver) ObserveExecute(observation tool.ExecuteObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_name", observation.ToolName),
		attribute.String("operation", observation.Operation),
		attribute.Bool("spawned", observation.Spawned),
	}
	if observation.Spawned {
		attrs = append(attrs, attribute.String("exit_code", strconv.Itoa(observation.ExitCode)))
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.executions.Add(ctx, 1, options)
	if observation.ErrorCode != "" {
		o.failures.Add(ctx, 1, options)
	}
	if observation.Spawned {
		duration := time.Duration(observation.DurationMS) * time.Millisecond
		o.latency.Record(ctx, duration.Seconds(), options)
		o.output.Add(ctx, int64(observation.StdoutBytes), metric.WithAttributes(append(attrs, attribute.String("stream", "stdout"))...))
		o.output.Add(ctx, int64(observation.StderrBytes), metric.WithAttributes(append(attrs, attribute.String("stream", "stderr"))...))
	}

	if o.tracer == nil {
		return
	}
	start := observation.StartedAt
	if start.IsZero() {
		start = time.Now()
	}
	_, span := o.tracer.Start(ctx, "tool.execute",
		trace.WithAttributes(append(attrs,
			attribute.String("execution_id", observation.ID),
			attribute.StringSlice("argv", observation.Argv),
		)...),
		trace.WithTimestamp(start),
	)
	// A non-zero exit status is a tool result, not a span error.
	if observation.ErrorCode != "" {
		span.SetStatus(codes.Error, observation.ErrorCode)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(start.Add(time.Duration(observation.DurationMS) * time.Millisecond)))
}

var _ tool.Observer = (*ToolObserver)(nil)

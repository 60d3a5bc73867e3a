package executor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/syncforge/migratekit/executor"

// Metrics holds OpenTelemetry instruments for operation observability.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	retryTotal        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	operationTotal, err := meter.Int64Counter("operation.total",
		metric.WithDescription("Total number of operations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation.total counter: %w", err)
	}

	operationDuration, err := meter.Float64Histogram("operation.duration",
		metric.WithDescription("Duration of operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation.duration histogram: %w", err)
	}

	retryTotal, err := meter.Int64Counter("operation.retries",
		metric.WithDescription("Total retry attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation.retries counter: %w", err)
	}

	return &Metrics{
		operationTotal:    operationTotal,
		operationDuration: operationDuration,
		retryTotal:        retryTotal,
	}, nil
}

// NewDefaultMetrics creates instruments on the globally-configured meter.
func NewDefaultMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(instrumentationName))
}

func (m *Metrics) recordOperation(ctx context.Context, opType, endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", opType),
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	)
	m.operationTotal.Add(ctx, 1, attrs)
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", opType),
		attribute.String("endpoint", endpoint),
	))
}

func (m *Metrics) recordRetry(ctx context.Context, opType, endpoint string) {
	if m == nil {
		return
	}
	m.retryTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", opType),
		attribute.String("endpoint", endpoint),
	))
}

// startSpan opens a span for one operation execution.
func startSpan(ctx context.Context, opType, endpoint string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, "executor."+opType,
		trace.WithAttributes(
			attribute.String("operation", opType),
			attribute.String("endpoint", endpoint),
		),
	)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

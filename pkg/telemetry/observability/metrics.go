package observability

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records dispatch metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordTracked records an event fanned out to providers.
	RecordTracked(ctx context.Context, eventName string, providerCount int)

	// RecordDropped records an event gated out of delivery.
	// Reasons: "middleware", "consent", "offline".
	RecordDropped(ctx context.Context, eventName, reason string)

	// RecordProviderError records an isolated provider failure.
	RecordProviderError(ctx context.Context, providerID, op string)

	// RecordQueueDepth records the offline queue size after a change.
	RecordQueueDepth(ctx context.Context, depth int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	tracked        metric.Int64Counter
	dropped        metric.Int64Counter
	providerErrors metric.Int64Counter
	queueDepth     metric.Int64Gauge
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("telemetrykit")

	tracked, err := meter.Int64Counter("telemetry.events.tracked",
		metric.WithDescription("Number of events fanned out to providers"),
	)
	if err != nil {
		return nil, err
	}

	dropped, err := meter.Int64Counter("telemetry.events.dropped",
		metric.WithDescription("Number of events dropped before dispatch"),
	)
	if err != nil {
		return nil, err
	}

	providerErrors, err := meter.Int64Counter("telemetry.provider.errors",
		metric.WithDescription("Number of isolated provider failures"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Gauge("telemetry.queue.depth",
		metric.WithDescription("Offline queue depth"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		tracked:        tracked,
		dropped:        dropped,
		providerErrors: providerErrors,
		queueDepth:     queueDepth,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordTracked records an event fan-out.
func (m *otelMetrics) RecordTracked(ctx context.Context, eventName string, providerCount int) {
	m.tracked.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", eventName),
		attribute.Int("providers", providerCount),
	))
}

// RecordDropped records a gated event.
func (m *otelMetrics) RecordDropped(ctx context.Context, eventName, reason string) {
	m.dropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", eventName),
		attribute.String("reason", reason),
	))
}

// RecordProviderError records a provider failure.
func (m *otelMetrics) RecordProviderError(ctx context.Context, providerID, op string) {
	m.providerErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", providerID),
		attribute.String("operation", op),
	))
}

// RecordQueueDepth records the offline queue size.
func (m *otelMetrics) RecordQueueDepth(ctx context.Context, depth int64) {
	m.queueDepth.Record(ctx, depth)
}

package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for all victoruno instruments.
const MeterName = "victoruno"

// MetricsRecorder records engine and capability metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution counts a node run and its latency; err marks a
	// node failure.
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordGraphRun counts one run, labelled by success.
	RecordGraphRun(ctx context.Context, success bool, duration time.Duration)

	// RecordCheckpoint records the serialized size of a saved checkpoint.
	RecordCheckpoint(ctx context.Context, nodeID string, sizeBytes int64)

	// RecordCapabilityCall counts one call to the model, document or
	// search capability.
	RecordCapabilityCall(ctx context.Context, capability string, duration time.Duration, err error)
}

type otelMetrics struct {
	nodeExecutions  metric.Int64Counter
	nodeLatency     metric.Float64Histogram
	nodeErrors      metric.Int64Counter
	graphRuns       metric.Int64Counter
	graphLatency    metric.Float64Histogram
	checkpointSize  metric.Int64Histogram
	capabilityCalls metric.Int64Counter
	capabilityTime  metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter(MeterName))
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	var (
		m   otelMetrics
		err error
	)

	counter := func(name, desc string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	latency := func(name, desc string) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("ms"))
		return h
	}

	m.nodeExecutions = counter("victoruno.node.executions", "Number of node executions")
	m.nodeLatency = latency("victoruno.node.latency_ms", "Node execution latency")
	m.nodeErrors = counter("victoruno.node.errors", "Number of node execution errors")
	m.graphRuns = counter("victoruno.graph.runs", "Number of graph runs")
	m.graphLatency = latency("victoruno.graph.latency_ms", "Graph run latency")
	m.capabilityCalls = counter("victoruno.capability.calls", "Number of capability calls")
	m.capabilityTime = latency("victoruno.capability.latency_ms", "Capability call latency")
	if err != nil {
		return nil, err
	}

	m.checkpointSize, err = meter.Int64Histogram("victoruno.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider, or a no-op recorder if the instruments cannot be created.
// Install the provider before the first call:
//
//	otel.SetMeterProvider(provider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderFromMeter builds a recorder on an explicit meter.
// Unlike NewMetricsRecorder it creates fresh instruments on every call, so
// build one per process and share it.
//
// Example:
//
//	reader := sdkmetric.NewManualReader()
//	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
//	rec, err := observability.NewMetricsRecorderFromMeter(provider.Meter("victoruno"))
func NewMetricsRecorderFromMeter(meter metric.Meter) (MetricsRecorder, error) {
	return newOtelMetrics(meter)
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("node_id", nodeID))
	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordGraphRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.graphRuns.Add(ctx, 1, attrs)
	m.graphLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordCheckpoint(ctx context.Context, nodeID string, sizeBytes int64) {
	m.checkpointSize.Record(ctx, sizeBytes, metric.WithAttributes(attribute.String("node_id", nodeID)))
}

// RecordCapabilityCall records a model, document or search call, labelled
// by capability and success.
func (m *otelMetrics) RecordCapabilityCall(ctx context.Context, capability string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.Bool("success", err == nil),
	)
	m.capabilityCalls.Add(ctx, 1, attrs)
	m.capabilityTime.Record(ctx, float64(duration.Milliseconds()), attrs)
}

package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRunSpan starts the root span of a graph run.
	StartRunSpan(ctx context.Context, graphName, runID string) (context.Context, trace.Span)

	// StartNodeSpan starts a child span for one node.
	StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span)

	// StartCapabilitySpan starts a child span around an external call
	// (model, document extraction, web search).
	StartCapabilitySpan(ctx context.Context, capability string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, recording err when non-nil.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the span carried by ctx.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager on the global tracer provider.
//
// The tracer is taken when the manager is built, so configure the provider
// first:
//
//	otel.SetTracerProvider(provider)
//	spans := observability.NewSpanManager()
func NewSpanManager() SpanManager {
	return &otelSpanManager{tracer: otel.Tracer(MeterName)}
}

// NewSpanManagerFromProvider uses an explicit provider, typically an
// sdk/trace provider with an in-memory exporter in tests.
func NewSpanManagerFromProvider(tp trace.TracerProvider) SpanManager {
	return &otelSpanManager{tracer: tp.Tracer(MeterName)}
}

// StartRunSpan starts the root span of a graph run, named victoruno.run.
func (m *otelSpanManager) StartRunSpan(ctx context.Context, graphName, runID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "victoruno.run",
		trace.WithAttributes(
			attribute.String("graph.name", graphName),
			attribute.String("run.id", runID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartNodeSpan starts a span named victoruno.node.<nodeID>.
func (m *otelSpanManager) StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "victoruno.node."+nodeID,
		trace.WithAttributes(attribute.String("node.id", nodeID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartCapabilitySpan starts a client span named
// victoruno.capability.<capability>.
func (m *otelSpanManager) StartCapabilitySpan(ctx context.Context, capability string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "victoruno.capability."+capability,
		trace.WithAttributes(attribute.String("capability", capability)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpanWithError sets the span status from err and ends it.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

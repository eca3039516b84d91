package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/vedangtiwari01-dev/vs-demo"

// StartStageSpan starts a span named "<component>.<stage>" on the global
// tracer provider.
func StartStageSpan(ctx context.Context, component, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("auditor.component", component),
		attribute.String("auditor.stage", stage),
	)
	return otel.Tracer(instrumentationName).Start(ctx, component+"."+stage, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span with additional context
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if err != nil {
		span.RecordError(err, opts...)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds an event to the span with attributes
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSendSpan starts a producer-kind span wrapping a single producer send.
// topic may be empty when the caller does not track per-producer topic
// names; the span is still useful for latency and error visibility.
func StartSendSpan(ctx context.Context, tracer trace.Tracer, driverClass, topic string) (context.Context, trace.Span) {
	name := driverClass + " publish"
	if topic != "" {
		name += " " + topic
	}
	ctx, span := tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindProducer),
	)
	span.SetAttributes(attribute.String("messaging.system", driverClass))
	if topic != "" {
		span.SetAttributes(attribute.String("messaging.destination", topic))
	}
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

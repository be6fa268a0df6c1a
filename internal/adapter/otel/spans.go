package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "askdesk"

// StartAssembleSpan starts a span for one context assembly.
func StartAssembleSpan(ctx context.Context, askSessionID string, anonymous bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "context.assemble",
		trace.WithAttributes(
			attribute.String("ask_session.id", askSessionID),
			attribute.Bool("requester.anonymous", anonymous),
		),
	)
}

// StartThreadResolveSpan starts a span for thread resolution.
func StartThreadResolveSpan(ctx context.Context, askSessionID string, shared bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "thread.resolve",
		trace.WithAttributes(
			attribute.String("ask_session.id", askSessionID),
			attribute.Bool("thread.shared", shared),
		),
	)
}

// StartMessagesLoadSpan starts a span for message aggregation. threadID is
// empty when the session has no thread.
func StartMessagesLoadSpan(ctx context.Context, askSessionID, threadID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "messages.load",
		trace.WithAttributes(
			attribute.String("ask_session.id", askSessionID),
			attribute.String("thread.id", threadID),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

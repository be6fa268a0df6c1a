package logger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type requestIDKey struct{}

type fieldsKey struct{}

// Fields carries resolution identifiers attached to every log record
// emitted with the context.
type Fields struct {
	AskSessionID string
	ThreadID     string
	UserID       string
}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithFields merges f into the fields already carried by ctx. Empty values
// never overwrite set ones.
func WithFields(ctx context.Context, f Fields) context.Context {
	cur := GetFields(ctx)
	if f.AskSessionID != "" {
		cur.AskSessionID = f.AskSessionID
	}
	if f.ThreadID != "" {
		cur.ThreadID = f.ThreadID
	}
	if f.UserID != "" {
		cur.UserID = f.UserID
	}
	return context.WithValue(ctx, fieldsKey{}, cur)
}

// GetFields returns the fields stored in ctx, or the zero value.
func GetFields(ctx context.Context) Fields {
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

// ContextHandler enriches records with identifiers found in the context.
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler wraps h.
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

// Handle adds request, resolution and trace attributes before delegating.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	f := GetFields(ctx)
	if f.AskSessionID != "" {
		r.AddAttrs(slog.String("ask_session_id", f.AskSessionID))
	}
	if f.ThreadID != "" {
		r.AddAttrs(slog.String("thread_id", f.ThreadID))
	}
	if f.UserID != "" {
		r.AddAttrs(slog.String("user_id", f.UserID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs keeps the wrapper around the derived handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup keeps the wrapper around the derived handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

package observability

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with notes-specific span creation methods.
type Tracer struct {
	tracer         trace.Tracer
	serviceName    string
	serviceVersion string
}

// NewTracer creates a new Tracer using the given TracerProvider.
func NewTracer(tp trace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{
		tracer:      tp.Tracer(TracerName),
		serviceName: serviceName,
	}
}

// StartSpan starts a new span with the given name and attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartRequest starts a server span for an HTTP request.
func (t *Tracer) StartRequest(ctx context.Context, r *http.Request) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", r.Method),
		attribute.String("http.route", r.URL.Path),
	}
	if t.serviceName != "" {
		attrs = append(attrs, attribute.String("service.name", t.serviceName))
	}
	if t.serviceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", t.serviceVersion))
	}
	return t.tracer.Start(ctx, "notes.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...))
}

// SetHTTPStatus sets the HTTP status code on the current span.
func (t *Tracer) SetHTTPStatus(ctx context.Context, statusCode int) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("http.status_code", statusCode))
	if statusCode >= 500 {
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	}
}

// StartNotesOperation starts a span for a note store operation owned by userID.
func (t *Tracer) StartNotesOperation(ctx context.Context, op string, userID uint) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "notes."+op, trace.WithAttributes(
		OperationAttr(op),
		UserIDAttr(userID),
	))
}

// StartFilterTranslate starts a span around $filter translation.
// The filter text is only attached when includeText is set.
func (t *Tracer) StartFilterTranslate(ctx context.Context, filter string, includeText bool) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{OperationAttr(OpTranslate)}
	if includeText {
		attrs = append(attrs, FilterTextAttr(filter))
	}
	return t.tracer.Start(ctx, "notes.filter.translate", trace.WithAttributes(attrs...))
}

// StartDBQuery starts a client span for a database statement.
func (t *Tracer) StartDBQuery(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.operation", operation))
	return t.tracer.Start(ctx, "db.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
}

// RecordError records an error on the span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// LoggerWithTrace returns a logger enriched with trace context.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}
	return logger.With(
		slog.String(LogFieldTraceID, span.SpanContext().TraceID().String()),
		slog.String(LogFieldSpanID, span.SpanContext().SpanID().String()),
	)
}

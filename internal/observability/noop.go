package observability

import (
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// NewNoopTracer creates a tracer that does nothing.
func NewNoopTracer() *Tracer {
	return NewTracer(tracenoop.NewTracerProvider(), "")
}

// NewNoopMetrics creates metrics that do nothing.
func NewNoopMetrics() *Metrics {
	return NewMetrics(noop.NewMeterProvider())
}

package observability

import (
	"errors"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceName identifies the service when no name is configured.
const DefaultServiceName = "stickynotes"

// ErrMissingServiceName is returned by Initialize when the service name was
// cleared.
var ErrMissingServiceName = errors.New("observability: service name is required")

// Feature switches on optional instrumentation. Features combine as a bit set.
type Feature uint8

const (
	// FeatureDBSpans opens a span for every database call. It has no effect
	// without a tracer provider.
	FeatureDBSpans Feature = 1 << iota
	// FeatureFilterText records the raw $filter text on translate spans.
	FeatureFilterText
	// FeatureServerTiming adds the Server-Timing response header.
	FeatureServerTiming
)

// Config selects the providers and features used by the notes service.
// A nil *Config is valid and disables everything.
type Config struct {
	// TracerProvider is nil when tracing is off.
	TracerProvider trace.TracerProvider
	// MeterProvider is nil when metrics are off.
	MeterProvider metric.MeterProvider

	ServiceName    string
	ServiceVersion string

	features Feature
	tracer   *Tracer
	metrics  *Metrics
}

type Option func(*Config)

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) { c.TracerProvider = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Config) { c.MeterProvider = mp }
}

// WithService sets the name and version reported on request spans.
func WithService(name, version string) Option {
	return func(c *Config) {
		c.ServiceName = name
		c.ServiceVersion = version
	}
}

// WithFeatures turns on the given features in addition to any already set.
func WithFeatures(features ...Feature) Option {
	return func(c *Config) {
		for _, f := range features {
			c.features |= f
		}
	}
}

// NewConfig returns a Config named DefaultServiceName with opts applied.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{ServiceName: DefaultServiceName}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Initialize builds the tracer and metrics. Missing providers get no-op
// implementations. It may be called again after the providers change.
func (c *Config) Initialize() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}

	c.tracer = NewNoopTracer()
	if c.TracerProvider != nil {
		c.tracer = NewTracer(c.TracerProvider, c.ServiceName)
		c.tracer.serviceVersion = c.ServiceVersion
	}

	c.metrics = NewNoopMetrics()
	if c.MeterProvider != nil {
		c.metrics = NewMetrics(c.MeterProvider)
	}
	return nil
}

// Tracer returns the tracer built by Initialize, or a no-op tracer.
func (c *Config) Tracer() *Tracer {
	if c == nil || c.tracer == nil {
		return NewNoopTracer()
	}
	return c.tracer
}

// Metrics returns the metrics built by Initialize, or no-op metrics.
func (c *Config) Metrics() *Metrics {
	if c == nil || c.metrics == nil {
		return NewNoopMetrics()
	}
	return c.metrics
}

// Has reports whether every feature in f is on.
func (c *Config) Has(f Feature) bool {
	return c != nil && c.features&f == f
}

// IsEnabled reports whether a tracer or meter provider is configured.
func (c *Config) IsEnabled() bool {
	return c != nil && (c.TracerProvider != nil || c.MeterProvider != nil)
}

// DBSpansEnabled reports whether database calls get their own spans.
func (c *Config) DBSpansEnabled() bool {
	return c.Has(FeatureDBSpans) && c.TracerProvider != nil
}

func (c *Config) ServerTimingEnabled() bool {
	return c.Has(FeatureServerTiming)
}

func (c *Config) FilterTracingEnabled() bool {
	return c.Has(FeatureFilterText)
}

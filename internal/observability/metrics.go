package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestDuration  = "notes.request.duration"
	metricRequestCount     = "notes.request.count"
	metricResultCount      = "notes.result.count"
	metricDBQueryDuration  = "notes.db.query.duration"
	metricBatchSize        = "notes.batch.size"
	metricErrorCount       = "notes.error.count"
	metricFilterCount      = "notes.filter.translate.count"
	metricFilterErrorCount = "notes.filter.error.count"
	metricFilterParams     = "notes.filter.param.count"
)

// Metrics holds the metric instruments of the notes service.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestCount     metric.Int64Counter
	resultCount      metric.Int64Histogram
	dbQueryDuration  metric.Float64Histogram
	batchSize        metric.Int64Histogram
	errorCount       metric.Int64Counter
	filterCount      metric.Int64Counter
	filterErrorCount metric.Int64Counter
	filterParams     metric.Int64Histogram
}

// NewMetrics creates a new Metrics instance with the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	// Instrument creation only fails on invalid parameters; fall back to a bare
	// instrument of the same name so recording never sees a nil.
	var err error

	m.requestDuration, err = meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("Duration of HTTP requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.requestDuration, _ = meter.Float64Histogram(metricRequestDuration)
	}

	m.requestCount, err = meter.Int64Counter(
		metricRequestCount,
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.requestCount, _ = meter.Int64Counter(metricRequestCount)
	}

	m.resultCount, err = meter.Int64Histogram(
		metricResultCount,
		metric.WithDescription("Number of notes returned by list queries"),
		metric.WithUnit("{note}"),
	)
	if err != nil {
		m.resultCount, _ = meter.Int64Histogram(metricResultCount)
	}

	m.dbQueryDuration, err = meter.Float64Histogram(
		metricDBQueryDuration,
		metric.WithDescription("Duration of database queries in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.dbQueryDuration, _ = meter.Float64Histogram(metricDBQueryDuration)
	}

	m.batchSize, err = meter.Int64Histogram(
		metricBatchSize,
		metric.WithDescription("Number of updates in a batch update"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		m.batchSize, _ = meter.Int64Histogram(metricBatchSize)
	}

	m.errorCount, err = meter.Int64Counter(
		metricErrorCount,
		metric.WithDescription("Total number of failed operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.errorCount, _ = meter.Int64Counter(metricErrorCount)
	}

	m.filterCount, err = meter.Int64Counter(
		metricFilterCount,
		metric.WithDescription("Total number of $filter translations"),
		metric.WithUnit("{filter}"),
	)
	if err != nil {
		m.filterCount, _ = meter.Int64Counter(metricFilterCount)
	}

	m.filterErrorCount, err = meter.Int64Counter(
		metricFilterErrorCount,
		metric.WithDescription("Total number of rejected $filter expressions"),
		metric.WithUnit("{filter}"),
	)
	if err != nil {
		m.filterErrorCount, _ = meter.Int64Counter(metricFilterErrorCount)
	}

	m.filterParams, err = meter.Int64Histogram(
		metricFilterParams,
		metric.WithDescription("Number of parameters bound per translated filter"),
		metric.WithUnit("{parameter}"),
	)
	if err != nil {
		m.filterParams, _ = meter.Int64Histogram(metricFilterParams)
	}

	return m
}

// RecordRequest records duration and count for a completed HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, method string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.Int("http.status_code", statusCode),
	)
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	m.requestCount.Add(ctx, 1, attrs)
}

// RecordResultCount records the number of notes returned by a list query.
func (m *Metrics) RecordResultCount(ctx context.Context, count int64) {
	m.resultCount.Record(ctx, count)
}

// RecordDBQuery records metrics for a database query.
func (m *Metrics) RecordDBQuery(ctx context.Context, operation string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("db.operation", operation))
	m.dbQueryDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordBatchSize records the size of a batch update.
func (m *Metrics) RecordBatchSize(ctx context.Context, size int) {
	m.batchSize.Record(ctx, int64(size))
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError(ctx context.Context, operation, errorType string) {
	attrs := metric.WithAttributes(
		OperationAttr(operation),
		attribute.String(AttrErrorType, errorType),
	)
	m.errorCount.Add(ctx, 1, attrs)
}

// RecordFilterTranslate records one filter translation. errorKind is empty on success.
func (m *Metrics) RecordFilterTranslate(ctx context.Context, params int, errorKind string) {
	m.filterCount.Add(ctx, 1)
	if errorKind != "" {
		m.filterErrorCount.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrFilterErrorKind, errorKind)))
		return
	}
	m.filterParams.Record(ctx, int64(params))
}

// Package observability provides OpenTelemetry-based instrumentation for the notes service.
//
// It supports distributed tracing, metrics collection, Server-Timing headers and
// structured logging enriched with trace context.
//
// All observability features are opt-in. When not configured, no-op implementations
// are used.
package observability

import "go.opentelemetry.io/otel/attribute"

// Instrumentation identity constants
const (
	// TracerName is the instrumentation name for tracing.
	TracerName = "github.com/nlstn/go-stickynotes"
	// MeterName is the instrumentation name for metrics.
	MeterName = "github.com/nlstn/go-stickynotes"
)

// Semantic attribute keys.
const (
	// Notes attributes
	AttrOperation = "notes.operation"
	AttrNoteID    = "notes.note_id"
	AttrUserID    = "notes.user_id"

	// Filter attributes
	AttrFilterText       = "notes.filter.text"
	AttrFilterParamCount = "notes.filter.param_count"
	AttrFilterErrorKind  = "notes.filter.error_kind"

	// Result attributes
	AttrResultCount = "notes.result.count"
	AttrPage        = "notes.page"
	AttrPageSize    = "notes.page_size"

	// Batch attributes
	AttrBatchSize   = "notes.batch.size"
	AttrBatchFailed = "notes.batch.failed"

	// Error attributes
	AttrErrorType = "error.type"
)

// Operation types for the notes.operation attribute.
const (
	OpListNotes   = "list_notes"
	OpGetNote     = "get_note"
	OpCreateNote  = "create_note"
	OpUpdateNote  = "update_note"
	OpDeleteNote  = "delete_note"
	OpBatchUpdate = "batch_update"
	OpSignup      = "signup"
	OpLogin       = "login"
	OpTranslate   = "translate_filter"
)

// Log field keys for structured logging with trace context.
const (
	LogFieldOperation = "operation"
	LogFieldTraceID   = "trace_id"
	LogFieldSpanID    = "span_id"
	LogFieldRequestID = "request_id"
	LogFieldUserID    = "user_id"
	LogFieldFilter    = "filter"
	LogFieldDuration  = "duration_ms"
	LogFieldError     = "error"
)

// OperationAttr creates an attribute for the operation type.
func OperationAttr(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// NoteIDAttr creates an attribute for a note ID.
func NoteIDAttr(id uint) attribute.KeyValue {
	return attribute.Int64(AttrNoteID, int64(id))
}

// UserIDAttr creates an attribute for the owning user ID.
func UserIDAttr(id uint) attribute.KeyValue {
	return attribute.Int64(AttrUserID, int64(id))
}

// FilterTextAttr creates an attribute for the raw $filter expression.
func FilterTextAttr(filter string) attribute.KeyValue {
	return attribute.String(AttrFilterText, filter)
}

// FilterParamCountAttr creates an attribute for the number of bound filter parameters.
func FilterParamCountAttr(n int) attribute.KeyValue {
	return attribute.Int(AttrFilterParamCount, n)
}

// ResultCountAttr creates an attribute for the result count.
func ResultCountAttr(count int64) attribute.KeyValue {
	return attribute.Int64(AttrResultCount, count)
}

// BatchSizeAttr creates an attribute for the batch size.
func BatchSizeAttr(size int) attribute.KeyValue {
	return attribute.Int(AttrBatchSize, size)
}

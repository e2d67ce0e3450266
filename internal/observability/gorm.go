package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	gormSpanKey        = "notes:gorm:span"
	gormStartTimeKey   = "notes:gorm:start"
	gormTimingStartKey = "notes:gorm:timing_start"
	gormTimingPrefix   = "notes_server_timing"
)

// gormHook names one GORM processor, its built-in callback and the operation label.
type gormHook struct {
	name      string
	builtin   string
	operation string
}

func gormHooks() []gormHook {
	return []gormHook{
		{name: "query", builtin: "gorm:query", operation: "SELECT"},
		{name: "create", builtin: "gorm:create", operation: "INSERT"},
		{name: "update", builtin: "gorm:update", operation: "UPDATE"},
		{name: "delete", builtin: "gorm:delete", operation: "DELETE"},
		{name: "row", builtin: "gorm:row", operation: "ROW"},
		{name: "raw", builtin: "gorm:raw", operation: "RAW"},
	}
}

// register attaches before/after callbacks for one hook.
func (h gormHook) register(db *gorm.DB, prefix string, before, after func(*gorm.DB)) error {
	beforeName := prefix + ":before_" + h.name
	afterName := prefix + ":after_" + h.name
	cb := db.Callback()
	switch h.name {
	case "query":
		if err := cb.Query().Before(h.builtin).Register(beforeName, before); err != nil {
			return err
		}
		return cb.Query().After(h.builtin).Register(afterName, after)
	case "create":
		if err := cb.Create().Before(h.builtin).Register(beforeName, before); err != nil {
			return err
		}
		return cb.Create().After(h.builtin).Register(afterName, after)
	case "update":
		if err := cb.Update().Before(h.builtin).Register(beforeName, before); err != nil {
			return err
		}
		return cb.Update().After(h.builtin).Register(afterName, after)
	case "delete":
		if err := cb.Delete().Before(h.builtin).Register(beforeName, before); err != nil {
			return err
		}
		return cb.Delete().After(h.builtin).Register(afterName, after)
	case "row":
		if err := cb.Row().Before(h.builtin).Register(beforeName, before); err != nil {
			return err
		}
		return cb.Row().After(h.builtin).Register(afterName, after)
	default:
		if err := cb.Raw().Before(h.builtin).Register(beforeName, before); err != nil {
			return err
		}
		return cb.Raw().After(h.builtin).Register(afterName, after)
	}
}

// RegisterGORMCallbacks registers GORM callbacks that open a span per database
// call. It does nothing unless a tracer provider is set and detailed DB tracing
// is enabled.
func RegisterGORMCallbacks(db *gorm.DB, cfg *Config) error {
	if !cfg.DBSpansEnabled() {
		return nil
	}

	tracer := cfg.Tracer()
	metrics := cfg.Metrics()
	for _, h := range gormHooks() {
		h := h
		before := func(db *gorm.DB) { startSpan(db, tracer, h.operation) }
		after := func(db *gorm.DB) { endSpan(db, tracer, metrics, h.operation) }
		if err := h.register(db, "notes", before, after); err != nil {
			return err
		}
	}
	return nil
}

// RegisterServerTimingCallbacks registers GORM callbacks that add the duration
// of every database call to the request's DBTimeAccumulator.
func RegisterServerTimingCallbacks(db *gorm.DB) error {
	for _, h := range gormHooks() {
		if err := h.register(db, gormTimingPrefix, beforeTiming, afterTiming); err != nil {
			return err
		}
	}
	return nil
}

func beforeTiming(db *gorm.DB) {
	db.InstanceSet(gormTimingStartKey, time.Now())
}

func afterTiming(db *gorm.DB) {
	v, ok := db.InstanceGet(gormTimingStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	if db.Statement != nil && db.Statement.Context != nil {
		AddDBTime(db.Statement.Context, time.Since(start))
	}
}

func startSpan(db *gorm.DB, tracer *Tracer, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracer.StartDBQuery(ctx, operation, attribute.String("db.system", db.Dialector.Name()))

	db.Statement.Context = ctx
	db.InstanceSet(gormSpanKey, span)
	db.InstanceSet(gormStartTimeKey, time.Now())
}

func endSpan(db *gorm.DB, tracer *Tracer, metrics *Metrics, operation string) {
	v, ok := db.InstanceGet(gormSpanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if table := db.Statement.Table; table != "" {
		span.SetAttributes(attribute.String("db.sql.table", table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))

	if db.Error != nil {
		tracer.RecordError(span, db.Error)
	}

	if v, ok := db.InstanceGet(gormStartTimeKey); ok {
		if start, ok := v.(time.Time); ok {
			metrics.RecordDBQuery(db.Statement.Context, operation, time.Since(start))
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	stringLitRe  = regexp.MustCompile(`'[^']*'`)
	numberLitRe  = regexp.MustCompile(`\b\d+\b`)
	inListRe     = regexp.MustCompile(`IN\s*\([^)]+\)`)
)

// queryStats aggregates executions of one normalized statement.
type queryStats struct {
	Pattern string
	Count   int
	Total   time.Duration
	Max     time.Duration
}

// sqlLogger is a gorm logger that writes through slog. Failed statements are
// logged at Error, statements slower than slowThreshold at Warn and, when
// traceAll is set, every other statement at Debug. Per-pattern timings are
// kept for the shutdown summary.
type sqlLogger struct {
	log           *slog.Logger
	level         logger.LogLevel
	slowThreshold time.Duration
	traceAll      bool

	mu      *sync.Mutex
	queries map[string]*queryStats
}

func newSQLLogger(log *slog.Logger, slowThreshold time.Duration, traceAll bool) *sqlLogger {
	return &sqlLogger{
		log:           log,
		level:         logger.Info,
		slowThreshold: slowThreshold,
		traceAll:      traceAll,
		mu:            &sync.Mutex{},
		queries:       make(map[string]*queryStats),
	}
}

// LogMode returns a copy at level sharing the same statistics.
func (l *sqlLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *sqlLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.log.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *sqlLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.log.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *sqlLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.log.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *sqlLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	l.record(normalizeQuery(sql), elapsed)

	attrs := []any{
		"sql", sql,
		"rows", rows,
		"duration_ms", float64(elapsed.Nanoseconds()) / 1e6,
	}
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		l.log.ErrorContext(ctx, "sql error", append(attrs, "error", err)...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= logger.Warn:
		l.log.WarnContext(ctx, "slow sql", append(attrs, "threshold_ms", l.slowThreshold.Milliseconds())...)
	case l.traceAll && l.level >= logger.Info:
		l.log.DebugContext(ctx, "sql", attrs...)
	}
}

func (l *sqlLogger) record(pattern string, elapsed time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.queries[pattern]
	if !ok {
		st = &queryStats{Pattern: pattern}
		l.queries[pattern] = st
	}
	st.Count++
	st.Total += elapsed
	if elapsed > st.Max {
		st.Max = elapsed
	}
}

// top returns up to n patterns ordered by total time spent.
func (l *sqlLogger) top(n int) []queryStats {
	l.mu.Lock()
	out := make([]queryStats, 0, len(l.queries))
	for _, st := range l.queries {
		out = append(out, *st)
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Pattern < out[j].Pattern
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// logSummary writes the most expensive statement patterns.
func (l *sqlLogger) logSummary(n int) {
	for i, st := range l.top(n) {
		l.log.Info("sql summary",
			"rank", i+1,
			"pattern", st.Pattern,
			"count", st.Count,
			"total_ms", float64(st.Total.Nanoseconds())/1e6,
			"avg_ms", float64(st.Total.Nanoseconds())/float64(st.Count)/1e6,
			"max_ms", float64(st.Max.Nanoseconds())/1e6)
	}
}

// normalizeQuery replaces literals so that statements differing only in
// their values share a pattern.
func normalizeQuery(sql string) string {
	p := whitespaceRe.ReplaceAllString(strings.TrimSpace(sql), " ")
	p = stringLitRe.ReplaceAllString(p, "?")
	p = numberLitRe.ReplaceAllString(p, "?")
	return inListRe.ReplaceAllString(p, "IN (?)")
}

package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
)

// ServerTimingMetric wraps the server-timing library's Metric type.
type ServerTimingMetric struct {
	metric *servertiming.Metric
}

// Stop stops the timing metric.
func (m *ServerTimingMetric) Stop() {
	if m != nil && m.metric != nil {
		m.metric.Stop()
	}
}

// StartServerTiming starts a server-timing metric with the given name.
// If the context carries no timing header the returned metric is a no-op.
func StartServerTiming(ctx context.Context, name string) *ServerTimingMetric {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return &ServerTimingMetric{}
	}

	return &ServerTimingMetric{
		metric: timing.NewMetric(name).Start(),
	}
}

// StartServerTimingWithDesc starts a server-timing metric with the given name and description.
func StartServerTimingWithDesc(ctx context.Context, name, description string) *ServerTimingMetric {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return &ServerTimingMetric{}
	}

	return &ServerTimingMetric{
		metric: timing.NewMetric(name).WithDesc(description).Start(),
	}
}

// DBTimeAccumulator sums the time spent in database calls during one request.
type DBTimeAccumulator struct {
	mu    sync.Mutex
	total time.Duration
}

// Add adds d to the accumulated time.
func (a *DBTimeAccumulator) Add(d time.Duration) {
	a.mu.Lock()
	a.total += d
	a.mu.Unlock()
}

// Duration returns the accumulated time.
func (a *DBTimeAccumulator) Duration() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

type dbTimeKey struct{}

// WithDBTimeAccumulator returns a context carrying a fresh accumulator.
func WithDBTimeAccumulator(ctx context.Context) context.Context {
	return context.WithValue(ctx, dbTimeKey{}, &DBTimeAccumulator{})
}

// DBTimeAccumulatorFromContext returns the accumulator stored in ctx, or nil.
func DBTimeAccumulatorFromContext(ctx context.Context) *DBTimeAccumulator {
	acc, _ := ctx.Value(dbTimeKey{}).(*DBTimeAccumulator)
	return acc
}

// AddDBTime adds d to the accumulator in ctx. It does nothing when ctx has none.
func AddDBTime(ctx context.Context, d time.Duration) {
	if acc := DBTimeAccumulatorFromContext(ctx); acc != nil {
		acc.Add(d)
	}
}

// ServerTimingMiddleware adds a Server-Timing header to every response when
// enabled in cfg. Accumulated database time is reported as the "db" metric.
func ServerTimingMiddleware(cfg *Config) func(http.Handler) http.Handler {
	if !cfg.ServerTimingEnabled() {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithDBTimeAccumulator(r.Context())
			next.ServeHTTP(&dbTimingWriter{ResponseWriter: w, ctx: ctx}, r.WithContext(ctx))
		})
		return servertiming.Middleware(inner, nil)
	}
}

// dbTimingWriter publishes the db metric right before the header is sent.
type dbTimingWriter struct {
	http.ResponseWriter
	ctx         context.Context
	wroteHeader bool
}

func (w *dbTimingWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if timing := servertiming.FromContext(w.ctx); timing != nil {
			if acc := DBTimeAccumulatorFromContext(w.ctx); acc != nil && acc.Duration() > 0 {
				timing.Add(&servertiming.Metric{Name: "db", Duration: acc.Duration(), Desc: "database"})
			}
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *dbTimingWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

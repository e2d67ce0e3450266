package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// HTTPMiddleware returns an HTTP middleware that opens a server span per
// request and records request metrics. It is a passthrough when neither
// tracing nor metrics are configured.
func HTTPMiddleware(cfg *Config) func(http.Handler) http.Handler {
	if !cfg.IsEnabled() {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	tracer := cfg.Tracer()
	metrics := cfg.Metrics()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.StartRequest(r.Context(), r)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			tracer.SetHTTPStatus(ctx, status)
			metrics.RecordRequest(ctx, r.Method, status, time.Since(start))
		})
	}
}

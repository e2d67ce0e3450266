// Package handlers serves the HTTP API of the notes service: account signup
// and login under /auth, and owner-scoped note operations under /notes.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nlstn/go-stickynotes/internal/auth"
	"github.com/nlstn/go-stickynotes/internal/notes"
	"github.com/nlstn/go-stickynotes/internal/observability"
	"github.com/nlstn/go-stickynotes/internal/response"
	"github.com/nlstn/go-stickynotes/internal/users"
)

const maxBodyBytes = 1 << 20

// Handler holds the stores and token issuer behind the API.
type Handler struct {
	notes         *notes.Store
	users         *users.Store
	issuer        *auth.Issuer
	logger        *slog.Logger
	obs           *observability.Config
	corsOrigins   []string
	secureCookies bool
	authLimiter   *rateLimiter
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithObservability enables request tracing, metrics and Server-Timing.
func WithObservability(cfg *observability.Config) Option {
	return func(h *Handler) {
		h.obs = cfg
	}
}

// WithCORSOrigins restricts the origins allowed by CORS. The default allows any.
func WithCORSOrigins(origins ...string) Option {
	return func(h *Handler) {
		if len(origins) > 0 {
			h.corsOrigins = origins
		}
	}
}

// WithSecureCookies marks the login cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) {
		h.secureCookies = secure
	}
}

// WithAuthRateLimit limits signup and login to perSecond requests per client
// IP with the given burst. Non-positive values leave the routes unlimited.
func WithAuthRateLimit(perSecond float64, burst int) Option {
	return func(h *Handler) {
		if perSecond > 0 && burst > 0 {
			h.authLimiter = newRateLimiter(perSecond, burst)
		}
	}
}

// New returns a Handler.
func New(notesStore *notes.Store, usersStore *users.Store, issuer *auth.Issuer, opts ...Option) *Handler {
	h := &Handler{
		notes:       notesStore,
		users:       usersStore,
		issuer:      issuer,
		logger:      slog.Default(),
		corsOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the chi router serving every route of the API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader, "If-Match", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", RequestIDHeader, "Server-Timing"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(observability.HTTPMiddleware(h.obs))
	r.Use(observability.ServerTimingMiddleware(h.obs))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.message(w, r, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.message(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/test", h.test)

	r.Route("/auth", func(r chi.Router) {
		if h.authLimiter != nil {
			r.Use(h.rateLimit(h.authLimiter))
		}
		r.Post("/signup", h.signup)
		r.Post("/login", h.login)
	})

	r.Route("/notes", func(r chi.Router) {
		r.Use(auth.Middleware(h.issuer, h.deny))
		r.Post("/", h.createNote)
		r.Get("/list", h.listNotes)
		r.Post("/batch-update", h.batchUpdate)
		r.Put("/update/{id}", h.updateNote)
		r.Delete("/delete/{id}", h.deleteNote)
		r.Get("/{id}", h.getNote)
	})

	return r
}

func (h *Handler) test(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusOK, response.Body{"status": "success"})
}

// write sends body with the request ID.
func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, body response.Body) {
	h.checkWrite(r, response.Write(w, status, RequestIDFromContext(r.Context()), body))
}

// message sends {requestId, message}.
func (h *Handler) message(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.checkWrite(r, response.WriteMessage(w, status, RequestIDFromContext(r.Context()), msg))
}

func (h *Handler) checkWrite(r *http.Request, err error) {
	if err != nil {
		h.log(r).Error("error writing response", observability.LogFieldError, err)
	}
}

// log returns the request logger enriched with trace and request IDs.
func (h *Handler) log(r *http.Request) *slog.Logger {
	return observability.LoggerWithTrace(r.Context(), h.logger).
		With(observability.LogFieldRequestID, RequestIDFromContext(r.Context()))
}

func (h *Handler) deny(w http.ResponseWriter, r *http.Request, status int, err error) {
	h.log(r).Debug("request denied", "status", status, observability.LogFieldError, err)
	h.message(w, r, status, http.StatusText(status))
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformedBody)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

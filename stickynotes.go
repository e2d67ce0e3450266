// Package stickynotes is a sticky-notes HTTP service. Notes belong to a user,
// are stored through gorm and can be listed with an OData-style $filter that
// is translated into a parameterized SQL WHERE clause.
package stickynotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/nlstn/go-stickynotes/internal/auth"
	"github.com/nlstn/go-stickynotes/internal/handlers"
	"github.com/nlstn/go-stickynotes/internal/notes"
	"github.com/nlstn/go-stickynotes/internal/observability"
	"github.com/nlstn/go-stickynotes/internal/users"
)

// ServiceConfig controls the service.
type ServiceConfig struct {
	// JWTSecret signs session tokens. Required.
	JWTSecret string
	// TokenTTL is the token lifetime. Zero selects 1000 hours.
	TokenTTL time.Duration
	// SecureCookies marks the login cookie Secure.
	SecureCookies bool
	// CORSOrigins lists the allowed origins. Empty allows any origin.
	CORSOrigins []string
	// MaxPageSize caps the limit accepted by the list endpoint. Zero selects 100.
	MaxPageSize int
	// PasswordCost is the bcrypt cost for new accounts. Zero selects 10.
	PasswordCost int
	// SkipMigrations leaves the schema alone on startup.
	SkipMigrations bool
	// AuthRateLimit is the sustained rate of signup and login requests per
	// client IP. Zero disables the limit.
	AuthRateLimit float64
	// AuthBurst is the burst allowed on top of AuthRateLimit.
	AuthBurst int
}

// Service is the notes HTTP service.
type Service struct {
	db     *gorm.DB
	cfg    ServiceConfig
	issuer *auth.Issuer
	logger *slog.Logger
	obs    *observability.Config

	mu      sync.RWMutex
	handler http.Handler
	server  *http.Server

	dbCallbacks     bool
	timingCallbacks bool
}

// NewService creates the service and migrates the notes and users tables.
func NewService(db *gorm.DB, cfg ServiceConfig) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("stickynotes: database handle is required")
	}
	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("stickynotes: %w", err)
	}

	s := &Service{
		db:     db,
		cfg:    cfg,
		issuer: issuer,
		logger: slog.Default(),
	}
	if !cfg.SkipMigrations {
		if err := s.Migrate(context.Background()); err != nil {
			return nil, err
		}
	}
	s.rebuild()
	return s, nil
}

// Migrate creates or updates the notes and users tables.
func (s *Service) Migrate(ctx context.Context) error {
	if err := notes.NewStore(s.db).Migrate(ctx); err != nil {
		return fmt.Errorf("stickynotes: migrate notes: %w", err)
	}
	if err := users.NewStore(s.db).Migrate(ctx); err != nil {
		return fmt.Errorf("stickynotes: migrate users: %w", err)
	}
	return nil
}

// SetLogger sets a custom logger for the service.
// If not called, slog.Default() is used.
func (s *Service) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
	s.rebuild()
}

// SetObservability enables tracing, metrics and Server-Timing as configured
// by cfg. GORM callbacks are registered on the first call that asks for them.
func (s *Service) SetObservability(cfg *observability.Config) error {
	if cfg != nil {
		if err := cfg.Initialize(); err != nil {
			return fmt.Errorf("stickynotes: initialize observability: %w", err)
		}
	}

	s.mu.Lock()
	s.obs = cfg
	if cfg.IsEnabled() && !s.dbCallbacks {
		if err := observability.RegisterGORMCallbacks(s.db, cfg); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("stickynotes: register db tracing: %w", err)
		}
		s.dbCallbacks = true
	}
	if cfg.ServerTimingEnabled() && !s.timingCallbacks {
		if err := observability.RegisterServerTimingCallbacks(s.db); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("stickynotes: register server timing: %w", err)
		}
		s.timingCallbacks = true
	}
	s.mu.Unlock()

	s.rebuild()
	return nil
}

// rebuild wires stores and the router from the current settings.
func (s *Service) rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()

	notesOpts := []notes.StoreOption{
		notes.WithLogger(s.logger),
		notes.WithObservability(s.obs),
		notes.WithMaxLimit(s.cfg.MaxPageSize),
	}
	usersOpts := []users.Option{users.WithTracer(s.obs.Tracer())}
	if s.cfg.PasswordCost != 0 {
		usersOpts = append(usersOpts, users.WithCost(s.cfg.PasswordCost))
	}

	h := handlers.New(
		notes.NewStore(s.db, notesOpts...),
		users.NewStore(s.db, usersOpts...),
		s.issuer,
		handlers.WithLogger(s.logger),
		handlers.WithObservability(s.obs),
		handlers.WithCORSOrigins(s.cfg.CORSOrigins...),
		handlers.WithSecureCookies(s.cfg.SecureCookies),
		handlers.WithAuthRateLimit(s.cfg.AuthRateLimit, s.cfg.AuthBurst),
	)
	s.handler = h.Router()
}

// ServeHTTP implements http.Handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.handler
	s.mu.RUnlock()
	h.ServeHTTP(w, r)
}

// ListenAndServe serves the API on addr until Close is called.
func (s *Service) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	logger := s.logger
	s.mu.Unlock()

	logger.Info("starting notes service", "addr", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops a server started by ListenAndServe.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Close stops the server, if any, and closes the database connection pool.
// It is safe to call multiple times.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

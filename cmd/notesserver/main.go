// Command notesserver runs the sticky-notes API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	stickynotes "github.com/nlstn/go-stickynotes"
	"github.com/nlstn/go-stickynotes/internal/observability"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Getenv, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "notesserver:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, getenv func(string) string, stderr io.Writer) error {
	cfg, err := parseConfig(args, getenv)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, stderr)

	sqlLog := newSQLLogger(logger.With("component", "sql"), cfg.SlowQuery, cfg.TraceSQL)
	db, err := openDB(cfg, sqlLog)
	if err != nil {
		return err
	}
	logger.Info("database connected", "db", cfg.DB, "version", version)

	svc, err := stickynotes.NewService(db, stickynotes.ServiceConfig{
		JWTSecret:     cfg.JWTSecret,
		TokenTTL:      cfg.TokenTTL,
		SecureCookies: cfg.SecureCookies,
		CORSOrigins:   cfg.corsOrigins(),
		MaxPageSize:   cfg.MaxPageSize,
		AuthRateLimit: cfg.AuthRateLimit,
		AuthBurst:     cfg.AuthBurst,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("closing service", "error", err)
		}
	}()
	svc.SetLogger(logger)

	if err := svc.SetObservability(observabilityConfig(cfg)); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.ListenAndServe(net.JoinHostPort("", cfg.Port))
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return svc.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	sqlLog.logSummary(10)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newLogger(cfg config, w io.Writer) *slog.Logger {
	level, _ := cfg.slogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func openDB(cfg config, sqlLog *sqlLogger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: sqlLog, TranslateError: true}
	switch cfg.DB {
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
		}
		return db, nil
	default:
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
		}
		if cfg.DSN == ":memory:" {
			sqlDB, err := db.DB()
			if err != nil {
				return nil, err
			}
			sqlDB.SetMaxOpenConns(1)
		}
		return db, nil
	}
}

// observabilityConfig returns nil when neither tracing nor Server-Timing is
// requested.
func observabilityConfig(cfg config) *observability.Config {
	var opts []observability.Option
	if cfg.Tracing {
		opts = append(opts,
			observability.WithTracerProvider(otel.GetTracerProvider()),
			observability.WithMeterProvider(otel.GetMeterProvider()),
			observability.WithFeatures(observability.FeatureDBSpans),
		)
		if cfg.TraceFilters {
			opts = append(opts, observability.WithFeatures(observability.FeatureFilterText))
		}
	}
	if cfg.ServerTiming {
		opts = append(opts, observability.WithFeatures(observability.FeatureServerTiming))
	}
	if len(opts) == 0 {
		return nil
	}
	opts = append(opts, observability.WithService("notesserver", version))
	return observability.NewConfig(opts...)
}

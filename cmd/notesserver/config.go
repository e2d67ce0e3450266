package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// config holds the server settings. Values are resolved in order: defaults,
// the YAML file named by -config, environment variables, explicit flags.
type config struct {
	DB            string        `yaml:"db"`
	DSN           string        `yaml:"dsn"`
	Port          string        `yaml:"port"`
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	SecureCookies bool          `yaml:"secure_cookies"`
	CORSOrigins   string        `yaml:"cors_origins"`
	MaxPageSize   int           `yaml:"max_page_size"`
	AuthRateLimit float64       `yaml:"auth_rate_limit"`
	AuthBurst     int           `yaml:"auth_burst"`
	ServerTiming  bool          `yaml:"server_timing"`
	Tracing       bool          `yaml:"tracing"`
	TraceFilters  bool          `yaml:"trace_filters"`
	TraceSQL      bool          `yaml:"trace_sql"`
	SlowQuery     time.Duration `yaml:"slow_query"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
}

func defaultConfig() config {
	return config{
		DB:            "sqlite",
		DSN:           "notes.db",
		Port:          "3001",
		TokenTTL:      1000 * time.Hour,
		CORSOrigins:   "*",
		MaxPageSize:   100,
		AuthRateLimit: 5,
		AuthBurst:     10,
		SlowQuery:     100 * time.Millisecond,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// parseConfig resolves the configuration from args and the environment.
func parseConfig(args []string, getenv func(string) string) (config, error) {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("notesserver", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	fs.StringVar(&cfg.DB, "db", cfg.DB, "Database type: sqlite or postgres")
	fs.StringVar(&cfg.DSN, "dsn", cfg.DSN, "Database DSN. For postgres use postgresql://..., for sqlite a file path or :memory:")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret used to sign session tokens (or JWT_SECRET)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Session token lifetime")
	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", cfg.SecureCookies, "Mark the login cookie Secure")
	fs.StringVar(&cfg.CORSOrigins, "cors-origin", cfg.CORSOrigins, "Comma-separated list of allowed CORS origins")
	fs.IntVar(&cfg.MaxPageSize, "max-page-size", cfg.MaxPageSize, "Largest page size accepted by /notes/list")
	fs.Float64Var(&cfg.AuthRateLimit, "auth-rate", cfg.AuthRateLimit, "Signup/login requests per second per client IP (0 disables)")
	fs.IntVar(&cfg.AuthBurst, "auth-burst", cfg.AuthBurst, "Burst allowed on top of -auth-rate")
	fs.BoolVar(&cfg.ServerTiming, "server-timing", cfg.ServerTiming, "Add Server-Timing headers to responses")
	fs.BoolVar(&cfg.Tracing, "tracing", cfg.Tracing, "Trace requests and queries with the global OpenTelemetry providers")
	fs.BoolVar(&cfg.TraceFilters, "trace-filters", cfg.TraceFilters, "Record the $filter text on filter spans (requires -tracing)")
	fs.BoolVar(&cfg.TraceSQL, "trace-sql", cfg.TraceSQL, "Log every SQL statement at debug level")
	fs.DurationVar(&cfg.SlowQuery, "slow-query", cfg.SlowQuery, "Log statements slower than this at warn level (0 disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	// Remember explicit flags so they win over the file and the environment.
	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		if f.Name != "config" {
			explicit[f.Name] = f.Value.String()
		}
	})

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return config{}, fmt.Errorf("failed to read configuration file %q: %w", *configPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return config{}, fmt.Errorf("failed to parse configuration file %q: %w", *configPath, err)
		}
	}

	if v := getenv("DATABASE_URL"); v != "" {
		cfg.DSN = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := getenv("PORT"); v != "" {
		cfg.Port = v
	}

	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return config{}, err
		}
	}

	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch c.DB {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type %q, use sqlite or postgres", c.DB)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("a JWT secret is required, use -jwt-secret or set JWT_SECRET")
	}
	if c.DB == "postgres" && !strings.HasPrefix(c.DSN, "postgres") && !strings.Contains(c.DSN, "host=") {
		return fmt.Errorf("postgres DSN required, use -dsn or set DATABASE_URL")
	}
	if _, err := c.slogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q, use text or json", c.LogFormat)
	}
	return nil
}

func (c config) corsOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c config) slogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig([]string{"-jwt-secret", "s"}, env(nil))
	require.NoError(t, err)

	want := defaultConfig()
	want.JWTSecret = "s"
	assert.Equal(t, want, cfg)
	assert.Equal(t, []string{"*"}, cfg.corsOrigins())
}

func TestParseConfigEnvironment(t *testing.T) {
	cfg, err := parseConfig([]string{"-db", "postgres"}, env(map[string]string{
		"DATABASE_URL": "postgresql://u:p@localhost/notes",
		"JWT_SECRET":   "from-env",
		"PORT":         "8080",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DB)
	assert.Equal(t, "postgresql://u:p@localhost/notes", cfg.DSN)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, "8080", cfg.Port)
}

func TestParseConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "4000"
jwt_secret: from-file
token_ttl: 2h
cors_origins: "http://a.example, http://b.example"
server_timing: true
log_level: debug
`), 0o600))

	cfg, err := parseConfig([]string{"-config", path, "-port", "5000"}, env(map[string]string{"JWT_SECRET": "from-env"}))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port, "flags beat the file")
	assert.Equal(t, "from-env", cfg.JWTSecret, "environment beats the file")
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.ServerTiming)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.corsOrigins())

	level, err := cfg.slogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing secret", nil},
		{"unknown database", []string{"-jwt-secret", "s", "-db", "mysql"}},
		{"postgres without dsn", []string{"-jwt-secret", "s", "-db", "postgres"}},
		{"bad log level", []string{"-jwt-secret", "s", "-log-level", "loud"}},
		{"bad log format", []string{"-jwt-secret", "s", "-log-format", "xml"}},
		{"unknown flag", []string{"-nope"}},
		{"missing file", []string{"-jwt-secret", "s", "-config", "/does/not/exist.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(tt.args, env(nil))
			assert.Error(t, err)
		})
	}
}

func TestObservabilityConfig(t *testing.T) {
	assert.Nil(t, observabilityConfig(defaultConfig()))

	cfg := defaultConfig()
	cfg.ServerTiming = true
	obs := observabilityConfig(cfg)
	require.NotNil(t, obs)
	assert.True(t, obs.ServerTimingEnabled())
	assert.False(t, obs.IsEnabled())

	cfg.Tracing = true
	cfg.TraceFilters = true
	obs = observabilityConfig(cfg)
	assert.True(t, obs.IsEnabled())
	assert.True(t, obs.FilterTracingEnabled())
	assert.Equal(t, "notesserver", obs.ServiceName)
}

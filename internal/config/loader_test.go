package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Threads.DefaultShared {
		t.Error("expected threads.default_shared to default to false")
	}
	if !cfg.Sessions.FuzzyKeyMatch {
		t.Error("expected fuzzy key matching to be enabled by default")
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
storage:
  driver: memory
threads:
  default_shared: true
sessions:
  fuzzy_key_match: false
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected memory driver, got %s", cfg.Storage.Driver)
	}
	if !cfg.Threads.DefaultShared {
		t.Error("expected default_shared true from yaml")
	}
	if cfg.Sessions.FuzzyKeyMatch {
		t.Error("expected fuzzy_key_match false from yaml")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, "/nonexistent/path.yaml"); err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("ASKDESK_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("ASKDESK_PG_MAX_CONNS", "25")
	t.Setenv("ASKDESK_LOG_LEVEL", "warn")
	t.Setenv("ASKDESK_BREAKER_TIMEOUT", "1m")
	t.Setenv("ASKDESK_THREADS_DEFAULT_SHARED", "true")
	t.Setenv("ASKDESK_NATS_ENABLED", "false")
	t.Setenv("ASKDESK_PG_MIN_CONNS", "not-a-number")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Postgres.MinConns != 2 {
		t.Errorf("invalid env value must keep default, got %d", cfg.Postgres.MinConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if !cfg.Threads.DefaultShared {
		t.Error("expected default_shared true from env")
	}
	if cfg.NATS.Enabled {
		t.Error("expected nats disabled from env")
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty DSN",
			modify: func(c *Config) { c.Postgres.DSN = "" },
			errMsg: "postgres.dsn is required",
		},
		{
			name:   "unknown driver",
			modify: func(c *Config) { c.Storage.Driver = "sqlite" },
			errMsg: "is not supported",
		},
		{
			name:   "empty NATS URL while enabled",
			modify: func(c *Config) { c.NATS.URL = "" },
			errMsg: "nats.url is required",
		},
		{
			name:   "zero burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "otel without endpoint",
			modify: func(c *Config) { c.OTEL.Enabled = true; c.OTEL.Endpoint = "" },
			errMsg: "otel.endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateMemoryDriverSkipsDSN(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Driver = "memory"
	cfg.Postgres.DSN = ""
	cfg.NATS.Enabled = false
	cfg.NATS.URL = ""
	if err := validate(&cfg); err != nil {
		t.Errorf("memory driver without DSN should validate, got %v", err)
	}
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "askdesk.yaml")
	if err := os.WriteFile(yamlPath, []byte("server:\n  port: \"6060\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ASKDESK_PORT", "")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected port 6060, got %s", cfg.Server.Port)
	}
}

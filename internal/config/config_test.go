package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var durationEnvKeys = []string{
	"ORDER_EVAL_INTERVAL", "INTEGRITY_SWEEP_INTERVAL", "QUOTE_TIMEOUT",
	"QUOTE_CACHE_TTL", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT",
	"SHUTDOWN_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range append([]string{"CONFIG_FILE"}, knownKeys...) {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "papertrader.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, want ./data", cfg.DataDir)
	}
	if cfg.OrderEvalInterval != 10*time.Second {
		t.Errorf("OrderEvalInterval = %v, want 10s", cfg.OrderEvalInterval)
	}
	if cfg.IntegritySweepInterval != 5*time.Minute {
		t.Errorf("IntegritySweepInterval = %v, want 5m", cfg.IntegritySweepInterval)
	}
	if cfg.QuoteTimeout != 5*time.Second {
		t.Errorf("QuoteTimeout = %v, want 5s", cfg.QuoteTimeout)
	}
	if cfg.QuoteBaseURL != "https://query1.finance.yahoo.com" {
		t.Errorf("QuoteBaseURL = %q", cfg.QuoteBaseURL)
	}
	if cfg.QuoteRateLimitPerMin != 120 {
		t.Errorf("QuoteRateLimitPerMin = %d, want 120", cfg.QuoteRateLimitPerMin)
	}
	if cfg.LedgerBackend != LedgerJSON {
		t.Errorf("LedgerBackend = %q, want json", cfg.LedgerBackend)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
	if cfg.QuoteCacheTTL != 24*time.Hour {
		t.Errorf("QuoteCacheTTL = %v, want 24h", cfg.QuoteCacheTTL)
	}
	if cfg.MissingNamePolicy != "delete" {
		t.Errorf("MissingNamePolicy = %q, want delete", cfg.MissingNamePolicy)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v, want 30s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATA_DIR", "/var/lib/papertrader")
	t.Setenv("ORDER_EVAL_INTERVAL", "500ms")
	t.Setenv("LEDGER_BACKEND", "sqlite")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("MISSING_NAME_POLICY", "keep")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.DataDir != "/var/lib/papertrader" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.OrderEvalInterval != 500*time.Millisecond {
		t.Errorf("OrderEvalInterval = %v, want 500ms", cfg.OrderEvalInterval)
	}
	if cfg.LedgerBackend != LedgerSQLite {
		t.Errorf("LedgerBackend = %q, want sqlite", cfg.LedgerBackend)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.MissingNamePolicy != "keep" {
		t.Errorf("MissingNamePolicy = %q, want keep", cfg.MissingNamePolicy)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeConfigFile(t, `
port: 7070
data_dir: /srv/papertrader
order_eval_interval: 30s
ledger_backend: sqlite
`))
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want env value 9090", cfg.Port)
	}
	if cfg.DataDir != "/srv/papertrader" {
		t.Errorf("DataDir = %q, want file value", cfg.DataDir)
	}
	if cfg.OrderEvalInterval != 30*time.Second {
		t.Errorf("OrderEvalInterval = %v, want 30s", cfg.OrderEvalInterval)
	}
	if cfg.LedgerBackend != LedgerSQLite {
		t.Errorf("LedgerBackend = %q, want sqlite", cfg.LedgerBackend)
	}
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "prot: 8080\n"},
		{"not a mapping", "- a\n- b\n"},
		{"invalid value", "ledger_backend: postgres\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("CONFIG_FILE", writeConfigFile(t, tt.content))

			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

		if _, err := Load(); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestLoad_InvalidPort(t *testing.T) {
	for _, v := range []string{"not-a-number", "0", "70000"} {
		t.Run(v, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PORT", v)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for PORT=%q", v)
			}
		})
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL")
	}
}

func TestLoad_InvalidEnums(t *testing.T) {
	tests := map[string]string{
		"LEDGER_BACKEND":           "postgres",
		"MISSING_NAME_POLICY":      "ignore",
		"QUOTE_RATE_LIMIT_PER_MIN": "0",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	for _, key := range durationEnvKeys {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "not-a-duration")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
		})
	}
}

func TestLoad_NonPositiveInterval(t *testing.T) {
	for _, key := range []string{"ORDER_EVAL_INTERVAL", "INTEGRITY_SWEEP_INTERVAL", "QUOTE_TIMEOUT", "QUOTE_CACHE_TTL"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "0s")

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=0s", key)
			}
		})
	}
}

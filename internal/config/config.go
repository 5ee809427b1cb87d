package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LedgerBackend selects where the transaction log is persisted.
type LedgerBackend string

const (
	LedgerJSON   LedgerBackend = "json"
	LedgerSQLite LedgerBackend = "sqlite"
)

// Config holds all runtime configuration for the paper trading server.
type Config struct {
	Port                   int
	LogLevel               string
	DataDir                string
	OrderEvalInterval      time.Duration
	IntegritySweepInterval time.Duration
	QuoteTimeout           time.Duration
	QuoteBaseURL           string
	QuoteRateLimitPerMin   int
	LedgerBackend          LedgerBackend
	RedisAddr              string
	QuoteCacheTTL          time.Duration
	MissingNamePolicy      string
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
	ShutdownTimeout        time.Duration
}

// knownKeys lists every setting. The YAML file uses the lower-case form.
var knownKeys = []string{
	"PORT", "LOG_LEVEL", "DATA_DIR", "ORDER_EVAL_INTERVAL",
	"INTEGRITY_SWEEP_INTERVAL", "QUOTE_TIMEOUT", "QUOTE_BASE_URL",
	"QUOTE_RATE_LIMIT_PER_MIN", "LEDGER_BACKEND", "REDIS_ADDR",
	"QUOTE_CACHE_TTL", "MISSING_NAME_POLICY", "READ_TIMEOUT",
	"WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

// source resolves a setting from the environment first, then from the
// optional YAML file.
type source struct {
	file map[string]string
}

// Load reads configuration from environment variables, layered over the
// YAML file named by CONFIG_FILE when set, applies defaults, and validates
// values. It returns an error for any invalid value.
func Load() (*Config, error) {
	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	port, err := src.getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d, must be between 1 and 65535", port)
	}

	logLevel := src.getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	orderEvalInterval, err := src.getPositiveDuration("ORDER_EVAL_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := src.getPositiveDuration("INTEGRITY_SWEEP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	quoteTimeout, err := src.getPositiveDuration("QUOTE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	rateLimit, err := src.getInt("QUOTE_RATE_LIMIT_PER_MIN", 120)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_RATE_LIMIT_PER_MIN: %w", err)
	}
	if rateLimit < 1 {
		return nil, fmt.Errorf("invalid QUOTE_RATE_LIMIT_PER_MIN: %d, must be positive", rateLimit)
	}

	backend := LedgerBackend(src.getStr("LEDGER_BACKEND", string(LedgerJSON)))
	if backend != LedgerJSON && backend != LedgerSQLite {
		return nil, fmt.Errorf("invalid LEDGER_BACKEND: %q, must be one of: json, sqlite", backend)
	}

	cacheTTL, err := src.getPositiveDuration("QUOTE_CACHE_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	policy := src.getStr("MISSING_NAME_POLICY", "delete")
	if policy != "delete" && policy != "keep" {
		return nil, fmt.Errorf("invalid MISSING_NAME_POLICY: %q, must be one of: delete, keep", policy)
	}

	readTimeout, err := src.getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := src.getDuration("WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := src.getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := src.getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                   port,
		LogLevel:               logLevel,
		DataDir:                src.getStr("DATA_DIR", "./data"),
		OrderEvalInterval:      orderEvalInterval,
		IntegritySweepInterval: sweepInterval,
		QuoteTimeout:           quoteTimeout,
		QuoteBaseURL:           src.getStr("QUOTE_BASE_URL", "https://query1.finance.yahoo.com"),
		QuoteRateLimitPerMin:   rateLimit,
		LedgerBackend:          backend,
		RedisAddr:              src.getStr("REDIS_ADDR", ""),
		QuoteCacheTTL:          cacheTTL,
		MissingNamePolicy:      policy,
		ReadTimeout:            readTimeout,
		WriteTimeout:           writeTimeout,
		IdleTimeout:            idleTimeout,
		ShutdownTimeout:        shutdownTimeout,
	}, nil
}

// readFile parses a flat YAML mapping of lower-case setting names.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}

	file := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToUpper(k)
		if !isKnownKey(key) {
			return nil, fmt.Errorf("parse CONFIG_FILE %s: unknown setting %q", path, k)
		}
		file[key] = v
	}
	return file, nil
}

func isKnownKey(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) getStr(key, defaultVal string) string {
	v := s.lookup(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func (s source) getInt(key string, defaultVal int) (int, error) {
	v := s.lookup(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func (s source) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := s.lookup(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

// getPositiveDuration is getDuration for loop intervals and timeouts that
// must be greater than zero.
func (s source) getPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := s.getDuration(key, defaultVal)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: %v, must be positive", key, d)
	}
	return d, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

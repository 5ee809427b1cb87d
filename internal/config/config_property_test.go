package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Feature: paper-trading, Property 6: Configuration parsing
// Enumerated settings accept exactly their documented values, the YAML
// overlay only fills what the environment leaves unset, and unknown file
// keys are rejected.

func resetConfigEnv() {
	for _, key := range append([]string{"CONFIG_FILE"}, knownKeys...) {
		os.Unsetenv(key)
	}
}

// enumSetting describes a setting with a closed set of values.
type enumSetting struct {
	key      string
	accepted []string
	def      string
	got      func(*Config) string
}

var enumSettings = []enumSetting{
	{"LEDGER_BACKEND", []string{"json", "sqlite"}, "json", func(c *Config) string { return string(c.LedgerBackend) }},
	{"MISSING_NAME_POLICY", []string{"delete", "keep"}, "delete", func(c *Config) string { return c.MissingNamePolicy }},
	{"LOG_LEVEL", []string{"debug", "info", "warn", "error"}, "info", func(c *Config) string { return c.LogLevel }},
}

func TestProperty_EnumSettings(t *testing.T) {
	for _, setting := range enumSettings {
		t.Run(setting.key, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				resetConfigEnv()
				defer resetConfigEnv()

				value := rapid.OneOf(
					rapid.Just(""),
					rapid.SampledFrom(setting.accepted),
					rapid.StringMatching(`[a-zA-Z]{1,12}`),
				).Draw(rt, "value")
				if value != "" {
					os.Setenv(setting.key, value)
				}

				cfg, err := Load()
				if value == "" {
					if err != nil {
						rt.Fatalf("Load() with %s unset: %v", setting.key, err)
					}
					if got := setting.got(cfg); got != setting.def {
						rt.Fatalf("%s = %q, want default %q", setting.key, got, setting.def)
					}
					return
				}
				if !slices.Contains(setting.accepted, value) {
					if err == nil {
						rt.Fatalf("Load() accepted %s=%q", setting.key, value)
					}
					return
				}
				if err != nil {
					rt.Fatalf("Load() rejected %s=%q: %v", setting.key, value, err)
				}
				if got := setting.got(cfg); got != value {
					rt.Fatalf("%s = %q, want %q", setting.key, got, value)
				}
			})
		})
	}
}

// overlayKeys are the settings the overlay property varies. Each value
// generator produces valid input for its key.
var overlayKeys = map[string]func(*rapid.T, string) string{
	"ORDER_EVAL_INTERVAL": genDuration,
	"QUOTE_TIMEOUT":       genDuration,
	"SHUTDOWN_TIMEOUT":    genDuration,
	"DATA_DIR": func(t *rapid.T, label string) string {
		return "/srv/" + rapid.StringMatching(`[a-z]{1,8}`).Draw(t, label)
	},
	"LEDGER_BACKEND": func(t *rapid.T, label string) string {
		return rapid.SampledFrom([]string{"json", "sqlite"}).Draw(t, label)
	},
}

func genDuration(t *rapid.T, label string) string {
	unit := rapid.SampledFrom([]string{"ms", "s", "m"}).Draw(t, label+"-unit")
	return fmt.Sprintf("%d%s", rapid.IntRange(1, 600).Draw(t, label), unit)
}

func overlayValue(c *Config, key string) string {
	switch key {
	case "ORDER_EVAL_INTERVAL":
		return c.OrderEvalInterval.String()
	case "QUOTE_TIMEOUT":
		return c.QuoteTimeout.String()
	case "SHUTDOWN_TIMEOUT":
		return c.ShutdownTimeout.String()
	case "DATA_DIR":
		return c.DataDir
	case "LEDGER_BACKEND":
		return string(c.LedgerBackend)
	}
	return ""
}

// normalize renders a configured value the way Config reports it.
func normalize(value string) string {
	if d, err := time.ParseDuration(value); err == nil {
		return d.String()
	}
	return value
}

func TestProperty_EnvOverridesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papertrader.yaml")
	defaults, err := func() (*Config, error) {
		resetConfigEnv()
		return Load()
	}()
	if err != nil {
		t.Fatalf("Load() defaults: %v", err)
	}

	keys := make([]string, 0, len(overlayKeys))
	for key := range overlayKeys {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	rapid.Check(t, func(rt *rapid.T) {
		resetConfigEnv()
		defer resetConfigEnv()

		var file strings.Builder
		want := make(map[string]string, len(keys))
		for _, key := range keys {
			gen := overlayKeys[key]
			want[key] = overlayValue(defaults, key)
			if rapid.Bool().Draw(rt, key+"-in-file") {
				v := gen(rt, key+"-file")
				fmt.Fprintf(&file, "%s: %q\n", strings.ToLower(key), v)
				want[key] = normalize(v)
			}
			if rapid.Bool().Draw(rt, key+"-in-env") {
				v := gen(rt, key+"-env")
				os.Setenv(key, v)
				want[key] = normalize(v)
			}
		}
		if err := os.WriteFile(path, []byte(file.String()), 0o644); err != nil {
			rt.Fatalf("write config file: %v", err)
		}
		os.Setenv("CONFIG_FILE", path)

		cfg, err := Load()
		if err != nil {
			rt.Fatalf("Load() returned error for valid inputs: %v\n%s", err, file.String())
		}
		for _, key := range keys {
			if got := overlayValue(cfg, key); got != want[key] {
				rt.Fatalf("%s = %q, want %q", key, got, want[key])
			}
		}
	})
}

func TestProperty_UnknownFileKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papertrader.yaml")

	rapid.Check(t, func(rt *rapid.T) {
		resetConfigEnv()
		defer resetConfigEnv()

		key := rapid.StringMatching(`[a-z][a-z_]{0,24}`).
			Filter(func(k string) bool { return !slices.Contains(knownKeys, strings.ToUpper(k)) }).
			Draw(rt, "key")
		content := fmt.Sprintf("port: \"8080\"\n%s: value\n", key)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			rt.Fatalf("write config file: %v", err)
		}
		os.Setenv("CONFIG_FILE", path)

		if _, err := Load(); err == nil {
			rt.Fatalf("Load() accepted unknown file key %q", key)
		}
	})
}

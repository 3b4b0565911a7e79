package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"FOREMAN_BASE_URL",
	"FOREMAN_REQUEST_TIMEOUT",
	"FOREMAN_TOKEN_STORE",
	"FOREMAN_TOKEN_PATH",
	"FOREMAN_REDIS_ADDR",
	"FOREMAN_REDIS_KEY",
	"FOREMAN_LOG_FILE",
	"FOREMAN_LOG_LEVEL",
	"FOREMAN_CONFIRM_DESTRUCTIVE",
	"FOREMAN_STRICT_FALLBACK",
}

// isolate points HOME at a temp dir and removes FOREMAN_* variables (and the
// unprefixed names envconfig also consults) for the duration of the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range envKeys {
		for _, k := range []string{key, strings.TrimPrefix(key, "FOREMAN_")} {
			t.Setenv(k, "")
			if err := os.Unsetenv(k); err != nil {
				t.Fatalf("Unsetenv(%s): %v", k, err)
			}
		}
	}
	return home
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BaseURL != "" {
		t.Fatalf("BaseURL = %q, want empty (relative paths)", cfg.BaseURL)
	}
	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("RequestTimeout = %v, want %v", cfg.RequestTimeout, defaultRequestTimeout)
	}
	if cfg.TokenStore != "file" {
		t.Fatalf("TokenStore = %q, want file", cfg.TokenStore)
	}
	if want := filepath.Join(home, ".config/foreman/session.toml"); cfg.TokenPath != want {
		t.Fatalf("TokenPath = %q, want %q", cfg.TokenPath, want)
	}
	if want := filepath.Join(home, ".local/state/foreman/foreman.log"); cfg.LogFile != want {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, want)
	}
	if !cfg.ConfirmDestructive {
		t.Fatal("ConfirmDestructive = false, want true by default")
	}
	if cfg.StrictFallback {
		t.Fatal("StrictFallback = true, want false by default")
	}
	if cfg.BusyGrace != 150*time.Millisecond {
		t.Fatalf("BusyGrace = %v, want 150ms", cfg.BusyGrace)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, `
base_url = "  https://pm.example.com/  "
request_timeout = "5s"
token_store = " Redis "
redis_addr = "127.0.0.1:6380"
log_file = "~/logs/foreman.log"
log_level = "DEBUG"
confirm_destructive = false
strict_fallback = true
toast_ttl = "2s"
busy_grace = "200ms"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BaseURL != "https://pm.example.com/" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.TokenStore != "redis" {
		t.Fatalf("TokenStore = %q, want redis", cfg.TokenStore)
	}
	if cfg.RedisAddr != "127.0.0.1:6380" {
		t.Fatalf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.RedisKey != defaultRedisKey {
		t.Fatalf("RedisKey = %q, want %q", cfg.RedisKey, defaultRedisKey)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
	if cfg.ConfirmDestructive {
		t.Fatal("ConfirmDestructive = true, want false from file")
	}
	if !cfg.StrictFallback {
		t.Fatal("StrictFallback = false, want true from file")
	}
	if cfg.ToastTTL != 2*time.Second || cfg.BusyGrace != 200*time.Millisecond {
		t.Fatalf("ToastTTL, BusyGrace = %v, %v", cfg.ToastTTL, cfg.BusyGrace)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
token_store = "   "
log_level = ""
request_timeout = ""
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TokenStore != "file" {
		t.Fatalf("TokenStore = %q, want file", cfg.TokenStore)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("RequestTimeout = %v, want %v", cfg.RequestTimeout, defaultRequestTimeout)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
base_url = "https://file.example.com"
request_timeout = "5s"
confirm_destructive = true
`)
	t.Setenv("FOREMAN_BASE_URL", "https://env.example.com")
	t.Setenv("FOREMAN_REQUEST_TIMEOUT", "30s")
	t.Setenv("FOREMAN_TOKEN_STORE", "memory")
	t.Setenv("FOREMAN_CONFIRM_DESTRUCTIVE", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BaseURL != "https://env.example.com" {
		t.Fatalf("BaseURL = %q, want env value", cfg.BaseURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.TokenStore != "memory" {
		t.Fatalf("TokenStore = %q, want memory", cfg.TokenStore)
	}
	if cfg.ConfirmDestructive {
		t.Fatal("ConfirmDestructive = true, want env override false")
	}
}

func TestLoad_EmptyBaseURLIsExplicit(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `base_url = "https://file.example.com"`)
	t.Setenv("FOREMAN_BASE_URL", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BaseURL != "" {
		t.Fatalf("BaseURL = %q, want empty override", cfg.BaseURL)
	}
}

func TestWarnings_EmptyBaseURL(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = ""
	warnings := cfg.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "base_url is empty") {
		t.Fatalf("Warnings() = %q, want one base_url warning", warnings)
	}

	cfg.BaseURL = "https://api.example.com"
	if warnings := cfg.Warnings(); len(warnings) != 0 {
		t.Fatalf("Warnings() = %q, want none", warnings)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown store", `token_store = "vault"`},
		{"redis without address", `token_store = "redis"`},
		{"bad level", `log_level = "loud"`},
		{"bad duration", `request_timeout = "soon"`},
		{"zero duration", `toast_ttl = "0s"`},
		{"bad toml", `base_url = [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatalf("Load(%s) returned nil error", tt.body)
			}
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FOREMAN_LOG_LEVEL=warn\nFOREMAN_BASE_URL=https://dotenv.example.com\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("FOREMAN_BASE_URL", "https://shell.example.com")

	if err := LoadDotenv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotenv returned error: %v", err)
	}

	cfg, err := Load(filepath.Join(dir, "none.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want warn from .env", cfg.LogLevel)
	}
	if cfg.BaseURL != "https://shell.example.com" {
		t.Fatalf("BaseURL = %q, want the shell value to win", cfg.BaseURL)
	}
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	got, err := expandPath("~/foo")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "foo") {
		t.Fatalf("expandPath(~/foo) = %q, want %q", got, filepath.Join(home, "foo"))
	}
	if _, err := expandPath("   "); err == nil {
		t.Fatal("expandPath(blank) returned nil error")
	}
}

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the resolved runtime configuration of the console.
type Config struct {
	BaseURL            string
	RequestTimeout     time.Duration `validate:"gt=0"`
	TokenStore         string        `validate:"oneof=file redis memory"`
	TokenPath          string
	RedisAddr          string `validate:"required_if=TokenStore redis"`
	RedisKey           string
	LogFile            string `validate:"required"`
	LogLevel           string `validate:"oneof=debug info warn error"`
	ConfirmDestructive bool
	StrictFallback     bool
	ToastTTL           time.Duration `validate:"gt=0"`
	BusyGrace          time.Duration `validate:"gt=0"`
}

const (
	defaultConfigPath     = "~/.config/foreman/config.toml"
	defaultTokenPath      = "~/.config/foreman/session.toml"
	defaultLogFile        = "~/.local/state/foreman/foreman.log"
	defaultRedisKey       = "foreman:token"
	defaultRequestTimeout = 15 * time.Second
	defaultToastTTL       = 4 * time.Second
	defaultBusyGrace      = 150 * time.Millisecond

	envPrefix = "FOREMAN"
)

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		RequestTimeout:     defaultRequestTimeout,
		TokenStore:         "file",
		TokenPath:          mustExpand(defaultTokenPath),
		RedisKey:           defaultRedisKey,
		LogFile:            mustExpand(defaultLogFile),
		LogLevel:           "info",
		ConfirmDestructive: true,
		ToastTTL:           defaultToastTTL,
		BusyGrace:          defaultBusyGrace,
	}
}

type fileConfig struct {
	BaseURL            *string `toml:"base_url"`
	RequestTimeout     string  `toml:"request_timeout"`
	TokenStore         string  `toml:"token_store"`
	TokenPath          string  `toml:"token_path"`
	RedisAddr          string  `toml:"redis_addr"`
	RedisKey           string  `toml:"redis_key"`
	LogFile            string  `toml:"log_file"`
	LogLevel           string  `toml:"log_level"`
	ConfirmDestructive *bool   `toml:"confirm_destructive"`
	StrictFallback     *bool   `toml:"strict_fallback"`
	ToastTTL           string  `toml:"toast_ttl"`
	BusyGrace          string  `toml:"busy_grace"`
}

type envOverrides struct {
	BaseURL            *string       `envconfig:"BASE_URL"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT"`
	TokenStore         string        `envconfig:"TOKEN_STORE"`
	TokenPath          string        `envconfig:"TOKEN_PATH"`
	RedisAddr          string        `envconfig:"REDIS_ADDR"`
	RedisKey           string        `envconfig:"REDIS_KEY"`
	LogFile            string        `envconfig:"LOG_FILE"`
	LogLevel           string        `envconfig:"LOG_LEVEL"`
	ConfirmDestructive *bool         `envconfig:"CONFIRM_DESTRUCTIVE"`
	StrictFallback     *bool         `envconfig:"STRICT_FALLBACK"`
}

// LoadDotenv loads KEY=VALUE files into the environment. Missing files are
// ignored and variables already set win.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			var pathErr *os.PathError
			if errors.As(err, &pathErr) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load resolves the configuration: defaults, then the TOML file at path (or
// the default location), then FOREMAN_* environment variables.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := cfg.applyFile(resolved); err != nil {
		return Config{}, err
	}

	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	cfg.applyEnv(env)

	cfg.TokenStore = strings.ToLower(cfg.TokenStore)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and combinations.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config: %s fails %q", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Warnings lists settings that load fine but leave the console unusable.
func (c Config) Warnings() []string {
	var out []string
	if c.BaseURL == "" {
		out = append(out, "base_url is empty; requests have no host and will fail. Set base_url, FOREMAN_BASE_URL or -base-url.")
	}
	return out
}

// SlogLevel maps LogLevel onto slog.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (c *Config) applyFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if raw.BaseURL != nil {
		c.BaseURL = strings.TrimSpace(*raw.BaseURL)
	}
	setString(&c.TokenStore, raw.TokenStore)
	setPath(&c.TokenPath, raw.TokenPath)
	setString(&c.RedisAddr, raw.RedisAddr)
	setString(&c.RedisKey, raw.RedisKey)
	setPath(&c.LogFile, raw.LogFile)
	setString(&c.LogLevel, raw.LogLevel)
	if raw.ConfirmDestructive != nil {
		c.ConfirmDestructive = *raw.ConfirmDestructive
	}
	if raw.StrictFallback != nil {
		c.StrictFallback = *raw.StrictFallback
	}
	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"request_timeout", raw.RequestTimeout, &c.RequestTimeout},
		{"toast_ttl", raw.ToastTTL, &c.ToastTTL},
		{"busy_grace", raw.BusyGrace, &c.BusyGrace},
	} {
		if err := setDuration(d.dst, d.raw); err != nil {
			return fmt.Errorf("parse config: %s: %w", d.name, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(env envOverrides) {
	if env.BaseURL != nil {
		c.BaseURL = strings.TrimSpace(*env.BaseURL)
	}
	if env.RequestTimeout > 0 {
		c.RequestTimeout = env.RequestTimeout
	}
	setString(&c.TokenStore, env.TokenStore)
	setPath(&c.TokenPath, env.TokenPath)
	setString(&c.RedisAddr, env.RedisAddr)
	setString(&c.RedisKey, env.RedisKey)
	setPath(&c.LogFile, env.LogFile)
	setString(&c.LogLevel, env.LogLevel)
	if env.ConfirmDestructive != nil {
		c.ConfirmDestructive = *env.ConfirmDestructive
	}
	if env.StrictFallback != nil {
		c.StrictFallback = *env.StrictFallback
	}
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func setPath(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = mustExpand(v)
	}
}

func setDuration(dst *time.Duration, value string) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

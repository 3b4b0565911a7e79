// Package config resolves foreman's runtime configuration.
//
// # Resolution Order
//
// Load builds a Config in layers, later layers winning:
//
//  1. Built-in defaults (see Default)
//  2. The TOML file at the given path, or ~/.config/foreman/config.toml
//  3. FOREMAN_* environment variables
//
// LoadDotenv can be called first to pull a .env file into the environment;
// variables already exported in the shell are never overwritten.
//
// A missing config file is not an error. Blank values in the file fall back
// to the defaults, except base_url, where an explicit "" sends relative
// paths. Config.Warnings flags that, since a terminal has no origin to
// resolve them against.
//
// # TOML Format
//
//	base_url = "https://pm.example.com"
//	request_timeout = "15s"
//	token_store = "file"          # file | redis | memory
//	token_path = "~/.config/foreman/session.toml"
//	redis_addr = "127.0.0.1:6379" # required when token_store = "redis"
//	redis_key = "foreman:token"
//	log_file = "~/.local/state/foreman/foreman.log"
//	log_level = "info"            # debug | info | warn | error
//	confirm_destructive = true
//	strict_fallback = false
//	toast_ttl = "4s"
//	busy_grace = "150ms"
//
// Durations use time.ParseDuration syntax. Tilde expansion applies to
// token_path and log_file.
//
// # Environment
//
// FOREMAN_BASE_URL, FOREMAN_REQUEST_TIMEOUT, FOREMAN_TOKEN_STORE,
// FOREMAN_TOKEN_PATH, FOREMAN_REDIS_ADDR, FOREMAN_REDIS_KEY, FOREMAN_LOG_FILE,
// FOREMAN_LOG_LEVEL, FOREMAN_CONFIRM_DESTRUCTIVE and FOREMAN_STRICT_FALLBACK
// override the matching keys.
//
// # Validation
//
// The resolved Config is checked with struct tags: unknown token stores or
// log levels, non-positive durations, and a redis store without an address
// are rejected.
package config

// Package config loads the server configuration from environment variables,
// optionally seeded from a .env file.
//
// Every problem is collected and reported together, so a misconfigured
// deployment shows all its mistakes in one start attempt instead of one per
// restart.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type Config struct {
	Port int

	StoreDriver   string
	DBPath        string
	MongoURI      string
	MongoDatabase string

	JWTSecret    string
	TokenTTL     time.Duration
	SecureCookie bool

	ClientURL      string
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  slog.Level
	LogFormat string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// GitHubEnabled reports whether the OAuth routes should be mounted.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win over
// the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any key lookup, e.g. os.LookupEnv or a map
// in tests.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}

	cfg := Config{
		Port:               e.int("PORT", 8080),
		StoreDriver:        strings.ToLower(e.str("STORE_DRIVER", DriverSQLite)),
		DBPath:             e.str("DB_PATH", "data/eventhub.db"),
		MongoURI:           e.str("MONGO_URI", ""),
		MongoDatabase:      e.str("MONGO_DATABASE", "eventhub"),
		JWTSecret:          e.str("JWT_SECRET", ""),
		TokenTTL:           e.duration("TOKEN_TTL", 24*time.Hour),
		SecureCookie:       e.bool("SECURE_COOKIE", false),
		ClientURL:          e.str("CLIENT_URL", "http://localhost:3000"),
		RateLimitRPS:       e.float("RATE_LIMIT_RPS", 100.0/(15*60)),
		RateLimitBurst:     e.int("RATE_LIMIT_BURST", 100),
		LogFormat:          strings.ToLower(e.str("LOG_FORMAT", "text")),
		GitHubClientID:     e.str("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: e.str("GITHUB_CLIENT_SECRET", ""),
	}
	cfg.GitHubCallbackURL = e.str("GITHUB_CALLBACK_URL", fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port))

	if err := cfg.LogLevel.UnmarshalText([]byte(e.str("LOG_LEVEL", "info"))); err != nil {
		e.fail("invalid value for LOG_LEVEL: %v", err)
	}

	switch {
	case cfg.JWTSecret == "":
		e.fail("missing required environment variable: JWT_SECRET")
	case len(cfg.JWTSecret) < 16:
		e.fail("JWT_SECRET must be at least 16 characters")
	}
	switch cfg.StoreDriver {
	case DriverSQLite:
	case DriverMongo:
		if cfg.MongoURI == "" {
			e.fail("MONGO_URI is required when STORE_DRIVER=mongo")
		}
	default:
		e.fail("invalid value for STORE_DRIVER: %q (want sqlite or mongo)", cfg.StoreDriver)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		e.fail("PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		e.fail("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		e.fail("invalid value for LOG_FORMAT: %q (want text or json)", cfg.LogFormat)
	}
	if (cfg.GitHubClientID == "") != (cfg.GitHubClientSecret == "") {
		e.fail("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together")
	}

	if len(e.errs) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(e.errs, "; "))
	}
	return cfg, nil
}

// Logger builds the application logger: human-readable text by default,
// JSON when LOG_FORMAT=json.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// env reads typed values and collects parse errors instead of stopping at
// the first one.
type env struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (e *env) fail(format string, args ...any) {
	e.errs = append(e.errs, fmt.Sprintf(format, args...))
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) int(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.fail("invalid value for %s: expected integer, got %q", key, raw)
		return def
	}
	return v
}

func (e *env) float(key string, def float64) float64 {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.fail("invalid value for %s: expected number, got %q", key, raw)
		return def
	}
	return v
}

func (e *env) bool(key string, def bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail("invalid value for %s: expected boolean, got %q", key, raw)
		return def
	}
	return v
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.fail("invalid value for %s: expected duration like 24h, got %q", key, raw)
		return def
	}
	return v
}

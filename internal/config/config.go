// Package config loads runtime settings from the environment.
//
// A .env file in the working directory is read first if present; real
// environment variables win over it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server needs.
type Config struct {
	Port int

	// APIURL is the Foodgram backend base URL, e.g. http://localhost:8000/api.
	APIURL     string
	AuthScheme string
	APITimeout time.Duration

	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool

	DBPath      string
	TemplateDir string
	StaticDir   string

	LogLevel slog.Level
}

// Load reads the configuration. Missing variables fall back to development
// defaults, except SESSION_SECRET which is required.
func Load() (Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	var (
		cfg  Config
		errs []error
	)

	cfg.Port, errs = parseInt("PORT", getEnv("PORT", "8080"), errs)
	cfg.APIURL = strings.TrimRight(getEnv("FOODGRAM_API_URL", "http://localhost:8000/api"), "/")
	cfg.AuthScheme = getEnv("FOODGRAM_AUTH_SCHEME", "Token")
	cfg.APITimeout, errs = parseDuration("API_TIMEOUT", getEnv("API_TIMEOUT", "10s"), errs)

	cfg.SessionSecret = getEnv("SESSION_SECRET", "")
	cfg.SessionTTL, errs = parseDuration("SESSION_TTL", getEnv("SESSION_TTL", "168h"), errs)
	cfg.SecureCookies, errs = parseBool("COOKIE_SECURE", getEnv("COOKIE_SECURE", "false"), errs)

	cfg.DBPath = getEnv("DB_PATH", "data/foodgram-web.db")
	cfg.TemplateDir = getEnv("TEMPLATE_DIR", "web/templates")
	cfg.StaticDir = getEnv("STATIC_DIR", "web/static")

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if len(cfg.SessionSecret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be set to at least 16 characters"))
	}
	if cfg.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// getEnv returns the variable or defaultValue when it is unset.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseInt(key, v string, errs []error) (int, []error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
	}
	return n, errs
}

func parseDuration(key, v string, errs []error) (time.Duration, []error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s: invalid duration %q", key, v))
	}
	return d, errs
}

func parseBool(key, v string, errs []error) (bool, []error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, append(errs, fmt.Errorf("%s: invalid boolean %q", key, v))
	}
	return b, errs
}

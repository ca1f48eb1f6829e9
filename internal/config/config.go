package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"

	"github.com/spektr-org/kpideck/internal/errors"
)

// Config holds process-level settings read from the environment.
type Config struct {
	Source       string        // directory or http(s) base URL holding configs/ and data/
	Delimiter    rune          // extract field delimiter
	Currency     string        // default currency symbol
	Addr         string        // HTTP listen address
	FetchTimeout time.Duration // per-extract fetch bound
	LogLevel     string        // debug, info, warn, error
}

// Environment keys
const (
	EnvSource       = "KPIDECK_SOURCE"
	EnvDelimiter    = "KPIDECK_DELIMITER"
	EnvCurrency     = "KPIDECK_CURRENCY"
	EnvAddr         = "KPIDECK_ADDR"
	EnvFetchTimeout = "KPIDECK_FETCH_TIMEOUT"
	EnvLogLevel     = "KPIDECK_LOG_LEVEL"
)

// Load reads .env files (missing files are ignored; real environment
// variables win) and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "failed to read %s", f)
		}
	}
	return FromEnv()
}

// FromEnv reads configuration from environment variables and validates it.
func FromEnv() (*Config, error) {
	delimiter, err := ParseDelimiter(getEnvOrDefault(EnvDelimiter, ","))
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(getEnvOrDefault(EnvFetchTimeout, "15s"))
	if err != nil || timeout < 0 {
		return nil, errors.ConfigInvalid(EnvFetchTimeout, "must be a non-negative duration such as 15s")
	}

	cfg := &Config{
		Source:       getEnvOrDefault(EnvSource, "."),
		Delimiter:    delimiter,
		Currency:     getEnvOrDefault(EnvCurrency, "$"),
		Addr:         getEnvOrDefault(EnvAddr, ":8080"),
		FetchTimeout: timeout,
		LogLevel:     strings.ToLower(getEnvOrDefault(EnvLogLevel, "info")),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.ConfigInvalid(EnvLogLevel, "must be one of debug, info, warn, error")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return errors.ConfigInvalid(EnvAddr, "is required")
	}
	return nil
}

// ParseDelimiter accepts a single character, or "tab" / `\t`.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, errors.ConfigInvalid(EnvDelimiter, "must be a single character other than a quote or newline")
	}
	return r, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

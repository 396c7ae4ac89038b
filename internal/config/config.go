// Package config loads runtime configuration from the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the web client.
type Config struct {
	// Port is the TCP port the HTML frontend listens on.
	Port string `validate:"required,numeric"`

	// APIBaseURL is the fixed base address of the bill-splitting API.
	APIBaseURL string `validate:"required,http_url"`

	// APITimeout bounds every outbound API call.
	APITimeout time.Duration `validate:"gt=0"`

	// SessionSecret signs the flash-message cookie. A random key is generated
	// per process when unset, which drops pending flashes on restart.
	SessionSecret string `validate:"omitempty,min=32"`

	LogLevel string `validate:"oneof=debug info warn warning error"`

	// OTLPEndpoint enables trace export when set (host:port).
	OTLPEndpoint string
	ServiceName  string `validate:"required"`

	MetricsEnabled bool
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Load reads a .env file when present, then builds the configuration from
// environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		APIBaseURL:    strings.TrimRight(getEnvOrDefault("API_BASE_URL", "http://localhost:8000"), "/"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		LogLevel:      strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:   getEnvOrDefault("OTEL_SERVICE_NAME", "billsplitter-web"),
	}

	var err error
	if cfg.APITimeout, err = time.ParseDuration(getEnvOrDefault("API_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("API_TIMEOUT: %w", err)
	}
	if cfg.MetricsEnabled, err = strconv.ParseBool(getEnvOrDefault("METRICS_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("METRICS_ENABLED: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if cfg.SessionSecret == "" {
		if cfg.SessionSecret, err = randomSecret(); err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
	}

	return cfg, nil
}

var envNames = map[string]string{
	"Port":          "PORT",
	"APIBaseURL":    "API_BASE_URL",
	"APITimeout":    "API_TIMEOUT",
	"SessionSecret": "SESSION_SECRET",
	"LogLevel":      "LOG_LEVEL",
	"ServiceName":   "OTEL_SERVICE_NAME",
}

// validate checks struct tags and reports the first offending variable by its
// environment name.
func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		name := envNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		return fmt.Errorf("invalid %s: failed %q check", name, fe.Tag())
	}
	return fmt.Errorf("invalid configuration: %w", err)
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

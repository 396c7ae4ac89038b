package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "API_BASE_URL", "API_TIMEOUT", "SESSION_SECRET", "LOG_LEVEL",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "METRICS_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "billsplitter-web", cfg.ServiceName)
	assert.True(t, cfg.MetricsEnabled)
	assert.Len(t, cfg.SessionSecret, 64, "generated secret should be 32 hex-encoded bytes")
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("API_BASE_URL", "http://api.internal:8000/")
	t.Setenv("API_TIMEOUT", "2s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, "http://api.internal:8000", cfg.APIBaseURL, "trailing slash should be trimmed")
	assert.Equal(t, 2*time.Second, cfg.APITimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.SessionSecret)
	assert.False(t, cfg.MetricsEnabled)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad port", "PORT", "http", "PORT"},
		{"bad base url", "API_BASE_URL", "not a url", "API_BASE_URL"},
		{"bad timeout", "API_TIMEOUT", "soon", "API_TIMEOUT"},
		{"zero timeout", "API_TIMEOUT", "0s", "API_TIMEOUT"},
		{"short secret", "SESSION_SECRET", "hunter2", "SESSION_SECRET"},
		{"bad level", "LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"bad metrics flag", "METRICS_ENABLED", "maybe", "METRICS_ENABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

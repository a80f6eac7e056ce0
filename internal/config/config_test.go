package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoc_companion/internal/pricing"
	"hoc_companion/internal/utils"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("COMPANION_CONFIG", "")
	t.Setenv("DB_USER", "hoc")
	t.Setenv("DB_PASSWORD", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 2, cfg.OpenAI.RequestLimit)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, filepath.Join("logs", "requests-%s.jsonl"), cfg.RequestLogger.FilePathTemplate)
	assert.Equal(t, 30, cfg.RequestLogger.MaxFiles)
	assert.False(t, cfg.Billing.Enabled)
	assert.True(t, cfg.Ledger.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("OPENAI_MODEL", "gpt-4.1-mini")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPENAI_REQUEST_TIMEOUT", "15s")
	t.Setenv("BILLING_ENABLED", "true")
	t.Setenv("BILLING_MONTHLY_BUDGET_USD", "12.5")
	t.Setenv("LOG_DIR", "/var/log/companion")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAI.Model)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, utils.Debug, cfg.LogLevelValue())
	assert.Equal(t, 15*time.Second, cfg.OpenAI.RequestTimeout)
	assert.True(t, cfg.Billing.Enabled)
	assert.Equal(t, 12.5, cfg.Billing.MonthlyBudgetUSD)
	assert.Equal(t, "/var/log/companion/requests-%s.jsonl", cfg.RequestLogger.FilePathTemplate)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("OPENAI_REQUEST_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 60*time.Second, cfg.OpenAI.RequestTimeout)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing user", env: map[string]string{"DB_USER": ""}},
		{name: "missing password", env: map[string]string{"DB_PASSWORD": ""}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "VERBOSE"}},
		{name: "request limit zero", env: map[string]string{"OPENAI_REQUEST_LIMIT": "0"}},
		{name: "sink without bucket", env: map[string]string{"LOGGING_SINK_ENABLED": "true"}},
		{name: "negative request log buffer", env: map[string]string{"REQUEST_LOGGER_BUFFER_SIZE": "-1"}},
		{name: "zero request log flush interval", env: map[string]string{"REQUEST_LOGGER_FLUSH_INTERVAL": "0s"}},
		{name: "negative request log flush interval", env: map[string]string{"REQUEST_LOGGER_FLUSH_INTERVAL": "-5s"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoad_UnknownModel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OPENAI_MODEL", "gpt-unknown")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, pricing.ErrUnknownModel))
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companion.yaml")
	content := `
http_port: "9090"
log_level: warning
database:
  host: pg.local
  name: marketing
  user: from_file
  password: ${TEST_DB_PASSWORD}
openai:
  model: gpt-4o
  request_timeout: 30s
context:
  max_asset_chars: 200
ledger:
  retention: 720h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("COMPANION_CONFIG", path)
	t.Setenv("TEST_DB_PASSWORD", "expanded")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.HTTPPort, "env wins over file")
	assert.Equal(t, "WARNING", cfg.LogLevel)
	assert.Equal(t, "pg.local", cfg.Database.Host)
	assert.Equal(t, "marketing", cfg.Database.Name)
	assert.Equal(t, "from_file", cfg.Database.User)
	assert.Equal(t, "expanded", cfg.Database.Password)
	assert.Equal(t, 5432, cfg.Database.Port, "unset keys keep defaults")
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 30*time.Second, cfg.OpenAI.RequestTimeout)
	assert.Equal(t, 200, cfg.Context.MaxAssetChars)
	assert.Equal(t, 720*time.Hour, cfg.Ledger.Retention)
}

func TestLoad_MissingFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COMPANION_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rebuildcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingOptionalFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.API.URL)
	assert.Equal(t, DefaultProject, cfg.Project)
	assert.Equal(t, DefaultArch, cfg.Arch)
	assert.Equal(t, DefaultEnvironmentSuffix, cfg.Environment.Suffix)
	assert.Equal(t, DefaultEnvironmentTitle, cfg.Environment.Title)
	assert.Equal(t, DefaultPollInterval, cfg.Monitor.PollInterval)
	assert.Equal(t, DefaultConcurrency, cfg.Monitor.Concurrency)
	assert.Equal(t, RetryBackoffExponential, cfg.Retry.Mode)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
}

func TestLoadMissingRequiredFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestLoadParsesFileAndExpandsEnv(t *testing.T) {
	t.Setenv("RC_TEST_PASSWORD", "s3cret")
	path := writeConfig(t, `
api:
  url: https://obs.example.org
  username: builder
  password: ${RC_TEST_PASSWORD}
project: devel:tools
arch: aarch64
environment:
  suffix: Verify
  cleanup: true
monitor:
  poll_interval: 30s
  timeout: 2h
  concurrency: 4
retry:
  mode: LINEAR
  max_retries: 5
logging:
  level: DEBUG
  format: json
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "https://obs.example.org", cfg.API.URL)
	assert.Equal(t, "s3cret", cfg.API.Password)
	assert.Equal(t, "devel:tools", cfg.Project)
	assert.Equal(t, "aarch64", cfg.Arch)
	assert.Equal(t, "Verify", cfg.Environment.Suffix)
	assert.True(t, cfg.Environment.Cleanup)
	assert.Equal(t, DefaultEnvironmentTitle, cfg.Environment.Title)
	assert.Equal(t, 30*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 2*time.Hour, cfg.Monitor.Timeout)
	assert.Equal(t, 4, cfg.Monitor.Concurrency)
	assert.Equal(t, RetryBackoffLinear, cfg.Retry.Mode)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://override.example.org")
	t.Setenv(EnvUsername, "env-user")

	path := writeConfig(t, "api:\n  username: file-user\n")
	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.org", cfg.API.URL)
	assert.Equal(t, "file-user", cfg.API.Username, "file credentials win over env fallbacks")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"relative url", func(c *Config) { c.API.URL = "api.example.org" }, "absolute URL"},
		{"bad scheme", func(c *Config) { c.API.URL = "ftp://api.example.org" }, "scheme"},
		{"poll interval too small", func(c *Config) { c.Monitor.PollInterval = time.Millisecond }, "poll_interval"},
		{"timeout below interval", func(c *Config) { c.Monitor.Timeout = time.Second }, "must not be shorter"},
		{"retry initial above max", func(c *Config) { c.Retry.Initial = time.Hour }, "retry.initial"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitWritesLoadableExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rebuildcheck.yaml")
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	require.Error(t, err, "second init without force must fail")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, DefaultProject, cfg.Project)
	assert.Equal(t, DefaultPollInterval, cfg.Monitor.PollInterval)
}

func TestNormalizeRetryBackoff(t *testing.T) {
	assert.Equal(t, RetryBackoffFixed, NormalizeRetryBackoff(" Fixed "))
	assert.Equal(t, RetryBackoffMode(""), NormalizeRetryBackoff("random"))
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.API.URL = "ftp://api.example.org"
	cfg.Environment.Suffix = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Contains(t, err.Error(), "api.url")
	assert.Contains(t, err.Error(), "environment.suffix")
}

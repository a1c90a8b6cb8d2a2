package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "rebuildcheck.yaml"

// Config is the rebuildcheck configuration. CLI flags override file values.
type Config struct {
	API         APIConfig         `yaml:"api"`
	Project     string            `yaml:"project"`
	Arch        string            `yaml:"arch"`
	Environment EnvironmentConfig `yaml:"environment"`
	Monitor     MonitorConfig     `yaml:"monitor"`
	Retry       RetryConfig       `yaml:"retry"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	History     HistoryConfig     `yaml:"history"`
	Notify      NotifyConfig      `yaml:"notify"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// APIConfig describes how to reach the Build Service.
type APIConfig struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username,omitempty"`
	Password string        `yaml:"password,omitempty"`
	Token    string        `yaml:"token,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"` // per request
}

// EnvironmentConfig controls the rebuild sub-project.
type EnvironmentConfig struct {
	Suffix      string `yaml:"suffix"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Cleanup     bool   `yaml:"cleanup"` // delete the sub-project after reporting
}

// MonitorConfig controls build completion polling.
type MonitorConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	Concurrency  int           `yaml:"concurrency"`
}

// RetryConfig controls retries of transient Build Service requests.
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode"`
	Initial    time.Duration    `yaml:"initial"`
	Max        time.Duration    `yaml:"max"`
	MaxRetries int              `yaml:"max_retries"`
}

// CatalogConfig bounds the link-chain walk.
type CatalogConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// HistoryConfig enables the run event log.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig enables report publication over NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads the configuration at path. A missing file is only an error when
// required is true; otherwise defaults are returned.
func Load(path string, required bool) (*Config, error) {
	loadEnvFile()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables so credentials can stay out of the file.
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !required:
	case os.IsNotExist(err):
		return nil, fmt.Errorf("configuration file not found: %s", path)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}
	example := Default()
	example.API.Username = "${REBUILDCHECK_USERNAME}"
	example.API.Password = "${REBUILDCHECK_PASSWORD}"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

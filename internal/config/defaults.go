package config

import "time"

const (
	DefaultAPIURL             = "https://api.opensuse.org"
	DefaultProject            = "openSUSE:Factory"
	DefaultArch               = "x86_64"
	DefaultEnvironmentSuffix  = "Rebuild"
	DefaultEnvironmentTitle   = "Testing rebuild of whole parent project"
	DefaultEnvironmentDesc    = "Temporary project including expanded copy of parent to verify if everything can be rebuild from scratch"
	DefaultPollInterval       = time.Minute
	DefaultMonitorTimeout     = 24 * time.Hour
	DefaultConcurrency        = 8
	DefaultRequestTimeout     = 60 * time.Second
	DefaultCatalogMaxDepth    = 32
	DefaultNotifySubject      = "rebuildcheck.report"
	DefaultMetricsPath        = "/metrics"
	defaultRetryInitial       = time.Second
	defaultRetryMax           = 30 * time.Second
	defaultRetryMaxRetriesCap = 10
)

// applyDefaults fills every zero value with its default.
func applyDefaults(cfg *Config) {
	if cfg.API.URL == "" {
		cfg.API.URL = DefaultAPIURL
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = DefaultRequestTimeout
	}
	if cfg.Project == "" {
		cfg.Project = DefaultProject
	}
	if cfg.Arch == "" {
		cfg.Arch = DefaultArch
	}

	if cfg.Environment.Suffix == "" {
		cfg.Environment.Suffix = DefaultEnvironmentSuffix
	}
	if cfg.Environment.Title == "" {
		cfg.Environment.Title = DefaultEnvironmentTitle
	}
	if cfg.Environment.Description == "" {
		cfg.Environment.Description = DefaultEnvironmentDesc
	}

	if cfg.Monitor.PollInterval <= 0 {
		cfg.Monitor.PollInterval = DefaultPollInterval
	}
	if cfg.Monitor.Timeout <= 0 {
		cfg.Monitor.Timeout = DefaultMonitorTimeout
	}
	if cfg.Monitor.Concurrency <= 0 {
		cfg.Monitor.Concurrency = DefaultConcurrency
	}

	if mode := NormalizeRetryBackoff(string(cfg.Retry.Mode)); mode != "" {
		cfg.Retry.Mode = mode
	} else {
		cfg.Retry.Mode = RetryBackoffExponential
	}
	if cfg.Retry.Initial <= 0 {
		cfg.Retry.Initial = defaultRetryInitial
	}
	if cfg.Retry.Max <= 0 {
		cfg.Retry.Max = defaultRetryMax
	}
	if cfg.Retry.MaxRetries < 0 {
		cfg.Retry.MaxRetries = 0
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 2
	}
	if cfg.Retry.MaxRetries > defaultRetryMaxRetriesCap {
		cfg.Retry.MaxRetries = defaultRetryMaxRetriesCap
	}

	if cfg.Catalog.MaxDepth <= 0 {
		cfg.Catalog.MaxDepth = DefaultCatalogMaxDepth
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

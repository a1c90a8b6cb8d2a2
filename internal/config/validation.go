package config

import (
	"net/url"
	"time"

	"git.home.luguber.info/inful/rebuildcheck/internal/foundation"
)

// minPollInterval keeps the monitor from hammering the Build Service.
const minPollInterval = time.Second

var validators = foundation.NewValidatorChain(
	validateAPI,
	validateMonitor,
	validateRetry,
	validateEnvironment,
)

// Validate checks a configuration after defaults were applied. All problems
// are reported at once.
func Validate(cfg *Config) error {
	return validators.Validate(cfg).ToError()
}

func validateAPI(cfg *Config) foundation.ValidationResult {
	u, err := url.Parse(cfg.API.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return foundation.Check(false, "api.url", "absolute_url", "must be an absolute URL, got %q", cfg.API.URL)
	}
	return foundation.Check(u.Scheme == "http" || u.Scheme == "https",
		"api.url", "scheme", "scheme must be http or https, got %q", u.Scheme)
}

func validateMonitor(cfg *Config) foundation.ValidationResult {
	return checkMonitor(cfg.Monitor.PollInterval, cfg.Monitor.Timeout)
}

// ValidateMonitor applies the monitor rules to a poll interval and timeout
// merged from flags and configuration.
func ValidateMonitor(pollInterval, timeout time.Duration) error {
	return checkMonitor(pollInterval, timeout).ToError()
}

func checkMonitor(pollInterval, timeout time.Duration) foundation.ValidationResult {
	return foundation.Check(pollInterval >= minPollInterval,
		"monitor.poll_interval", "min", "must be at least %s", minPollInterval).
		Combine(foundation.Check(timeout >= pollInterval,
			"monitor.timeout", "min", "(%s) must not be shorter than monitor.poll_interval (%s)",
			timeout, pollInterval))
}

func validateRetry(cfg *Config) foundation.ValidationResult {
	return foundation.Check(cfg.Retry.Initial <= cfg.Retry.Max,
		"retry.initial", "max", "(%s) exceeds retry.max (%s)", cfg.Retry.Initial, cfg.Retry.Max)
}

func validateEnvironment(cfg *Config) foundation.ValidationResult {
	return foundation.Check(cfg.Environment.Suffix != "", "environment.suffix", "required", "must not be empty")
}

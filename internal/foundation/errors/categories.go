package errors

import "maps"

// ErrorCategory groups errors by the component or boundary that produced them.
type ErrorCategory string

const (
	// User input and local setup.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Build Service responses.
	CategoryAuth         ErrorCategory = "auth"
	CategoryNotFound     ErrorCategory = "not_found"
	CategoryNetwork      ErrorCategory = "network"
	CategoryBuildService ErrorCategory = "build_service"

	// Working set selection: unknown modes, link cycles, missing repositories.
	CategorySelection ErrorCategory = "selection"

	// Local infrastructure.
	CategoryStorage  ErrorCategory = "storage"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity tells a run whether it can continue.
type ErrorSeverity string

const (
	SeverityFatal ErrorSeverity = "fatal" // aborts the run
	SeverityError ErrorSeverity = "error" // fails one operation or package
)

// RetryStrategy tells callers whether repeating the operation can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryBackoff    RetryStrategy = "backoff"
	RetryRateLimit  RetryStrategy = "rate_limit"
	RetryUserAction RetryStrategy = "user" // credentials or permissions must change first
)

// ErrorContext carries structured details such as project or package names.
type ErrorContext map[string]any

// Set stores value under key, allocating the map when needed.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get returns the value stored under key.
func (c ErrorContext) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// GetString returns the value under key when it is a string.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// Merge returns a new context holding c overlaid with other.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	out := make(ErrorContext, len(c)+len(other))
	maps.Copy(out, c)
	maps.Copy(out, other)
	return out
}

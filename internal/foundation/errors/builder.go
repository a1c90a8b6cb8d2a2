package errors

// ErrorBuilder assembles a ClassifiedError. Start from one of the category
// constructors below.
type ErrorBuilder struct {
	err ClassifiedError
}

func newBuilder(category ErrorCategory, severity ErrorSeverity, retry RetryStrategy, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: severity,
		retry:    retry,
		message:  message,
		context:  make(ErrorContext),
	}}
}

// WithCause sets the wrapped error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.err.cause = err
	return b
}

// WithSeverity overrides the constructor's severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.err.severity = severity
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.Set(key, value)
	return b
}

// Fatal marks the error as aborting the run.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// RateLimit marks the error as retryable once the server's window passed.
func (b *ErrorBuilder) RateLimit() *ErrorBuilder {
	b.err.retry = RetryRateLimit
	return b
}

// Build returns the error. The builder may not be reused afterwards.
func (b *ErrorBuilder) Build() *ClassifiedError {
	out := b.err
	return &out
}

// ConfigError reports an unusable configuration file or value.
func ConfigError(message string) *ErrorBuilder {
	return newBuilder(CategoryConfig, SeverityFatal, RetryNever, message)
}

// ValidationError reports invalid user input.
func ValidationError(message string) *ErrorBuilder {
	return newBuilder(CategoryValidation, SeverityFatal, RetryNever, message)
}

// AuthError reports rejected credentials or missing permissions.
func AuthError(message string) *ErrorBuilder {
	return newBuilder(CategoryAuth, SeverityError, RetryUserAction, message)
}

// NotFoundError reports a missing project, package or record.
func NotFoundError(message string) *ErrorBuilder {
	return newBuilder(CategoryNotFound, SeverityFatal, RetryNever, message)
}

// NetworkError reports a transport failure or server error worth retrying.
func NetworkError(message string) *ErrorBuilder {
	return newBuilder(CategoryNetwork, SeverityError, RetryBackoff, message)
}

// BuildServiceError reports a request the Build Service refused.
func BuildServiceError(message string) *ErrorBuilder {
	return newBuilder(CategoryBuildService, SeverityError, RetryNever, message)
}

// SelectionError reports a working set that cannot be derived.
func SelectionError(message string) *ErrorBuilder {
	return newBuilder(CategorySelection, SeverityFatal, RetryNever, message)
}

// StorageError reports a history database failure.
func StorageError(message string) *ErrorBuilder {
	return newBuilder(CategoryStorage, SeverityError, RetryNever, message)
}

// DaemonError reports a scheduler or file watcher failure.
func DaemonError(message string) *ErrorBuilder {
	return newBuilder(CategoryDaemon, SeverityFatal, RetryNever, message)
}

// InternalError reports a bug or an impossible state.
func InternalError(message string) *ErrorBuilder {
	return newBuilder(CategoryInternal, SeverityFatal, RetryNever, message)
}

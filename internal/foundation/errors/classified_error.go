package errors

import (
	stderrors "errors"
	"fmt"
)

// ClassifiedError is an error with a category, severity, retry strategy and
// structured context. Values are immutable; the With methods return copies so
// package-level sentinels can be decorated safely.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

func (e *ClassifiedError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("[%s:%s] %s", e.category, e.severity, e.message)
	}
	return fmt.Sprintf("[%s:%s] %s: %v", e.category, e.severity, e.message, e.cause)
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory      { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity      { return e.severity }
func (e *ClassifiedError) RetryStrategy() RetryStrategy { return e.retry }
func (e *ClassifiedError) Message() string              { return e.message }
func (e *ClassifiedError) Cause() error                 { return e.cause }
func (e *ClassifiedError) Context() ErrorContext        { return e.context }

// WithContext returns a copy with key set.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	out := e.clone()
	out.context = out.context.Set(key, value)
	return out
}

// WithContextMap returns a copy with ctx merged in.
func (e *ClassifiedError) WithContextMap(ctx ErrorContext) *ClassifiedError {
	out := e.clone()
	out.context = out.context.Merge(ctx)
	return out
}

// WithCause returns a copy wrapping cause.
func (e *ClassifiedError) WithCause(cause error) *ClassifiedError {
	out := e.clone()
	out.cause = cause
	return out
}

func (e *ClassifiedError) clone() *ClassifiedError {
	out := *e
	out.context = ErrorContext{}.Merge(e.context)
	return &out
}

// Is matches another ClassifiedError with the same category and message, so
// decorated copies still match their sentinel.
func (e *ClassifiedError) Is(target error) bool {
	other, ok := target.(*ClassifiedError)
	return ok && e.category == other.category && e.message == other.message
}

// IsTransient reports whether retrying may succeed without user action.
func (e *ClassifiedError) IsTransient() bool {
	return e.retry == RetryBackoff || e.retry == RetryRateLimit
}

// AsClassified returns the first ClassifiedError in the chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// HasCategory reports whether the first classified error in the chain has category.
func HasCategory(err error, category ErrorCategory) bool {
	ce, ok := AsClassified(err)
	return ok && ce.category == category
}

// IsRetryable reports whether err is classified as transient.
func IsRetryable(err error) bool {
	ce, ok := AsClassified(err)
	return ok && ce.IsTransient()
}

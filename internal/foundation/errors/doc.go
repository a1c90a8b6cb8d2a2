// Package errors provides the classified error type used across rebuildcheck.
//
// Every failure that can reach the CLI is a ClassifiedError carrying a
// category, a severity and a retry strategy. The Build Service client
// retries only transient errors, the monitor keeps a package pending on
// transient lookups, and the CLI adapter formats and logs whatever reaches
// the command line.
//
// Example usage:
//
//	err := errors.NotFoundError("project not found").
//		WithContext("project", name).
//		WithCause(httpErr).
//		Build()
package errors

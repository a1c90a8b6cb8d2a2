package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// CLIErrorAdapter turns errors into user-facing messages and log records.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger}
}

// FormatError renders err for display. Verbose mode shows the full chain.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	ce, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return ce.Error()
	}
	switch ce.Category() {
	case CategoryConfig, CategoryValidation, CategoryAuth, CategorySelection, CategoryNotFound:
		return formatWithContext(ce)
	default:
		return fmt.Sprintf("%s: %s", ce.Category(), formatWithContext(ce))
	}
}

func formatWithContext(err *ClassifiedError) string {
	for _, key := range []string{"project", "path", "package", "repository", "field"} {
		if v, ok := err.Context().Get(key); ok {
			return fmt.Sprintf("%s (%s: %v)", err.Message(), key, v)
		}
	}
	return err.Message()
}

// Report logs fatal errors (all errors when verbose) and writes the message to w.
func (a *CLIErrorAdapter) Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	ce, ok := AsClassified(err)
	switch {
	case !ok:
		a.logger.Error("Unclassified error", slog.String("error", err.Error()))
	case a.verbose || ce.Severity() == SeverityFatal:
		a.log(ce)
	}
	_, _ = fmt.Fprintln(w, a.FormatError(err))
}

func (a *CLIErrorAdapter) log(ce *ClassifiedError) {
	attrs := []slog.Attr{slog.String("category", string(ce.Category()))}
	for k, v := range ce.Context() {
		attrs = append(attrs, slog.Any(k, v))
	}
	if ce.Cause() != nil {
		attrs = append(attrs, slog.String("cause", ce.Cause().Error()))
	}
	if ce.IsTransient() {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	a.logger.LogAttrs(context.Background(), slog.LevelError, ce.Message(), attrs...)
}

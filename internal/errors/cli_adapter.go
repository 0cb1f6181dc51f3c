package errors

import (
	"context"
	"fmt"
	"log/slog"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	ae, ok := As(err)
	if !ok {
		return 1
	}

	switch ae.Category {
	case CategoryConfig:
		return 7
	case CategoryDiscovery, CategoryTemplate, CategoryHook:
		return 11
	case CategoryFileSystem:
		return 12
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	ae, ok := As(err)
	if !ok || a.verbose {
		return fmt.Sprintf("Error: %v", err)
	}

	if ae.Category == CategoryConfig {
		return ae.Error()
	}
	return fmt.Sprintf("%s: %s", ae.Category, ae.Message)
}

// Log writes err at a level derived from its severity.
func (a *CLIErrorAdapter) Log(ctx context.Context, err error) {
	ae, ok := As(err)
	if !ok {
		a.logger.ErrorContext(ctx, "Unclassified error", "error", err)
		return
	}

	attrs := []slog.Attr{slog.String("category", string(ae.Category))}
	for k, v := range ae.Context {
		attrs = append(attrs, slog.Any(k, v))
	}
	if ae.Cause != nil {
		attrs = append(attrs, slog.String("error", ae.Cause.Error()))
	}
	a.logger.LogAttrs(ctx, levelFor(ae.Severity), ae.Message, attrs...)
}

func levelFor(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

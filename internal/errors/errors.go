// Package errors provides the structured error type (AutoAPIError) used to
// classify failures of a generation run by kind and scope.
package errors

import (
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the kind of a generation error.
type ErrorCategory string

const (
	// Fatal for the whole run, reported before any writing.
	CategoryConfig ErrorCategory = "config"

	// Scoped to the subtree of the module that failed enumeration.
	CategoryDiscovery ErrorCategory = "discovery"

	// Scoped to the root that owns the template.
	CategoryTemplate ErrorCategory = "template"

	// Scoped to the single node handed to the failing listener.
	CategoryHook ErrorCategory = "hook"

	// Scoped to the single node whose output could not be written.
	CategoryFileSystem ErrorCategory = "filesystem"

	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the run
	SeverityError   ErrorSeverity = "error"   // Recorded, run continues
	SeverityWarning ErrorSeverity = "warning" // Degraded output, run continues
)

// AutoAPIError is a structured error with category, severity and context.
type AutoAPIError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"-"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for AutoAPIError
type ContextFields map[string]any

// Error implements the error interface
func (e *AutoAPIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s): %s", e.Category, e.Severity, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString("]")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is / errors.As.
func (e *AutoAPIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *AutoAPIError) WithContext(key string, value any) *AutoAPIError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new AutoAPIError
func New(category ErrorCategory, severity ErrorSeverity, message string) *AutoAPIError {
	return &AutoAPIError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new AutoAPIError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *AutoAPIError {
	return &AutoAPIError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As extracts the first AutoAPIError in err's chain.
func As(err error) (*AutoAPIError, bool) {
	var ae *AutoAPIError
	if stdErrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if ae, ok := As(err); ok {
		return ae.Category == category
	}
	return false
}

// IsFatal reports whether err must stop the whole run.
func IsFatal(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Severity == SeverityFatal
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not an AutoAPIError
func GetCategory(err error) ErrorCategory {
	if ae, ok := As(err); ok {
		return ae.Category
	}
	return CategoryInternal
}

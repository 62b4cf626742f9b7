// Package errors provides structured error handling for the wpkgen compiler.
// It defines error codes, categories, and formatting for both human-readable
// terminal output and machine-parseable JSON consumed by tooling.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrorCode represents a unique error code in the wpkgen compiler
type ErrorCode string

// ErrorCategory represents the category of compiler error
type ErrorCategory string

const (
	// CategoryPlan represents malformed plan documents (PLN100-199)
	CategoryPlan ErrorCategory = "plan"
	// CategoryCapability represents capability map diagnostics (CAP300-399)
	CategoryCapability ErrorCategory = "capability"
	// CategoryCodeGen represents code generation errors (GEN600-699)
	CategoryCodeGen ErrorCategory = "codegen"
)

// ErrorSeverity indicates the severity level of an error
type ErrorSeverity string

const (
	// SeverityError indicates an error that aborts generation
	SeverityError ErrorSeverity = "error"
	// SeverityWarning indicates a soft inconsistency; generation continues
	SeverityWarning ErrorSeverity = "warning"
	// SeverityInfo indicates informational messages
	SeverityInfo ErrorSeverity = "info"
)

// Location identifies where in a plan an error originated
type Location struct {
	// Resource is the resource name, if known
	Resource string `json:"resource,omitempty"`
	// Route is "[METHOD] path", if the error concerns a route
	Route string `json:"route,omitempty"`
	// Field is the offending plan field, e.g. "storage.mode"
	Field string `json:"field,omitempty"`
}

// String renders the location as "resource > route > field"
func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Resource, l.Route, l.Field} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "<plan>"
	}
	return strings.Join(parts, " > ")
}

// CompilerError represents a structured compiler error with comprehensive information
// for both human-readable output and tooling
type CompilerError struct {
	// Code is the unique error code (e.g., "GEN611", "PLN101")
	Code ErrorCode `json:"code"`
	// Type is a machine-readable error type identifier
	Type string `json:"type"`
	// Category is the error category
	Category ErrorCategory `json:"category"`
	// Severity is the error severity level
	Severity ErrorSeverity `json:"severity"`
	// Message is the primary error message
	Message string `json:"message"`
	// Location points into the plan document
	Location Location `json:"location"`
	// File is the plan file name (optional)
	File string `json:"file,omitempty"`
	// Expected describes what was expected (optional)
	Expected string `json:"expected,omitempty"`
	// Actual describes what was actually found (optional)
	Actual string `json:"actual,omitempty"`
	// Suggestion provides a hint for fixing the error (optional)
	Suggestion string `json:"suggestion,omitempty"`
	// Examples provides example fixes (optional)
	Examples []string `json:"examples,omitempty"`
}

// Error implements the error interface
func (e *CompilerError) Error() string {
	return FormatCompact(e)
}

// Format returns a human-readable error message for terminal output
func (e *CompilerError) Format() string {
	return FormatError(e)
}

// ToJSON returns the error as a JSON string
func (e *CompilerError) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// WithFile sets the source file name for the error
func (e *CompilerError) WithFile(file string) *CompilerError {
	e.File = file
	return e
}

// WithExpected sets the expected value for the error
func (e *CompilerError) WithExpected(expected string) *CompilerError {
	e.Expected = expected
	return e
}

// WithActual sets the actual value for the error
func (e *CompilerError) WithActual(actual string) *CompilerError {
	e.Actual = actual
	return e
}

// WithSuggestion sets a suggestion for fixing the error
func (e *CompilerError) WithSuggestion(suggestion string) *CompilerError {
	e.Suggestion = suggestion
	return e
}

// WithExamples sets example fixes for the error
func (e *CompilerError) WithExamples(examples ...string) *CompilerError {
	e.Examples = examples
	return e
}

// ErrorList is a collection of compiler errors
type ErrorList []*CompilerError

// Error implements the error interface
func (el ErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	return FormatErrorList(el)
}

// Err returns nil for an empty list so callers can return it directly
func (el ErrorList) Err() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// HasErrors returns true if the list contains any errors (excludes warnings/info)
func (el ErrorList) HasErrors() bool {
	for _, err := range el {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if the list contains any warnings
func (el ErrorList) HasWarnings() bool {
	for _, err := range el {
		if err.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ToJSON returns all errors as a JSON array
func (el ErrorList) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(el, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ErrorCount returns the number of errors by severity
func (el ErrorList) ErrorCount() (errors, warnings, info int) {
	for _, err := range el {
		switch err.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			info++
		}
	}
	return
}

// As reports whether err is (or wraps) a CompilerError and returns it
func As(err error) (*CompilerError, bool) {
	var ce *CompilerError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Diagnostics flattens err into its compiler errors: every entry of an
// ErrorList, or the single CompilerError err wraps. It is nil otherwise.
func Diagnostics(err error) ErrorList {
	var list ErrorList
	if stderrors.As(err, &list) {
		return list
	}
	if ce, ok := As(err); ok {
		return ErrorList{ce}
	}
	return nil
}

// newError creates a new CompilerError with the given parameters
func newError(
	code ErrorCode,
	typ string,
	category ErrorCategory,
	severity ErrorSeverity,
	message string,
	loc Location,
) *CompilerError {
	return &CompilerError{
		Code:     code,
		Type:     typ,
		Category: category,
		Severity: severity,
		Message:  message,
		Location: loc,
	}
}

func quoteList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, fmt.Sprintf("%q", v))
	}
	return strings.Join(quoted, ", ")
}

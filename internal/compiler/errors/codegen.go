package errors

import (
	"fmt"
)

// Code generation error codes (GEN600-699). These signal a caller contract
// violation and abort generation of the current file.
const (
	// ErrCodeGenFailed indicates a general code generation failure
	ErrCodeGenFailed ErrorCode = "GEN600"
	// ErrEmptyVariableName indicates a statement builder received an empty variable name
	ErrEmptyVariableName ErrorCode = "GEN610"
	// ErrStorageModeMismatch indicates a storage descriptor handed to the wrong strategy
	ErrStorageModeMismatch ErrorCode = "GEN611"
	// ErrUnknownStorageMode indicates a storage descriptor with no strategy
	ErrUnknownStorageMode ErrorCode = "GEN612"
	// ErrDuplicateClassName indicates two resources generating the same class
	ErrDuplicateClassName ErrorCode = "GEN613"
	// ErrRouteIndexOutOfRange indicates controller metadata lost track of a route
	ErrRouteIndexOutOfRange ErrorCode = "GEN614"
)

// NewCodeGenFailed creates a GEN600 error
func NewCodeGenFailed(loc Location, reason string) *CompilerError {
	return newError(
		ErrCodeGenFailed,
		"codegen_failed",
		CategoryCodeGen,
		SeverityError,
		fmt.Sprintf("Code generation failed: %s", reason),
		loc,
	).WithSuggestion("This is likely a compiler bug - please report it")
}

// NewEmptyVariableName creates a GEN610 error
func NewEmptyVariableName(loc Location) *CompilerError {
	return newError(
		ErrEmptyVariableName,
		"empty_variable_name",
		CategoryCodeGen,
		SeverityError,
		"Variable name must not be empty",
		loc,
	).WithSuggestion("Pass the identity parameter name without the leading '$'")
}

// NewStorageModeMismatch creates a GEN611 error
func NewStorageModeMismatch(loc Location, expected, actual string) *CompilerError {
	return newError(
		ErrStorageModeMismatch,
		"storage_mode_mismatch",
		CategoryCodeGen,
		SeverityError,
		fmt.Sprintf("Storage strategy %q cannot build a %q descriptor", expected, actual),
		loc,
	).WithExpected(expected).WithActual(actual)
}

// NewUnknownStorageMode creates a GEN612 error
func NewUnknownStorageMode(loc Location, mode string, known []string) *CompilerError {
	return newError(
		ErrUnknownStorageMode,
		"unknown_storage_mode",
		CategoryCodeGen,
		SeverityError,
		fmt.Sprintf("Unknown storage mode %q", mode),
		loc,
	).WithSuggestion(fmt.Sprintf("Use one of: %s", quoteList(known)))
}

// NewDuplicateClassName creates a GEN613 error
func NewDuplicateClassName(loc Location, className string) *CompilerError {
	return newError(
		ErrDuplicateClassName,
		"duplicate_class_name",
		CategoryCodeGen,
		SeverityError,
		fmt.Sprintf("Class %q is generated by more than one resource", className),
		loc,
	).WithSuggestion("Give each resource a unique name or className")
}

// NewRouteIndexOutOfRange creates a GEN614 error
func NewRouteIndexOutOfRange(loc Location, index, count int) *CompilerError {
	return newError(
		ErrRouteIndexOutOfRange,
		"route_index_out_of_range",
		CategoryCodeGen,
		SeverityError,
		fmt.Sprintf("Route %d has no metadata entry (controller has %d routes)", index, count),
		loc,
	)
}

package errors

import (
	"fmt"
)

// Plan error codes (PLN100-199). Raised while decoding and validating
// plan documents, before any code is generated.
const (
	// ErrInvalidPlanDocument indicates the document could not be decoded
	ErrInvalidPlanDocument ErrorCode = "PLN100"
	// ErrMissingField indicates a required field is absent
	ErrMissingField ErrorCode = "PLN101"
	// ErrInvalidIdentityType indicates an identity type other than number or string
	ErrInvalidIdentityType ErrorCode = "PLN102"
	// ErrInvalidRoute indicates a route with an empty method or path
	ErrInvalidRoute ErrorCode = "PLN103"
	// ErrDuplicateResource indicates two resources sharing a name
	ErrDuplicateResource ErrorCode = "PLN104"
	// ErrInvalidMetaType indicates an unsupported meta field type
	ErrInvalidMetaType ErrorCode = "PLN105"
	// ErrInvalidCapabilityScope indicates an appliesTo other than resource or object
	ErrInvalidCapabilityScope ErrorCode = "PLN106"
)

// NewInvalidPlanDocument creates a PLN100 error
func NewInvalidPlanDocument(file string, cause error) *CompilerError {
	return newError(
		ErrInvalidPlanDocument,
		"invalid_plan_document",
		CategoryPlan,
		SeverityError,
		fmt.Sprintf("Plan document could not be decoded: %v", cause),
		Location{},
	).WithFile(file).WithSuggestion("Plans must be YAML (.yaml/.yml) or JSON (.json)")
}

// NewMissingField creates a PLN101 error
func NewMissingField(loc Location) *CompilerError {
	return newError(
		ErrMissingField,
		"missing_field",
		CategoryPlan,
		SeverityError,
		fmt.Sprintf("Required field %q is missing", loc.Field),
		loc,
	)
}

// NewInvalidIdentityType creates a PLN102 error
func NewInvalidIdentityType(loc Location, actual string) *CompilerError {
	return newError(
		ErrInvalidIdentityType,
		"invalid_identity_type",
		CategoryPlan,
		SeverityError,
		fmt.Sprintf("Identity type %q is not supported", actual),
		loc,
	).WithExpected("number or string").WithActual(actual)
}

// NewInvalidRoute creates a PLN103 error
func NewInvalidRoute(loc Location, reason string) *CompilerError {
	return newError(
		ErrInvalidRoute,
		"invalid_route",
		CategoryPlan,
		SeverityError,
		fmt.Sprintf("Invalid route: %s", reason),
		loc,
	).WithExamples("{ method: GET, path: /books }", "{ method: PUT, path: /books/:id }")
}

// NewDuplicateResource creates a PLN104 error
func NewDuplicateResource(loc Location) *CompilerError {
	return newError(
		ErrDuplicateResource,
		"duplicate_resource",
		CategoryPlan,
		SeverityError,
		fmt.Sprintf("Resource %q is declared more than once", loc.Resource),
		loc,
	)
}

// NewInvalidMetaType creates a PLN105 error
func NewInvalidMetaType(loc Location, actual string, allowed []string) *CompilerError {
	return newError(
		ErrInvalidMetaType,
		"invalid_meta_type",
		CategoryPlan,
		SeverityError,
		fmt.Sprintf("Meta type %q is not supported", actual),
		loc,
	).WithSuggestion(fmt.Sprintf("Use one of: %s", quoteList(allowed)))
}

// NewInvalidCapabilityScope creates a PLN106 error
func NewInvalidCapabilityScope(loc Location, actual string) *CompilerError {
	return newError(
		ErrInvalidCapabilityScope,
		"invalid_capability_scope",
		CategoryPlan,
		SeverityError,
		fmt.Sprintf("Capability scope %q is not supported", actual),
		loc,
	).WithExpected("resource or object").WithActual(actual)
}

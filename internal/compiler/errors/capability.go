package errors

import (
	"fmt"
)

// Capability diagnostic codes (CAP300-399). These never abort generation;
// they are surfaced as warnings through the generation hooks.
const (
	// ErrCapabilityMapMissing indicates routes reference capabilities but no map exists
	ErrCapabilityMapMissing ErrorCode = "CAP300"
	// ErrCapabilityBindingMissing indicates an object-scoped capability without a binding
	ErrCapabilityBindingMissing ErrorCode = "CAP301"
	// ErrCapabilityEntriesMissing indicates referenced keys absent from the map
	ErrCapabilityEntriesMissing ErrorCode = "CAP302"
	// ErrCapabilityEntriesUnused indicates map keys no route references
	ErrCapabilityEntriesUnused ErrorCode = "CAP303"
	// ErrRouteCapabilityMissing indicates a write route without a capability
	ErrRouteCapabilityMissing ErrorCode = "CAP304"
)

// WarningKind is the closed set of warning events a build can emit
type WarningKind string

const (
	WarningCapabilityMap               WarningKind = "capability-map-warning"
	WarningCapabilityDefinitionMissing WarningKind = "capability-definition-missing"
	WarningCapabilityDefinitionUnused  WarningKind = "capability-definition-unused"
)

// Warning is a soft diagnostic. Code is the dotted diagnostic identifier,
// e.g. "capability-map.entries.missing".
type Warning struct {
	Kind    WarningKind    `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

var warningCodes = map[string]ErrorCode{
	"capability-map.missing":         ErrCapabilityMapMissing,
	"capability-map.binding.missing": ErrCapabilityBindingMissing,
	"capability-map.entries.missing": ErrCapabilityEntriesMissing,
	"capability-map.entries.unused":  ErrCapabilityEntriesUnused,
	"route.capability.missing":       ErrRouteCapabilityMissing,
}

// CompilerError converts the warning into a warning-severity CompilerError
// so it can be rendered and serialised like any other diagnostic.
func (w Warning) CompilerError() *CompilerError {
	code, ok := warningCodes[w.Code]
	if !ok {
		code = ErrCapabilityMapMissing
	}
	loc := Location{}
	if r, ok := w.Context["resource"].(string); ok {
		loc.Resource = r
	}
	if m, ok := w.Context["method"].(string); ok {
		loc.Route = fmt.Sprintf("[%s] %v", m, w.Context["path"])
	}
	return newError(code, w.Code, CategoryCapability, SeverityWarning, w.Message, loc)
}

// NewCapabilityMapMissing reports referenced capabilities with no map to resolve them
func NewCapabilityMapMissing(fallback string, keys []string) Warning {
	return Warning{
		Kind:    WarningCapabilityMap,
		Code:    "capability-map.missing",
		Message: fmt.Sprintf("Capability map not found. Falling back to %q for referenced capabilities.", fallback),
		Context: map[string]any{"capabilities": keys},
	}
}

// NewCapabilityBindingMissing reports an object-scoped capability with no inferable binding
func NewCapabilityBindingMissing(key string) Warning {
	return Warning{
		Kind:    WarningCapabilityMap,
		Code:    "capability-map.binding.missing",
		Message: fmt.Sprintf("Capability %q targets an object but no request parameter could be inferred. The helper will default to \"id\".", key),
		Context: map[string]any{"capability": key},
	}
}

// NewCapabilityEntriesMissing reports referenced keys absent from the map
func NewCapabilityEntriesMissing(keys []string) Warning {
	return Warning{
		Kind:    WarningCapabilityDefinitionMissing,
		Code:    "capability-map.entries.missing",
		Message: "Capabilities referenced by routes are missing from the capability map.",
		Context: map[string]any{"capabilities": keys},
	}
}

// NewCapabilityEntriesUnused reports map keys that no route references
func NewCapabilityEntriesUnused(keys []string) Warning {
	return Warning{
		Kind:    WarningCapabilityDefinitionUnused,
		Code:    "capability-map.entries.unused",
		Message: "Capability map defines capabilities that are not referenced by any route.",
		Context: map[string]any{"capabilities": keys},
	}
}

// NewRouteCapabilityMissing reports a write route that enforces nothing
func NewRouteCapabilityMissing(resource, method, path string) Warning {
	return Warning{
		Kind:    WarningCapabilityMap,
		Code:    "route.capability.missing",
		Message: "Write route missing capability.",
		Context: map[string]any{"resource": resource, "method": method, "path": path},
	}
}

// Package identity resolves how a resource is addressed in a route (a
// numeric id or a string slug) and emits the PHP guards that validate and
// cast the request parameter before any storage code runs.
package identity

import (
	"fmt"
	"strings"

	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	ustrings "github.com/wpkernel/wpkgen/internal/util/strings"
)

// Type is the identity shape of a resource
type Type string

const (
	Number Type = "number"
	String Type = "string"
)

// Descriptor is the identity as declared in a plan; Param may be empty
type Descriptor struct {
	Type  Type   `json:"type" yaml:"type"`
	Param string `json:"param,omitempty" yaml:"param,omitempty"`
}

// Resolved is an identity with its defaults applied
type Resolved struct {
	Type  Type   `json:"type"`
	Param string `json:"param"`
}

// IsNumeric reports whether the identity is a numeric id
func (r Resolved) IsNumeric() bool { return r.Type == Number }

var defaultParams = map[Type]string{
	Number: "id",
	String: "slug",
}

// Resolve applies defaults: no descriptor means {number, id}, and an
// omitted param becomes "id" for numbers and "slug" for strings.
func Resolve(d *Descriptor) Resolved {
	if d == nil {
		return Resolved{Type: Number, Param: defaultParams[Number]}
	}
	typ := d.Type
	if typ != String {
		typ = Number
	}
	param := d.Param
	if param == "" {
		param = defaultParams[typ]
	}
	return Resolved{Type: typ, Param: param}
}

// ErrorCodeFactory turns a suffix like "missing_identifier" into a
// resource-scoped WP_Error code
type ErrorCodeFactory func(suffix string) string

// DefaultErrorCodeFactory namespaces codes as wpk_{resource}_{suffix}
func DefaultErrorCodeFactory(resource string) ErrorCodeFactory {
	prefix := "wpk_" + ustrings.ToSnakeCase(resource)
	return func(suffix string) string {
		return fmt.Sprintf("%s_%s", prefix, suffix)
	}
}

// NormalizeVariable trims whitespace and a leading "$" from a variable
// reference. An empty result is a developer error.
func NormalizeVariable(name string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(name), "$")
	if trimmed == "" {
		return "", errors.NewEmptyVariableName(errors.Location{Field: "identity.param"})
	}
	return trimmed, nil
}

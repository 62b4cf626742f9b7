// Package storage builds the route handlers and helper methods of a
// controller for each supported persistence backend.
package storage

import (
	"strings"

	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	"github.com/wpkernel/wpkgen/internal/compiler/routes"
)

// Mode names a storage backend as it appears in plan documents
type Mode string

const (
	ModeTransient Mode = "transient"
	ModeOption    Mode = "wp-option"
	ModeTaxonomy  Mode = "wp-taxonomy"
	ModePost      Mode = "wp-post"
)

// KnownModes lists every mode Build can dispatch, in documentation order
func KnownModes() []string {
	return []string{string(ModeTransient), string(ModeOption), string(ModeTaxonomy), string(ModePost)}
}

// Strategy is a storage descriptor. The set of implementations is closed:
// Transient, Option, Taxonomy and ContentPost.
type Strategy interface {
	Mode() Mode
	isStrategy()
}

// Context carries the resource-level inputs shared by every strategy
type Context struct {
	Resource   string
	PascalName string
	// Namespace is the plugin namespace, e.g. Demo\Plugin
	Namespace string
	Identity  identity.Resolved
	ErrorCode identity.ErrorCodeFactory
	CacheKeys routes.CacheKeys
}

func (c Context) errorCode() identity.ErrorCodeFactory {
	if c.ErrorCode != nil {
		return c.ErrorCode
	}
	return identity.DefaultErrorCodeFactory(c.Resource)
}

func (c Context) location() errors.Location {
	return errors.Location{Resource: c.Resource, Field: "storage.mode"}
}

// RouteContext is handed to a handler when the route method is assembled
type RouteContext struct {
	// Index is the position of the route in the controller metadata
	Index    int
	Metadata metadata.RouteMetadata
	Host     metadata.Host
}

// Handler produces the body of a route method. Returning no statements
// asks the caller to emit its fallback.
type Handler func(RouteContext) ([]ast.Stmt, error)

// HandlerSet picks the handler for a route
type HandlerSet interface {
	Resolve(route metadata.RouteMetadata) Handler
}

// KindHandlers dispatches on the classified route kind
type KindHandlers struct {
	List   Handler
	Get    Handler
	Create Handler
	Update Handler
	Remove Handler
	Custom Handler
}

// Resolve implements HandlerSet
func (h KindHandlers) Resolve(route metadata.RouteMetadata) Handler {
	switch route.Kind {
	case metadata.RouteList:
		return h.List
	case metadata.RouteGet:
		return h.Get
	case metadata.RouteCreate:
		return h.Create
	case metadata.RouteUpdate:
		return h.Update
	case metadata.RouteRemove:
		return h.Remove
	case metadata.RouteCustom:
		return h.Custom
	}
	return nil
}

// VerbHandlers dispatches on the HTTP method. Backends without a delete
// operation leave Delete nil and DELETE routes fall through to Unsupported.
type VerbHandlers struct {
	Get         Handler
	Set         Handler
	Delete      Handler
	Unsupported Handler
}

// Resolve implements HandlerSet
func (h VerbHandlers) Resolve(route metadata.RouteMetadata) Handler {
	switch strings.ToUpper(route.Method) {
	case "GET":
		return h.Get
	case "POST", "PUT", "PATCH":
		return h.Set
	case "DELETE":
		if h.Delete != nil {
			return h.Delete
		}
	}
	return h.Unsupported
}

// Helper is a private helper method together with its printed signature
type Helper struct {
	Method    *ast.ClassMethod
	Signature string
}

func newHelper(m *ast.ClassMethod) Helper {
	return Helper{Method: m, Signature: Signature(m)}
}

// Artifacts is everything a strategy contributes to a controller
type Artifacts struct {
	Mode     Mode
	Helpers  []Helper
	Handlers HandlerSet
}

// Methods returns the helper method nodes in declaration order
func (a *Artifacts) Methods() []*ast.ClassMethod {
	out := make([]*ast.ClassMethod, 0, len(a.Helpers))
	for _, h := range a.Helpers {
		out = append(out, h.Method)
	}
	return out
}

// Signatures returns the helper signatures in declaration order
func (a *Artifacts) Signatures() []string {
	out := make([]string, 0, len(a.Helpers))
	for _, h := range a.Helpers {
		out = append(out, h.Signature)
	}
	return out
}

// Build dispatches to the builder of the strategy's backend
func Build(s Strategy, ctx Context) (*Artifacts, error) {
	switch v := s.(type) {
	case *Transient:
		return BuildTransient(v, ctx)
	case *Option:
		return BuildOption(v, ctx)
	case *Taxonomy:
		return BuildTaxonomy(v, ctx)
	case *ContentPost:
		return BuildContentPost(v, ctx)
	case nil:
		return nil, errors.NewUnknownStorageMode(ctx.location(), "", KnownModes())
	}
	return nil, errors.NewUnknownStorageMode(ctx.location(), string(s.Mode()), KnownModes())
}

// mismatch reports a descriptor handed to the builder of another backend
func mismatch(s Strategy, want Mode, ctx Context) error {
	actual := ""
	if s != nil {
		actual = string(s.Mode())
	}
	return errors.NewStorageModeMismatch(ctx.location(), string(want), actual)
}

// Signature renders the declaration line of a method, e.g.
// "private function getBookPostType(): string"
func Signature(m *ast.ClassMethod) string {
	var b strings.Builder
	b.WriteString(visibility(m.Flags))
	if m.Flags&ast.ModifierStatic != 0 {
		b.WriteString(" static")
	}
	b.WriteString(" function ")
	b.WriteString(m.Name.Name)

	params := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		var pb strings.Builder
		if p.Type != nil {
			pb.WriteString(typeString(p.Type))
			pb.WriteString(" ")
		}
		if p.Variadic {
			pb.WriteString("...")
		}
		pb.WriteString("$")
		pb.WriteString(p.Var.Name)
		params = append(params, pb.String())
	}
	if len(params) == 0 {
		b.WriteString("()")
	} else {
		b.WriteString("( ")
		b.WriteString(strings.Join(params, ", "))
		b.WriteString(" )")
	}
	if m.ReturnType != nil {
		b.WriteString(": ")
		b.WriteString(typeString(m.ReturnType))
	}
	return b.String()
}

func visibility(flags int) string {
	switch {
	case flags&ast.ModifierPrivate != 0:
		return "private"
	case flags&ast.ModifierProtected != 0:
		return "protected"
	}
	return "public"
}

func typeString(t ast.TypeNode) string {
	switch v := t.(type) {
	case *ast.Identifier:
		return v.Name
	case *ast.Name:
		return v.String()
	case *ast.NullableType:
		return "?" + typeString(v.Type)
	}
	return ""
}

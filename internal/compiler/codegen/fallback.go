package codegen

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	"github.com/wpkernel/wpkgen/internal/compiler/routes"
)

// FallbackAttribute is the node attribute carrying a FallbackDiagnostic
const FallbackAttribute = "wpk:fallback"

// FallbackContext explains why a route has no generated handler
type FallbackContext struct {
	Resource    string
	Transport   string
	Kind        metadata.RouteKind
	StorageMode string
	Reason      string
	Hint        string
}

// FallbackDiagnostic is attached to every statement of a "not implemented"
// body so tooling can list unfinished routes without reading comments
type FallbackDiagnostic struct {
	Method      string             `json:"method"`
	Path        string             `json:"path"`
	Resource    string             `json:"resource,omitempty"`
	Transport   string             `json:"transport,omitempty"`
	Kind        metadata.RouteKind `json:"kind,omitempty"`
	StorageMode string             `json:"storageMode,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	Hint        string             `json:"hint,omitempty"`
}

// NotImplemented builds the fallback body of a route:
//
//	// TODO: Implement handler for [GET] /books.
//	return new WP_Error(501, 'Not Implemented');
//
// Reason and Hint comment lines follow the TODO when the context has them.
func NotImplemented(def routes.Definition, ctx FallbackContext) []ast.Stmt {
	diag := FallbackDiagnostic{
		Method:      def.Method,
		Path:        def.Path,
		Resource:    ctx.Resource,
		Transport:   ctx.Transport,
		Kind:        ctx.Kind,
		StorageMode: ctx.StorageMode,
		Reason:      ctx.Reason,
		Hint:        ctx.Hint,
	}

	comments := []string{"// TODO: Implement handler for [" + def.Method + "] " + def.Path + "."}
	if ctx.Reason != "" {
		comments = append(comments, "// Reason: "+ctx.Reason)
	}
	if ctx.Hint != "" {
		comments = append(comments, "// Hint: "+ctx.Hint)
	}
	todo := ast.NewNop(comments...)
	todo.Attrs().Set(FallbackAttribute, diag)

	wpErr := ast.NewNew("WP_Error", ast.IntLit(501), ast.Str("Not Implemented"))
	wpErr.Attrs().Set(FallbackAttribute, diag)
	ret := ast.Ret(wpErr)
	ret.Attrs().Set(FallbackAttribute, diag)

	return []ast.Stmt{todo, ret}
}

// FallbackOf returns the diagnostic attached to n
func FallbackOf(n ast.Node) (FallbackDiagnostic, bool) {
	if n == nil {
		return FallbackDiagnostic{}, false
	}
	v, ok := n.Attrs().Get(FallbackAttribute)
	if !ok {
		return FallbackDiagnostic{}, false
	}
	d, ok := v.(FallbackDiagnostic)
	return d, ok
}

// Fallbacks lists the fallback routes of a program, one entry per route
func Fallbacks(program []ast.Stmt) []FallbackDiagnostic {
	var out []FallbackDiagnostic
	ast.InspectAll(program, func(n ast.Node) bool {
		if _, isReturn := n.(*ast.Return); !isReturn {
			return true
		}
		if d, ok := FallbackOf(n); ok {
			out = append(out, d)
		}
		return true
	})
	return out
}

package codegen

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/routes"
	"github.com/wpkernel/wpkgen/internal/compiler/storage"
)

// RouteSetOptions describes one route of a resource before its kind is known
type RouteSetOptions struct {
	Definition      routes.Definition
	MethodName      string
	DocblockSummary string
	// Handlers is nil for resources without storage
	Handlers storage.HandlerSet
	Fallback FallbackContext
}

// BuildRouteSet turns a route into a RoutePlan whose statements come from
// the storage handler matching the route's classified kind. Routes with no
// handler, or whose handler emits nothing, fall back to NotImplemented.
func BuildRouteSet(opts RouteSetOptions) RoutePlan {
	def := opts.Definition
	fallbackCtx := opts.Fallback

	return RoutePlan{
		Definition:      def,
		MethodName:      opts.MethodName,
		DocblockSummary: opts.DocblockSummary,
		BuildStatements: func(rc RouteContext) ([]ast.Stmt, error) {
			// the kind is only known once metadata has been classified
			fallbackCtx.Kind = rc.Metadata.Kind
			if opts.Handlers == nil {
				return nil, nil
			}
			handler := opts.Handlers.Resolve(rc.Metadata)
			if handler == nil {
				return nil, nil
			}
			return handler(rc)
		},
		BuildFallbackStatements: func() []ast.Stmt {
			return NotImplemented(def, fallbackCtx)
		},
	}
}

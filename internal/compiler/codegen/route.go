package codegen

import (
	"sort"

	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
)

// RouteConfig is a fully resolved controller route
type RouteConfig struct {
	MethodName string
	Metadata   metadata.RouteMetadata
	// Capability is the capability map key enforced before the body runs
	Capability      string
	CapabilityClass string
	DocblockSummary string
	UsesIdentity    bool
	IdentityParam   string
	Statements      []ast.Stmt
}

// BuildRouteMethod builds the public controller method of a route:
// identity extraction, the capability check, then the route statements.
func BuildRouteMethod(cfg RouteConfig) (*ast.ClassMethod, error) {
	var body []ast.Stmt

	if cfg.UsesIdentity {
		extract, err := identity.BuildExtraction(cfg.IdentityParam)
		if err != nil {
			if ce, ok := errors.As(err); ok {
				ce.Location.Route = routeLabel(cfg.Metadata.Method, cfg.Metadata.Path)
			}
			return nil, err
		}
		body = append(body, extract, ast.Blank())
	}

	if cfg.Capability != "" {
		class := shortName(cfg.CapabilityClass)
		if class == "" {
			class = "Capability"
		}
		body = append(body,
			ast.AssignStmt("permission", ast.NewStaticCall(class, "enforce", ast.Str(cfg.Capability), ast.Var("request"))),
			ast.ReturnIfWPError("permission"),
			ast.Blank(),
		)
	}

	body = append(body, cfg.Statements...)

	method := ast.NewClassMethod(
		cfg.MethodName,
		ast.ModifierPublic,
		[]*ast.Param{ast.NewParam("request", ast.TypeName("WP_REST_Request"))},
		nil,
		body,
	)
	ast.Docblock(method, routeDocblock(cfg)...)
	return method, nil
}

func routeDocblock(cfg RouteConfig) []string {
	summary := cfg.DocblockSummary
	if summary == "" {
		summary = "Handle " + routeLabel(cfg.Metadata.Method, cfg.Metadata.Path) + "."
	}
	lines := []string{summary, "", "@wp-kernel route-kind " + string(cfg.Metadata.Kind)}

	keys := make([]string, 0, len(cfg.Metadata.Tags))
	for k := range cfg.Metadata.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, "@wp-kernel "+k+" "+cfg.Metadata.Tags[k])
	}
	return lines
}

func routeLabel(method, path string) string {
	return "[" + method + "] " + path
}

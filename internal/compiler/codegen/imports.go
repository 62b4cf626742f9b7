package codegen

import (
	"sort"
	"strings"
	"unicode"

	"github.com/wpkernel/wpkgen/internal/compiler/ast"
)

// baseImports are present in every controller
var baseImports = []string{"WP_Error", "WP_REST_Request", "function is_wp_error"}

// ignoredNames are class references that never need a use statement
var ignoredNames = map[string]bool{
	"self":           true,
	"static":         true,
	"parent":         true,
	"BaseController": true,
}

// ImportOptions configures DeriveImports
type ImportOptions struct {
	// CapabilityClass is imported when at least one route enforces a
	// capability. Its short name is then resolved through that import.
	CapabilityClass string
	Helpers         []*ast.ClassMethod
}

// DeriveImports collects the sorted, de-duplicated use entries a
// controller needs. Function imports are prefixed with "function ".
func DeriveImports(routes []RouteConfig, opts ImportOptions) []string {
	set := make(map[string]bool, len(baseImports))
	for _, name := range baseImports {
		set[name] = true
	}

	ignored := ignoredNames
	if opts.CapabilityClass != "" {
		for _, r := range routes {
			if r.Capability == "" {
				continue
			}
			set[opts.CapabilityClass] = true
			if short := shortName(opts.CapabilityClass); short != opts.CapabilityClass {
				ignored = withIgnored(short)
			}
			break
		}
	}

	add := func(name string) {
		if name == "" || ignored[name] || !requiresImport(name) {
			return
		}
		set[name] = true
	}
	visit := func(n ast.Node) bool {
		for _, name := range referencedNames(n) {
			add(name)
		}
		return true
	}

	for _, r := range routes {
		ast.InspectAll(r.Statements, visit)
	}
	for _, h := range opts.Helpers {
		ast.Inspect(h, visit)
	}

	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// referencedNames returns the class names a single node refers to in a
// type or class position
func referencedNames(n ast.Node) []string {
	switch v := n.(type) {
	case *ast.Param:
		return typeNames(v.Type)
	case *ast.ClassMethod:
		return typeNames(v.ReturnType)
	case *ast.New:
		return nameOf(v.Class)
	case *ast.StaticCall:
		return nameOf(v.Class)
	case *ast.ClassConstFetch:
		return nameOf(v.Class)
	case *ast.Instanceof:
		return nameOf(v.Class)
	}
	return nil
}

func typeNames(t ast.TypeNode) []string {
	switch v := t.(type) {
	case *ast.Name:
		return nameOf(v)
	case *ast.NullableType:
		return typeNames(v.Type)
	}
	return nil
}

func nameOf(n *ast.Name) []string {
	if n == nil {
		return nil
	}
	return []string{n.String()}
}

// requiresImport reports whether name looks like a class reference that a
// namespaced file has to import: capitalised, or a WordPress WP_ class
func requiresImport(name string) bool {
	if strings.HasPrefix(name, "WP_") {
		return true
	}
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func shortName(fqcn string) string {
	if i := strings.LastIndex(fqcn, `\`); i >= 0 {
		return fqcn[i+1:]
	}
	return fqcn
}

func withIgnored(name string) map[string]bool {
	out := make(map[string]bool, len(ignoredNames)+1)
	for k, v := range ignoredNames {
		out[k] = v
	}
	out[name] = true
	return out
}

// useStatement turns an import entry into a use node
func useStatement(entry string) ast.Stmt {
	if fn, ok := strings.CutPrefix(entry, "function "); ok {
		return ast.NewUse(ast.UseFunction, ast.NewName(fn))
	}
	return ast.NewUse(ast.UseNormal, ast.NewName(strings.Split(entry, `\`)...))
}

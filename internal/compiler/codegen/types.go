// Package codegen assembles resource plans into PHP REST controller
// programs. Each program is a php-parser compatible syntax tree plus the
// metadata describing it; rendering the tree to text happens elsewhere.
package codegen

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	"github.com/wpkernel/wpkgen/internal/compiler/routes"
	"github.com/wpkernel/wpkgen/internal/compiler/storage"
)

// RouteContext is handed to route statement builders
type RouteContext = storage.RouteContext

// StatementsBuilder produces a route body. No statements means the route
// has no generated implementation and the fallback is used.
type StatementsBuilder func(RouteContext) ([]ast.Stmt, error)

// RoutePlan describes one controller method
type RoutePlan struct {
	Definition      routes.Definition
	MethodName      string
	DocblockSummary string
	BuildStatements StatementsBuilder
	// BuildFallbackStatements is optional; routes without one get an empty body
	BuildFallbackStatements func() []ast.Stmt
}

// ResourcePlan is everything needed to generate one controller
type ResourcePlan struct {
	Name             string
	ClassName        string
	SchemaKey        string
	SchemaProvenance string
	// RestArgs is returned from get_rest_args(); nil means array()
	RestArgs         ast.Expr
	Identity         identity.Resolved
	CacheKeys        routes.CacheKeys
	Mutation         *routes.MutationMetadata
	HelperMethods    []*ast.ClassMethod
	HelperSignatures []string
	Routes           []RoutePlan
}

// IndexEntry maps a fully-qualified class name to a path relative to the
// generated directory, e.g. "Rest/BookController.php"
type IndexEntry struct {
	ClassName string `json:"className"`
	Path      string `json:"path"`
}

// IndexAugmenter may add, drop or reorder index entries
type IndexAugmenter func([]IndexEntry) []IndexEntry

// ModuleOptions configures GenerateModule
type ModuleOptions struct {
	Origin             string
	PluginNamespace    string
	SanitizedNamespace string
	// CapabilityClass is the fully-qualified class routes call enforce() on
	CapabilityClass        string
	Resources              []ResourcePlan
	IncludeBaseController  bool
	BaseControllerFileName string
	AdditionalIndexEntries []IndexEntry
	IndexAugmenters        []IndexAugmenter
	Hooks                  Hooks
}

// Hooks receive soft diagnostics while a module is generated
type Hooks struct {
	OnWarning func(errors.Warning)
}

// Warn forwards w to OnWarning when set
func (h Hooks) Warn(w errors.Warning) {
	if h.OnWarning != nil {
		h.OnWarning(w)
	}
}

// ModuleFile is one generated PHP file
type ModuleFile struct {
	FileName  string                `json:"fileName"`
	Namespace string                `json:"namespace"`
	Docblock  []string              `json:"docblock"`
	Metadata  metadata.FileMetadata `json:"metadata"`
	Program   []ast.Stmt            `json:"program"`
}

// ModuleResult is the output of GenerateModule. Files are in input order:
// controllers, then the base controller, then the index.
type ModuleResult struct {
	// BuildID is random per call and is not covered by the determinism
	// of Files; compare Files, not whole results, across runs.
	BuildID string       `json:"buildId"`
	Files   []ModuleFile `json:"files"`
}

// File returns the file with the given name
func (r *ModuleResult) File(name string) (ModuleFile, bool) {
	for _, f := range r.Files {
		if f.FileName == name {
			return f, true
		}
	}
	return ModuleFile{}, false
}

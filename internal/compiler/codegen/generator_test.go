package codegen

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	"github.com/wpkernel/wpkgen/internal/compiler/routes"
	"github.com/wpkernel/wpkgen/internal/compiler/storage"
)

var bookRoutes = []routes.Definition{
	{Method: "GET", Path: "/books"},
	{Method: "GET", Path: "/books/:slug"},
	{Method: "POST", Path: "/books", Capability: "books.manage"},
	{Method: "PUT", Path: "/books/:slug", Capability: "books.manage"},
	{Method: "DELETE", Path: "/books/:slug", Capability: "books.manage"},
}

var bookMethods = []string{"getBooks", "getBooksBySlug", "postBooks", "putBooksBySlug", "deleteBooksBySlug"}

func bookResource(t *testing.T) ResourcePlan {
	t.Helper()
	id := identity.Resolve(&identity.Descriptor{Type: identity.String, Param: "slug"})
	ctx := storage.Context{
		Resource:   "book",
		PascalName: "Book",
		Namespace:  `Demo\Plugin`,
		Identity:   id,
		CacheKeys: routes.CacheKeys{
			List:   []any{"book", "list"},
			Get:    []any{"book", "get", ":slug"},
			Update: []any{"book", "update", ":slug"},
			Remove: []any{"book", "remove", ":slug"},
		},
	}
	artifacts, err := storage.Build(&storage.ContentPost{PostType: "book", Statuses: []string{"draft", "publish"}}, ctx)
	require.NoError(t, err)

	plans := make([]RoutePlan, len(bookRoutes))
	for i, def := range bookRoutes {
		plans[i] = BuildRouteSet(RouteSetOptions{
			Definition: def,
			MethodName: bookMethods[i],
			Handlers:   artifacts.Handlers,
			Fallback:   FallbackContext{Resource: "book", StorageMode: string(storage.ModePost)},
		})
	}

	return ResourcePlan{
		Name:             "book",
		ClassName:        "BookController",
		SchemaKey:        "book",
		SchemaProvenance: "manual",
		Identity:         id,
		CacheKeys:        ctx.CacheKeys,
		Mutation:         &routes.MutationMetadata{ChannelTag: storage.PostMutationContract.ChannelTag},
		HelperMethods:    artifacts.Methods(),
		HelperSignatures: artifacts.Signatures(),
		Routes:           plans,
	}
}

func bookModule(t *testing.T) ModuleOptions {
	return ModuleOptions{
		Origin:                "wpk.config.ts",
		PluginNamespace:       `Demo\Plugin`,
		SanitizedNamespace:    "demo-plugin",
		CapabilityClass:       `Demo\Plugin\Capability\Capability`,
		Resources:             []ResourcePlan{bookResource(t)},
		IncludeBaseController: true,
	}
}

func countGuards(program []ast.Stmt) (begin, end int) {
	ast.InspectAll(program, func(n ast.Node) bool {
		nop, ok := n.(*ast.Nop)
		if !ok {
			return true
		}
		for _, c := range ast.LineComments(nop) {
			switch c {
			case BeginGuard:
				begin++
			case EndGuard:
				end++
			}
		}
		return true
	})
	return begin, end
}

func routeMethod(t *testing.T, file ModuleFile, name string) *ast.ClassMethod {
	t.Helper()
	class := classOf(file.Program)
	require.NotNil(t, class)
	for _, s := range class.Stmts {
		if m, ok := s.(*ast.ClassMethod); ok && m.Name.Name == name {
			return m
		}
	}
	t.Fatalf("method %s not found", name)
	return nil
}

func TestGenerateModuleBookScenario(t *testing.T) {
	gen := NewGenerator(Options{})
	result, err := gen.GenerateModule(context.Background(), bookModule(t))
	require.NoError(t, err)
	assert.NotEmpty(t, result.BuildID)

	file, ok := result.File("Rest/BookController.php")
	require.True(t, ok)
	assert.Equal(t, `Demo\Plugin\Generated\Rest`, file.Namespace)

	meta, ok := file.Metadata.(*metadata.ControllerMetadata)
	require.True(t, ok)
	require.Len(t, meta.Routes, 5)
	kinds := make([]metadata.RouteKind, len(meta.Routes))
	for i, r := range meta.Routes {
		kinds[i] = r.Kind
	}
	assert.Equal(t, []metadata.RouteKind{
		metadata.RouteList, metadata.RouteGet, metadata.RouteCreate, metadata.RouteUpdate, metadata.RouteRemove,
	}, kinds)
	assert.Equal(t, "update", meta.Routes[3].Tags[storage.PostMutationContract.ChannelTag])

	begin, end := countGuards(file.Program)
	assert.Equal(t, 1, begin)
	assert.Equal(t, 1, end)

	// extraction, blank, then the string guard, resolve and not found
	get := routeMethod(t, file, "getBooksBySlug")
	body := get.Stmts
	require.GreaterOrEqual(t, len(body), 4)
	guard, ok := body[2].(*ast.If)
	require.True(t, ok, "expected the string identity guard after the extraction")
	assert.Equal(t, ast.OpBooleanOr, guard.Cond.(*ast.BinaryOp).Op())

	var order []string
	ast.InspectAll(body, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.MethodCall:
			if v.Name.Name == "resolveBookPost" {
				order = append(order, "resolve")
			}
		case *ast.New:
			if v.Class.String() == "WP_Error" && len(v.Args) > 0 {
				if code, ok := v.Args[0].Value.(*ast.String); ok && code.Value == "wpk_book_not_found" {
					order = append(order, "not-found")
				}
			}
		}
		return true
	})
	assert.Equal(t, []string{"resolve", "not-found"}, order)

	assert.Equal(t, "private function getBookPostType(): string", meta.Helpers.Methods[0])
}

func TestGenerateModuleFileOrder(t *testing.T) {
	result, err := NewGenerator(Options{}).GenerateModule(context.Background(), bookModule(t))
	require.NoError(t, err)

	names := make([]string, len(result.Files))
	for i, f := range result.Files {
		names[i] = f.FileName
	}
	assert.Equal(t, []string{"Rest/BookController.php", "Rest/BaseController.php", "index.php"}, names)

	index, _ := result.File(IndexFileName)
	ret := BodyOf(index.Program)[1].(*ast.Return)
	items := ret.Expr.(*ast.Array).Items
	require.Len(t, items, 2)
	assert.Equal(t, `Demo\Plugin\Generated\Rest\BookController`, items[0].Key.(*ast.String).Value)
	assert.Equal(t, "/Rest/BookController.php", items[0].Value.(*ast.BinaryOp).Right.(*ast.String).Value)
}

func TestGenerateModuleIsDeterministic(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{"sequential", 1},
		{"parallel", 4},
	}

	baseline, err := NewGenerator(Options{}).GenerateModule(context.Background(), bookModule(t))
	require.NoError(t, err)
	want, err := json.Marshal(baseline.Files[0])
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := bookModule(t)
			second := bookResource(t)
			second.Name = "author"
			second.ClassName = "AuthorController"
			opts.Resources = append(opts.Resources, second)

			first, err := NewGenerator(Options{Workers: tt.workers}).GenerateModule(context.Background(), opts)
			require.NoError(t, err)
			again, err := NewGenerator(Options{Workers: tt.workers}).GenerateModule(context.Background(), opts)
			require.NoError(t, err)

			a, err := json.Marshal(first.Files)
			require.NoError(t, err)
			b, err := json.Marshal(again.Files)
			require.NoError(t, err)
			assert.JSONEq(t, string(a), string(b))
			assert.NotEqual(t, first.BuildID, again.BuildID)
			assert.Equal(t, "Rest/BookController.php", first.Files[0].FileName)
			assert.Equal(t, "Rest/AuthorController.php", first.Files[1].FileName)

			// other resources never leak into a controller
			single, err := json.Marshal(first.Files[0])
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(single))
		})
	}
}

func TestGenerateModuleRejectsDuplicateClassNames(t *testing.T) {
	opts := bookModule(t)
	opts.Resources = append(opts.Resources, opts.Resources[0])

	_, err := NewGenerator(Options{}).GenerateModule(context.Background(), opts)
	require.Error(t, err)
	ce, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrDuplicateClassName, ce.Code)
}

func TestGenerateModuleFallsBackWithoutHandlers(t *testing.T) {
	res := ResourcePlan{
		Name:      "report",
		ClassName: "ReportController",
		Identity:  identity.Resolve(nil),
		Routes: []RoutePlan{BuildRouteSet(RouteSetOptions{
			Definition: routes.Definition{Method: "GET", Path: "/reports"},
			MethodName: "getReports",
			Fallback:   FallbackContext{Resource: "report", Reason: "Storage not configured.", Hint: "Add a storage block."},
		})},
	}
	result, err := NewGenerator(Options{}).GenerateModule(context.Background(), ModuleOptions{
		PluginNamespace: `Demo\Plugin`,
		Resources:       []ResourcePlan{res},
	})
	require.NoError(t, err)

	file := result.Files[0]
	diags := Fallbacks(file.Program)
	require.Len(t, diags, 1)
	assert.Equal(t, "/reports", diags[0].Path)
	assert.Equal(t, metadata.RouteList, diags[0].Kind)
	assert.Equal(t, "Storage not configured.", diags[0].Reason)

	// no capability, so no capability import
	for _, s := range file.Program[1].(*ast.Namespace).Stmts {
		if use, ok := s.(*ast.Use); ok {
			assert.NotContains(t, use.Uses[0].Name.String(), "Capability")
		}
	}
}

func TestGenerateModuleTransientDelete(t *testing.T) {
	id := identity.Resolve(nil)
	ctx := storage.Context{
		Resource:   "job",
		PascalName: "Job",
		Namespace:  `Demo\Plugin`,
		Identity:   id,
		CacheKeys:  routes.CacheKeys{Get: []any{"job", "get"}},
	}
	artifacts, err := storage.Build(&storage.Transient{}, ctx)
	require.NoError(t, err)

	defs := []routes.Definition{
		{Method: "GET", Path: "/jobs/:id"},
		{Method: "PUT", Path: "/jobs/:id"},
		{Method: "DELETE", Path: "/jobs/:id"},
	}
	names := []string{"getJobsById", "putJobsById", "deleteJobsById"}
	plans := make([]RoutePlan, len(defs))
	for i, def := range defs {
		plans[i] = BuildRouteSet(RouteSetOptions{
			Definition: def,
			MethodName: names[i],
			Handlers:   artifacts.Handlers,
			Fallback:   FallbackContext{Resource: "job", StorageMode: string(storage.ModeTransient)},
		})
	}

	result, err := NewGenerator(Options{}).GenerateModule(context.Background(), ModuleOptions{
		PluginNamespace: `Demo\Plugin`,
		Resources: []ResourcePlan{{
			Name:             "job",
			ClassName:        "JobController",
			Identity:         id,
			CacheKeys:        ctx.CacheKeys,
			HelperMethods:    artifacts.Methods(),
			HelperSignatures: artifacts.Signatures(),
			Routes:           plans,
		}},
	})
	require.NoError(t, err)

	file := result.Files[0]
	assert.Empty(t, Fallbacks(file.Program))

	funcCalls := func(m *ast.ClassMethod) []string {
		var out []string
		ast.Inspect(m, func(n ast.Node) bool {
			if call, ok := n.(*ast.FuncCall); ok {
				out = append(out, call.Name.String())
			}
			return true
		})
		return out
	}

	remove := funcCalls(routeMethod(t, file, "deleteJobsById"))
	assert.Contains(t, remove, "delete_transient")
	assert.NotContains(t, remove, "set_transient")
	assert.Contains(t, funcCalls(routeMethod(t, file, "putJobsById")), "set_transient")

	route, ok := file.Metadata.(*metadata.ControllerMetadata)
	require.True(t, ok)
	require.Len(t, route.Routes, 3)
	assert.Equal(t, metadata.RouteRemove, route.Routes[2].Kind)
	require.NotNil(t, route.Cache)
	for _, e := range route.Cache.Events {
		assert.NotNil(t, e.Segments)
	}
}

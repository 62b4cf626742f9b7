package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	"github.com/wpkernel/wpkgen/internal/compiler/routes"
)

func TestNotImplemented(t *testing.T) {
	tests := []struct {
		name     string
		ctx      FallbackContext
		comments []string
	}{
		{
			name:     "bare",
			ctx:      FallbackContext{},
			comments: []string{"// TODO: Implement handler for [GET] /books."},
		},
		{
			name: "reason and hint",
			ctx:  FallbackContext{Resource: "book", Reason: "No storage.", Hint: "Configure storage."},
			comments: []string{
				"// TODO: Implement handler for [GET] /books.",
				"// Reason: No storage.",
				"// Hint: Configure storage.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts := NotImplemented(routes.Definition{Method: "GET", Path: "/books"}, tt.ctx)
			require.Len(t, stmts, 2)
			assert.Equal(t, tt.comments, ast.LineComments(stmts[0]))

			ret, ok := stmts[1].(*ast.Return)
			require.True(t, ok)
			wpErr := ret.Expr.(*ast.New)
			assert.Equal(t, "WP_Error", wpErr.Class.String())
			assert.Equal(t, int64(501), wpErr.Args[0].Value.(*ast.Int).Value)
			assert.Equal(t, "Not Implemented", wpErr.Args[1].Value.(*ast.String).Value)

			first, ok := FallbackOf(stmts[0])
			require.True(t, ok)
			second, ok := FallbackOf(stmts[1])
			require.True(t, ok)
			assert.Equal(t, first, second)
			assert.Equal(t, "/books", first.Path)
			assert.Equal(t, tt.ctx.Reason, first.Reason)
		})
	}
}

func TestBuildRouteMethod(t *testing.T) {
	tests := []struct {
		name         string
		cfg          RouteConfig
		firstCall    string
		wantDocblock string
	}{
		{
			name: "identity and capability",
			cfg: RouteConfig{
				MethodName:      "putBooksBySlug",
				Metadata:        metadata.RouteMetadata{Method: "PUT", Path: "/books/:slug", Kind: metadata.RouteUpdate, Tags: map[string]string{"z.tag": "b", "a.tag": "a"}},
				Capability:      "books.manage",
				CapabilityClass: `Demo\Plugin\Capability\Capability`,
				UsesIdentity:    true,
				IdentityParam:   "slug",
			},
			firstCall:    "->get_param",
			wantDocblock: "/**\n * Handle [PUT] /books/:slug.\n *\n * @wp-kernel route-kind update\n * @wp-kernel a.tag a\n * @wp-kernel z.tag b\n */",
		},
		{
			name: "summary only",
			cfg: RouteConfig{
				MethodName:      "getBooks",
				Metadata:        metadata.RouteMetadata{Method: "GET", Path: "/books", Kind: metadata.RouteList},
				DocblockSummary: "List books.",
				Statements:      []ast.Stmt{ast.Ret(ast.Arr())},
			},
			wantDocblock: "/**\n * List books.\n *\n * @wp-kernel route-kind list\n */",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := BuildRouteMethod(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.MethodName, m.Name.Name)
			assert.Equal(t, ast.ModifierPublic, m.Flags)
			require.Len(t, m.Params, 1)
			assert.Equal(t, "request", m.Params[0].Var.Name)

			comments := m.Attrs().Comments
			require.Len(t, comments, 1)
			assert.Equal(t, tt.wantDocblock, comments[0].Text)

			if tt.firstCall != "" {
				expr := m.Stmts[0].(*ast.Expression).Expr.(*ast.Assign)
				assert.Equal(t, "get_param", expr.Expr.(*ast.MethodCall).Name.Name)
			}
		})
	}
}

func TestBuildRouteMethodEnforcesCapability(t *testing.T) {
	m, err := BuildRouteMethod(RouteConfig{
		MethodName:      "postBooks",
		Metadata:        metadata.RouteMetadata{Method: "POST", Path: "/books", Kind: metadata.RouteCreate},
		Capability:      "books.manage",
		CapabilityClass: `Demo\Plugin\Capability\Capability`,
	})
	require.NoError(t, err)
	require.Len(t, m.Stmts, 3)

	assign := m.Stmts[0].(*ast.Expression).Expr.(*ast.Assign)
	call := assign.Expr.(*ast.StaticCall)
	assert.Equal(t, "Capability", call.Class.String())
	assert.Equal(t, "enforce", call.Name.Name)
	assert.Equal(t, "books.manage", call.Args[0].Value.(*ast.String).Value)
	_, isIf := m.Stmts[1].(*ast.If)
	assert.True(t, isIf)
}

func TestBuildRouteMethodRejectsEmptyIdentity(t *testing.T) {
	_, err := BuildRouteMethod(RouteConfig{
		MethodName:   "getBook",
		Metadata:     metadata.RouteMetadata{Method: "GET", Path: "/books/:id", Kind: metadata.RouteGet},
		UsesIdentity: true,
	})
	require.Error(t, err)
	ce, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrEmptyVariableName, ce.Code)
	assert.Equal(t, "[GET] /books/:id", ce.Location.Route)
}

func TestDeriveImports(t *testing.T) {
	helper := ast.NewClassMethod("resolveBookPost", ast.ModifierPrivate,
		[]*ast.Param{ast.NewParam("post", ast.TypeName("WP_Post"))},
		ast.TypeName("?WP_Query"),
		[]ast.Stmt{
			ast.Ret(ast.NewStaticCall("self", "load")),
			ast.Ret(ast.NewClassConstFetch("BaseController", "READ")),
		},
	)

	tests := []struct {
		name   string
		routes []RouteConfig
		opts   ImportOptions
		want   []string
	}{
		{
			name:   "base set",
			routes: []RouteConfig{{}},
			want:   []string{"WP_Error", "WP_REST_Request", "function is_wp_error"},
		},
		{
			name:   "capability only when enforced",
			routes: []RouteConfig{{Capability: "books.manage"}},
			opts:   ImportOptions{CapabilityClass: `Demo\Plugin\Capability\Capability`},
			want:   []string{`Demo\Plugin\Capability\Capability`, "WP_Error", "WP_REST_Request", "function is_wp_error"},
		},
		{
			name:   "helper types, ignored names",
			routes: []RouteConfig{{Statements: []ast.Stmt{ast.ExprStmt(ast.NewInstanceof(ast.Var("x"), "WP_Term"))}}},
			opts:   ImportOptions{Helpers: []*ast.ClassMethod{helper}},
			want:   []string{"WP_Error", "WP_Post", "WP_Query", "WP_REST_Request", "WP_Term", "function is_wp_error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveImports(tt.routes, tt.opts))
		})
	}
}

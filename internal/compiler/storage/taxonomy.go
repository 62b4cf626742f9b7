package storage

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
)

// Taxonomy exposes the terms of a WordPress taxonomy
type Taxonomy struct {
	Taxonomy     string `json:"taxonomy" yaml:"taxonomy"`
	Hierarchical bool   `json:"hierarchical,omitempty" yaml:"hierarchical,omitempty"`
}

func (*Taxonomy) Mode() Mode { return ModeTaxonomy }
func (*Taxonomy) isStrategy() {}

// list query params that are never forwarded to WP_Term_Query
var reservedTermQueryArgs = []string{"page", "per_page", "taxonomy", "hide_empty"}

// BuildTaxonomy builds the list and get handlers of a taxonomy resource.
// Mutating routes are left to the fallback.
func BuildTaxonomy(s Strategy, ctx Context) (*Artifacts, error) {
	tax, ok := s.(*Taxonomy)
	if !ok || tax == nil {
		return nil, mismatch(s, ModeTaxonomy, ctx)
	}
	b := taxonomyBuilder{ctx: ctx, storage: tax}
	return &Artifacts{
		Mode: ModeTaxonomy,
		Helpers: []Helper{
			newHelper(b.getTaxonomyHelper()),
			newHelper(b.prepareTermHelper()),
			newHelper(b.resolveTermHelper()),
			newHelper(b.extractTermArgsHelper()),
			newHelper(b.validateIdentityHelper()),
		},
		Handlers: KindHandlers{
			List: b.list,
			Get:  b.get,
		},
	}, nil
}

type taxonomyBuilder struct {
	ctx     Context
	storage *Taxonomy
}

func (b taxonomyBuilder) name(prefix, suffix string) string {
	return prefix + b.ctx.PascalName + suffix
}

func (b taxonomyBuilder) list(rc RouteContext) ([]ast.Stmt, error) {
	metadata.RecordCacheEvent(rc.Host, metadata.CacheEventInput{
		Scope:       metadata.RouteList,
		Operation:   metadata.CacheRead,
		Segments:    rc.Metadata.CacheSegments,
		Description: "List terms query",
	})

	var out []ast.Stmt
	out = appendSpaced(out, assignThisCall("taxonomy", b.name("get", "Taxonomy")))
	out = appendSpaced(out, perPageStatements()...)
	out = appendSpaced(out,
		ast.AssignStmt("page", intCast(ast.GetParam("page"))),
		ast.NewIf(ast.Bin(ast.OpSmallerOrEqual, ast.Var("page"), ast.IntLit(0)),
			ast.AssignStmt("page", ast.IntLit(1)),
		),
	)
	out = appendSpaced(out, ast.AssignStmt("query_args", ast.Arr(
		ast.KV("taxonomy", ast.Var("taxonomy")),
		ast.KV("hide_empty", ast.False()),
	)))
	out = appendSpaced(out,
		ast.AssignStmt("extra_args", ast.NewMethodCall(ast.Var("request"), "get_params")),
		ast.NewForeach(ast.Var("extra_args"), ast.Var("key"), ast.Var("value"),
			ast.NewIf(ast.Call("in_array", ast.Var("key"), ast.StrList(reservedTermQueryArgs...), ast.True()),
				ast.NewContinue(),
			),
			ast.ExprStmt(ast.NewAssign(ast.NewArrayDimFetch(ast.Var("query_args"), ast.Var("key")), ast.Var("value"))),
		),
	)
	out = appendSpaced(out,
		ast.AssignDimStmt("query_args", "number", ast.Var("per_page")),
		ast.AssignDimStmt("query_args", "offset", ast.Bin(ast.OpMul,
			ast.Bin(ast.OpMinus, ast.Var("page"), ast.IntLit(1)),
			ast.Var("per_page"),
		)),
	)
	out = appendSpaced(out, ast.AssignStmt("term_query", ast.NewNew("WP_Term_Query")))
	out = appendSpaced(out,
		ast.AssignStmt("results", ast.NewMethodCall(ast.Var("term_query"), "query", ast.Var("query_args"))),
		ast.ReturnIfWPError("results"),
	)
	out = appendSpaced(out, ast.AssignStmt("items", ast.Arr()))
	out = appendSpaced(out, ast.NewForeach(ast.Var("results"), nil, ast.Var("term"),
		ast.NewIf(ast.NewInstanceof(ast.Var("term"), "WP_Term"),
			ast.Push("items", ast.ThisCall(b.name("prepare", "TermResponse"), ast.Var("term"))),
		),
	))
	out = appendSpaced(out, ast.AssignStmt("count_query_args", ast.Var("query_args")))
	out = appendSpaced(out,
		ast.AssignDimStmt("count_query_args", "count", ast.True()),
		ast.AssignDimStmt("count_query_args", "number", ast.IntLit(0)),
		ast.AssignDimStmt("count_query_args", "offset", ast.IntLit(0)),
	)
	out = appendSpaced(out, ast.AssignStmt("count_query", ast.NewNew("WP_Term_Query")))
	out = appendSpaced(out, ast.AssignStmt("total",
		intCast(ast.NewMethodCall(ast.Var("count_query"), "query", ast.Var("count_query_args"))),
	))
	out = appendSpaced(out, ast.AssignStmt("pages", intCast(ast.Call("ceil",
		ast.Bin(ast.OpDiv, ast.Var("total"), ast.Call("max", ast.IntLit(1), ast.Var("per_page"))),
	))))
	out = append(out, ast.Ret(ast.Arr(
		ast.KV("items", ast.Var("items")),
		ast.KV("total", ast.Var("total")),
		ast.KV("pages", ast.Var("pages")),
	)))
	return out, nil
}

func (b taxonomyBuilder) get(rc RouteContext) ([]ast.Stmt, error) {
	param, err := identity.NormalizeVariable(b.ctx.Identity.Param)
	if err != nil {
		return nil, err
	}
	metadata.RecordCacheEvent(rc.Host, metadata.CacheEventInput{
		Scope:       metadata.RouteGet,
		Operation:   metadata.CacheRead,
		Segments:    rc.Metadata.CacheSegments,
		Description: "Get term request",
	})

	var out []ast.Stmt
	out = appendSpaced(out,
		assignThisCall("identity", b.name("validate", "Identity"), ast.Var(param)),
		ast.ReturnIfWPError("identity"),
	)
	out = appendSpaced(out,
		assignThisCall("term", b.name("resolve", "Term"), ast.Var("identity")),
		ast.NewIf(notInstanceOf("term", "WP_Term"),
			ast.ReturnWPError(b.ctx.errorCode()("not_found"), b.ctx.PascalName+" not found.", 404),
		),
	)
	out = append(out, ast.Ret(ast.ThisCall(b.name("prepare", "TermResponse"), ast.Var("term"))))
	return out, nil
}

func (b taxonomyBuilder) getTaxonomyHelper() *ast.ClassMethod {
	return privateMethod(b.name("get", "Taxonomy"), nil, "string", ast.Ret(ast.Str(b.storage.Taxonomy)))
}

// prepareTermHelper shapes a WP_Term into the REST payload. The
// hierarchical flag is fixed when the controller is generated.
func (b taxonomyBuilder) prepareTermHelper() *ast.ClassMethod {
	return privateMethod(b.name("prepare", "TermResponse"),
		[]*ast.Param{ast.NewParam("term", ast.TypeName("WP_Term"))},
		"array",
		ast.Ret(ast.Arr(
			ast.KV("id", intCast(prop("term", "term_id"))),
			ast.KV("slug", stringCast(prop("term", "slug"))),
			ast.KV("name", stringCast(prop("term", "name"))),
			ast.KV("taxonomy", stringCast(prop("term", "taxonomy"))),
			ast.KV("hierarchical", ast.Bool(b.storage.Hierarchical)),
			ast.KV("description", stringCast(prop("term", "description"))),
			ast.KV("parent", intCast(prop("term", "parent"))),
			ast.KV("count", intCast(prop("term", "count"))),
		)),
	)
}

// resolveTermHelper looks a term up by id, then slug, then name
func (b taxonomyBuilder) resolveTermHelper() *ast.ClassMethod {
	returnIfTerm := func() ast.Stmt {
		return ast.NewIf(ast.NewInstanceof(ast.Var("term"), "WP_Term"), ast.Ret(ast.Var("term")))
	}
	byField := func(field string) ast.Stmt {
		return assignCall("term", "get_term_by", ast.Str(field), ast.Var("candidate"), ast.Var("taxonomy"))
	}
	return privateMethod(b.name("resolve", "Term"),
		[]*ast.Param{ast.NewParam("identity", nil)},
		"?WP_Term",
		assignThisCall("taxonomy", b.name("get", "Taxonomy")),
		ast.NewIf(ast.Call("is_int", ast.Var("identity")),
			assignCall("term", "get_term", ast.Var("identity"), ast.Var("taxonomy")),
			returnIfTerm(),
		),
		ast.NewIf(ast.Call("is_string", ast.Var("identity")),
			ast.AssignStmt("candidate", ast.Call("trim", ast.Call("strval", ast.Var("identity")))),
			ast.NewIf(ast.Bin(ast.OpNotIdentical, ast.Str(""), ast.Var("candidate")),
				byField("slug"),
				returnIfTerm(),
				byField("name"),
				returnIfTerm(),
			),
		),
		ast.Ret(ast.Null()),
	)
}

func (b taxonomyBuilder) extractTermArgsHelper() *ast.ClassMethod {
	return privateMethod(b.name("extract", "TermArgs"),
		[]*ast.Param{requestParam()},
		"array",
		ast.AssignStmt("args", ast.Arr()),
		ast.AssignStmt("description", ast.GetParam("description")),
		ast.NewIf(ast.Call("is_string", ast.Var("description")),
			ast.AssignDimStmt("args", "description", ast.Var("description")),
		),
		ast.AssignStmt("slug", ast.GetParam("slug")),
		ast.NewIf(nonEmptyTrimmed("slug"),
			ast.AssignDimStmt("args", "slug", ast.Call("sanitize_title", ast.Var("slug"))),
		),
		ast.AssignStmt("parent", ast.GetParam("parent")),
		ast.NewIf(notNull("parent"),
			ast.AssignDimStmt("args", "parent", ast.Call("max", ast.IntLit(0), intCast(ast.Var("parent")))),
		),
		ast.Ret(ast.Var("args")),
	)
}

// validateIdentityHelper returns the cleaned identity or a WP_Error. Unlike
// the route guards it accepts numeric strings for numeric identities.
func (b taxonomyBuilder) validateIdentityHelper() *ast.ClassMethod {
	code := b.ctx.errorCode()
	missing := func() ast.Stmt {
		return ast.ReturnWPError(code("missing_identifier"), "Missing identifier for "+b.ctx.PascalName+".", 400)
	}
	invalid := func() ast.Stmt {
		return ast.ReturnWPError(code("invalid_identifier"), "Invalid identifier for "+b.ctx.PascalName+".", 400)
	}
	blank := ast.Bin(ast.OpIdentical, ast.Str(""), ast.Call("trim", ast.Var("value")))

	stmts := []ast.Stmt{ast.NewIf(isNull("value"), missing())}
	if b.ctx.Identity.IsNumeric() {
		stmts = append(stmts,
			ast.NewIf(ast.Bin(ast.OpBooleanAnd, ast.Call("is_string", ast.Var("value")), blank), missing()),
			ast.NewIf(ast.Not(ast.Call("is_numeric", ast.Var("value"))), invalid()),
			ast.AssignStmt("value", intCast(ast.Var("value"))),
			ast.NewIf(ast.Bin(ast.OpSmallerOrEqual, ast.Var("value"), ast.IntLit(0)), invalid()),
			ast.Ret(ast.Var("value")),
		)
	} else {
		stmts = append(stmts,
			ast.NewIf(ast.Bin(ast.OpBooleanOr, ast.Not(ast.Call("is_string", ast.Var("value"))), blank), missing()),
			ast.Ret(ast.Call("trim", stringCast(ast.Var("value")))),
		)
	}
	return privateMethod(b.name("validate", "Identity"), []*ast.Param{ast.NewParam("value", nil)}, "", stmts...)
}

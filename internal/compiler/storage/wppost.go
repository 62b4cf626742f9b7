package storage

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	ustrings "github.com/wpkernel/wpkgen/internal/util/strings"
)

// MetaField is a registered post meta key
type MetaField struct {
	Key  string   `json:"key" yaml:"key"`
	Type MetaType `json:"type,omitempty" yaml:"type,omitempty"`
	// Single defaults to true
	Single *bool `json:"single,omitempty" yaml:"single,omitempty"`
}

// IsSingle reports whether the field holds one value
func (m MetaField) IsSingle() bool {
	return m.Single == nil || *m.Single
}

// TaxonomyField binds a request field to a taxonomy's term ids
type TaxonomyField struct {
	Key          string `json:"key" yaml:"key"`
	Taxonomy     string `json:"taxonomy" yaml:"taxonomy"`
	Hierarchical bool   `json:"hierarchical,omitempty" yaml:"hierarchical,omitempty"`
}

// ContentPost stores a resource as a custom post type. Meta and Taxonomies
// are kept in a stable order so generated code is deterministic.
type ContentPost struct {
	PostType   string          `json:"postType,omitempty" yaml:"postType,omitempty"`
	Statuses   []string        `json:"statuses,omitempty" yaml:"statuses,omitempty"`
	Supports   []string        `json:"supports,omitempty" yaml:"supports,omitempty"`
	Meta       []MetaField     `json:"meta,omitempty" yaml:"meta,omitempty"`
	Taxonomies []TaxonomyField `json:"taxonomies,omitempty" yaml:"taxonomies,omitempty"`
}

func (*ContentPost) Mode() Mode { return ModePost }
func (*ContentPost) isStrategy() {}

func (c *ContentPost) supports(feature string) bool {
	for _, s := range c.Supports {
		if s == feature {
			return true
		}
	}
	return false
}

// BuildContentPost builds every route handler of a wp-post resource plus
// the helpers they share
func BuildContentPost(s Strategy, ctx Context) (*Artifacts, error) {
	post, ok := s.(*ContentPost)
	if !ok || post == nil {
		return nil, mismatch(s, ModePost, ctx)
	}
	b := postBuilder{ctx: ctx, storage: post, contract: PostMutationContract}
	return &Artifacts{
		Mode: ModePost,
		Helpers: []Helper{
			newHelper(b.postTypeHelper()),
			newHelper(b.statusesHelper()),
			newHelper(b.defaultStatusHelper()),
			newHelper(b.normaliseStatusHelper()),
			newHelper(b.resolvePostHelper()),
			newHelper(b.prepareResponseHelper()),
			newHelper(b.syncMetaHelper()),
			newHelper(b.syncTaxonomiesHelper()),
		},
		Handlers: KindHandlers{
			List:   b.list,
			Get:    b.get,
			Create: b.create,
			Update: b.update,
			Remove: b.remove,
		},
	}, nil
}

type postBuilder struct {
	ctx      Context
	storage  *ContentPost
	contract MutationContract
}

func (b postBuilder) name(prefix, suffix string) string {
	return prefix + b.ctx.PascalName + suffix
}

func (b postBuilder) postType() string {
	if b.storage.PostType != "" {
		return b.storage.PostType
	}
	return b.ctx.Resource
}

func (b postBuilder) defaultStatus() string {
	if len(b.storage.Statuses) > 0 {
		return b.storage.Statuses[0]
	}
	return "publish"
}

func (b postBuilder) statuses() []string {
	if len(b.storage.Statuses) > 0 {
		return b.storage.Statuses
	}
	return []string{b.defaultStatus()}
}

func metaVariable(key string) string { return ustrings.ToSnakeCase(key) + "_meta" }
func termsVariable(key string) string { return ustrings.ToSnakeCase(key) + "_terms" }

func countAbove0(v string) ast.Expr {
	return ast.Bin(ast.OpGreater, ast.Call("count", ast.Var(v)), ast.IntLit(0))
}

func (b postBuilder) list(rc RouteContext) ([]ast.Stmt, error) {
	var out []ast.Stmt
	out = appendSpaced(out, assignThisCall("post_type", b.name("get", "PostType")))
	out = appendSpaced(out, perPageStatements()...)
	out = appendSpaced(out, ast.AssignStmt("query_args", ast.Arr(
		ast.KV("post_type", ast.Var("post_type")),
		ast.KV("fields", ast.Str("ids")),
		ast.KV("paged", pageExpr()),
		ast.KV("posts_per_page", ast.Var("per_page")),
	)))
	out = appendSpaced(out,
		ast.AssignStmt("status", ast.GetParam("status")),
		ast.NewIfElse(notNull("status"),
			[]ast.Stmt{ast.AssignDimStmt("query_args", "post_status", ast.ThisCall(b.name("normalise", "Status"), ast.Var("status")))},
			[]ast.Stmt{ast.AssignDimStmt("query_args", "post_status", ast.ThisCall(b.name("get", "Statuses")))},
		),
	)
	if len(b.storage.Meta) > 0 {
		out = appendSpaced(out, b.metaQuery()...)
	}
	if len(b.storage.Taxonomies) > 0 {
		out = appendSpaced(out, b.taxQuery()...)
	}

	metadata.RecordCacheEvent(rc.Host, metadata.CacheEventInput{
		Scope:       metadata.RouteList,
		Operation:   metadata.CacheRead,
		Segments:    rc.Metadata.CacheSegments,
		Description: "List query",
	})
	out = appendSpaced(out, ast.AssignStmt("query", ast.NewNew("WP_Query", ast.Var("query_args"))))
	out = appendSpaced(out,
		ast.AssignStmt("items", ast.Arr()),
		ast.NewForeach(prop("query", "posts"), nil, ast.Var("post_id"),
			assignCall("post", "get_post", ast.Var("post_id")),
			ast.NewIf(notInstanceOf("post", "WP_Post"), ast.NewContinue()),
			ast.Push("items", ast.ThisCall(b.name("prepare", "Response"), ast.Var("post"), ast.Var("request"))),
		),
	)
	out = append(out, ast.Ret(ast.Arr(
		ast.KV("items", ast.Var("items")),
		ast.KV("total", intCast(prop("query", "found_posts"))),
		ast.KV("pages", intCast(prop("query", "max_num_pages"))),
	)))
	return out, nil
}

// metaQuery filters on every registered meta key present in the request.
// Array values match with IN.
func (b postBuilder) metaQuery() []ast.Stmt {
	out := []ast.Stmt{ast.AssignStmt("meta_query", ast.Arr())}
	for _, field := range b.storage.Meta {
		v := metaVariable(field.Key)
		out = append(out,
			ast.AssignStmt(v, ast.GetParam(field.Key)),
			ast.NewIf(notNull(v),
				ast.NewIfElse(ast.Call("is_array", ast.Var(v)),
					[]ast.Stmt{ast.Push("meta_query", ast.Arr(
						ast.KV("key", ast.Str(field.Key)),
						ast.KV("compare", ast.Str("IN")),
						ast.KV("value", ast.Call("array_values", arrayCast(ast.Var(v)))),
					))},
					[]ast.Stmt{ast.Push("meta_query", ast.Arr(
						ast.KV("key", ast.Str(field.Key)),
						ast.KV("value", ast.Var(v)),
					))},
				),
			),
		)
	}
	return append(out, ast.NewIf(countAbove0("meta_query"),
		ast.AssignDimStmt("query_args", "meta_query", ast.Var("meta_query")),
	))
}

// taxQuery filters on term ids. Hierarchical taxonomies include children.
func (b postBuilder) taxQuery() []ast.Stmt {
	out := []ast.Stmt{ast.AssignStmt("tax_query", ast.Arr())}
	for _, field := range b.storage.Taxonomies {
		v := termsVariable(field.Key)
		out = append(out,
			ast.AssignStmt(v, ast.GetParam(field.Key)),
			ast.NewIf(notNull(v),
				ast.AssignStmt(v, termIDs(v)),
				ast.NewIf(countAbove0(v),
					ast.Push("tax_query", ast.Arr(
						ast.KV("taxonomy", ast.Str(field.Taxonomy)),
						ast.KV("field", ast.Str("term_id")),
						ast.KV("terms", ast.Var(v)),
						ast.KV("include_children", ast.Bool(field.Hierarchical)),
					)),
				),
			),
		)
	}
	return append(out, ast.NewIf(countAbove0("tax_query"),
		ast.AssignDimStmt("query_args", "tax_query", ast.Var("tax_query")),
	))
}

// termIDs is "array_values(array_filter(array_map('intval', (array) $v)))"
func termIDs(v string) ast.Expr {
	return ast.Call("array_values", ast.Call("array_filter",
		ast.Call("array_map", ast.Str("intval"), arrayCast(ast.Var(v))),
	))
}

func (b postBuilder) get(rc RouteContext) ([]ast.Stmt, error) {
	param, err := identity.NormalizeVariable(b.ctx.Identity.Param)
	if err != nil {
		return nil, err
	}
	metadata.RecordCacheEvent(rc.Host, metadata.CacheEventInput{
		Scope:       metadata.RouteGet,
		Operation:   metadata.CacheRead,
		Segments:    rc.Metadata.CacheSegments,
		Description: "Get request",
	})

	resolve, err := b.resolveOr404(param)
	if err != nil {
		return nil, err
	}
	out := appendSpaced(nil, resolve...)
	return append(out, ast.Ret(ast.ThisCall(b.name("prepare", "Response"), ast.Var("post"), ast.Var("request")))), nil
}

// resolveOr404 validates the identity and loads $post, returning a 404
// when the post is missing or belongs to another post type
func (b postBuilder) resolveOr404(param string) ([]ast.Stmt, error) {
	guards, err := identity.BuildGuards(identity.GuardOptions{
		Identity:   b.ctx.Identity,
		PascalName: b.ctx.PascalName,
		ErrorCode:  b.ctx.errorCode(),
	})
	if err != nil {
		return nil, err
	}
	out := appendSpaced(nil, guards...)
	return append(out,
		assignThisCall("post", b.name("resolve", "Post"), ast.Var(param)),
		ast.NewIf(notInstanceOf("post", "WP_Post"),
			ast.ReturnWPError(b.ctx.errorCode()("not_found"), b.ctx.PascalName+" not found.", 404),
		),
	), nil
}

func (b postBuilder) postTypeHelper() *ast.ClassMethod {
	return privateMethod(b.name("get", "PostType"), nil, "string", ast.Ret(ast.Str(b.postType())))
}

func (b postBuilder) statusesHelper() *ast.ClassMethod {
	return privateMethod(b.name("get", "Statuses"), nil, "array", ast.Ret(ast.StrList(b.statuses()...)))
}

func (b postBuilder) defaultStatusHelper() *ast.ClassMethod {
	return privateMethod(b.name("get", "DefaultStatus"), nil, "string", ast.Ret(ast.Str(b.defaultStatus())))
}

// normaliseStatusHelper lowercases the requested status and falls back to
// the default when it is not one of the allowed statuses
func (b postBuilder) normaliseStatusHelper() *ast.ClassMethod {
	fallback := func() ast.Stmt { return ast.Ret(ast.ThisCall(b.name("get", "DefaultStatus"))) }
	return privateMethod(b.name("normalise", "Status"),
		[]*ast.Param{ast.NewParam("status", nil)},
		"string",
		ast.NewIf(ast.Not(ast.Call("is_string", ast.Var("status"))), fallback()),
		ast.AssignStmt("normalised", ast.Call("strtolower", ast.Call("trim", ast.Var("status")))),
		assignThisCall("statuses", b.name("get", "Statuses")),
		ast.NewIf(ast.Call("in_array", ast.Var("normalised"), ast.Var("statuses"), ast.True()),
			ast.Ret(ast.Var("normalised")),
		),
		fallback(),
	)
}

// resolvePostHelper loads a post by id or slug and rejects posts of other
// types
func (b postBuilder) resolvePostHelper() *ast.ClassMethod {
	var lookup []ast.Stmt
	if b.ctx.Identity.IsNumeric() {
		lookup = []ast.Stmt{
			assignCall("post", "get_post", intCast(ast.Var("identity"))),
		}
	} else {
		lookup = []ast.Stmt{
			assignCall("posts", "get_posts", ast.Arr(
				ast.KV("name", stringCast(ast.Var("identity"))),
				ast.KV("post_type", ast.ThisCall(b.name("get", "PostType"))),
				ast.KV("post_status", ast.Str("any")),
				ast.KV("numberposts", ast.IntLit(1)),
			)),
			ast.NewIf(ast.Bin(ast.OpIdentical, ast.IntLit(0), ast.Call("count", ast.Var("posts"))),
				ast.Ret(ast.Null()),
			),
			ast.AssignStmt("post", ast.NewArrayDimFetch(ast.Var("posts"), ast.IntLit(0))),
		}
	}
	stmts := append(lookup,
		ast.NewIf(notInstanceOf("post", "WP_Post"), ast.Ret(ast.Null())),
		ast.NewIf(ast.Bin(ast.OpNotIdentical, prop("post", "post_type"), ast.ThisCall(b.name("get", "PostType"))),
			ast.Ret(ast.Null()),
		),
		ast.Ret(ast.Var("post")),
	)
	return privateMethod(b.name("resolve", "Post"), []*ast.Param{ast.NewParam("identity", nil)}, "?WP_Post", stmts...)
}

var supportedFields = []struct {
	feature  string
	field    string
	property string
}{
	{"title", "title", "post_title"},
	{"editor", "content", "post_content"},
	{"excerpt", "excerpt", "post_excerpt"},
}

func (b postBuilder) prepareResponseHelper() *ast.ClassMethod {
	stmts := []ast.Stmt{
		ast.AssignStmt("data", ast.Arr(
			ast.KV("id", intCast(prop("post", "ID"))),
			ast.KV("status", stringCast(prop("post", "post_status"))),
			ast.KV("slug", stringCast(prop("post", "post_name"))),
		)),
	}
	for _, f := range supportedFields {
		if b.storage.supports(f.feature) {
			stmts = append(stmts, ast.AssignDimStmt("data", f.field, stringCast(prop("post", f.property))))
		}
	}
	for _, field := range b.storage.Meta {
		v := metaVariable(field.Key)
		stmts = append(stmts, assignCall(v, "get_post_meta", prop("post", "ID"), ast.Str(field.Key), ast.Bool(field.IsSingle())))
		stmts = append(stmts, sanitizeMeta(v, field)...)
		stmts = append(stmts, ast.AssignDimStmt("data", field.Key, ast.Var(v)))
	}
	for _, field := range b.storage.Taxonomies {
		v := termsVariable(field.Key)
		stmts = append(stmts,
			assignCall(v, "wp_get_object_terms", prop("post", "ID"), ast.Str(field.Taxonomy), ast.Arr(ast.KV("fields", ast.Str("ids")))),
			ast.NewIf(ast.IsWPError(v), ast.AssignStmt(v, ast.Arr())),
			ast.AssignDimStmt("data", field.Key, ast.Call("array_map", ast.Str("intval"), arrayCast(ast.Var(v)))),
		)
	}
	stmts = append(stmts, ast.Ret(ast.Var("data")))
	return privateMethod(b.name("prepare", "Response"),
		[]*ast.Param{ast.NewParam("post", ast.TypeName("WP_Post")), requestParam()},
		"array",
		stmts...,
	)
}

// syncMetaHelper writes every meta key present in the request. Multi-value
// keys are replaced wholesale.
func (b postBuilder) syncMetaHelper() *ast.ClassMethod {
	var stmts []ast.Stmt
	for _, field := range b.storage.Meta {
		v := metaVariable(field.Key)
		body := sanitizeMeta(v, field)
		if field.IsSingle() {
			body = append(body, ast.ExprStmt(ast.Call("update_post_meta", ast.Var("post_id"), ast.Str(field.Key), ast.Var(v))))
		} else {
			body = append(body,
				ast.ExprStmt(ast.Call("delete_post_meta", ast.Var("post_id"), ast.Str(field.Key))),
				ast.NewForeach(ast.Var(v), nil, ast.Var("meta_value"),
					ast.ExprStmt(ast.Call("add_post_meta", ast.Var("post_id"), ast.Str(field.Key), ast.Var("meta_value"))),
				),
			)
		}
		stmts = append(stmts,
			ast.AssignStmt(v, ast.GetParam(field.Key)),
			ast.NewIf(notNull(v), body...),
		)
	}
	return privateMethod(b.name("sync", "Meta"),
		[]*ast.Param{ast.NewParam("post_id", ast.TypeName("int")), requestParam()},
		"void",
		stmts...,
	)
}

// syncTaxonomiesHelper assigns the requested term ids and returns true or
// the first WP_Error
func (b postBuilder) syncTaxonomiesHelper() *ast.ClassMethod {
	var stmts []ast.Stmt
	for _, field := range b.storage.Taxonomies {
		v := termsVariable(field.Key)
		stmts = append(stmts,
			ast.AssignStmt(v, ast.GetParam(field.Key)),
			ast.NewIf(notNull(v),
				ast.AssignStmt(v, termIDs(v)),
				assignCall("result", "wp_set_object_terms", ast.Var("post_id"), ast.Var(v), ast.Str(field.Taxonomy), ast.False()),
				ast.ReturnIfWPError("result"),
			),
		)
	}
	stmts = append(stmts, ast.Ret(ast.True()))
	return privateMethod(b.name("sync", "Taxonomies"),
		[]*ast.Param{ast.NewParam("post_id", ast.TypeName("int")), requestParam()},
		"",
		stmts...,
	)
}

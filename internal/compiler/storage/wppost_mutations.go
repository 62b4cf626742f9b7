package storage

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
)

// MutationContract names the metadata keys written as marker comments into
// mutating routes, e.g. "// @wp-kernel resource.wpPost.mutation sync-meta".
// Downstream tooling reads the markers to locate each step.
type MutationContract struct {
	ChannelTag       string
	StatusValidation string
	SyncMeta         string
	SyncTaxonomies   string
	CachePriming     string
	CacheSegment     string
}

// PostMutationContract is the contract of wp-post resources. ChannelTag is
// also the route tag key set on mutating routes.
var PostMutationContract = MutationContract{
	ChannelTag:       "resource.wpPost.mutation",
	StatusValidation: "resource.wpPost.status",
	SyncMeta:         "resource.wpPost.meta",
	SyncTaxonomies:   "resource.wpPost.taxonomies",
	CachePriming:     "resource.wpPost.cache",
	CacheSegment:     "resource.wpPost.cacheSegment",
}

func marker(key, value string) ast.Stmt {
	return ast.NewNop("// @wp-kernel " + key + " " + value)
}

func (b postBuilder) record(rc RouteContext, scope metadata.RouteKind, op metadata.CacheOperation, description string) {
	metadata.RecordCacheEvent(rc.Host, metadata.CacheEventInput{
		Scope:       scope,
		Operation:   op,
		Segments:    rc.Metadata.CacheSegments,
		Description: description,
	})
}

// statusValidation assigns the normalised status into $post_data. When
// guarded, a missing status leaves the stored one untouched.
func (b postBuilder) statusValidation(guarded bool) []ast.Stmt {
	assign := ast.AssignDimStmt("post_data", "post_status", ast.ThisCall(b.name("normalise", "Status"), ast.Var("status")))
	out := []ast.Stmt{
		marker(b.contract.ChannelTag, "status-validation"),
		marker(b.contract.StatusValidation, "normalise"),
		ast.AssignStmt("status", ast.GetParam("status")),
	}
	if guarded {
		return append(out, ast.NewIf(notNull("status"), assign))
	}
	return append(out, assign)
}

// fieldAssignments copies the supported post fields and the slug from the
// request into $post_data
func (b postBuilder) fieldAssignments() []ast.Stmt {
	var out []ast.Stmt
	for _, f := range supportedFields {
		if !b.storage.supports(f.feature) {
			continue
		}
		out = append(out,
			ast.AssignStmt(f.property, ast.GetParam(f.field)),
			ast.NewIf(ast.Call("is_string", ast.Var(f.property)),
				ast.AssignDimStmt("post_data", f.property, ast.Var(f.property)),
			),
		)
	}
	return append(out,
		ast.AssignStmt("post_name", ast.GetParam("slug")),
		ast.NewIf(nonEmptyTrimmed("post_name"),
			ast.AssignDimStmt("post_data", "post_name", ast.Call("sanitize_title", ast.Var("post_name"))),
		),
	)
}

func (b postBuilder) syncMeta(postID ast.Expr) []ast.Stmt {
	return []ast.Stmt{
		marker(b.contract.ChannelTag, "sync-meta"),
		marker(b.contract.SyncMeta, "update"),
		ast.ExprStmt(ast.ThisCall(b.name("sync", "Meta"), postID, ast.Var("request"))),
	}
}

func (b postBuilder) syncTaxonomies(postID ast.Expr) []ast.Stmt {
	return []ast.Stmt{
		marker(b.contract.ChannelTag, "sync-taxonomies"),
		marker(b.contract.SyncTaxonomies, "update"),
		assignThisCall("taxonomy_result", b.name("sync", "Taxonomies"), postID, ast.Var("request")),
		ast.ReturnIfWPError("taxonomy_result"),
	}
}

// cachePriming re-reads the written post and returns its response shape
func (b postBuilder) cachePriming(postID ast.Expr, variable, failure string) []ast.Stmt {
	return []ast.Stmt{
		marker(b.contract.ChannelTag, "cache-priming"),
		marker(b.contract.CachePriming, "prime"),
		marker(b.contract.CacheSegment, "prime"),
		assignCall(variable, "get_post", postID),
		ast.NewIf(notInstanceOf(variable, "WP_Post"),
			ast.ReturnWPError(b.ctx.errorCode()("load_failed"), failure, 500),
		),
		ast.Ret(ast.ThisCall(b.name("prepare", "Response"), ast.Var(variable), ast.Var("request"))),
	}
}

func (b postBuilder) create(rc RouteContext) ([]ast.Stmt, error) {
	var out []ast.Stmt
	out = appendSpaced(out, assignThisCall("post_type", b.name("get", "PostType")))
	block := []ast.Stmt{ast.AssignStmt("post_data", ast.Arr(ast.KV("post_type", ast.Var("post_type"))))}
	block = append(block, b.statusValidation(false)...)
	block = append(block, b.fieldAssignments()...)
	out = appendSpaced(out, block...)
	out = appendSpaced(out,
		assignCall("post_id", "wp_insert_post", ast.Var("post_data"), ast.True()),
		ast.ReturnIfWPError("post_id"),
	)
	out = appendSpaced(out, b.syncMeta(ast.Var("post_id"))...)
	out = appendSpaced(out, b.syncTaxonomies(ast.Var("post_id"))...)

	b.record(rc, metadata.RouteCreate, metadata.CachePrime, "Prime created post")
	out = append(out, b.cachePriming(ast.Var("post_id"), "post", "Unable to load created "+b.ctx.PascalName+".")...)
	return out, nil
}

func (b postBuilder) update(rc RouteContext) ([]ast.Stmt, error) {
	param, err := identity.NormalizeVariable(b.ctx.Identity.Param)
	if err != nil {
		return nil, err
	}
	resolve, err := b.resolveOr404(param)
	if err != nil {
		return nil, err
	}

	var out []ast.Stmt
	out = appendSpaced(out, resolve...)
	block := []ast.Stmt{ast.AssignStmt("post_data", ast.Arr(
		ast.KV("ID", prop("post", "ID")),
		ast.KV("post_type", prop("post", "post_type")),
	))}
	block = append(block, b.statusValidation(true)...)
	block = append(block, b.fieldAssignments()...)
	out = appendSpaced(out, block...)
	out = appendSpaced(out,
		assignCall("result", "wp_update_post", ast.Var("post_data"), ast.True()),
		ast.ReturnIfWPError("result"),
	)

	postID := prop("post", "ID")
	b.record(rc, metadata.RouteUpdate, metadata.CacheInvalidate, "Invalidate updated post")
	out = appendSpaced(out, b.syncMeta(postID)...)
	out = appendSpaced(out, b.syncTaxonomies(prop("post", "ID"))...)

	b.record(rc, metadata.RouteUpdate, metadata.CachePrime, "Prime updated post")
	out = append(out, b.cachePriming(prop("post", "ID"), "updated", "Unable to load updated "+b.ctx.PascalName+".")...)
	return out, nil
}

func (b postBuilder) remove(rc RouteContext) ([]ast.Stmt, error) {
	param, err := identity.NormalizeVariable(b.ctx.Identity.Param)
	if err != nil {
		return nil, err
	}
	resolve, err := b.resolveOr404(param)
	if err != nil {
		return nil, err
	}

	b.record(rc, metadata.RouteRemove, metadata.CacheInvalidate, "Invalidate deleted post")
	var out []ast.Stmt
	out = appendSpaced(out, resolve...)
	out = appendSpaced(out,
		assignThisCall("previous", b.name("prepare", "Response"), ast.Var("post"), ast.Var("request")),
		assignCall("deleted", "wp_delete_post", prop("post", "ID"), ast.True()),
		ast.NewIf(ast.Bin(ast.OpIdentical, ast.False(), ast.Var("deleted")),
			ast.ReturnWPError(b.ctx.errorCode()("delete_failed"), "Unable to delete "+b.ctx.PascalName+".", 500),
		),
	)
	out = append(out, ast.Ret(ast.Arr(
		ast.KV("deleted", ast.True()),
		ast.KV("id", intCast(prop("post", "ID"))),
		ast.KV("previous", ast.Var("previous")),
	)))
	return out, nil
}

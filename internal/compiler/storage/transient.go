package storage

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	"github.com/wpkernel/wpkgen/internal/compiler/routes"
	ustrings "github.com/wpkernel/wpkgen/internal/util/strings"
)

// Transient stores a resource in the WordPress transient API. The key is
// derived from the plugin namespace and the resource name.
type Transient struct{}

func (*Transient) Mode() Mode { return ModeTransient }
func (*Transient) isStrategy() {}

// TransientKey returns the base key of a resource's transients, e.g.
// "demo_plugin_job_cache" for Demo\Plugin and jobCache
func TransientKey(namespace, resource string) string {
	ns := ustrings.ToSnakeCase(namespace)
	name := ustrings.ToSnakeCase(resource)
	if ns == "" {
		return name
	}
	if name == "" {
		return ns
	}
	return ns + "_" + name
}

// BuildTransient builds the get/set/delete handlers and the key and
// expiration helpers
func BuildTransient(s Strategy, ctx Context) (*Artifacts, error) {
	if t, ok := s.(*Transient); !ok || t == nil {
		return nil, mismatch(s, ModeTransient, ctx)
	}

	t := transientBuilder{ctx: ctx, key: TransientKey(ctx.Namespace, ctx.Resource)}
	return &Artifacts{
		Mode: ModeTransient,
		Helpers: []Helper{
			newHelper(t.keyHelper()),
			newHelper(t.expirationHelper()),
		},
		Handlers: VerbHandlers{
			Get:         t.get,
			Set:         t.set,
			Delete:      t.delete,
			Unsupported: unsupported(ctx, "transient"),
		},
	}, nil
}

type transientBuilder struct {
	ctx Context
	key string
}

func (t transientBuilder) record(rc RouteContext, op metadata.CacheOperation, description string) {
	// Transient routes all depend on the single-item cache key
	metadata.RecordCacheEvent(rc.Host, metadata.CacheEventInput{
		Scope:       metadata.RouteGet,
		Operation:   op,
		Segments:    t.ctx.CacheKeys.For(metadata.RouteGet),
		Description: description,
	})
}

func (t transientBuilder) keyAssignment(rc RouteContext) (ast.Stmt, error) {
	def := routes.Definition{Method: rc.Metadata.Method, Path: rc.Metadata.Path}
	var args []ast.Expr
	if routes.UsesIdentity(def, rc.Metadata.Kind, t.ctx.Identity.Param) {
		param, err := identity.NormalizeVariable(t.ctx.Identity.Param)
		if err != nil {
			return nil, err
		}
		args = append(args, ast.Var(param))
	}
	return assignThisCall("key", "get"+t.ctx.PascalName+"TransientKey", args...), nil
}

func (t transientBuilder) get(rc RouteContext) ([]ast.Stmt, error) {
	t.record(rc, metadata.CacheRead, "Read transient value")
	key, err := t.keyAssignment(rc)
	if err != nil {
		return nil, err
	}
	return []ast.Stmt{
		key,
		assignCall("value", "get_transient", ast.Var("key")),
		ast.Blank(),
		ast.Ret(ast.Arr(
			ast.KV("key", ast.Var("key")),
			ast.KV("value", ast.Var("value")),
		)),
	}, nil
}

func (t transientBuilder) set(rc RouteContext) ([]ast.Stmt, error) {
	t.record(rc, metadata.CacheInvalidate, "Invalidate transient value")
	key, err := t.keyAssignment(rc)
	if err != nil {
		return nil, err
	}
	return []ast.Stmt{
		key,
		assignCall("previous", "get_transient", ast.Var("key")),
		ast.AssignStmt("value", ast.GetParam("value")),
		assignThisCall("expiration", "normalise"+t.ctx.PascalName+"Expiration", ast.GetParam("expiration")),
		ast.Blank(),
		assignCall("stored", "set_transient", ast.Var("key"), ast.Var("value"), ast.Var("expiration")),
		assignCall("current", "get_transient", ast.Var("key")),
		ast.Blank(),
		ast.Ret(ast.Arr(
			ast.KV("key", ast.Var("key")),
			ast.KV("stored", boolCast(ast.Var("stored"))),
			ast.KV("value", ast.Var("current")),
			ast.KV("previous", ast.Var("previous")),
			ast.KV("expiration", ast.Var("expiration")),
		)),
	}, nil
}

func (t transientBuilder) delete(rc RouteContext) ([]ast.Stmt, error) {
	t.record(rc, metadata.CacheInvalidate, "Delete transient value")
	key, err := t.keyAssignment(rc)
	if err != nil {
		return nil, err
	}
	return []ast.Stmt{
		key,
		assignCall("previous", "get_transient", ast.Var("key")),
		ast.Blank(),
		assignCall("deleted", "delete_transient", ast.Var("key")),
		ast.Blank(),
		ast.Ret(ast.Arr(
			ast.KV("key", ast.Var("key")),
			ast.KV("deleted", boolCast(ast.Var("deleted"))),
			ast.KV("previous", ast.Var("previous")),
		)),
	}, nil
}

// keyHelper joins the base key with every non-empty trimmed segment:
//
//	private function getJobTransientKey(...$segments): string
func (t transientBuilder) keyHelper() *ast.ClassMethod {
	appendSegment := ast.NewIf(notNull("segment"),
		ast.AssignStmt("normalised", ast.Call("trim", stringCast(ast.Var("segment")))),
		ast.NewIf(ast.Not(ast.Bin(ast.OpIdentical, ast.Str(""), ast.Var("normalised"))),
			ast.Push("parts", ast.Var("normalised")),
		),
	)
	return privateMethod(
		"get"+t.ctx.PascalName+"TransientKey",
		[]*ast.Param{ast.NewVariadicParam("segments", nil)},
		"string",
		ast.AssignStmt("parts", ast.StrList(t.key)),
		ast.NewForeach(ast.Var("segments"), nil, ast.Var("segment"), appendSegment),
		ast.Ret(ast.Call("implode", ast.Str("_"), ast.Var("parts"))),
	)
}

// expirationHelper coerces the requested expiration into a non-negative
// number of seconds; anything unparseable means "no expiration"
func (t transientBuilder) expirationHelper() *ast.ClassMethod {
	nonNegative := func(e ast.Expr) ast.Stmt {
		return ast.Ret(ast.Call("max", ast.IntLit(0), e))
	}
	return privateMethod(
		"normalise"+t.ctx.PascalName+"Expiration",
		[]*ast.Param{ast.NewParam("value", nil)},
		"int",
		ast.NewIf(isNull("value"), ast.Ret(ast.IntLit(0))),
		ast.NewIf(ast.Call("is_int", ast.Var("value")), nonNegative(ast.Var("value"))),
		ast.NewIf(ast.Call("is_numeric", ast.Var("value")), nonNegative(intCast(ast.Var("value")))),
		ast.NewIf(ast.Not(ast.Call("is_string", ast.Var("value"))), ast.Ret(ast.IntLit(0))),
		ast.AssignStmt("sanitised", ast.Call("trim", stringCast(ast.Var("value")))),
		ast.NewIf(ast.Bin(ast.OpIdentical, ast.Str(""), ast.Var("sanitised")), ast.Ret(ast.IntLit(0))),
		ast.NewIf(ast.Call("is_numeric", ast.Var("sanitised")), nonNegative(intCast(ast.Var("sanitised")))),
		ast.Ret(ast.IntLit(0)),
	)
}

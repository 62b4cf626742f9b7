package plan

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/storage"
)

// restArgs builds the get_rest_args() array: the identity parameter plus
// whatever request fields the storage backend reads
func restArgs(id identity.Resolved, strategy storage.Strategy) ast.Expr {
	idType := "string"
	if id.IsNumeric() {
		idType = "integer"
	}
	items := []*ast.ArrayItem{
		ast.KV(id.Param, ast.Arr(
			ast.KV("type", ast.Str(idType)),
			ast.KV("required", ast.False()),
		)),
	}

	post, ok := strategy.(*storage.ContentPost)
	if !ok {
		return ast.Arr(items...)
	}

	if len(post.Statuses) > 0 {
		items = append(items, ast.KV("status", ast.Arr(
			ast.KV("type", ast.Str("string")),
			ast.KV("enum", ast.StrList(post.Statuses...)),
		)))
	}
	for _, m := range post.Meta {
		typ := string(m.Type)
		if typ == "" {
			typ = string(storage.MetaString)
		}
		items = append(items, ast.KV(m.Key, ast.Arr(ast.KV("type", ast.Str(typ)))))
	}
	for _, t := range post.Taxonomies {
		items = append(items, ast.KV(t.Key, ast.Arr(
			ast.KV("type", ast.Str("array")),
			ast.KV("items", ast.Arr(ast.KV("type", ast.Str("integer")))),
		)))
	}
	return ast.Arr(items...)
}

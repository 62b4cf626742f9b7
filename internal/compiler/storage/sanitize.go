package storage

import "github.com/wpkernel/wpkgen/internal/compiler/ast"

// MetaType is the declared type of a post meta field
type MetaType string

const (
	MetaString  MetaType = "string"
	MetaInteger MetaType = "integer"
	MetaNumber  MetaType = "number"
	MetaBoolean MetaType = "boolean"
	MetaArray   MetaType = "array"
	MetaObject  MetaType = "object"
)

// MetaTypes lists the accepted meta types
func MetaTypes() []string {
	return []string{
		string(MetaString), string(MetaInteger), string(MetaNumber),
		string(MetaBoolean), string(MetaArray), string(MetaObject),
	}
}

// Valid reports whether t is one of the known meta types. The empty type
// is valid and means string.
func (t MetaType) Valid() bool {
	switch t {
	case "", MetaString, MetaInteger, MetaNumber, MetaBoolean, MetaArray, MetaObject:
		return true
	}
	return false
}

// sanitizeValue coerces $name into the declared type in place
func sanitizeValue(name string, typ MetaType) ast.Stmt {
	v := ast.Var(name)
	var value ast.Expr
	switch typ {
	case MetaInteger:
		value = ast.NewTernary(ast.Call("is_numeric", v), intCast(ast.Var(name)), ast.IntLit(0))
	case MetaNumber:
		value = ast.NewTernary(ast.Call("is_numeric", v), ast.NewCast(ast.CastDouble, ast.Var(name)), ast.NewFloat(0))
	case MetaBoolean:
		value = ast.Call("rest_sanitize_boolean", v)
	case MetaArray:
		value = ast.Call("array_values", arrayCast(v))
	case MetaObject:
		value = ast.NewTernary(ast.Call("is_array", v), ast.Var(name), ast.Arr())
	default:
		value = ast.NewTernary(ast.Call("is_string", v), ast.Var(name), stringCast(ast.Var(name)))
	}
	return ast.AssignStmt(name, value)
}

// sanitizeMeta sanitizes a meta value. Multi-valued fields of a scalar type
// are wrapped into a list and every element is sanitized:
//
//	if (!is_array($tagsMeta)) { $tagsMeta = array($tagsMeta); }
//	$tagsMeta = array_values((array) $tagsMeta);
//	foreach ($tagsMeta as $meta_index => $meta_value) { ...; $tagsMeta[$meta_index] = $meta_value; }
func sanitizeMeta(name string, field MetaField) []ast.Stmt {
	if field.IsSingle() || field.Type == MetaArray {
		return []ast.Stmt{sanitizeValue(name, field.Type)}
	}
	return []ast.Stmt{
		ast.NewIf(ast.Not(ast.Call("is_array", ast.Var(name))),
			ast.AssignStmt(name, ast.Arr(ast.Item(ast.Var(name)))),
		),
		ast.AssignStmt(name, ast.Call("array_values", arrayCast(ast.Var(name)))),
		ast.NewForeach(ast.Var(name), ast.Var("meta_index"), ast.Var("meta_value"),
			sanitizeValue("meta_value", field.Type),
			ast.ExprStmt(ast.NewAssign(ast.NewArrayDimFetch(ast.Var(name), ast.Var("meta_index")), ast.Var("meta_value"))),
		),
	}
}

package codegen

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
)

// BaseControllerClass is the abstract parent of every generated controller
const BaseControllerClass = "BaseController"

// ControllerClass describes a final resource controller class
type ControllerClass struct {
	ClassName    string
	ResourceName string
	SchemaKey    string
	RestArgs     ast.Expr
	Routes       []*ast.ClassMethod
	Helpers      []*ast.ClassMethod
}

// BuildControllerClass builds
//
//	final class BookController extends BaseController { ... }
//
// with the resource accessors first, then the routes, then the helpers
func BuildControllerClass(c ControllerClass) *ast.Class {
	restArgs := c.RestArgs
	if restArgs == nil {
		restArgs = ast.Arr()
	}

	stmts := []ast.Stmt{
		returningMethod("get_resource_name", "string", ast.Str(c.ResourceName)),
		returningMethod("get_schema_key", "string", ast.Str(c.SchemaKey)),
		returningMethod("get_rest_args", "array", restArgs),
	}
	for _, m := range c.Routes {
		stmts = append(stmts, m)
	}
	for _, m := range c.Helpers {
		stmts = append(stmts, m)
	}

	return ast.NewClass(c.ClassName, ast.ModifierFinal, ast.NewName(BaseControllerClass), stmts)
}

// BuildBaseControllerClass builds the abstract controller every resource
// controller extends. The namespace is the REST namespace of the plugin.
func BuildBaseControllerClass(restNamespace string) *ast.Class {
	abstract := func(name, returnType string) *ast.ClassMethod {
		return ast.NewClassMethod(name, ast.ModifierPublic|ast.ModifierAbstract, nil, ast.TypeName(returnType), nil)
	}
	return ast.NewClass(BaseControllerClass, ast.ModifierAbstract, nil, []ast.Stmt{
		returningMethod("get_namespace", "string", ast.Str(restNamespace)),
		abstract("get_resource_name", "string"),
		abstract("get_schema_key", "string"),
		abstract("get_rest_args", "array"),
	})
}

func returningMethod(name, returnType string, value ast.Expr) *ast.ClassMethod {
	return ast.NewClassMethod(name, ast.ModifierPublic, nil, ast.TypeName(returnType), []ast.Stmt{ast.Ret(value)})
}

package storage

import "github.com/wpkernel/wpkgen/internal/compiler/ast"

// appendSpaced appends a block and closes it with a blank line unless the
// block already ends in one
func appendSpaced(target []ast.Stmt, block ...ast.Stmt) []ast.Stmt {
	if len(block) == 0 {
		return target
	}
	target = append(target, block...)
	if _, ok := block[len(block)-1].(*ast.Nop); !ok {
		target = append(target, ast.Blank())
	}
	return target
}

// assignThisCall is "$name = $this->method(args);"
func assignThisCall(name, method string, args ...ast.Expr) ast.Stmt {
	return ast.AssignStmt(name, ast.ThisCall(method, args...))
}

// assignCall is "$name = fn(args);"
func assignCall(name, fn string, args ...ast.Expr) ast.Stmt {
	return ast.AssignStmt(name, ast.Call(fn, args...))
}

func intCast(e ast.Expr) ast.Expr    { return ast.NewCast(ast.CastInt, e) }
func stringCast(e ast.Expr) ast.Expr { return ast.NewCast(ast.CastString, e) }
func arrayCast(e ast.Expr) ast.Expr  { return ast.NewCast(ast.CastArray, e) }
func boolCast(e ast.Expr) ast.Expr   { return ast.NewCast(ast.CastBool, e) }

func prop(v, name string) ast.Expr { return ast.NewPropertyFetch(ast.Var(v), name) }

func notNull(v string) ast.Expr {
	return ast.Bin(ast.OpNotIdentical, ast.Null(), ast.Var(v))
}

func isNull(v string) ast.Expr {
	return ast.Bin(ast.OpIdentical, ast.Null(), ast.Var(v))
}

func notInstanceOf(v, class string) ast.Expr {
	return ast.Not(ast.NewInstanceof(ast.Var(v), class))
}

func nonEmptyTrimmed(v string) ast.Expr {
	return ast.Bin(ast.OpBooleanAnd,
		ast.Call("is_string", ast.Var(v)),
		ast.Bin(ast.OpNotIdentical, ast.Str(""), ast.Call("trim", ast.Var(v))),
	)
}

// perPageStatements clamps per_page into 1..100 with a default of 10:
//
//	$per_page = (int) $request->get_param('per_page');
//	if ($per_page <= 0) { $per_page = 10; }
//	if ($per_page > 100) { $per_page = 100; }
func perPageStatements() []ast.Stmt {
	return []ast.Stmt{
		ast.AssignStmt("per_page", intCast(ast.GetParam("per_page"))),
		ast.NewIf(ast.Bin(ast.OpSmallerOrEqual, ast.Var("per_page"), ast.IntLit(0)),
			ast.AssignStmt("per_page", ast.IntLit(10)),
		),
		ast.NewIf(ast.Bin(ast.OpGreater, ast.Var("per_page"), ast.IntLit(100)),
			ast.AssignStmt("per_page", ast.IntLit(100)),
		),
	}
}

// pageExpr is "max(1, (int) $request->get_param('page'))"
func pageExpr() ast.Expr {
	return ast.Call("max", ast.IntLit(1), intCast(ast.GetParam("page")))
}

func privateMethod(name string, params []*ast.Param, returnType string, stmts ...ast.Stmt) *ast.ClassMethod {
	var rt ast.TypeNode
	if returnType != "" {
		rt = ast.TypeName(returnType)
	}
	if stmts == nil {
		stmts = []ast.Stmt{}
	}
	return ast.NewClassMethod(name, ast.ModifierPrivate, params, rt, stmts)
}

func requestParam() *ast.Param {
	return ast.NewParam("request", ast.TypeName("WP_REST_Request"))
}

func unsupported(ctx Context, backend string) Handler {
	code := ctx.errorCode()("unsupported_operation")
	message := "Operation not supported for " + ctx.PascalName + " " + backend + "."
	return func(RouteContext) ([]ast.Stmt, error) {
		return []ast.Stmt{ast.ReturnWPError(code, message, 501)}, nil
	}
}

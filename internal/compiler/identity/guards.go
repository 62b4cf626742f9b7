package identity

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
)

// GuardOptions configures BuildGuards
type GuardOptions struct {
	Identity Resolved
	// PascalName is used in error messages, e.g. "Book"
	PascalName string
	// ErrorCode defaults to DefaultErrorCodeFactory(PascalName)
	ErrorCode ErrorCodeFactory
}

// BuildGuards emits the validation statements for the identity parameter.
//
// Numeric identities are checked for null before the cast, so an explicit
// 0 is reported as invalid rather than missing:
//
//	if (null === $id) { return new WP_Error(...missing...); }
//	$id = (int) $id;
//	if ($id <= 0) { return new WP_Error(...invalid...); }
//
// String identities are trimmed and never compared numerically:
//
//	if (!is_string($slug) || '' === trim($slug)) { return new WP_Error(...missing...); }
//	$slug = trim((string) $slug);
func BuildGuards(opts GuardOptions) ([]ast.Stmt, error) {
	variable, err := NormalizeVariable(opts.Identity.Param)
	if err != nil {
		return nil, err
	}
	if opts.ErrorCode == nil {
		opts.ErrorCode = DefaultErrorCodeFactory(opts.PascalName)
	}

	if opts.Identity.IsNumeric() {
		return numericGuards(opts, variable), nil
	}
	return stringGuards(opts, variable), nil
}

func numericGuards(opts GuardOptions, variable string) []ast.Stmt {
	return []ast.Stmt{
		ast.NewIf(
			ast.Bin(ast.OpIdentical, ast.Null(), ast.Var(variable)),
			guardError(opts, false),
		),
		ast.AssignStmt(variable, ast.NewCast(ast.CastInt, ast.Var(variable))),
		ast.NewIf(
			ast.Bin(ast.OpSmallerOrEqual, ast.Var(variable), ast.IntLit(0)),
			guardError(opts, true),
		),
	}
}

func stringGuards(opts GuardOptions, variable string) []ast.Stmt {
	cond := ast.Bin(ast.OpBooleanOr,
		ast.Not(ast.Call("is_string", ast.Var(variable))),
		ast.Bin(ast.OpIdentical, ast.Str(""), ast.Call("trim", ast.Var(variable))),
	)
	return []ast.Stmt{
		ast.NewIf(cond, guardError(opts, false)),
		ast.AssignStmt(variable, ast.Call("trim", ast.NewCast(ast.CastString, ast.Var(variable)))),
	}
}

func guardError(opts GuardOptions, invalid bool) ast.Stmt {
	if invalid {
		return ast.ReturnWPError(opts.ErrorCode("invalid_identifier"), "Invalid identifier for "+opts.PascalName+".", 400)
	}
	return ast.ReturnWPError(opts.ErrorCode("missing_identifier"), "Missing identifier for "+opts.PascalName+".", 400)
}

// BuildExtraction reads the identity from the request:
//
//	$param = $request->get_param('param');
func BuildExtraction(param string) (ast.Stmt, error) {
	variable, err := NormalizeVariable(param)
	if err != nil {
		return nil, err
	}
	return ast.AssignStmt(variable, ast.GetParam(variable)), nil
}

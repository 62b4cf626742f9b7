package storage

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
)

// Option stores a resource as a single WordPress option
type Option struct {
	Option string `json:"option" yaml:"option"`
}

func (*Option) Mode() Mode { return ModeOption }
func (*Option) isStrategy() {}

// BuildOption builds the get and update handlers of an option resource.
// Only GET and write methods are served; everything else is rejected.
func BuildOption(s Strategy, ctx Context) (*Artifacts, error) {
	opt, ok := s.(*Option)
	if !ok || opt == nil {
		return nil, mismatch(s, ModeOption, ctx)
	}
	nameMethod := "get" + ctx.PascalName + "OptionName"
	autoloadMethod := "normalise" + ctx.PascalName + "Autoload"

	get := func(RouteContext) ([]ast.Stmt, error) {
		return []ast.Stmt{
			assignThisCall("option_name", nameMethod),
			assignCall("value", "get_option", ast.Var("option_name")),
			ast.Blank(),
			ast.Ret(ast.Arr(
				ast.KV("option", ast.Var("option_name")),
				ast.KV("value", ast.Var("value")),
			)),
		}, nil
	}

	update := func(RouteContext) ([]ast.Stmt, error) {
		return []ast.Stmt{
			assignThisCall("option_name", nameMethod),
			assignCall("previous", "get_option", ast.Var("option_name")),
			ast.AssignStmt("value", ast.GetParam("value")),
			assignThisCall("autoload", autoloadMethod, ast.GetParam("autoload")),
			ast.Blank(),
			ast.NewIfElse(notNull("autoload"),
				[]ast.Stmt{assignCall("updated", "update_option", ast.Var("option_name"), ast.Var("value"), ast.Var("autoload"))},
				[]ast.Stmt{assignCall("updated", "update_option", ast.Var("option_name"), ast.Var("value"))},
			),
			ast.Blank(),
			assignCall("value_after", "get_option", ast.Var("option_name")),
			ast.Blank(),
			ast.Ret(ast.Arr(
				ast.KV("option", ast.Var("option_name")),
				ast.KV("updated", boolCast(ast.Var("updated"))),
				ast.KV("value", ast.Var("value_after")),
				ast.KV("previous", ast.Var("previous")),
			)),
		}, nil
	}

	return &Artifacts{
		Mode: ModeOption,
		Helpers: []Helper{
			newHelper(privateMethod(nameMethod, nil, "string", ast.Ret(ast.Str(opt.Option)))),
			newHelper(autoloadHelper(autoloadMethod)),
		},
		Handlers: VerbHandlers{
			Get:         get,
			Set:         update,
			Unsupported: unsupported(ctx, "option"),
		},
	}, nil
}

// autoloadHelper maps truthy and falsy request values onto 'yes'/'no' and
// returns null when the caller did not express a preference
func autoloadHelper(name string) *ast.ClassMethod {
	yes, no := ast.Str("yes"), ast.Str("no")
	return privateMethod(name,
		[]*ast.Param{ast.NewParam("value", nil)},
		"?string",
		ast.NewIf(isNull("value"), ast.Ret(ast.Null())),
		ast.NewIf(ast.Call("is_bool", ast.Var("value")),
			ast.Ret(ast.NewTernary(ast.Var("value"), yes, no)),
		),
		ast.NewIf(ast.Call("is_numeric", ast.Var("value")),
			ast.Ret(ast.NewTernary(
				ast.Bin(ast.OpIdentical, intCast(ast.Var("value")), ast.IntLit(1)),
				ast.Str("yes"), ast.Str("no"),
			)),
		),
		ast.NewIf(ast.Not(ast.Call("is_string", ast.Var("value"))), ast.Ret(ast.Null())),
		ast.AssignStmt("normalised", ast.Call("strtolower", ast.Call("trim", stringCast(ast.Var("value"))))),
		ast.NewIf(ast.Call("in_array", ast.Var("normalised"), ast.StrList("1", "true", "yes"), ast.True()),
			ast.Ret(ast.Str("yes")),
		),
		ast.NewIf(ast.Call("in_array", ast.Var("normalised"), ast.StrList("0", "false", "no"), ast.True()),
			ast.Ret(ast.Str("no")),
		),
		ast.Ret(ast.Null()),
	)
}

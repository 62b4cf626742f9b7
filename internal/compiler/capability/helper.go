package capability

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/codegen"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
)

// ClassName is the short name of the generated helper class
const ClassName = "Capability"

// FileName is the helper path relative to the generated directory
const FileName = "Capability/Capability.php"

// Namespace returns the namespace of the helper class
func Namespace(pluginNamespace string) string {
	return codegen.GeneratedNamespace(pluginNamespace) + `\Capability`
}

// QualifiedClassName is the class controllers call enforce() on
func QualifiedClassName(pluginNamespace string) string {
	return Namespace(pluginNamespace) + `\` + ClassName
}

// IndexEntry registers the helper in the class map index
func IndexEntry(pluginNamespace string) codegen.IndexEntry {
	return codegen.IndexEntry{ClassName: QualifiedClassName(pluginNamespace), Path: FileName}
}

// BuildHelperFile composes Capability/Capability.php from a resolved map
func BuildHelperFile(origin, pluginNamespace string, m metadata.CapabilityMap) codegen.ModuleFile {
	source := m.SourcePath
	if source == "" {
		source = "[fallback]"
	}
	return codegen.ComposeFile(codegen.FileSpec{
		FileName:   FileName,
		Namespace:  Namespace(pluginNamespace),
		Docblock:   []string{"Source: " + origin + " → capability-map (" + source + ")"},
		Metadata:   &metadata.CapabilityHelperMetadata{Name: ClassName, Map: m},
		Uses:       []string{"WP_Error", "WP_REST_Request"},
		Statements: []ast.Stmt{buildClass(m)},
	})
}

func buildClass(m metadata.CapabilityMap) *ast.Class {
	entries := make([]*ast.ArrayItem, 0, len(m.Definitions))
	for _, d := range m.Definitions {
		fields := []*ast.ArrayItem{
			ast.KV("capability", ast.Str(d.Capability)),
			ast.KV("appliesTo", ast.Str(string(d.AppliesTo))),
		}
		if d.Binding != "" {
			fields = append(fields, ast.KV("binding", ast.Str(d.Binding)))
		}
		entries = append(entries, ast.KV(d.Key, ast.Arr(fields...)))
	}

	return ast.NewClass(ClassName, ast.ModifierFinal, nil, []ast.Stmt{
		ast.NewClassConst(ast.ModifierPrivate, ast.NewConst("CAPABILITY_MAP", ast.Arr(entries...))),
		ast.NewClassConst(ast.ModifierPrivate, ast.NewConst("FALLBACK", ast.Arr(
			ast.KV("capability", ast.Str(m.Fallback.Capability)),
			ast.KV("appliesTo", ast.Str(string(m.Fallback.AppliesTo))),
		))),
		callbackMethod(),
		enforceMethod(),
		definitionMethod(),
		bindingMethod(),
		errorMethod(),
	})
}

func selfConst(name string) *ast.ClassConstFetch {
	return ast.NewClassConstFetch("self", name)
}

func selfCall(name string, args ...ast.Expr) *ast.StaticCall {
	return ast.NewStaticCall("self", name, args...)
}

func staticMethod(name string, flags int, params []*ast.Param, returnType string, stmts ...ast.Stmt) *ast.ClassMethod {
	var rt ast.TypeNode
	if returnType != "" {
		rt = ast.TypeName(returnType)
	}
	return ast.NewClassMethod(name, flags|ast.ModifierStatic, params, rt, stmts)
}

func callbackMethod() *ast.ClassMethod {
	closure := ast.NewClosure(true,
		[]*ast.Param{ast.NewParam("request", ast.TypeName("WP_REST_Request"))},
		[]*ast.ClosureUse{ast.NewClosureUse("capability_key")},
		[]ast.Stmt{ast.Ret(selfCall("enforce", ast.Var("capability_key"), ast.Var("request")))},
	)
	m := staticMethod("callback", ast.ModifierPublic,
		[]*ast.Param{ast.NewParam("capability_key", ast.TypeName("string"))},
		"callable",
		ast.Ret(closure),
	)
	ast.Docblock(m, "Create a permission callback closure for a capability.")
	return m
}

func enforceMethod() *ast.ClassMethod {
	fallback := func(field string) ast.Expr {
		return ast.Bin(ast.OpCoalesce, ast.Dim(ast.Var("definition"), field), ast.Dim(selfConst("FALLBACK"), field))
	}

	objectScope := []ast.Stmt{
		ast.AssignStmt("binding", ast.Bin(ast.OpCoalesce, selfCall("get_binding", ast.Var("definition")), ast.Str("id"))),
		ast.AssignStmt("object_id", ast.NewMethodCall(ast.Var("request"), "get_param", ast.Var("binding"))),
		ast.NewIf(ast.Bin(ast.OpIdentical, ast.Null(), ast.Var("object_id")),
			ast.Ret(selfCall("create_error",
				ast.Str("wpk_capability_object_missing"),
				ast.Call("sprintf",
					ast.Str(`Object identifier parameter "%s" missing for capability "%s".`),
					ast.Var("binding"),
					ast.Var("capability_key"),
				),
			)),
		),
		ast.Blank(),
		ast.AssignStmt("allowed", ast.Call("current_user_can", ast.Var("capability"), ast.Var("object_id"))),
	}

	m := staticMethod("enforce", ast.ModifierPublic,
		[]*ast.Param{
			ast.NewParam("capability_key", ast.TypeName("string")),
			ast.NewParam("request", ast.TypeName("WP_REST_Request")),
		},
		"",
		ast.AssignStmt("definition", selfCall("get_definition", ast.Var("capability_key"))),
		ast.AssignStmt("capability", fallback("capability")),
		ast.AssignStmt("scope", fallback("appliesTo")),
		ast.Blank(),
		ast.NewIfElse(ast.Bin(ast.OpIdentical, ast.Str(string(metadata.ScopeObject)), ast.Var("scope")),
			objectScope,
			[]ast.Stmt{ast.AssignStmt("allowed", ast.Call("current_user_can", ast.Var("capability")))},
		),
		ast.Blank(),
		ast.NewIf(ast.Var("allowed"), ast.Ret(ast.True())),
		ast.Blank(),
		ast.Ret(selfCall("create_error",
			ast.Str("wpk_capability_denied"),
			ast.Str("You are not allowed to perform this action."),
			ast.Arr(
				ast.KV("capability_key", ast.Var("capability_key")),
				ast.KV("capability", ast.Var("capability")),
			),
		)),
	)
	ast.Docblock(m, "Evaluate a capability against the current user.", "", "@return bool|WP_Error")
	return m
}

func definitionMethod() *ast.ClassMethod {
	entry := ast.NewArrayDimFetch(selfConst("CAPABILITY_MAP"), ast.Var("capability_key"))
	m := staticMethod("get_definition", ast.ModifierPrivate,
		[]*ast.Param{ast.NewParam("capability_key", ast.TypeName("string"))},
		"array",
		ast.NewIf(ast.NewIsset(entry), ast.Ret(ast.NewArrayDimFetch(selfConst("CAPABILITY_MAP"), ast.Var("capability_key")))),
		ast.Blank(),
		ast.Ret(selfConst("FALLBACK")),
	)
	ast.Docblock(m, "Retrieve the configuration for a capability key.")
	return m
}

func bindingMethod() *ast.ClassMethod {
	return staticMethod("get_binding", ast.ModifierPrivate,
		[]*ast.Param{ast.NewParam("definition", ast.TypeName("array"))},
		"?string",
		ast.AssignStmt("binding", ast.Bin(ast.OpCoalesce, ast.Dim(ast.Var("definition"), "binding"), ast.Null())),
		ast.NewIf(
			ast.Bin(ast.OpBooleanAnd,
				ast.Call("is_string", ast.Var("binding")),
				ast.Bin(ast.OpNotIdentical, ast.Str(""), ast.Var("binding")),
			),
			ast.Ret(ast.Var("binding")),
		),
		ast.Blank(),
		ast.Ret(ast.Null()),
	)
}

func errorMethod() *ast.ClassMethod {
	context := ast.NewParam("context", ast.TypeName("array"))
	context.Default = ast.Arr()
	return staticMethod("create_error", ast.ModifierPrivate,
		[]*ast.Param{
			ast.NewParam("code", ast.TypeName("string")),
			ast.NewParam("message", ast.TypeName("string")),
			context,
		},
		"WP_Error",
		ast.AssignStmt("payload", ast.Call("array_merge", ast.Arr(ast.KV("status", ast.IntLit(403))), ast.Var("context"))),
		ast.Blank(),
		ast.Ret(ast.NewNew("WP_Error", ast.Var("code"), ast.Var("message"), ast.Var("payload"))),
	)
}

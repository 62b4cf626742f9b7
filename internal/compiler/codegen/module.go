package codegen

import (
	"strings"

	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
)

// Guard comments delimiting the generated region of a file
const (
	BeginGuard = "// WPK:BEGIN AUTO"
	EndGuard   = "// WPK:END AUTO"
)

// FileSpec is the input of ComposeFile
type FileSpec struct {
	FileName  string
	Namespace string
	Docblock  []string
	Metadata  metadata.FileMetadata
	// Uses are import entries as produced by DeriveImports
	Uses       []string
	Statements []ast.Stmt
}

// ComposeFile lays out a PHP program:
//
//	declare(strict_types=1);
//	namespace X;
//	/** docblock */
//	// WPK:BEGIN AUTO
//	use ...;
//	<statements>
//	// WPK:END AUTO
func ComposeFile(spec FileSpec) ModuleFile {
	inner := make([]ast.Stmt, 0, len(spec.Uses)+len(spec.Statements)+3)

	header := ast.NewNop()
	ast.Docblock(header, append([]string{generatedHeader, ""}, spec.Docblock...)...)
	inner = append(inner, header, ast.NewNop(BeginGuard))
	for _, u := range spec.Uses {
		inner = append(inner, useStatement(u))
	}
	inner = append(inner, spec.Statements...)
	inner = append(inner, ast.NewNop(EndGuard))

	program := []ast.Stmt{
		ast.NewDeclare(ast.NewDeclareItem("strict_types", ast.IntLit(1))),
		ast.NewNamespace(ast.NewName(strings.Split(spec.Namespace, `\`)...), inner),
	}

	return ModuleFile{
		FileName:  spec.FileName,
		Namespace: spec.Namespace,
		Docblock:  append([]string(nil), spec.Docblock...),
		Metadata:  spec.Metadata,
		Program:   program,
	}
}

// RestNamespace is the PHP namespace generated controllers live in
func RestNamespace(pluginNamespace string) string {
	return GeneratedNamespace(pluginNamespace) + `\Rest`
}

// GeneratedNamespace is the root namespace of all generated classes
func GeneratedNamespace(pluginNamespace string) string {
	return strings.TrimSuffix(pluginNamespace, `\`) + `\Generated`
}

// ControllerFileName is the path of a controller relative to the
// generated directory
func ControllerFileName(className string) string {
	return "Rest/" + className + ".php"
}

// BodyOf returns the statements between the guard comments of a composed
// program, without the use statements
func BodyOf(program []ast.Stmt) []ast.Stmt {
	for _, s := range program {
		ns, ok := s.(*ast.Namespace)
		if !ok {
			continue
		}
		var out []ast.Stmt
		inside := false
		for _, st := range ns.Stmts {
			if nop, isNop := st.(*ast.Nop); isNop {
				comments := ast.LineComments(nop)
				if len(comments) == 1 && comments[0] == BeginGuard {
					inside = true
					continue
				}
				if len(comments) == 1 && comments[0] == EndGuard {
					break
				}
			}
			if _, isUse := st.(*ast.Use); inside && !isUse {
				out = append(out, st)
			}
		}
		return out
	}
	return nil
}

package codegen

import (
	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
)

// IndexFileName is the class map returned to the plugin bootstrap
const IndexFileName = "index.php"

// BuildIndexFile composes the class map:
//
//	require_once dirname(__DIR__) . '/plugin.php';
//	return array('Demo\Generated\Rest\BookController' => __DIR__ . '/Rest/BookController.php');
func BuildIndexFile(origin, pluginNamespace string, entries []IndexEntry) ModuleFile {
	items := make([]*ast.ArrayItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, ast.KV(e.ClassName, ast.Bin(ast.OpConcat, ast.NewMagicDir(), ast.Str("/"+e.Path))))
	}

	return ComposeFile(FileSpec{
		FileName:  IndexFileName,
		Namespace: GeneratedNamespace(pluginNamespace),
		Docblock:  IndexDocblock(origin),
		Metadata:  &metadata.IndexFileMetadata{Name: "index"},
		Statements: []ast.Stmt{
			ast.ExprStmt(ast.NewRequireOnce(ast.Bin(ast.OpConcat,
				ast.Call("dirname", ast.NewMagicDir()),
				ast.Str("/plugin.php"),
			))),
			ast.Ret(ast.Arr(items...)),
		},
	})
}

// indexEntries lists the generated classes in file order, followed by the
// additional entries, then runs the augmenters in order
func indexEntries(files []ModuleFile, opts ModuleOptions) []IndexEntry {
	var entries []IndexEntry
	for _, f := range files {
		class := classOf(f.Program)
		if class == nil {
			continue
		}
		entries = append(entries, IndexEntry{
			ClassName: f.Namespace + `\` + class.Name.Name,
			Path:      f.FileName,
		})
	}
	entries = append(entries, opts.AdditionalIndexEntries...)
	for _, augment := range opts.IndexAugmenters {
		if augment != nil {
			entries = augment(entries)
		}
	}
	return entries
}

func classOf(program []ast.Stmt) *ast.Class {
	for _, s := range BodyOf(program) {
		if c, ok := s.(*ast.Class); ok {
			return c
		}
	}
	return nil
}

// BuildBaseControllerFile composes the abstract controller file
func BuildBaseControllerFile(opts ModuleOptions) ModuleFile {
	fileName := opts.BaseControllerFileName
	if fileName == "" {
		fileName = ControllerFileName(BaseControllerClass)
	}
	return ComposeFile(FileSpec{
		FileName:   fileName,
		Namespace:  RestNamespace(opts.PluginNamespace),
		Docblock:   BaseControllerDocblock(opts.Origin, opts.SanitizedNamespace),
		Metadata:   &metadata.BaseControllerMetadata{Name: BaseControllerClass},
		Statements: []ast.Stmt{BuildBaseControllerClass(opts.SanitizedNamespace)},
	})
}

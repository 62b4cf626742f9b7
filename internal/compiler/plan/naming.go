package plan

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wpkernel/wpkgen/internal/compiler/routes"
	ustrings "github.com/wpkernel/wpkgen/internal/util/strings"
)

// namedGroup matches WordPress style placeholders such as (?P<id>\d+)
var namedGroup = regexp.MustCompile(`\(\?P<([A-Za-z_][A-Za-z0-9_]*)>[^)]*\)`)

// MethodName derives a controller method name from a route:
//
//	GET    /books                      -> getBooks
//	PUT    /books/:slug                -> putBooksBySlug
//	POST   /books/(?P<action>publish)  -> postBooksByAction
func MethodName(def routes.Definition) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(def.Method))

	path := namedGroup.ReplaceAllString(def.Path, ":$1")
	for _, seg := range routes.Segments(path) {
		if param, ok := strings.CutPrefix(seg, ":"); ok {
			b.WriteString("By")
			b.WriteString(ustrings.ToPascalCase(param))
			continue
		}
		b.WriteString(ustrings.ToPascalCase(seg))
	}
	return b.String()
}

// methodNames assigns unique names in route order; later collisions get a
// numeric suffix
func methodNames(defs []routes.Definition) []string {
	used := make(map[string]int, len(defs))
	out := make([]string, len(defs))
	for i, def := range defs {
		name := MethodName(def)
		if n := used[name]; n > 0 {
			used[name] = n + 1
			name += strconv.Itoa(n + 1)
		} else {
			used[name] = 1
		}
		out[i] = name
	}
	return out
}

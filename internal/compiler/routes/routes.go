// Package routes classifies route definitions relative to the collection
// path they share, so callers never annotate a route kind by hand.
package routes

import (
	"strings"

	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
)

// Definition is a route as declared in a plan
type Definition struct {
	Method     string `json:"method" yaml:"method"`
	Path       string `json:"path" yaml:"path"`
	Capability string `json:"capability,omitempty" yaml:"capability,omitempty"`
}

var identityKinds = map[string]metadata.RouteKind{
	"GET":    metadata.RouteGet,
	"PUT":    metadata.RouteUpdate,
	"PATCH":  metadata.RouteUpdate,
	"DELETE": metadata.RouteRemove,
}

var collectionKinds = map[string]metadata.RouteKind{
	"GET":  metadata.RouteList,
	"POST": metadata.RouteCreate,
}

// NormalizePath guarantees a leading slash, collapses repeated slashes and
// strips a trailing slash. The root path stays "/".
func NormalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	var b strings.Builder
	prevSlash := false
	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	collapsed := b.String()
	if collapsed == "/" {
		return collapsed
	}
	trimmed := strings.TrimRight(collapsed, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

// Segments splits a normalised path into its non-empty segments
func Segments(path string) []string {
	if path == "/" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// BasePaths is the set of canonical collection paths of a resource
type BasePaths map[string]struct{}

// Has reports whether path is a canonical base path
func (b BasePaths) Has(path string) bool {
	_, ok := b[path]
	return ok
}

// CanonicalBasePaths infers the collection paths of a route set.
//
// The first pass strips the identity suffix from routes ending in
// ":param" whose prefix holds no other placeholder. When no route matches,
// the second pass takes the static paths with the fewest segments; if even
// those are nested deeper than one segment, no base path is inferred.
func CanonicalBasePaths(defs []Definition, param string) BasePaths {
	bases := make(BasePaths)
	for _, d := range defs {
		if base, ok := identityBase(NormalizePath(d.Path), param); ok {
			bases[base] = struct{}{}
		}
	}
	if len(bases) > 0 {
		return bases
	}

	type staticRoute struct {
		path     string
		segments int
	}
	var statics []staticRoute
	minimal := -1
	for _, d := range defs {
		path := NormalizePath(d.Path)
		if strings.Contains(path, ":") {
			continue
		}
		n := len(Segments(path))
		statics = append(statics, staticRoute{path: path, segments: n})
		if minimal < 0 || n < minimal {
			minimal = n
		}
	}
	if len(statics) == 0 || minimal > 1 {
		return bases
	}
	for _, s := range statics {
		if s.segments == minimal {
			bases[s.path] = struct{}{}
		}
	}
	return bases
}

// DetermineKind classifies a single route against the base paths
func DetermineKind(def Definition, bases BasePaths, param string) metadata.RouteKind {
	path := NormalizePath(def.Path)
	method := strings.ToUpper(def.Method)

	if base, ok := identityBase(path, param); ok && bases.Has(base) {
		if kind, ok := identityKinds[method]; ok {
			return kind
		}
		return metadata.RouteCustom
	}
	if !bases.Has(path) {
		return metadata.RouteCustom
	}
	if kind, ok := collectionKinds[method]; ok {
		return kind
	}
	return metadata.RouteCustom
}

// UsesIdentity reports whether a route reads the identity parameter: every
// get, update and remove route does, as does any path with ":param".
func UsesIdentity(def Definition, kind metadata.RouteKind, param string) bool {
	switch kind {
	case metadata.RouteGet, metadata.RouteUpdate, metadata.RouteRemove:
		return true
	}
	placeholder := ":" + strings.ToLower(param)
	return strings.Contains(strings.ToLower(def.Path), placeholder)
}

// IsWriteMethod reports whether method mutates state
func IsWriteMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

func identityBase(path, param string) (string, bool) {
	segments := Segments(path)
	if len(segments) == 0 || segments[len(segments)-1] != ":"+param {
		return "", false
	}
	prefix := segments[:len(segments)-1]
	for _, s := range prefix {
		if strings.HasPrefix(s, ":") {
			return "", false
		}
	}
	if len(prefix) == 0 {
		return "/", true
	}
	return "/" + strings.Join(prefix, "/"), true
}

package routes

import (
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
)

// CacheKeys holds the raw cache key segments per route kind. List and Get
// are always present in a plan; the mutation kinds are optional.
type CacheKeys struct {
	List   []any `json:"list" yaml:"list"`
	Get    []any `json:"get" yaml:"get"`
	Create []any `json:"create,omitempty" yaml:"create,omitempty"`
	Update []any `json:"update,omitempty" yaml:"update,omitempty"`
	Remove []any `json:"remove,omitempty" yaml:"remove,omitempty"`
}

// For returns a copy of the segments for kind. Custom routes get nil; a
// kind without a descriptor gets an empty slice.
func (c CacheKeys) For(kind metadata.RouteKind) []any {
	var src []any
	switch kind {
	case metadata.RouteList:
		src = c.List
	case metadata.RouteGet:
		src = c.Get
	case metadata.RouteCreate:
		src = c.Create
	case metadata.RouteUpdate:
		src = c.Update
	case metadata.RouteRemove:
		src = c.Remove
	default:
		return nil
	}
	out := make([]any, len(src))
	copy(out, src)
	return out
}

// MutationMetadata names the tag that marks mutating routes
type MutationMetadata struct {
	ChannelTag string `json:"channelTag" yaml:"channelTag"`
}

var mutationKinds = map[metadata.RouteKind]string{
	metadata.RouteCreate: "create",
	metadata.RouteUpdate: "update",
	metadata.RouteRemove: "delete",
}

// BuildControllerMetadata classifies every route and builds the initial
// controller metadata of a resource
func BuildControllerMetadata(
	name string,
	id identity.Resolved,
	defs []Definition,
	cacheKeys CacheKeys,
	mutation *MutationMetadata,
) *metadata.ControllerMetadata {
	bases := CanonicalBasePaths(defs, id.Param)

	out := &metadata.ControllerMetadata{
		Name:     name,
		Identity: id,
		Routes:   make([]metadata.RouteMetadata, 0, len(defs)),
	}
	for _, d := range defs {
		kind := DetermineKind(d, bases, id.Param)
		route := metadata.RouteMetadata{
			Method:        d.Method,
			Path:          d.Path,
			Kind:          kind,
			CacheSegments: cacheKeys.For(kind),
		}
		if mutation != nil && mutation.ChannelTag != "" {
			if m, ok := mutationKinds[kind]; ok {
				route.Tags = map[string]string{mutation.ChannelTag: m}
			}
		}
		out.Routes = append(out.Routes, route)
	}
	return out
}

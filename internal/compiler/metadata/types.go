// Package metadata holds the per-file metadata that travels alongside each
// generated program: route classification, cache dependencies and helper
// signatures for controllers, and the descriptors of the support files.
package metadata

import (
	json "github.com/goccy/go-json"

	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
)

// Kind identifies the structural role of a generated file
type Kind string

const (
	KindResourceController Kind = "resource-controller"
	KindBaseController     Kind = "base-controller"
	KindIndexFile          Kind = "index-file"
	KindCapabilityHelper   Kind = "capability-helper"
)

// FileMetadata is implemented by every metadata variant. The kind is fixed
// by the concrete type and always serialised as "kind".
type FileMetadata interface {
	FileKind() Kind
	cloneFile() FileMetadata
}

// RouteKind is the inferred role of a route
type RouteKind string

const (
	RouteList   RouteKind = "list"
	RouteGet    RouteKind = "get"
	RouteCreate RouteKind = "create"
	RouteUpdate RouteKind = "update"
	RouteRemove RouteKind = "remove"
	RouteCustom RouteKind = "custom"
)

// CacheOperation is what a route does to a cache entry
type CacheOperation string

const (
	CacheRead       CacheOperation = "read"
	CachePrime      CacheOperation = "prime"
	CacheInvalidate CacheOperation = "invalidate"
)

// RouteMetadata describes one route of a controller. CacheSegments holds
// the raw segments from the plan; a nil slice means the route has no cache
// key (custom routes), an empty slice means the kind has no descriptor.
type RouteMetadata struct {
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	Kind          RouteKind         `json:"kind"`
	CacheSegments []any             `json:"cacheSegments,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// CacheEvent is a normalised cache dependency recorded by a route builder
type CacheEvent struct {
	Scope       RouteKind      `json:"scope"`
	Operation   CacheOperation `json:"operation"`
	Segments    []string       `json:"segments"`
	Description string         `json:"description,omitempty"`
}

// CacheMetadata is the append-only cache event log of a controller
type CacheMetadata struct {
	Events []CacheEvent `json:"events"`
}

// HelperMetadata lists helper method signatures, without duplicates
type HelperMetadata struct {
	Methods []string `json:"methods"`
}

// ControllerMetadata is the metadata of a resource controller file
type ControllerMetadata struct {
	Name     string            `json:"name"`
	Identity identity.Resolved `json:"identity"`
	Routes   []RouteMetadata   `json:"routes"`
	Cache    *CacheMetadata    `json:"cache,omitempty"`
	Helpers  *HelperMetadata   `json:"helpers,omitempty"`
}

func (*ControllerMetadata) FileKind() Kind { return KindResourceController }

func (m *ControllerMetadata) MarshalJSON() ([]byte, error) {
	type plain ControllerMetadata
	return marshalWithKind(KindResourceController, (*plain)(m))
}

// Clone returns a deep copy
func (m *ControllerMetadata) Clone() *ControllerMetadata {
	if m == nil {
		return nil
	}
	out := &ControllerMetadata{
		Name:     m.Name,
		Identity: m.Identity,
		Routes:   make([]RouteMetadata, len(m.Routes)),
	}
	for i, r := range m.Routes {
		out.Routes[i] = r.Clone()
	}
	if m.Cache != nil {
		events := make([]CacheEvent, len(m.Cache.Events))
		for i, e := range m.Cache.Events {
			e.Segments = append([]string{}, e.Segments...)
			events[i] = e
		}
		out.Cache = &CacheMetadata{Events: events}
	}
	if m.Helpers != nil {
		out.Helpers = &HelperMetadata{Methods: append([]string{}, m.Helpers.Methods...)}
	}
	return out
}

func (m *ControllerMetadata) cloneFile() FileMetadata { return m.Clone() }

// Clone returns a deep copy of the route metadata
func (r RouteMetadata) Clone() RouteMetadata {
	out := r
	if r.CacheSegments != nil {
		out.CacheSegments = make([]any, len(r.CacheSegments))
		for i, s := range r.CacheSegments {
			out.CacheSegments[i] = cloneValue(s)
		}
	}
	if r.Tags != nil {
		out.Tags = make(map[string]string, len(r.Tags))
		for k, v := range r.Tags {
			out.Tags[k] = v
		}
	}
	return out
}

// BaseControllerMetadata describes the shared abstract controller
type BaseControllerMetadata struct {
	Name string `json:"name,omitempty"`
}

func (*BaseControllerMetadata) FileKind() Kind { return KindBaseController }

func (m *BaseControllerMetadata) MarshalJSON() ([]byte, error) {
	type plain BaseControllerMetadata
	return marshalWithKind(KindBaseController, (*plain)(m))
}

func (m *BaseControllerMetadata) cloneFile() FileMetadata {
	c := *m
	return &c
}

// IndexFileMetadata describes the class map index
type IndexFileMetadata struct {
	Name string `json:"name,omitempty"`
}

func (*IndexFileMetadata) FileKind() Kind { return KindIndexFile }

func (m *IndexFileMetadata) MarshalJSON() ([]byte, error) {
	type plain IndexFileMetadata
	return marshalWithKind(KindIndexFile, (*plain)(m))
}

func (m *IndexFileMetadata) cloneFile() FileMetadata {
	c := *m
	return &c
}

// CapabilityScope is what a capability check is evaluated against
type CapabilityScope string

const (
	ScopeResource CapabilityScope = "resource"
	ScopeObject   CapabilityScope = "object"
)

// CapabilityDefinition is one resolved capability map entry
type CapabilityDefinition struct {
	Key        string          `json:"key"`
	Capability string          `json:"capability"`
	AppliesTo  CapabilityScope `json:"appliesTo"`
	Binding    string          `json:"binding,omitempty"`
	Source     string          `json:"source"`
}

// CapabilityFallback is applied to keys with no definition
type CapabilityFallback struct {
	Capability string          `json:"capability"`
	AppliesTo  CapabilityScope `json:"appliesTo"`
}

// CapabilityMap is the resolved capability map of a plan
type CapabilityMap struct {
	SourcePath  string                 `json:"sourcePath,omitempty"`
	Fallback    CapabilityFallback     `json:"fallback"`
	Definitions []CapabilityDefinition `json:"definitions"`
	Missing     []string               `json:"missing"`
	Unused      []string               `json:"unused"`
	Warnings    []errors.Warning       `json:"warnings"`
}

// CapabilityHelperMetadata describes the generated capability helper class
type CapabilityHelperMetadata struct {
	Name string        `json:"name,omitempty"`
	Map  CapabilityMap `json:"map"`
}

func (*CapabilityHelperMetadata) FileKind() Kind { return KindCapabilityHelper }

func (m *CapabilityHelperMetadata) MarshalJSON() ([]byte, error) {
	type plain CapabilityHelperMetadata
	return marshalWithKind(KindCapabilityHelper, (*plain)(m))
}

func (m *CapabilityHelperMetadata) cloneFile() FileMetadata {
	c := *m
	c.Map.Definitions = append([]CapabilityDefinition{}, m.Map.Definitions...)
	c.Map.Missing = append([]string{}, m.Map.Missing...)
	c.Map.Unused = append([]string{}, m.Map.Unused...)
	c.Map.Warnings = append([]errors.Warning{}, m.Map.Warnings...)
	return &c
}

// Clone deep-copies any file metadata
func Clone(m FileMetadata) FileMetadata {
	if m == nil {
		return nil
	}
	return m.cloneFile()
}

func marshalWithKind(kind Kind, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(kind)
	if err != nil {
		return nil, err
	}
	// body is a JSON object; splice "kind" in as the first member
	out := make([]byte, 0, len(body)+len(head)+10)
	out = append(out, `{"kind":`...)
	out = append(out, head...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	out = append(out, body[1:]...)
	return out, nil
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// Package plan loads declarative plan documents and compiles them into the
// resource plans consumed by the code generator.
package plan

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/wpkernel/wpkgen/internal/compiler/capability"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/identity"
	"github.com/wpkernel/wpkgen/internal/compiler/routes"
	"github.com/wpkernel/wpkgen/internal/compiler/storage"
)

// Format is the encoding of a plan document
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the format from a file extension; anything that is not
// .json is read as YAML
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Document is a plan file
type Document struct {
	Origin                string                      `json:"origin" yaml:"origin"`
	Namespace             string                      `json:"namespace" yaml:"namespace"`
	SanitizedNamespace    string                      `json:"sanitizedNamespace" yaml:"sanitizedNamespace"`
	IncludeBaseController bool                        `json:"includeBaseController" yaml:"includeBaseController"`
	Capabilities          map[string]capability.Entry `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Resources             []Resource                  `json:"resources" yaml:"resources"`

	// Path is the file the document was loaded from, if any
	Path string `json:"-" yaml:"-"`
}

// Resource is one REST resource of a plan
type Resource struct {
	Name             string               `json:"name" yaml:"name"`
	SchemaKey        string               `json:"schemaKey,omitempty" yaml:"schemaKey,omitempty"`
	SchemaProvenance string               `json:"schemaProvenance,omitempty" yaml:"schemaProvenance,omitempty"`
	Identity         *identity.Descriptor `json:"identity,omitempty" yaml:"identity,omitempty"`
	CacheKeys        routes.CacheKeys     `json:"cacheKeys" yaml:"cacheKeys"`
	Storage          *Storage             `json:"storage,omitempty" yaml:"storage,omitempty"`
	Routes           []Route              `json:"routes" yaml:"routes"`
}

// Route is a route entry of a resource
type Route struct {
	Method     string `json:"method" yaml:"method"`
	Path       string `json:"path" yaml:"path"`
	Capability string `json:"capability,omitempty" yaml:"capability,omitempty"`
	Summary    string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Definition converts the entry to a normalised route definition
func (r Route) Definition() routes.Definition {
	return routes.Definition{
		Method:     strings.ToUpper(strings.TrimSpace(r.Method)),
		Path:       routes.NormalizePath(r.Path),
		Capability: strings.TrimSpace(r.Capability),
	}
}

// Storage is the storage block of a resource. Which fields apply depends
// on Mode.
type Storage struct {
	Mode string `json:"mode" yaml:"mode"`

	// wp-option
	Option string `json:"option,omitempty" yaml:"option,omitempty"`

	// wp-taxonomy
	Taxonomy     string `json:"taxonomy,omitempty" yaml:"taxonomy,omitempty"`
	Hierarchical bool   `json:"hierarchical,omitempty" yaml:"hierarchical,omitempty"`

	// wp-post
	PostType   string                  `json:"postType,omitempty" yaml:"postType,omitempty"`
	Statuses   []string                `json:"statuses,omitempty" yaml:"statuses,omitempty"`
	Supports   []string                `json:"supports,omitempty" yaml:"supports,omitempty"`
	Meta       map[string]MetaSpec     `json:"meta,omitempty" yaml:"meta,omitempty"`
	Taxonomies map[string]TaxonomySpec `json:"taxonomies,omitempty" yaml:"taxonomies,omitempty"`
}

// MetaSpec describes a registered post meta key
type MetaSpec struct {
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Single *bool  `json:"single,omitempty" yaml:"single,omitempty"`
}

// TaxonomySpec binds a request field to a taxonomy
type TaxonomySpec struct {
	Taxonomy     string `json:"taxonomy" yaml:"taxonomy"`
	Hierarchical bool   `json:"hierarchical,omitempty" yaml:"hierarchical,omitempty"`
}

// Strategy converts the block into a storage descriptor. Map-valued
// fields are emitted in key order so repeated builds are identical.
func (s *Storage) Strategy(loc errors.Location) (storage.Strategy, error) {
	loc.Field = "storage.mode"
	switch storage.Mode(s.Mode) {
	case storage.ModeTransient:
		return &storage.Transient{}, nil
	case storage.ModeOption:
		if s.Option == "" {
			loc.Field = "storage.option"
			return nil, errors.NewMissingField(loc)
		}
		return &storage.Option{Option: s.Option}, nil
	case storage.ModeTaxonomy:
		if s.Taxonomy == "" {
			loc.Field = "storage.taxonomy"
			return nil, errors.NewMissingField(loc)
		}
		return &storage.Taxonomy{Taxonomy: s.Taxonomy, Hierarchical: s.Hierarchical}, nil
	case storage.ModePost:
		return s.contentPost(loc)
	}
	return nil, errors.NewUnknownStorageMode(loc, s.Mode, storage.KnownModes())
}

func (s *Storage) contentPost(loc errors.Location) (storage.Strategy, error) {
	out := &storage.ContentPost{
		PostType: s.PostType,
		Statuses: append([]string(nil), s.Statuses...),
		Supports: append([]string(nil), s.Supports...),
	}

	for _, key := range sortedKeys(s.Meta) {
		spec := s.Meta[key]
		typ := storage.MetaType(spec.Type)
		if !typ.Valid() {
			loc.Field = "storage.meta." + key + ".type"
			return nil, errors.NewInvalidMetaType(loc, spec.Type, storage.MetaTypes())
		}
		out.Meta = append(out.Meta, storage.MetaField{Key: key, Type: typ, Single: spec.Single})
	}

	for _, key := range sortedKeys(s.Taxonomies) {
		spec := s.Taxonomies[key]
		if spec.Taxonomy == "" {
			loc.Field = "storage.taxonomies." + key + ".taxonomy"
			return nil, errors.NewMissingField(loc)
		}
		out.Taxonomies = append(out.Taxonomies, storage.TaxonomyField{
			Key:          key,
			Taxonomy:     spec.Taxonomy,
			Hierarchical: spec.Hierarchical,
		})
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads and decodes a plan file
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	doc, err := Parse(data, FormatFor(path))
	if err != nil {
		if ce, ok := errors.As(err); ok {
			return nil, ce.WithFile(path)
		}
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// Parse decodes a plan document. Unknown fields are rejected so typos in
// a plan surface instead of silently producing fallbacks.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
	}
	if err != nil {
		return nil, errors.NewInvalidPlanDocument("", err)
	}
	return &doc, nil
}

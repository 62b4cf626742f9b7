// Package capability resolves the capability map referenced by routes and
// builds the PHP helper class that enforces it at request time.
package capability

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
)

// DefaultCapability is enforced for keys the map does not define
const DefaultCapability = "manage_options"

// Entry is one capability map entry. In documents it is either a bare
// capability string or an object.
type Entry struct {
	Capability string `json:"capability" yaml:"capability"`
	AppliesTo  string `json:"appliesTo,omitempty" yaml:"appliesTo,omitempty"`
	Binding    string `json:"binding,omitempty" yaml:"binding,omitempty"`
}

type entryFields Entry

// UnmarshalYAML accepts "key: edit_posts" as well as the object form
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*e = Entry{Capability: node.Value}
		return nil
	}
	var f entryFields
	if err := node.Decode(&f); err != nil {
		return err
	}
	*e = Entry(f)
	return nil
}

// UnmarshalJSON accepts a string or an object
func (e *Entry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Entry{Capability: s}
		return nil
	}
	var f entryFields
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("capability entry must be a string or an object: %w", err)
	}
	*e = Entry(f)
	return nil
}

// Reference is a route enforcing a capability
type Reference struct {
	Resource string `json:"resource"`
	Method   string `json:"method"`
	Path     string `json:"path"`
}

// Hint lists every route referencing one capability key
type Hint struct {
	Key        string      `json:"key"`
	References []Reference `json:"references"`
}

// HintSet accumulates hints in first-seen order
type HintSet struct {
	order []string
	refs  map[string][]Reference
}

// Add records that ref enforces key
func (h *HintSet) Add(key string, ref Reference) {
	if h.refs == nil {
		h.refs = make(map[string][]Reference)
	}
	if _, ok := h.refs[key]; !ok {
		h.order = append(h.order, key)
	}
	h.refs[key] = append(h.refs[key], ref)
}

// Hints returns the collected hints
func (h *HintSet) Hints() []Hint {
	out := make([]Hint, 0, len(h.order))
	for _, k := range h.order {
		out = append(out, Hint{Key: k, References: h.refs[k]})
	}
	return out
}

// Input is everything Resolve needs
type Input struct {
	// SourcePath is where the map came from, for diagnostics
	SourcePath string
	// Map is nil when the plan has no capability map
	Map   map[string]Entry
	Hints []Hint
	// Identities maps resource names to their identity parameter; it is
	// used to infer the binding of object-scoped capabilities
	Identities map[string]string
}

// Resolve checks the referenced capability keys against the map.
// Definitions, missing and unused keys are sorted. Soft problems become
// warnings on the result; only an invalid scope is an error.
func Resolve(in Input) (metadata.CapabilityMap, error) {
	referenced := make(map[string]bool, len(in.Hints))
	for _, h := range in.Hints {
		referenced[h.Key] = true
	}

	out := metadata.CapabilityMap{
		SourcePath:  in.SourcePath,
		Fallback:    metadata.CapabilityFallback{Capability: DefaultCapability, AppliesTo: metadata.ScopeResource},
		Definitions: []metadata.CapabilityDefinition{},
		Missing:     []string{},
		Unused:      []string{},
		Warnings:    []errors.Warning{},
	}

	if in.Map == nil {
		out.Missing = sortedKeys(referenced)
		if len(out.Missing) > 0 {
			out.Warnings = append(out.Warnings, errors.NewCapabilityMapMissing(DefaultCapability, out.Missing))
		}
		return out, nil
	}

	missing := make(map[string]bool, len(referenced))
	for k := range referenced {
		missing[k] = true
	}

	keys := make([]string, 0, len(in.Map))
	for k := range in.Map {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		entry := in.Map[key]
		if !referenced[key] {
			out.Unused = append(out.Unused, key)
		}

		scope, err := parseScope(key, entry.AppliesTo)
		if err != nil {
			return metadata.CapabilityMap{}, err
		}
		binding := strings.TrimSpace(entry.Binding)
		if binding == "" && scope == metadata.ScopeObject {
			binding = deriveBinding(key, in.Hints, in.Identities)
		}
		if scope == metadata.ScopeObject && binding == "" {
			out.Warnings = append(out.Warnings, errors.NewCapabilityBindingMissing(key))
		}

		out.Definitions = append(out.Definitions, metadata.CapabilityDefinition{
			Key:        key,
			Capability: entry.Capability,
			AppliesTo:  scope,
			Binding:    binding,
			Source:     "map",
		})
		delete(missing, key)
	}

	out.Missing = sortedKeys(missing)
	if len(out.Missing) > 0 {
		out.Warnings = append(out.Warnings, errors.NewCapabilityEntriesMissing(out.Missing))
	}
	if len(out.Unused) > 0 {
		out.Warnings = append(out.Warnings, errors.NewCapabilityEntriesUnused(out.Unused))
	}
	return out, nil
}

func parseScope(key, raw string) (metadata.CapabilityScope, error) {
	switch metadata.CapabilityScope(raw) {
	case "", metadata.ScopeResource:
		return metadata.ScopeResource, nil
	case metadata.ScopeObject:
		return metadata.ScopeObject, nil
	}
	return "", errors.NewInvalidCapabilityScope(errors.Location{Field: "capabilities." + key + ".appliesTo"}, raw)
}

// deriveBinding uses the identity parameter of the referencing resources
// when they all agree on one
func deriveBinding(key string, hints []Hint, identities map[string]string) string {
	params := make(map[string]bool)
	for _, h := range hints {
		if h.Key != key {
			continue
		}
		for _, ref := range h.References {
			if p := identities[ref.Resource]; p != "" {
				params[p] = true
			}
		}
	}
	if len(params) != 1 {
		return ""
	}
	for p := range params {
		return p
	}
	return ""
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

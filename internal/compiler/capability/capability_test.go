package capability

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/codegen"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
)

func bookHints() []Hint {
	var set HintSet
	set.Add("books.manage", Reference{Resource: "book", Method: "POST", Path: "/books"})
	set.Add("books.edit", Reference{Resource: "book", Method: "PUT", Path: "/books/:slug"})
	set.Add("books.manage", Reference{Resource: "book", Method: "DELETE", Path: "/books/:slug"})
	return set.Hints()
}

func warningCodes(ws []errors.Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

func TestHintSetKeepsFirstSeenOrder(t *testing.T) {
	hints := bookHints()
	require.Len(t, hints, 2)
	assert.Equal(t, "books.manage", hints[0].Key)
	assert.Len(t, hints[0].References, 2)
	assert.Equal(t, "books.edit", hints[1].Key)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		input       Input
		definitions []string
		missing     []string
		unused      []string
		warnings    []string
	}{
		{
			name:     "no map",
			input:    Input{Hints: bookHints()},
			missing:  []string{"books.edit", "books.manage"},
			warnings: []string{"capability-map.missing"},
		},
		{
			name: "complete map",
			input: Input{
				SourcePath: "wpkgen.plan.yaml",
				Map: map[string]Entry{
					"books.manage": {Capability: "edit_posts"},
					"books.edit":   {Capability: "edit_post", AppliesTo: "object"},
				},
				Hints:      bookHints(),
				Identities: map[string]string{"book": "slug"},
			},
			definitions: []string{"books.edit", "books.manage"},
		},
		{
			name: "missing and unused",
			input: Input{
				Map: map[string]Entry{
					"books.manage": {Capability: "edit_posts"},
					"books.export": {Capability: "export"},
				},
				Hints: bookHints(),
			},
			definitions: []string{"books.export", "books.manage"},
			missing:     []string{"books.edit"},
			unused:      []string{"books.export"},
			warnings:    []string{"capability-map.entries.missing", "capability-map.entries.unused"},
		},
		{
			name: "object scope without binding",
			input: Input{
				Map:   map[string]Entry{"books.edit": {Capability: "edit_post", AppliesTo: "object"}},
				Hints: []Hint{{Key: "books.edit"}},
			},
			definitions: []string{"books.edit"},
			warnings:    []string{"capability-map.binding.missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Resolve(tt.input)
			require.NoError(t, err)

			keys := []string{}
			for _, d := range m.Definitions {
				keys = append(keys, d.Key)
			}
			if tt.definitions == nil {
				tt.definitions = []string{}
			}
			if tt.missing == nil {
				tt.missing = []string{}
			}
			if tt.unused == nil {
				tt.unused = []string{}
			}
			assert.Equal(t, tt.definitions, keys)
			assert.Equal(t, tt.missing, m.Missing)
			assert.Equal(t, tt.unused, m.Unused)
			assert.Equal(t, tt.warnings, nilIfEmpty(warningCodes(m.Warnings)))
			assert.Equal(t, DefaultCapability, m.Fallback.Capability)
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestResolveDerivesObjectBinding(t *testing.T) {
	m, err := Resolve(Input{
		Map:        map[string]Entry{"books.edit": {Capability: "edit_post", AppliesTo: "object"}},
		Hints:      bookHints(),
		Identities: map[string]string{"book": "slug"},
	})
	require.NoError(t, err)
	require.Len(t, m.Definitions, 1)
	assert.Equal(t, metadata.ScopeObject, m.Definitions[0].AppliesTo)
	assert.Equal(t, "slug", m.Definitions[0].Binding)
}

func TestResolveRejectsUnknownScope(t *testing.T) {
	_, err := Resolve(Input{Map: map[string]Entry{"books.edit": {Capability: "edit_post", AppliesTo: "site"}}})
	require.Error(t, err)
	ce, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrInvalidCapabilityScope, ce.Code)
}

func TestEntryDecoding(t *testing.T) {
	doc := "books.manage: edit_posts\nbooks.edit:\n  capability: edit_post\n  appliesTo: object\n  binding: slug\n"
	var fromYAML map[string]Entry
	require.NoError(t, yaml.Unmarshal([]byte(doc), &fromYAML))

	var fromJSON map[string]Entry
	require.NoError(t, json.Unmarshal([]byte(`{"books.manage":"edit_posts","books.edit":{"capability":"edit_post","appliesTo":"object","binding":"slug"}}`), &fromJSON))

	want := map[string]Entry{
		"books.manage": {Capability: "edit_posts"},
		"books.edit":   {Capability: "edit_post", AppliesTo: "object", Binding: "slug"},
	}
	assert.Equal(t, want, fromYAML)
	assert.Equal(t, want, fromJSON)
}

func TestBuildHelperFile(t *testing.T) {
	m, err := Resolve(Input{
		Map:   map[string]Entry{"books.manage": {Capability: "edit_posts"}},
		Hints: bookHints()[:1],
	})
	require.NoError(t, err)

	file := BuildHelperFile("wpk.config.ts", `Demo\Plugin`, m)
	assert.Equal(t, FileName, file.FileName)
	assert.Equal(t, `Demo\Plugin\Generated\Capability`, file.Namespace)
	assert.Equal(t, metadata.KindCapabilityHelper, file.Metadata.FileKind())
	assert.Equal(t, []string{"Source: wpk.config.ts → capability-map ([fallback])"}, file.Docblock)

	body := codegen.BodyOf(file.Program)
	require.Len(t, body, 1)
	class := body[0].(*ast.Class)
	assert.Equal(t, ast.ModifierFinal, class.Flags)

	var methods []string
	for _, s := range class.Stmts {
		if cm, ok := s.(*ast.ClassMethod); ok {
			methods = append(methods, cm.Name.Name)
			assert.NotZero(t, cm.Flags&ast.ModifierStatic, cm.Name.Name)
		}
	}
	assert.Equal(t, []string{"callback", "enforce", "get_definition", "get_binding", "create_error"}, methods)

	constMap := class.Stmts[0].(*ast.ClassConst).Consts[0]
	assert.Equal(t, "CAPABILITY_MAP", constMap.Name.Name)
	items := constMap.Value.(*ast.Array).Items
	require.Len(t, items, 1)
	assert.Equal(t, "books.manage", items[0].Key.(*ast.String).Value)
}

func TestQualifiedClassName(t *testing.T) {
	assert.Equal(t, `Demo\Plugin\Generated\Capability\Capability`, QualifiedClassName(`Demo\Plugin`))
	assert.Equal(t, codegen.IndexEntry{
		ClassName: `Demo\Plugin\Generated\Capability\Capability`,
		Path:      "Capability/Capability.php",
	}, IndexEntry(`Demo\Plugin`))
}

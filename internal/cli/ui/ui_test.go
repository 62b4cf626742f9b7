package ui

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wpkernel/wpkgen/internal/compiler/errors"
)

func TestMessageFormat(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		contains []string
	}{
		{
			name:     "error with context",
			msg:      Message{Level: LevelError, Context: "resource not found", Problem: "Cannot find resource 'bok'.", NoColor: true},
			contains: []string{"❌ RESOURCE NOT FOUND: Cannot find resource 'bok'."},
		},
		{
			name:     "warning",
			msg:      Message{Level: LevelWarning, Problem: "stale cache", NoColor: true},
			contains: []string{"⚠️ stale cache"},
		},
		{
			name: "suggestions and help",
			msg: Message{
				Problem:      "x",
				Suggestions:  []string{"book", "books"},
				HelpCommands: []string{"See all resources: wpkgen inspect"},
				NoColor:      true,
			},
			contains: []string{"Did you mean: book, books?", "→ See all resources: wpkgen inspect"},
		},
		{
			name:     "detail is indented",
			msg:      Message{Problem: "x", Detail: "line one\nline two\n", NoColor: true},
			contains: []string{"   line one\n   line two\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.msg.Format()
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			assert.NotContains(t, out, "\x1b[")
		})
	}
}

func TestBuildFailed(t *testing.T) {
	var buf bytes.Buffer
	diag := errors.NewMissingField(errors.Location{Field: "namespace"})
	BuildFailed(&buf, errors.ErrorList{diag}, true)

	out := buf.String()
	assert.Contains(t, out, "BUILD FAILED: 1 problem(s) in the plan")
	assert.Contains(t, out, string(errors.ErrMissingField))

	buf.Reset()
	BuildFailed(&buf, fmt.Errorf("failed to read plan: boom"), true)
	assert.Contains(t, buf.String(), "BUILD FAILED: failed to read plan: boom")
}

func TestWarning(t *testing.T) {
	var buf bytes.Buffer
	Warning(&buf, errors.NewRouteCapabilityMissing("book", "POST", "/books/(?P<action>publish)"), true)

	assert.Equal(t, "⚠️  Write route missing capability. [route.capability.missing]\n"+
		"     method: POST\n"+
		"     path: /books/(?P<action>publish)\n"+
		"     resource: book\n", buf.String())
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "METHOD", "PATH")
	table.AddRow("GET", "/books")
	table.AddRow("DELETE")
	table.Render()

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "METHOD  PATH\n──────  ──────\nGET     /books\nDELETE\n", buf.String())
}

func TestKeyValues(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValues(&buf, true)
	kv.Add("build", "abc")
	kv.Add("namespace", `Demo\Plugin`)
	kv.Render()

	assert.Equal(t, "build:     abc\nnamespace: Demo\\Plugin\n", buf.String())
}

func TestSuggest(t *testing.T) {
	candidates := []string{"book", "settings", "books", "author"}

	tests := []struct {
		target string
		max    int
		want   []string
	}{
		{"bok", 2, []string{"book", "books"}},
		{"BOOK", 0, []string{"book"}},
		{"setings", 1, []string{"settings"}},
		{"zzz", 1, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, Suggest(tt.target, candidates, tt.max))
		})
	}
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
	assert.Equal(t, 0, Levenshtein("", ""))
	assert.Equal(t, 4, Levenshtein("", "book"))
	assert.Equal(t, 1, Levenshtein("café", "cafe"))
}

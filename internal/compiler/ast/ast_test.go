package ast

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeJSONCarriesNodeType(t *testing.T) {
	stmt := AssignStmt("value", Call("get_transient", Var("key")))

	data, err := json.Marshal(stmt)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "Stmt_Expression", decoded["nodeType"])
	expr := decoded["expr"].(map[string]any)
	assert.Equal(t, "Expr_Assign", expr["nodeType"])
	call := expr["expr"].(map[string]any)
	assert.Equal(t, "Expr_FuncCall", call["nodeType"])
	name := call["name"].(map[string]any)
	assert.Equal(t, []any{"get_transient"}, name["parts"])
}

func TestAttributesSerialiseCommentsAndAnnotations(t *testing.T) {
	nop := NewNop("// TODO: Implement handler for [GET] /books.")
	nop.Attrs().Set("wpk:fallback", map[string]string{"method": "GET"})

	data, err := json.Marshal(nop)
	require.NoError(t, err)

	var decoded struct {
		NodeType   string `json:"nodeType"`
		Attributes struct {
			Comments []Comment         `json:"comments"`
			Fallback map[string]string `json:"wpk:fallback"`
		} `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "Stmt_Nop", decoded.NodeType)
	require.Len(t, decoded.Attributes.Comments, 1)
	assert.Equal(t, CommentLine, decoded.Attributes.Comments[0].Kind)
	assert.Equal(t, "GET", decoded.Attributes.Fallback["method"])
}

func TestBinaryOpKind(t *testing.T) {
	op := Bin(OpSmallerOrEqual, Var("id"), IntLit(0))
	assert.Equal(t, "Expr_BinaryOp_SmallerOrEqual", op.NodeType())
	assert.Equal(t, OpSmallerOrEqual, op.Op())
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		input    string
		wantType string
	}{
		{"string", "Identifier"},
		{"array", "Identifier"},
		{"WP_Post", "Name"},
		{"?WP_Term", "NullableType"},
		{"?string", "NullableType"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.wantType, TypeName(tt.input).NodeType())
		})
	}
}

func TestDocblock(t *testing.T) {
	method := NewClassMethod("get_resource_name", ModifierPublic, nil, TypeName("string"), nil)
	Docblock(method, "Handle [GET] /books.", "", "@wp-kernel route-kind list")

	require.Len(t, method.Attrs().Comments, 1)
	assert.Equal(t, CommentDoc, method.Attrs().Comments[0].Kind)
	assert.Equal(t,
		"/**\n * Handle [GET] /books.\n *\n * @wp-kernel route-kind list\n */",
		method.Attrs().Comments[0].Text,
	)
}

func TestInspectVisitsNestedNames(t *testing.T) {
	stmts := []Stmt{
		NewIf(Not(NewInstanceof(Var("post"), "WP_Post")),
			ReturnWPError("wpk_book_not_found", "Book not found.", 404),
		),
		AssignStmt("query", NewNew("WP_Query", Var("args"))),
	}

	var names []string
	InspectAll(stmts, func(n Node) bool {
		if name, ok := n.(*Name); ok {
			names = append(names, name.String())
		}
		return true
	})

	assert.Equal(t, []string{"WP_Post", "WP_Error", "WP_Query"}, names)
}

func TestInspectCanSkipChildren(t *testing.T) {
	stmt := NewIf(IsWPError("result"), Ret(Var("result")))

	visited := 0
	Inspect(stmt, func(n Node) bool {
		visited++
		return n.NodeType() != "Stmt_If"
	})

	assert.Equal(t, 1, visited)
}

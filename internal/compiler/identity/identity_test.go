package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpkernel/wpkgen/internal/compiler/ast"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   *Descriptor
		want Resolved
	}{
		{"nil defaults to numeric id", nil, Resolved{Type: Number, Param: "id"}},
		{"number default param", &Descriptor{Type: Number}, Resolved{Type: Number, Param: "id"}},
		{"string default param", &Descriptor{Type: String}, Resolved{Type: String, Param: "slug"}},
		{"explicit param", &Descriptor{Type: String, Param: "uuid"}, Resolved{Type: String, Param: "uuid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.in))
		})
	}
}

func TestDefaultErrorCodeFactory(t *testing.T) {
	code := DefaultErrorCodeFactory("BookCategory")
	assert.Equal(t, "wpk_book_category_missing_identifier", code("missing_identifier"))
}

func TestNormalizeVariable(t *testing.T) {
	name, err := NormalizeVariable("  $slug ")
	require.NoError(t, err)
	assert.Equal(t, "slug", name)

	_, err = NormalizeVariable(" $ ")
	require.Error(t, err)
	ce, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrEmptyVariableName, ce.Code)
}

func TestNumericGuardsCheckNullBeforeCast(t *testing.T) {
	stmts, err := BuildGuards(GuardOptions{
		Identity:   Resolved{Type: Number, Param: "id"},
		PascalName: "Book",
	})
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	nullCheck := stmts[0].(*ast.If)
	cond := nullCheck.Cond.(*ast.BinaryOp)
	assert.Equal(t, ast.OpIdentical, cond.Op())
	assert.Equal(t, "null", cond.Left.(*ast.ConstFetch).Name.String())
	assertErrorReturn(t, nullCheck.Stmts[0], "wpk_book_missing_identifier", "Missing identifier for Book.")

	cast := stmts[1].(*ast.Expression).Expr.(*ast.Assign)
	assert.Equal(t, "Expr_Cast_Int", cast.Expr.NodeType())

	bound := stmts[2].(*ast.If)
	boundCond := bound.Cond.(*ast.BinaryOp)
	assert.Equal(t, ast.OpSmallerOrEqual, boundCond.Op())
	assert.Equal(t, int64(0), boundCond.Right.(*ast.Int).Value)
	assertErrorReturn(t, bound.Stmts[0], "wpk_book_invalid_identifier", "Invalid identifier for Book.")
}

func TestStringGuardsTrimWithoutNumericComparison(t *testing.T) {
	stmts, err := BuildGuards(GuardOptions{
		Identity:   Resolved{Type: String, Param: "$slug"},
		PascalName: "Book",
		ErrorCode:  func(suffix string) string { return "custom_" + suffix },
	})
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	guard := stmts[0].(*ast.If)
	cond := guard.Cond.(*ast.BinaryOp)
	assert.Equal(t, ast.OpBooleanOr, cond.Op())
	assertErrorReturn(t, guard.Stmts[0], "custom_missing_identifier", "Missing identifier for Book.")

	assign := stmts[1].(*ast.Expression).Expr.(*ast.Assign)
	assert.Equal(t, "slug", assign.Var.(*ast.Variable).Name)
	trim := assign.Expr.(*ast.FuncCall)
	assert.Equal(t, "trim", trim.Name.String())
	assert.Equal(t, "Expr_Cast_String", trim.Args[0].Value.NodeType())

	ast.InspectAll(stmts, func(n ast.Node) bool {
		if op, ok := n.(*ast.BinaryOp); ok {
			assert.NotEqual(t, ast.OpSmallerOrEqual, op.Op())
		}
		assert.NotEqual(t, "Expr_Cast_Int", n.NodeType())
		return true
	})
}

func TestBuildGuardsRejectsEmptyParam(t *testing.T) {
	_, err := BuildGuards(GuardOptions{Identity: Resolved{Type: Number, Param: ""}, PascalName: "Book"})
	require.Error(t, err)
}

func TestBuildExtraction(t *testing.T) {
	stmt, err := BuildExtraction("slug")
	require.NoError(t, err)

	assign := stmt.(*ast.Expression).Expr.(*ast.Assign)
	call := assign.Expr.(*ast.MethodCall)
	assert.Equal(t, "get_param", call.Name.Name)
	assert.Equal(t, "slug", call.Args[0].Value.(*ast.String).Value)
}

func assertErrorReturn(t *testing.T, stmt ast.Stmt, code, message string) {
	t.Helper()
	ret, ok := stmt.(*ast.Return)
	require.True(t, ok)
	newErr := ret.Expr.(*ast.New)
	assert.Equal(t, "WP_Error", newErr.Class.String())
	assert.Equal(t, code, newErr.Args[0].Value.(*ast.String).Value)
	assert.Equal(t, message, newErr.Args[1].Value.(*ast.String).Value)
}

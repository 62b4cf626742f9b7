package ast

import "strings"

// Shorthands used by the statement builders. They keep generated code
// readable at the call site; every one of them returns a plain node.

// Var is shorthand for NewVariable
func Var(name string) *Variable { return NewVariable(name) }

// Str is shorthand for NewString
func Str(value string) *String { return NewString(value) }

// IntLit is shorthand for NewInt
func IntLit(value int64) *Int { return NewInt(value) }

// True returns the true constant
func True() *ConstFetch { return NewConstFetch("true") }

// False returns the false constant
func False() *ConstFetch { return NewConstFetch("false") }

// Null returns the null constant
func Null() *ConstFetch { return NewConstFetch("null") }

// Bool returns true or false
func Bool(v bool) *ConstFetch {
	if v {
		return True()
	}
	return False()
}

// Call is shorthand for NewFuncCall
func Call(name string, args ...Expr) *FuncCall { return NewFuncCall(name, args...) }

// This returns "$this"
func This() *Variable { return NewVariable("this") }

// ThisCall calls a method on "$this"
func ThisCall(method string, args ...Expr) *MethodCall {
	return NewMethodCall(This(), method, args...)
}

// Bin is shorthand for NewBinaryOp
func Bin(op string, left, right Expr) *BinaryOp { return NewBinaryOp(op, left, right) }

// Not is shorthand for NewBooleanNot
func Not(e Expr) *BooleanNot { return NewBooleanNot(e) }

// KV creates a string-keyed array item
func KV(key string, value Expr) *ArrayItem { return NewArrayItem(NewString(key), value) }

// Item creates a list array item
func Item(value Expr) *ArrayItem { return NewArrayItem(nil, value) }

// Arr is shorthand for NewArray
func Arr(items ...*ArrayItem) *Array { return NewArray(items...) }

// StrList creates a list of string literals
func StrList(values ...string) *Array {
	items := make([]*ArrayItem, 0, len(values))
	for _, v := range values {
		items = append(items, Item(NewString(v)))
	}
	return NewArray(items...)
}

// Dim is "$var['key']"
func Dim(v Expr, key string) *ArrayDimFetch { return NewArrayDimFetch(v, NewString(key)) }

// Push is "$var[] = value;"
func Push(name string, value Expr) *Expression {
	return NewExpression(NewAssign(NewArrayDimFetch(NewVariable(name), nil), value))
}

// AssignStmt is "$name = expr;"
func AssignStmt(name string, e Expr) *Expression {
	return NewExpression(NewAssign(NewVariable(name), e))
}

// AssignDimStmt is "$name['key'] = expr;"
func AssignDimStmt(name, key string, e Expr) *Expression {
	return NewExpression(NewAssign(Dim(NewVariable(name), key), e))
}

// ExprStmt is shorthand for NewExpression
func ExprStmt(e Expr) *Expression { return NewExpression(e) }

// Ret is shorthand for NewReturn
func Ret(e Expr) *Return { return NewReturn(e) }

// Blank returns an empty statement rendered as a blank line
func Blank() *Nop { return NewNop() }

// TypeName creates a type node: builtin scalar types become identifiers,
// everything else a class name. A leading "?" produces a nullable type.
func TypeName(name string) TypeNode {
	if strings.HasPrefix(name, "?") {
		return NewNullableType(TypeName(name[1:]))
	}
	switch name {
	case "array", "bool", "callable", "float", "int", "iterable", "mixed", "object", "string", "void":
		return NewIdentifier(name)
	}
	return NewName(strings.Split(name, `\`)...)
}

// Docblock attaches a doc comment built from lines to a node
func Docblock(n Node, lines ...string) {
	if len(lines) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString("/**\n")
	for _, line := range lines {
		if line == "" {
			b.WriteString(" *\n")
			continue
		}
		b.WriteString(" * ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(" */")
	attrs := n.Attrs()
	attrs.Comments = append(attrs.Comments, Comment{Kind: CommentDoc, Text: b.String()})
}

// LineComments returns the text of the line comments attached to a node
func LineComments(n Node) []string {
	var out []string
	for _, c := range n.Attrs().Comments {
		if c.Kind == CommentLine {
			out = append(out, c.Text)
		}
	}
	return out
}

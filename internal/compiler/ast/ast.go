// Package ast defines the PHP syntax tree emitted by the wpkgen compiler.
// Nodes serialise to the JSON shape understood by nikic/php-parser's
// JsonDecoder, so an external printer can turn a program into PHP source.
package ast

import (
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// Node is the base interface for all PHP AST nodes
type Node interface {
	// NodeType returns the php-parser discriminator, e.g. "Stmt_Class".
	NodeType() string
	// Attrs returns the mutable attribute bag of the node.
	Attrs() *Attributes
	node()
}

// Expr is a node usable in expression position
type Expr interface {
	Node
	expr()
}

// Stmt is a node usable in statement position
type Stmt interface {
	Node
	stmt()
}

// TypeNode is a node usable as a parameter or return type
type TypeNode interface {
	Node
	typeNode()
}

// Comment kinds understood by php-parser
const (
	CommentLine = "Comment"
	CommentDoc  = "Comment_Doc"
)

// Comment is a comment attached to a node
type Comment struct {
	Kind string `json:"nodeType"`
	Text string `json:"text"`
}

// Attributes carries comments and free-form annotations for a node.
// Annotations are serialised next to the comments, keyed by name.
type Attributes struct {
	Comments []Comment
	values   map[string]any
}

// Set stores an annotation on the node
func (a *Attributes) Set(key string, value any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	a.values[key] = value
}

// Get returns a previously stored annotation
func (a *Attributes) Get(key string) (any, bool) {
	if a.values == nil {
		return nil, false
	}
	v, ok := a.values[key]
	return v, ok
}

// Keys returns the annotation keys in sorted order
func (a *Attributes) Keys() []string {
	keys := make([]string, 0, len(a.values))
	for k := range a.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON emits comments and annotations as a single object
func (a Attributes) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.values)+1)
	for k, v := range a.values {
		out[k] = v
	}
	if len(a.Comments) > 0 {
		out["comments"] = a.Comments
	}
	return json.Marshal(out)
}

// base is embedded by every node and holds the discriminator
type base struct {
	Kind       string     `json:"nodeType"`
	Attributes Attributes `json:"attributes"`
}

func (b *base) NodeType() string   { return b.Kind }
func (b *base) Attrs() *Attributes { return &b.Attributes }
func (b *base) node()              {}

func newBase(nodeType string) base { return base{Kind: nodeType} }

type exprBase struct{ base }

func (exprBase) expr() {}

type stmtBase struct{ base }

func (stmtBase) stmt() {}

func newExpr(nodeType string) exprBase { return exprBase{newBase(nodeType)} }
func newStmt(nodeType string) stmtBase { return stmtBase{newBase(nodeType)} }

// Modifier flags as defined by php-parser's Modifiers class
const (
	ModifierPublic    = 1
	ModifierProtected = 2
	ModifierPrivate   = 4
	ModifierStatic    = 8
	ModifierAbstract  = 16
	ModifierFinal     = 32
)

// Use statement types
const (
	UseUnknown  = 0
	UseNormal   = 1
	UseFunction = 2
	UseConstant = 3
)

// Name is a (possibly qualified) class, function or constant name
type Name struct {
	base
	Parts []string `json:"parts"`
}

func (*Name) typeNode() {}

// String joins the name parts with a namespace separator
func (n *Name) String() string {
	return strings.Join(n.Parts, `\`)
}

// Identifier is an unqualified name: methods, properties, builtin types
type Identifier struct {
	base
	Name string `json:"name"`
}

func (*Identifier) typeNode() {}

// NullableType wraps a type with a leading "?"
type NullableType struct {
	base
	Type TypeNode `json:"type"`
}

func (*NullableType) typeNode() {}

// Param is a function or method parameter
type Param struct {
	base
	AttrGroups []Node    `json:"attrGroups"`
	Flags      int       `json:"flags"`
	Type       TypeNode  `json:"type"`
	ByRef      bool      `json:"byRef"`
	Variadic   bool      `json:"variadic"`
	Var        *Variable `json:"var"`
	Default    Expr      `json:"default"`
	Hooks      []Node    `json:"hooks"`
}

// Arg is a call argument
type Arg struct {
	base
	Name   *Identifier `json:"name"`
	Value  Expr        `json:"value"`
	ByRef  bool        `json:"byRef"`
	Unpack bool        `json:"unpack"`
}

// ArrayItem is a single key/value entry in an array literal
type ArrayItem struct {
	base
	Key    Expr `json:"key"`
	Value  Expr `json:"value"`
	ByRef  bool `json:"byRef"`
	Unpack bool `json:"unpack"`
}

// DeclareItem is a single directive in a declare statement
type DeclareItem struct {
	base
	Key   *Identifier `json:"key"`
	Value Expr        `json:"value"`
}

// UseItem is a single imported name in a use statement
type UseItem struct {
	base
	Type  int         `json:"type"`
	Name  *Name       `json:"name"`
	Alias *Identifier `json:"alias"`
}

// Const is a single constant in a class constant declaration
type Const struct {
	base
	Name  *Identifier `json:"name"`
	Value Expr        `json:"value"`
}

// ClosureUse is a variable captured by a closure
type ClosureUse struct {
	base
	Var   *Variable `json:"var"`
	ByRef bool      `json:"byRef"`
}

// NewName creates a name from its namespace parts
func NewName(parts ...string) *Name {
	return &Name{base: newBase("Name"), Parts: parts}
}

// NewIdentifier creates an identifier node
func NewIdentifier(name string) *Identifier {
	return &Identifier{base: newBase("Identifier"), Name: name}
}

// NewNullableType creates a nullable type wrapper
func NewNullableType(t TypeNode) *NullableType {
	return &NullableType{base: newBase("NullableType"), Type: t}
}

// NewParam creates a parameter with an optional type
func NewParam(name string, typ TypeNode) *Param {
	return &Param{
		base:       newBase("Param"),
		AttrGroups: []Node{},
		Type:       typ,
		Var:        NewVariable(name),
		Hooks:      []Node{},
	}
}

// NewVariadicParam creates a "...$name" parameter
func NewVariadicParam(name string, typ TypeNode) *Param {
	p := NewParam(name, typ)
	p.Variadic = true
	return p
}

// NewArg wraps an expression as a positional argument
func NewArg(value Expr) *Arg {
	return &Arg{base: newBase("Arg"), Value: value}
}

// NewArrayItem creates an array entry; key may be nil for list entries
func NewArrayItem(key, value Expr) *ArrayItem {
	return &ArrayItem{base: newBase("ArrayItem"), Key: key, Value: value}
}

// NewDeclareItem creates a declare directive
func NewDeclareItem(key string, value Expr) *DeclareItem {
	return &DeclareItem{base: newBase("DeclareItem"), Key: NewIdentifier(key), Value: value}
}

// NewUseItem creates a use entry of the given use type
func NewUseItem(typ int, name *Name) *UseItem {
	return &UseItem{base: newBase("UseItem"), Type: typ, Name: name}
}

// NewConst creates a class constant entry
func NewConst(name string, value Expr) *Const {
	return &Const{base: newBase("Const"), Name: NewIdentifier(name), Value: value}
}

// NewClosureUse captures a variable by value
func NewClosureUse(name string) *ClosureUse {
	return &ClosureUse{base: newBase("ClosureUse"), Var: NewVariable(name)}
}

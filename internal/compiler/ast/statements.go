package ast

// Declare is "declare(key=value);"
type Declare struct {
	stmtBase
	Declares []*DeclareItem `json:"declares"`
	Stmts    []Stmt         `json:"stmts"`
}

// Namespace is a braced-less namespace block
type Namespace struct {
	stmtBase
	Name  *Name  `json:"name"`
	Stmts []Stmt `json:"stmts"`
}

// Use is an import statement
type Use struct {
	stmtBase
	Type int        `json:"type"`
	Uses []*UseItem `json:"uses"`
}

// Class is a class declaration
type Class struct {
	stmtBase
	AttrGroups []Node      `json:"attrGroups"`
	Flags      int         `json:"flags"`
	Name       *Identifier `json:"name"`
	Extends    *Name       `json:"extends"`
	Implements []*Name     `json:"implements"`
	Stmts      []Stmt      `json:"stmts"`
}

// ClassMethod is a method declaration inside a class
type ClassMethod struct {
	stmtBase
	AttrGroups []Node      `json:"attrGroups"`
	Flags      int         `json:"flags"`
	ByRef      bool        `json:"byRef"`
	Name       *Identifier `json:"name"`
	Params     []*Param    `json:"params"`
	ReturnType TypeNode    `json:"returnType"`
	Stmts      []Stmt      `json:"stmts"`
}

// ClassConst is a class constant declaration
type ClassConst struct {
	stmtBase
	AttrGroups []Node   `json:"attrGroups"`
	Flags      int      `json:"flags"`
	Type       TypeNode `json:"type"`
	Consts     []*Const `json:"consts"`
}

// If is an if statement with optional elseif/else branches
type If struct {
	stmtBase
	Cond    Expr      `json:"cond"`
	Stmts   []Stmt    `json:"stmts"`
	ElseIfs []*ElseIf `json:"elseifs"`
	Else    *Else     `json:"else"`
}

// ElseIf is an elseif branch
type ElseIf struct {
	base
	Cond  Expr   `json:"cond"`
	Stmts []Stmt `json:"stmts"`
}

// Else is an else branch
type Else struct {
	base
	Stmts []Stmt `json:"stmts"`
}

// Foreach is "foreach (expr as [key =>] value)"
type Foreach struct {
	stmtBase
	Expr     Expr   `json:"expr"`
	KeyVar   Expr   `json:"keyVar"`
	ByRef    bool   `json:"byRef"`
	ValueVar Expr   `json:"valueVar"`
	Stmts    []Stmt `json:"stmts"`
}

// Return is "return [expr];"
type Return struct {
	stmtBase
	Expr Expr `json:"expr"`
}

// Expression wraps an expression used as a statement
type Expression struct {
	stmtBase
	Expr Expr `json:"expr"`
}

// Nop is an empty statement; it carries comments and blank lines
type Nop struct {
	stmtBase
}

// Continue is "continue;"
type Continue struct {
	stmtBase
	Num Expr `json:"num"`
}

// Unset is "unset(vars...);"
type Unset struct {
	stmtBase
	Vars []Expr `json:"vars"`
}

// NewDeclare creates a declare statement without a body
func NewDeclare(items ...*DeclareItem) *Declare {
	return &Declare{stmtBase: newStmt("Stmt_Declare"), Declares: items}
}

// NewNamespace creates a namespace; a nil name denotes the global namespace
func NewNamespace(name *Name, stmts []Stmt) *Namespace {
	return &Namespace{stmtBase: newStmt("Stmt_Namespace"), Name: name, Stmts: stmts}
}

// NewUse creates an import of the given use type
func NewUse(typ int, names ...*Name) *Use {
	items := make([]*UseItem, 0, len(names))
	for _, n := range names {
		items = append(items, NewUseItem(UseUnknown, n))
	}
	return &Use{stmtBase: newStmt("Stmt_Use"), Type: typ, Uses: items}
}

// NewClass creates a class declaration
func NewClass(name string, flags int, extends *Name, stmts []Stmt) *Class {
	return &Class{
		stmtBase:   newStmt("Stmt_Class"),
		AttrGroups: []Node{},
		Flags:      flags,
		Name:       NewIdentifier(name),
		Extends:    extends,
		Implements: []*Name{},
		Stmts:      stmts,
	}
}

// NewClassMethod creates a method; a nil stmts slice declares an abstract body
func NewClassMethod(name string, flags int, params []*Param, returnType TypeNode, stmts []Stmt) *ClassMethod {
	return &ClassMethod{
		stmtBase:   newStmt("Stmt_ClassMethod"),
		AttrGroups: []Node{},
		Flags:      flags,
		Name:       NewIdentifier(name),
		Params:     nonNilParams(params),
		ReturnType: returnType,
		Stmts:      stmts,
	}
}

// NewClassConst creates a class constant declaration
func NewClassConst(flags int, consts ...*Const) *ClassConst {
	return &ClassConst{
		stmtBase:   newStmt("Stmt_ClassConst"),
		AttrGroups: []Node{},
		Flags:      flags,
		Consts:     consts,
	}
}

// NewIf creates an if statement
func NewIf(cond Expr, stmts ...Stmt) *If {
	return &If{stmtBase: newStmt("Stmt_If"), Cond: cond, Stmts: nonNilStmts(stmts), ElseIfs: []*ElseIf{}}
}

// NewIfElse creates an if statement with an else branch
func NewIfElse(cond Expr, then []Stmt, otherwise []Stmt) *If {
	stmt := NewIf(cond, then...)
	stmt.Else = &Else{base: newBase("Stmt_Else"), Stmts: nonNilStmts(otherwise)}
	return stmt
}

// NewElseIf creates an elseif branch
func NewElseIf(cond Expr, stmts ...Stmt) *ElseIf {
	return &ElseIf{base: newBase("Stmt_ElseIf"), Cond: cond, Stmts: nonNilStmts(stmts)}
}

// NewForeach creates a foreach loop; keyVar may be nil
func NewForeach(e Expr, keyVar, valueVar Expr, stmts ...Stmt) *Foreach {
	return &Foreach{
		stmtBase: newStmt("Stmt_Foreach"),
		Expr:     e,
		KeyVar:   keyVar,
		ValueVar: valueVar,
		Stmts:    nonNilStmts(stmts),
	}
}

// NewReturn creates a return statement; e may be nil
func NewReturn(e Expr) *Return {
	return &Return{stmtBase: newStmt("Stmt_Return"), Expr: e}
}

// NewExpression wraps an expression as a statement
func NewExpression(e Expr) *Expression {
	return &Expression{stmtBase: newStmt("Stmt_Expression"), Expr: e}
}

// NewNop creates an empty statement carrying the given line comments
func NewNop(comments ...string) *Nop {
	n := &Nop{stmtBase: newStmt("Stmt_Nop")}
	for _, c := range comments {
		n.Attributes.Comments = append(n.Attributes.Comments, Comment{Kind: CommentLine, Text: c})
	}
	return n
}

// NewContinue creates a continue statement
func NewContinue() *Continue {
	return &Continue{stmtBase: newStmt("Stmt_Continue")}
}

// NewUnset creates an unset statement
func NewUnset(vars ...Expr) *Unset {
	return &Unset{stmtBase: newStmt("Stmt_Unset"), Vars: vars}
}

func nonNilStmts(stmts []Stmt) []Stmt {
	if stmts == nil {
		return []Stmt{}
	}
	return stmts
}

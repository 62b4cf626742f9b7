package ast

// Binary operator kinds used by the generator
const (
	OpIdentical      = "Identical"
	OpNotIdentical   = "NotIdentical"
	OpSmaller        = "Smaller"
	OpSmallerOrEqual = "SmallerOrEqual"
	OpGreater        = "Greater"
	OpBooleanOr      = "BooleanOr"
	OpBooleanAnd     = "BooleanAnd"
	OpConcat         = "Concat"
	OpPlus           = "Plus"
	OpMinus          = "Minus"
	OpMul            = "Mul"
	OpDiv            = "Div"
	OpCoalesce       = "Coalesce"
)

// Cast kinds
const (
	CastInt    = "Int"
	CastDouble = "Double"
	CastString = "String"
	CastBool   = "Bool"
	CastArray  = "Array"
)

// Include kinds
const (
	IncludeRequireOnce = 4
)

// Variable is a "$name" reference
type Variable struct {
	exprBase
	Name string `json:"name"`
}

// Assign is "$var = expr"
type Assign struct {
	exprBase
	Var  Expr `json:"var"`
	Expr Expr `json:"expr"`
}

// BinaryOp covers every Expr_BinaryOp_* node
type BinaryOp struct {
	exprBase
	Left  Expr `json:"left"`
	Right Expr `json:"right"`
}

// Op returns the operator suffix, e.g. "Identical"
func (b *BinaryOp) Op() string {
	return b.Kind[len("Expr_BinaryOp_"):]
}

// BooleanNot is "!expr"
type BooleanNot struct {
	exprBase
	Expr Expr `json:"expr"`
}

// Cast covers every Expr_Cast_* node
type Cast struct {
	exprBase
	Expr Expr `json:"expr"`
}

// FuncCall is "name(args)"
type FuncCall struct {
	exprBase
	Name *Name  `json:"name"`
	Args []*Arg `json:"args"`
}

// MethodCall is "$var->name(args)"
type MethodCall struct {
	exprBase
	Var  Expr        `json:"var"`
	Name *Identifier `json:"name"`
	Args []*Arg      `json:"args"`
}

// StaticCall is "Class::name(args)"
type StaticCall struct {
	exprBase
	Class *Name       `json:"class"`
	Name  *Identifier `json:"name"`
	Args  []*Arg      `json:"args"`
}

// New is "new Class(args)"
type New struct {
	exprBase
	Class *Name  `json:"class"`
	Args  []*Arg `json:"args"`
}

// Instanceof is "expr instanceof Class"
type Instanceof struct {
	exprBase
	Expr  Expr  `json:"expr"`
	Class *Name `json:"class"`
}

// Ternary is "cond ? if : else"
type Ternary struct {
	exprBase
	Cond Expr `json:"cond"`
	If   Expr `json:"if"`
	Else Expr `json:"else"`
}

// Array is an array literal
type Array struct {
	exprBase
	Items []*ArrayItem `json:"items"`
}

// ArrayDimFetch is "$var[dim]"; a nil dim means "$var[]"
type ArrayDimFetch struct {
	exprBase
	Var Expr `json:"var"`
	Dim Expr `json:"dim"`
}

// PropertyFetch is "$var->name"
type PropertyFetch struct {
	exprBase
	Var  Expr        `json:"var"`
	Name *Identifier `json:"name"`
}

// ConstFetch is a bare constant such as true, false or null
type ConstFetch struct {
	exprBase
	Name *Name `json:"name"`
}

// ClassConstFetch is "Class::NAME"
type ClassConstFetch struct {
	exprBase
	Class *Name       `json:"class"`
	Name  *Identifier `json:"name"`
}

// Closure is an anonymous function
type Closure struct {
	exprBase
	AttrGroups []Node        `json:"attrGroups"`
	Static     bool          `json:"static"`
	ByRef      bool          `json:"byRef"`
	Params     []*Param      `json:"params"`
	Uses       []*ClosureUse `json:"uses"`
	ReturnType TypeNode      `json:"returnType"`
	Stmts      []Stmt        `json:"stmts"`
}

// Isset is "isset(vars...)"
type Isset struct {
	exprBase
	Vars []Expr `json:"vars"`
}

// Include covers include/require expressions
type Include struct {
	exprBase
	Expr Expr `json:"expr"`
	Type int  `json:"type"`
}

// String is a single-quoted string literal
type String struct {
	exprBase
	Value string `json:"value"`
}

// Int is an integer literal
type Int struct {
	exprBase
	Value int64 `json:"value"`
}

// Float is a floating point literal
type Float struct {
	exprBase
	Value float64 `json:"value"`
}

// MagicDir is the __DIR__ magic constant
type MagicDir struct {
	exprBase
}

// NewVariable creates a variable reference; the name excludes the "$"
func NewVariable(name string) *Variable {
	return &Variable{exprBase: newExpr("Expr_Variable"), Name: name}
}

// NewAssign creates an assignment expression
func NewAssign(v, e Expr) *Assign {
	return &Assign{exprBase: newExpr("Expr_Assign"), Var: v, Expr: e}
}

// NewBinaryOp creates a binary operation; op is one of the Op* constants
func NewBinaryOp(op string, left, right Expr) *BinaryOp {
	return &BinaryOp{exprBase: newExpr("Expr_BinaryOp_" + op), Left: left, Right: right}
}

// NewBooleanNot negates an expression
func NewBooleanNot(e Expr) *BooleanNot {
	return &BooleanNot{exprBase: newExpr("Expr_BooleanNot"), Expr: e}
}

// NewCast creates a cast; kind is one of the Cast* constants
func NewCast(kind string, e Expr) *Cast {
	return &Cast{exprBase: newExpr("Expr_Cast_" + kind), Expr: e}
}

// NewFuncCall creates a function call
func NewFuncCall(name string, args ...Expr) *FuncCall {
	return &FuncCall{exprBase: newExpr("Expr_FuncCall"), Name: NewName(name), Args: toArgs(args)}
}

// NewMethodCall creates an instance method call
func NewMethodCall(v Expr, name string, args ...Expr) *MethodCall {
	return &MethodCall{
		exprBase: newExpr("Expr_MethodCall"),
		Var:      v,
		Name:     NewIdentifier(name),
		Args:     toArgs(args),
	}
}

// NewStaticCall creates a static method call
func NewStaticCall(class, name string, args ...Expr) *StaticCall {
	return &StaticCall{
		exprBase: newExpr("Expr_StaticCall"),
		Class:    NewName(class),
		Name:     NewIdentifier(name),
		Args:     toArgs(args),
	}
}

// NewNew creates an object instantiation
func NewNew(class string, args ...Expr) *New {
	return &New{exprBase: newExpr("Expr_New"), Class: NewName(class), Args: toArgs(args)}
}

// NewInstanceof creates an instanceof check
func NewInstanceof(e Expr, class string) *Instanceof {
	return &Instanceof{exprBase: newExpr("Expr_Instanceof"), Expr: e, Class: NewName(class)}
}

// NewTernary creates a ternary expression
func NewTernary(cond, ifTrue, ifFalse Expr) *Ternary {
	return &Ternary{exprBase: newExpr("Expr_Ternary"), Cond: cond, If: ifTrue, Else: ifFalse}
}

// NewArray creates an array literal
func NewArray(items ...*ArrayItem) *Array {
	if items == nil {
		items = []*ArrayItem{}
	}
	return &Array{exprBase: newExpr("Expr_Array"), Items: items}
}

// NewArrayDimFetch creates an array access
func NewArrayDimFetch(v, dim Expr) *ArrayDimFetch {
	return &ArrayDimFetch{exprBase: newExpr("Expr_ArrayDimFetch"), Var: v, Dim: dim}
}

// NewPropertyFetch creates a property access
func NewPropertyFetch(v Expr, name string) *PropertyFetch {
	return &PropertyFetch{exprBase: newExpr("Expr_PropertyFetch"), Var: v, Name: NewIdentifier(name)}
}

// NewConstFetch creates a constant reference
func NewConstFetch(name string) *ConstFetch {
	return &ConstFetch{exprBase: newExpr("Expr_ConstFetch"), Name: NewName(name)}
}

// NewClassConstFetch creates a class constant reference
func NewClassConstFetch(class, name string) *ClassConstFetch {
	return &ClassConstFetch{
		exprBase: newExpr("Expr_ClassConstFetch"),
		Class:    NewName(class),
		Name:     NewIdentifier(name),
	}
}

// NewClosure creates a closure
func NewClosure(static bool, params []*Param, uses []*ClosureUse, stmts []Stmt) *Closure {
	return &Closure{
		exprBase:   newExpr("Expr_Closure"),
		AttrGroups: []Node{},
		Static:     static,
		Params:     nonNilParams(params),
		Uses:       nonNilUses(uses),
		Stmts:      stmts,
	}
}

// NewIsset creates an isset() check
func NewIsset(vars ...Expr) *Isset {
	return &Isset{exprBase: newExpr("Expr_Isset"), Vars: vars}
}

// NewRequireOnce creates a require_once expression
func NewRequireOnce(e Expr) *Include {
	return &Include{exprBase: newExpr("Expr_Include"), Expr: e, Type: IncludeRequireOnce}
}

// NewString creates a string literal
func NewString(value string) *String {
	return &String{exprBase: newExpr("Scalar_String"), Value: value}
}

// NewInt creates an integer literal
func NewInt(value int64) *Int {
	return &Int{exprBase: newExpr("Scalar_Int"), Value: value}
}

// NewFloat creates a float literal
func NewFloat(value float64) *Float {
	return &Float{exprBase: newExpr("Scalar_Float"), Value: value}
}

// NewMagicDir creates a __DIR__ reference
func NewMagicDir() *MagicDir {
	return &MagicDir{exprBase: newExpr("Scalar_MagicConst_Dir")}
}

func toArgs(exprs []Expr) []*Arg {
	args := make([]*Arg, 0, len(exprs))
	for _, e := range exprs {
		args = append(args, NewArg(e))
	}
	return args
}

func nonNilParams(params []*Param) []*Param {
	if params == nil {
		return []*Param{}
	}
	return params
}

func nonNilUses(uses []*ClosureUse) []*ClosureUse {
	if uses == nil {
		return []*ClosureUse{}
	}
	return uses
}

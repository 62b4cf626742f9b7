package ast

// Inspect traverses the tree rooted at n in depth-first order. It calls fn
// for every non-nil node; when fn returns false the children of that node
// are skipped.
func Inspect(n Node, fn func(Node) bool) {
	if isNil(n) || !fn(n) {
		return
	}
	for _, child := range Children(n) {
		Inspect(child, fn)
	}
}

// InspectAll runs Inspect over a statement list
func InspectAll(stmts []Stmt, fn func(Node) bool) {
	for _, s := range stmts {
		Inspect(s, fn)
	}
}

// Children returns the direct child nodes of n in source order
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if !isNil(c) {
				out = append(out, c)
			}
		}
	}
	addStmts := func(stmts []Stmt) {
		for _, s := range stmts {
			add(s)
		}
	}
	addExprs := func(exprs []Expr) {
		for _, e := range exprs {
			add(e)
		}
	}
	addArgs := func(args []*Arg) {
		for _, a := range args {
			add(a)
		}
	}
	addParams := func(params []*Param) {
		for _, p := range params {
			add(p)
		}
	}

	switch v := n.(type) {
	case *NullableType:
		add(v.Type)
	case *Param:
		add(v.Type, v.Var, v.Default)
	case *Arg:
		add(v.Value)
	case *ArrayItem:
		add(v.Key, v.Value)
	case *DeclareItem:
		add(v.Key, v.Value)
	case *UseItem:
		add(v.Name)
	case *Const:
		add(v.Value)
	case *ClosureUse:
		add(v.Var)

	case *Assign:
		add(v.Var, v.Expr)
	case *BinaryOp:
		add(v.Left, v.Right)
	case *BooleanNot:
		add(v.Expr)
	case *Cast:
		add(v.Expr)
	case *FuncCall:
		add(v.Name)
		addArgs(v.Args)
	case *MethodCall:
		add(v.Var, v.Name)
		addArgs(v.Args)
	case *StaticCall:
		add(v.Class, v.Name)
		addArgs(v.Args)
	case *New:
		add(v.Class)
		addArgs(v.Args)
	case *Instanceof:
		add(v.Expr, v.Class)
	case *Ternary:
		add(v.Cond, v.If, v.Else)
	case *Array:
		for _, item := range v.Items {
			add(item)
		}
	case *ArrayDimFetch:
		add(v.Var, v.Dim)
	case *PropertyFetch:
		add(v.Var, v.Name)
	case *ConstFetch:
		add(v.Name)
	case *ClassConstFetch:
		add(v.Class, v.Name)
	case *Closure:
		addParams(v.Params)
		for _, u := range v.Uses {
			add(u)
		}
		add(v.ReturnType)
		addStmts(v.Stmts)
	case *Isset:
		addExprs(v.Vars)
	case *Include:
		add(v.Expr)

	case *Declare:
		for _, d := range v.Declares {
			add(d)
		}
		addStmts(v.Stmts)
	case *Namespace:
		add(v.Name)
		addStmts(v.Stmts)
	case *Use:
		for _, u := range v.Uses {
			add(u)
		}
	case *Class:
		add(v.Name, v.Extends)
		for _, i := range v.Implements {
			add(i)
		}
		addStmts(v.Stmts)
	case *ClassMethod:
		add(v.Name)
		addParams(v.Params)
		add(v.ReturnType)
		addStmts(v.Stmts)
	case *ClassConst:
		add(v.Type)
		for _, c := range v.Consts {
			add(c)
		}
	case *If:
		add(v.Cond)
		addStmts(v.Stmts)
		for _, e := range v.ElseIfs {
			add(e)
		}
		add(v.Else)
	case *ElseIf:
		add(v.Cond)
		addStmts(v.Stmts)
	case *Else:
		addStmts(v.Stmts)
	case *Foreach:
		add(v.Expr, v.KeyVar, v.ValueVar)
		addStmts(v.Stmts)
	case *Return:
		add(v.Expr)
	case *Expression:
		add(v.Expr)
	case *Continue:
		add(v.Num)
	case *Unset:
		addExprs(v.Vars)
	}
	return out
}

// isNil reports whether an interface holds nothing or a typed nil pointer
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch v := n.(type) {
	case *Name:
		return v == nil
	case *Identifier:
		return v == nil
	case *Variable:
		return v == nil
	case *Else:
		return v == nil
	case *NullableType:
		return v == nil
	}
	return false
}

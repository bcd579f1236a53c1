package bound

// Walk traverses the tree starting from node in pre-order, calling fn for
// each node. If fn returns false, Walk skips that node's children. An
// explicit stack keeps deep trees off the goroutine stack.
func Walk(node Node, fn func(Node) bool) {
	if node == nil {
		return
	}
	stack := []Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			continue
		}
		kids := Children(n)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// Children returns the direct children of n in source order. Optional
// interface fields that are nil are skipped; *Block fields are checked
// explicitly since a typed nil does not compare equal to nil.
func Children(n Node) []Node {
	var out []Node
	add := func(ns ...Node) {
		for _, c := range ns {
			if c == nil {
				continue
			}
			out = append(out, c)
		}
	}

	switch n := n.(type) {
	case *Method:
		if n.Body != nil {
			add(n.Body)
		}

	// Statements
	case *Block:
		for _, s := range n.Stmts {
			add(s)
		}
	case *LocalDecl:
		add(n.Init)
	case *ExprStmt:
		add(n.X)
	case *If:
		add(n.Cond, n.Then, n.Else)
	case *While:
		add(n.Cond, n.Body)
	case *DoWhile:
		add(n.Body, n.Cond)
	case *For:
		for _, s := range n.Init {
			add(s)
		}
		add(n.Cond)
		for _, e := range n.Post {
			add(e)
		}
		add(n.Body)
	case *Foreach:
		add(n.Collection, n.Body)
	case *Return:
		add(n.Value)
	case *Throw:
		add(n.Value)
	case *Try:
		if n.Body != nil {
			add(n.Body)
		}
		for _, c := range n.Catches {
			add(c)
		}
		if n.Finally != nil {
			add(n.Finally)
		}
	case *Catch:
		add(n.Filter)
		if n.Body != nil {
			add(n.Body)
		}
	case *Switch:
		add(n.Scrutinee)
		for _, s := range n.Sections {
			add(s)
		}
	case *SwitchSection:
		for _, l := range n.Labels {
			add(l)
		}
		for _, s := range n.Body {
			add(s)
		}
	case *SwitchLabel:
		add(n.Pattern, n.When)

	// Expressions
	case *MemberAccess:
		add(n.Receiver)
	case *ElementAccess:
		add(n.Receiver, n.Index)
	case *TupleElement:
		add(n.Tuple)
	case *TupleLiteral:
		for _, e := range n.Elems {
			add(e)
		}
	case *New:
		for _, a := range n.Args {
			add(a)
		}
		for _, in := range n.Inits {
			add(in.Value)
		}
	case *Call:
		add(n.Receiver)
		for _, a := range n.Args {
			add(a)
		}
	case *Assign:
		add(n.Target, n.Value)
	case *Conversion:
		add(n.Operand)
	case *Binary:
		add(n.Left, n.Right)
	case *Not:
		add(n.Operand)
	case *Suppress:
		add(n.Operand)
	case *Conditional:
		add(n.Cond, n.Then, n.Else)
	case *Coalesce:
		add(n.Left, n.Right)
	case *ConditionalAccess:
		add(n.Receiver, n.Access)
	case *IsPattern:
		add(n.Operand, n.Pattern)
	case *SwitchExpr:
		add(n.Scrutinee)
		for _, a := range n.Arms {
			add(a.Pattern, a.When, a.Value)
		}
	case *ThrowExpr:
		add(n.Operand)

	// Patterns
	case *RecursivePattern:
		for _, p := range n.Positional {
			add(p)
		}
		for _, p := range n.Properties {
			add(p)
		}
	case *PropertySubpattern:
		add(n.Pattern)
	case *ListPattern:
		for _, p := range n.Elems {
			add(p)
		}
	case *NotPattern:
		add(n.Pattern)
	case *AndPattern:
		add(n.Left, n.Right)
	case *OrPattern:
		add(n.Left, n.Right)
	}
	return out
}

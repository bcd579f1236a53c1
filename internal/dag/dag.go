// Package dag compiles patterns into a shared decision automaton.
//
// A Dag is an arena of nodes addressed by NodeID. Test nodes branch on the
// outcome of a test against a temp, Eval nodes compute a temp from its parent,
// Guard nodes branch on an arm's `when` clause and Leaf nodes name the
// matching arm or Fail. Identical sub-automata are built once and shared, so
// a value is evaluated at most once on any path and the flow walker and the
// exhaustiveness checker reason over the same graph.
package dag

import (
	"fmt"

	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/diag"
)

// NodeID indexes Dag.Nodes.
type NodeID int

// NoNode marks an absent node.
const NoNode NodeID = -1

// TempID names a value computed while matching.
type TempID int

// InputTemp is the value being matched.
const InputTemp TempID = 0

const noTemp TempID = -1

// TempKind says how a temp is computed from its parent.
type TempKind int

const (
	TempInput TempKind = iota
	TempProperty
	TempTupleElement
	TempDeconstruct
	TempListElement
	TempListLength
)

// Temp is a value the automaton evaluates.
type Temp struct {
	ID      TempID
	Kind    TempKind
	Parent  TempID
	Member  *bound.Symbol  // property
	Index   int            // tuple, deconstruct and list elements
	FromEnd bool           // list elements after a slice: Index counts from the end
	Owner   *bound.TypeDef // deconstruct
	Type    *bound.TypeRef
}

// Expr renders how the temp is computed from its parent.
func (t Temp) Expr() string {
	p := fmt.Sprintf("t%d", t.Parent)
	switch t.Kind {
	case TempInput:
		return "input"
	case TempProperty:
		return p + "." + t.Member.Name
	case TempTupleElement:
		return fmt.Sprintf("%s.Item%d", p, t.Index+1)
	case TempDeconstruct:
		return fmt.Sprintf("%s.Deconstruct[%d]", p, t.Index)
	case TempListElement:
		if t.FromEnd {
			return fmt.Sprintf("%s[^%d]", p, t.Index)
		}
		return fmt.Sprintf("%s[%d]", p, t.Index)
	case TempListLength:
		return p + ".Length"
	}
	return "?"
}

// TestKind is the kind of a Test node.
type TestKind int

const (
	TestNull TestKind = iota
	TestType
	TestConstant
	TestRelational
)

func (k TestKind) String() string {
	switch k {
	case TestNull:
		return "null"
	case TestType:
		return "type"
	case TestConstant:
		return "constant"
	case TestRelational:
		return "relational"
	}
	return "unknown"
}

// Test is one question asked of a temp. Every kind but TestNull only
// succeeds for non-null values.
type Test struct {
	Kind  TestKind
	Temp  TempID
	Type  *bound.TypeRef    // TestType
	Value any               // TestConstant, TestRelational
	Op    bound.RelationalOp // TestRelational
}

// ImpliesNonNull reports whether success of the test proves the temp is not
// null.
func (t Test) ImpliesNonNull() bool { return t.Kind != TestNull }

func (t Test) key() string {
	switch t.Kind {
	case TestNull:
		return fmt.Sprintf("t%d==null", t.Temp)
	case TestType:
		return fmt.Sprintf("t%d is %s", t.Temp, typeKey(t.Type))
	case TestConstant:
		return fmt.Sprintf("t%d==%T:%v", t.Temp, t.Value, t.Value)
	case TestRelational:
		return fmt.Sprintf("t%d%s%T:%v", t.Temp, t.Op, t.Value, t.Value)
	}
	return "?"
}

func typeKey(t *bound.TypeRef) string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s@%p", t.NonNullable().String(), t.Def)
}

func (t Test) String() string {
	switch t.Kind {
	case TestNull:
		return fmt.Sprintf("t%d == null", t.Temp)
	case TestType:
		return fmt.Sprintf("t%d is %s", t.Temp, t.Type.NonNullable())
	case TestConstant:
		return fmt.Sprintf("t%d == %s", t.Temp, FormatConstant(t.Value))
	case TestRelational:
		return fmt.Sprintf("t%d %s %s", t.Temp, t.Op, FormatConstant(t.Value))
	}
	return "?"
}

// FormatConstant renders a constant the way it is written in source.
func FormatConstant(v any) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case nil:
		return "null"
	default:
		return fmt.Sprint(v)
	}
}

// NodeKind tags the variants of Node.
type NodeKind int

const (
	KindTest NodeKind = iota
	KindEval
	KindGuard
	KindLeaf
)

// FailArm is the arm index of the Fail leaf.
const FailArm = -1

// Node is one automaton state. Fields are meaningful per Kind:
//
//	KindTest:  Test, True, False, Synthetic
//	KindEval:  Eval, Next
//	KindGuard: Arm, True, False
//	KindLeaf:  Arm (FailArm for Fail)
type Node struct {
	ID        NodeID
	Kind      NodeKind
	Test      Test
	Synthetic bool
	Eval      TempID
	Arm       int
	True      NodeID
	False     NodeID
	Next      NodeID
}

// IsFail reports whether n is the Fail leaf.
func (n *Node) IsFail() bool { return n.Kind == KindLeaf && n.Arm == FailArm }

// Successors returns the outgoing edges of n.
func (n *Node) Successors() []NodeID {
	switch n.Kind {
	case KindTest, KindGuard:
		return []NodeID{n.True, n.False}
	case KindEval:
		return []NodeID{n.Next}
	}
	return nil
}

// Arm is one input arm: an `is` pattern, a switch arm or a case label.
type Arm struct {
	Pattern bound.Pattern
	HasWhen bool
	Pos     diag.Span
}

// Binding associates a pattern-declared local with the temp it captures.
type Binding struct {
	Local *bound.Symbol
	Temp  TempID
}

// ArmInfo is the compiled form of one arm.
type ArmInfo struct {
	// Leaf is the arm's leaf, or NoNode when no input reaches the arm.
	Leaf     NodeID
	HasWhen  bool
	Bindings []Binding
	// BindingEvals are the Eval nodes that produce the arm's bound temps.
	BindingEvals []NodeID
	Pos          diag.Span
}

// Dag is the decision automaton of one pattern-matching construct.
type Dag struct {
	Input *bound.TypeRef
	Root  NodeID
	Nodes []Node
	Temps []Temp
	Arms  []ArmInfo
	// Fail is the Fail leaf, or NoNode when every input matches an arm.
	Fail NodeID

	explicitNull map[TempID]bool
}

// Node returns the node with the given id.
func (d *Dag) Node(id NodeID) *Node { return &d.Nodes[id] }

// Temp returns the temp with the given id.
func (d *Dag) Temp(id TempID) Temp { return d.Temps[id] }

// Len returns the number of nodes.
func (d *Dag) Len() int { return len(d.Nodes) }

// HasExplicitNullTest reports whether some arm writes a `null` pattern
// against the temp.
func (d *Dag) HasExplicitNullTest(t TempID) bool { return d.explicitNull[t] }

// Subsumed returns the indexes of arms no input can reach.
func (d *Dag) Subsumed() []int {
	var out []int
	for i, a := range d.Arms {
		if a.Leaf == NoNode {
			out = append(out, i)
		}
	}
	return out
}

// Reachable marks every node reachable from the root.
func (d *Dag) Reachable() []bool {
	seen := make([]bool, len(d.Nodes))
	if d.Root == NoNode {
		return seen
	}
	stack := []NodeID{d.Root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, d.Nodes[id].Successors()...)
	}
	return seen
}

// TopoOrder returns the reachable nodes so that every node precedes its
// successors. Node ids are allocated in discovery order, which is not
// topological once sub-automata are shared.
func (d *Dag) TopoOrder() []NodeID {
	if d.Root == NoNode {
		return nil
	}
	reach := d.Reachable()
	indeg := make([]int, len(d.Nodes))
	for id := range d.Nodes {
		if !reach[id] {
			continue
		}
		for _, s := range d.Nodes[id].Successors() {
			indeg[s]++
		}
	}
	var order []NodeID
	queue := []NodeID{d.Root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, s := range d.Nodes[id].Successors() {
			indeg[s]--
			if indeg[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	return order
}

// Predecessors returns, for each node, the nodes with an edge into it.
func (d *Dag) Predecessors() [][]NodeID {
	preds := make([][]NodeID, len(d.Nodes))
	for id := range d.Nodes {
		for _, s := range d.Nodes[id].Successors() {
			preds[s] = append(preds[s], NodeID(id))
		}
	}
	return preds
}

// TempDepth returns the number of evaluations between the input and t.
func (d *Dag) TempDepth(t TempID) int {
	n := 0
	for t != InputTemp {
		t = d.Temps[t].Parent
		n++
	}
	return n
}

package flow

import (
	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/dag"
	"github.com/malphas-lang/nullflow/internal/diag"
)

// Construct is one pattern-matching construct of a method with its DAG.
type Construct struct {
	// Kind is "is", "switch expression" or "switch statement".
	Kind string
	Pos  diag.Span
	Dag  *dag.Dag
}

// Dags builds the decision DAG of every pattern construct in m, in source
// order, exactly as Analyze does. A nil rel uses bound.Hierarchy.
func Dags(m *bound.Method, rel bound.TypeRelation) []Construct {
	if rel == nil {
		rel = bound.Hierarchy{}
	}
	var out []Construct
	bound.Walk(m, func(n bound.Node) bool {
		switch x := n.(type) {
		case *bound.IsPattern:
			out = append(out, Construct{Kind: "is", Pos: x.Pos, Dag: dag.Build(x.Operand.Type(), isArms(x), rel)})
		case *bound.SwitchExpr:
			arms, _ := switchExprArms(x)
			out = append(out, Construct{Kind: "switch expression", Pos: x.Pos, Dag: dag.Build(x.Scrutinee.Type(), arms, rel)})
		case *bound.Switch:
			arms, _, _, _ := switchArms(x)
			out = append(out, Construct{Kind: "switch statement", Pos: x.Pos, Dag: dag.Build(x.Scrutinee.Type(), arms, rel)})
		}
		return true
	})
	return out
}

package dag

import (
	"fmt"
	"strings"
)

// String renders the reachable nodes in topological order, one per line.
func (d *Dag) String() string {
	var sb strings.Builder
	for _, id := range d.TopoOrder() {
		fmt.Fprintf(&sb, "[%d]: %s\n", id, d.describe(&d.Nodes[id]))
	}
	return sb.String()
}

func (d *Dag) describe(n *Node) string {
	switch n.Kind {
	case KindTest:
		s := fmt.Sprintf("%s ? [%d] : [%d]", n.Test, n.True, n.False)
		if n.Synthetic {
			s += " (input)"
		}
		return s
	case KindEval:
		return fmt.Sprintf("t%d = %s; [%d]", n.Eval, d.Temps[n.Eval].Expr(), n.Next)
	case KindGuard:
		return fmt.Sprintf("when <arm %d> ? [%d] : [%d]", n.Arm, n.True, n.False)
	case KindLeaf:
		if n.IsFail() {
			return "fail"
		}
		return fmt.Sprintf("leaf <arm %d>", n.Arm)
	}
	return "?"
}

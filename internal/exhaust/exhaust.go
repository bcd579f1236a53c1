// Package exhaust decides whether a switch's decision automaton can reach
// Fail and, when it can, builds a counter-example pattern.
package exhaust

import (
	"github.com/malphas-lang/nullflow/internal/dag"
	"github.com/malphas-lang/nullflow/internal/diag"
	"github.com/malphas-lang/nullflow/internal/nullstate"
)

// Verdict classifies the outcome of a check.
type Verdict int

const (
	Exhaustive Verdict = iota
	// NotExhaustive: a non-null input reaches Fail without passing a guard.
	NotExhaustive
	// NotExhaustiveWithWhen: non-null inputs reach Fail only after a `when`
	// clause was false.
	NotExhaustiveWithWhen
	// NotExhaustiveForNull: null reaches Fail without passing a guard.
	NotExhaustiveForNull
	// NotExhaustiveForNullWithWhen: null reaches Fail only after a `when`
	// clause was false.
	NotExhaustiveForNullWithWhen
)

// Code returns the diagnostic code of a verdict; Exhaustive has none.
func (v Verdict) Code() diag.Code {
	switch v {
	case NotExhaustive:
		return diag.CodeSwitchNotExhaustive
	case NotExhaustiveWithWhen:
		return diag.CodeSwitchNotExhaustiveWithWhen
	case NotExhaustiveForNull:
		return diag.CodeSwitchNotExhaustiveForNull
	case NotExhaustiveForNullWithWhen:
		return diag.CodeSwitchNotExhaustiveForNullWithWhen
	}
	return ""
}

func (v Verdict) String() string {
	switch v {
	case Exhaustive:
		return "exhaustive"
	case NotExhaustive:
		return "not exhaustive"
	case NotExhaustiveWithWhen:
		return "not exhaustive unless a guard matches"
	case NotExhaustiveForNull:
		return "not exhaustive for null"
	case NotExhaustiveForNullWithWhen:
		return "not exhaustive for null unless a guard matches"
	}
	return "unknown"
}

// Input describes the scrutinee at the switch.
type Input struct {
	// State returns the entry state of a temp. Nil means every temp starts
	// MaybeNull.
	State func(t dag.TempID) nullstate.State
}

func (in Input) state(t dag.TempID) nullstate.State {
	if in.State == nil {
		return nullstate.MaybeNull
	}
	return in.State(t)
}

// Step is one edge of a witness path.
type Step struct {
	Node    dag.NodeID
	Outcome bool // for tests and guards
}

// Result is the outcome of Check.
type Result struct {
	Verdict Verdict
	// Example is a pattern no arm handles, e.g. `(null, _)`.
	Example string
	// Path leads from the root to Fail.
	Path []Step
}

// searchState is a node plus what the path to it has done so far.
type searchState struct {
	node     dag.NodeID
	sawNull  bool
	sawGuard bool
}

func (s searchState) slot() int {
	i := int(s.node) * 4
	if s.sawNull {
		i += 2
	}
	if s.sawGuard {
		i++
	}
	return i
}

type link struct {
	prev    int
	step    Step
	visited bool
}

// Check searches d for paths to Fail. A true edge of a null test is only
// followed when the tested temp may be null on entry or some arm tests it
// against `null` explicitly.
func Check(d *dag.Dag, in Input) Result {
	if d.Fail == dag.NoNode || d.Root == dag.NoNode {
		return Result{Verdict: Exhaustive}
	}
	links := make([]link, len(d.Nodes)*4)
	found := map[Verdict]int{}

	start := searchState{node: d.Root}
	links[start.slot()] = link{prev: -1, visited: true}
	stack := []searchState{start}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := d.Node(cur.node)

		visit := func(next searchState, outcome bool) {
			i := next.slot()
			if links[i].visited {
				return
			}
			links[i] = link{prev: cur.slot(), step: Step{Node: cur.node, Outcome: outcome}, visited: true}
			stack = append(stack, next)
		}

		switch n.Kind {
		case dag.KindLeaf:
			if n.IsFail() {
				v := verdictOf(cur)
				if _, ok := found[v]; !ok {
					found[v] = cur.slot()
				}
			}
		case dag.KindEval:
			visit(searchState{node: n.Next, sawNull: cur.sawNull, sawGuard: cur.sawGuard}, true)
		case dag.KindGuard:
			// Pushed first so the true edge is explored first.
			visit(searchState{node: n.False, sawNull: cur.sawNull, sawGuard: true}, false)
			visit(searchState{node: n.True, sawNull: cur.sawNull, sawGuard: cur.sawGuard}, true)
		case dag.KindTest:
			visit(searchState{node: n.False, sawNull: cur.sawNull, sawGuard: cur.sawGuard}, false)
			if n.Test.Kind == dag.TestNull {
				if nullFeasible(d, in, n.Test.Temp) {
					visit(searchState{node: n.True, sawNull: true, sawGuard: cur.sawGuard}, true)
				}
			} else {
				visit(searchState{node: n.True, sawNull: cur.sawNull, sawGuard: cur.sawGuard}, true)
			}
		}
	}

	for _, v := range []Verdict{NotExhaustive, NotExhaustiveWithWhen, NotExhaustiveForNull, NotExhaustiveForNullWithWhen} {
		if end, ok := found[v]; ok {
			path := unwind(links, end)
			return Result{Verdict: v, Path: path, Example: CounterExample(d, path)}
		}
	}
	return Result{Verdict: Exhaustive}
}

func nullFeasible(d *dag.Dag, in Input, t dag.TempID) bool {
	return in.state(t) != nullstate.NotNull || d.HasExplicitNullTest(t)
}

func verdictOf(s searchState) Verdict {
	switch {
	case !s.sawNull && !s.sawGuard:
		return NotExhaustive
	case !s.sawNull:
		return NotExhaustiveWithWhen
	case !s.sawGuard:
		return NotExhaustiveForNull
	default:
		return NotExhaustiveForNullWithWhen
	}
}

func unwind(links []link, end int) []Step {
	var path []Step
	for i := end; links[i].prev >= 0; i = links[i].prev {
		path = append(path, links[i].step)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

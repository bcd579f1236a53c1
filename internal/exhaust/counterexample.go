package exhaust

import (
	"fmt"
	"sort"
	"strings"

	"github.com/malphas-lang/nullflow/internal/dag"
)

type fact struct {
	test    dag.Test
	outcome bool
}

type example struct {
	d        *dag.Dag
	facts    map[dag.TempID][]fact
	children map[dag.TempID][]dag.TempID
}

// CounterExample renders the inputs that follow path as a pattern. Positions
// the path never tested, or only tested negatively, render as `_`.
func CounterExample(d *dag.Dag, path []Step) string {
	ex := &example{d: d, facts: map[dag.TempID][]fact{}, children: map[dag.TempID][]dag.TempID{}}
	seen := map[dag.TempID]bool{dag.InputTemp: true}
	for _, st := range path {
		n := d.Node(st.Node)
		switch n.Kind {
		case dag.KindEval:
			seen[n.Eval] = true
		case dag.KindTest:
			ex.facts[n.Test.Temp] = append(ex.facts[n.Test.Temp], fact{test: n.Test, outcome: st.Outcome})
			seen[n.Test.Temp] = true
		}
	}
	for t := range seen {
		if t == dag.InputTemp {
			continue
		}
		p := d.Temp(t).Parent
		ex.children[p] = append(ex.children[p], t)
	}
	for _, kids := range ex.children {
		sort.Slice(kids, func(i, j int) bool { return kids[i] < kids[j] })
	}
	return ex.render(dag.InputTemp)
}

func (ex *example) render(t dag.TempID) string {
	var head string
	notNull := false
	for _, f := range ex.facts[t] {
		switch {
		case f.test.Kind == dag.TestNull && f.outcome:
			return "null"
		case f.test.Kind == dag.TestNull:
			notNull = true
		case !f.outcome:
			// Negative facts do not name a value.
		case f.test.Kind == dag.TestConstant:
			return dag.FormatConstant(f.test.Value)
		case f.test.Kind == dag.TestType:
			head = f.test.Type.NonNullable().String()
		case f.test.Kind == dag.TestRelational && head == "":
			head = fmt.Sprintf("%s %s", f.test.Op, dag.FormatConstant(f.test.Value))
		}
	}

	var tuple, decon, props []dag.TempID
	var list []dag.TempID
	var length dag.TempID = -1
	for _, k := range ex.children[t] {
		switch ex.d.Temp(k).Kind {
		case dag.TempTupleElement:
			tuple = append(tuple, k)
		case dag.TempDeconstruct:
			decon = append(decon, k)
		case dag.TempProperty:
			props = append(props, k)
		case dag.TempListElement:
			list = append(list, k)
		case dag.TempListLength:
			length = k
		}
	}

	var sb strings.Builder
	switch {
	case len(tuple) > 0:
		n := 0
		if typ := ex.d.Temp(t).Type; typ != nil {
			n = len(typ.Elems)
		}
		sb.WriteString(ex.positional(tuple, n))
	case len(decon) > 0:
		sb.WriteString(head)
		sb.WriteString(ex.positional(decon, 0))
	case len(list) > 0 || length >= 0:
		sb.WriteString(head)
		if head != "" {
			sb.WriteString(" ")
		}
		sb.WriteString(ex.list(list, length))
	default:
		sb.WriteString(head)
	}

	var parts []string
	for _, k := range props {
		if s := ex.render(k); s != "_" {
			parts = append(parts, ex.d.Temp(k).Member.Name+": "+s)
		}
	}
	if len(parts) > 0 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("{ " + strings.Join(parts, ", ") + " }")
	}

	if sb.Len() > 0 {
		return sb.String()
	}
	if notNull || len(props) > 0 {
		return "not null"
	}
	return "_"
}

// positional renders `(a, b, ...)` with at least n positions.
func (ex *example) positional(kids []dag.TempID, n int) string {
	for _, k := range kids {
		if i := ex.d.Temp(k).Index + 1; i > n {
			n = i
		}
	}
	elems := make([]string, n)
	for i := range elems {
		elems[i] = "_"
	}
	for _, k := range kids {
		elems[ex.d.Temp(k).Index] = ex.render(k)
	}
	return "(" + strings.Join(elems, ", ") + ")"
}

func (ex *example) list(kids []dag.TempID, length dag.TempID) string {
	exact := -1
	if length >= 0 {
		for _, f := range ex.facts[length] {
			if f.test.Kind == dag.TestConstant && f.outcome {
				if n, ok := f.test.Value.(int); ok {
					exact = n
				}
			}
		}
	}
	var front, back []string
	frontAt := map[int]string{}
	backAt := map[int]string{}
	maxFront, maxBack := 0, 0
	for _, k := range kids {
		tmp := ex.d.Temp(k)
		if tmp.FromEnd {
			backAt[tmp.Index] = ex.render(k)
			maxBack = max(maxBack, tmp.Index)
		} else {
			frontAt[tmp.Index] = ex.render(k)
			maxFront = max(maxFront, tmp.Index+1)
		}
	}
	if exact >= 0 {
		maxFront = max(maxFront, exact)
	}
	for i := 0; i < maxFront; i++ {
		if s, ok := frontAt[i]; ok {
			front = append(front, s)
		} else {
			front = append(front, "_")
		}
	}
	for i := maxBack; i >= 1; i-- {
		if s, ok := backAt[i]; ok {
			back = append(back, s)
		} else {
			back = append(back, "_")
		}
	}
	elems := front
	if exact < 0 {
		elems = append(elems, "..")
	}
	elems = append(elems, back...)
	return "[" + strings.Join(elems, ", ") + "]"
}

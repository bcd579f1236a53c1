package flow

import (
	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/dag"
	"github.com/malphas-lang/nullflow/internal/diag"
	"github.com/malphas-lang/nullflow/internal/exhaust"
	"github.com/malphas-lang/nullflow/internal/nullstate"
	"github.com/malphas-lang/nullflow/internal/slots"
)

// pathState is the state flowing along one DAG edge. Temps without a slot
// keep their state next to the map.
type pathState struct {
	m         *nullstate.StateMap
	temps     map[dag.TempID]nullstate.State
	evaluated map[dag.TempID]bool
}

func (p *pathState) clone() *pathState {
	c := &pathState{
		m:         p.m.Clone(),
		temps:     make(map[dag.TempID]nullstate.State, len(p.temps)),
		evaluated: make(map[dag.TempID]bool, len(p.evaluated)),
	}
	for t, s := range p.temps {
		c.temps[t] = s
	}
	for t := range p.evaluated {
		c.evaluated[t] = true
	}
	return c
}

// join merges o into p. A temp stays evaluated only if both paths evaluated
// it.
func (p *pathState) join(o *pathState) {
	if o.m.Unreachable {
		return
	}
	if p.m.Unreachable {
		*p = *o.clone()
		return
	}
	p.m.Join(o.m)
	for t := range p.evaluated {
		if !o.evaluated[t] {
			delete(p.evaluated, t)
			delete(p.temps, t)
		}
	}
	for t, s := range p.temps {
		if os, ok := o.temps[t]; ok {
			p.temps[t] = nullstate.Join(s, os)
		} else {
			p.temps[t] = nullstate.MaybeNull
		}
	}
}

// matcher threads the walker state through one decision DAG.
type matcher struct {
	w     *walker
	d     *dag.Dag
	whens []bound.Expr

	entry    *nullstate.StateMap
	tempSlot []slots.SlotID
	tempInit []nullstate.State

	in     []*pathState
	leaves []*nullstate.StateMap
	fail   *nullstate.StateMap
}

// match runs d over the scrutinee from the current state. w.state is left
// unchanged; the per-arm states are read from the result.
func (w *walker) match(scrutinee value, d *dag.Dag, whens []bound.Expr) *matcher {
	w.stats.Dags++
	w.stats.DagNodes += d.Len()

	m := &matcher{
		w:      w,
		d:      d,
		whens:  whens,
		entry:  w.state,
		leaves: make([]*nullstate.StateMap, len(d.Arms)),
	}
	m.mapTemps(scrutinee)
	m.run()
	w.state = m.entry
	return m
}

// mapTemps gives every temp the slot of the expression it reads, when that
// expression is trackable.
func (m *matcher) mapTemps(scrutinee value) {
	n := len(m.d.Temps)
	m.tempSlot = make([]slots.SlotID, n)
	m.tempInit = make([]nullstate.State, n)
	for i, t := range m.d.Temps {
		m.tempSlot[i] = slots.NoSlot
		m.tempInit[i] = nullstate.Initial(t.Type)
		if t.Kind == dag.TempInput {
			m.tempSlot[i] = scrutinee.slot
			m.tempInit[i] = m.w.current(scrutinee)
			continue
		}
		parent := m.tempSlot[t.Parent]
		if parent == slots.NoSlot {
			if t.Kind == dag.TempTupleElement && t.Parent == dag.InputTemp && t.Index < len(scrutinee.elems) {
				el := scrutinee.elems[t.Index]
				m.tempSlot[i] = el.slot
				m.tempInit[i] = el.state
			}
			continue
		}
		var disc slots.Discriminator
		switch t.Kind {
		case dag.TempProperty:
			disc = slots.Member(t.Member)
		case dag.TempTupleElement:
			disc = slots.TupleElem(t.Index)
		case dag.TempListElement:
			if t.FromEnd {
				continue
			}
			disc = slots.Elem(t.Index)
		default:
			continue
		}
		if id, ok := m.w.alloc.Extend(parent, disc, t.Type); ok {
			m.tempSlot[i] = id
		}
	}
}

func (m *matcher) get(p *pathState, t dag.TempID) nullstate.State {
	if s := m.tempSlot[t]; s != slots.NoSlot {
		return p.m.Get(s)
	}
	if st, ok := p.temps[t]; ok {
		return st
	}
	return m.tempInit[t]
}

func (m *matcher) set(p *pathState, t dag.TempID, st nullstate.State) {
	if s := m.tempSlot[t]; s != slots.NoSlot {
		if !p.m.Unreachable {
			p.m.Set(s, st)
		}
		return
	}
	p.temps[t] = st
}

// entryState is the state of a temp before the match, for the exhaustiveness
// check.
func (m *matcher) entryState(t dag.TempID) nullstate.State {
	if s := m.tempSlot[t]; s != slots.NoSlot && !m.entry.Unreachable {
		return m.entry.Get(s)
	}
	return m.tempInit[t]
}

func (m *matcher) flow(to dag.NodeID, p *pathState) {
	if m.in[to] == nil {
		m.in[to] = p
		return
	}
	m.in[to].join(p)
}

func (m *matcher) run() {
	order := m.d.TopoOrder()
	if len(order) == 0 {
		return
	}
	m.in = make([]*pathState, m.d.Len())
	m.in[m.d.Root] = &pathState{
		m:         m.entry.Clone(),
		temps:     map[dag.TempID]nullstate.State{},
		evaluated: map[dag.TempID]bool{dag.InputTemp: true},
	}

	for _, id := range order {
		p := m.in[id]
		m.in[id] = nil
		if p == nil {
			continue
		}
		n := m.d.Node(id)
		switch n.Kind {
		case dag.KindEval:
			p.evaluated[n.Eval] = true
			if m.tempSlot[n.Eval] == slots.NoSlot {
				p.temps[n.Eval] = m.tempInit[n.Eval]
			}
			m.flow(n.Next, p)

		case dag.KindTest:
			t := n.Test.Temp
			if !p.evaluated[t] {
				m.w.invariant(m.w.m, "dag test %q reads %s before it is evaluated", n.Test.String(), m.d.Temp(t).Expr())
			}
			cur := m.get(p, t)
			check := checkOf(n.Test.Kind)
			f := p.clone()
			m.set(p, t, nullstate.Narrow(cur, check, true))
			m.set(f, t, nullstate.Narrow(cur, check, false))
			m.flow(n.True, p)
			m.flow(n.False, f)

		case dag.KindGuard:
			m.bind(p, n.Arm)
			m.w.state = p.m
			t, f := m.w.visitCondition(m.whens[n.Arm])
			fp := p.clone()
			fp.m = f
			p.m = t
			m.flow(n.True, p)
			m.flow(n.False, fp)

		case dag.KindLeaf:
			if n.IsFail() {
				m.fail = p.m
				continue
			}
			if !m.d.Arms[n.Arm].HasWhen {
				m.bind(p, n.Arm)
			}
			m.leaves[n.Arm] = p.m
		}
	}
}

// bind seeds the locals declared by an arm's pattern from the temps they
// capture.
func (m *matcher) bind(p *pathState, arm int) {
	saved := m.w.state
	m.w.state = p.m
	for _, b := range m.d.Arms[arm].Bindings {
		v := value{state: m.get(p, b.Temp), slot: m.tempSlot[b.Temp], typ: b.Local.Type}
		m.w.assign(m.w.alloc.Root(b.Local), v)
	}
	m.w.state = saved
}

func checkOf(k dag.TestKind) nullstate.Check {
	switch k {
	case dag.TestType:
		return nullstate.CheckType
	case dag.TestConstant:
		return nullstate.CheckConstant
	case dag.TestRelational:
		return nullstate.CheckRelational
	default:
		return nullstate.CheckNull
	}
}

func (m *matcher) leafState(arm int) *nullstate.StateMap {
	if s := m.leaves[arm]; s != nil {
		return s
	}
	return m.w.unreachable()
}

func (m *matcher) failState() *nullstate.StateMap {
	if m.fail != nil {
		return m.fail
	}
	return m.w.unreachable()
}

func (w *walker) visitIsPattern(x *bound.IsPattern) (*nullstate.StateMap, *nullstate.StateMap) {
	v := w.visitExpr(x.Operand)
	d := dag.Build(x.Operand.Type(), isArms(x), w.opts.Relation)
	m := w.match(v, d, nil)
	return m.leafState(0), m.failState()
}

func (w *walker) visitSwitchExpr(x *bound.SwitchExpr) value {
	sv := w.visitExpr(x.Scrutinee)

	arms, whens := switchExprArms(x)
	d := dag.Build(x.Scrutinee.Type(), arms, w.opts.Relation)
	m := w.match(sv, d, whens)

	w.checkExhaustive(m, x)
	w.reportSubsumed(d, -1)

	out := w.unreachable()
	var result nullstate.State
	reached := false
	for i, a := range x.Arms {
		w.state = m.leafState(i)
		v := w.visitExpr(a.Value)
		if !w.state.Unreachable {
			s := w.current(v)
			if reached {
				s = nullstate.Join(result, s)
			}
			result, reached = s, true
		}
		out.Join(w.state)
	}
	// Unmatched inputs throw, so the fail path does not reach the join.
	w.state = out
	if !reached {
		return valueOf(nullstate.NotNull, x.T)
	}
	return valueOf(result, x.T)
}

func (w *walker) checkExhaustive(m *matcher, x *bound.SwitchExpr) {
	if w.state.Unreachable {
		return
	}
	res := exhaust.Check(m.d, exhaust.Input{State: m.entryState})
	if res.Verdict == exhaust.Exhaustive {
		return
	}
	var msg string
	switch res.Verdict {
	case exhaust.NotExhaustive:
		msg = "the switch expression does not handle all possible values of its input type (it is not exhaustive); for example, the pattern '%s' is not covered"
	case exhaust.NotExhaustiveWithWhen:
		msg = "the switch expression does not handle all possible values of its input type (it is not exhaustive); for example, the pattern '%s' is not covered, though a pattern with a 'when' clause might match it"
	case exhaust.NotExhaustiveForNull:
		msg = "the switch expression does not handle some null inputs (it is not exhaustive); for example, the pattern '%s' is not covered"
	default:
		msg = "the switch expression does not handle some null inputs (it is not exhaustive); for example, the pattern '%s' is not covered, though a pattern with a 'when' clause might match it"
	}
	w.log.Debug("switch not exhaustive", "verdict", res.Verdict.String(), "example", res.Example)
	w.report(diag.Diagnostic{
		Stage:    diag.StagePatterns,
		Severity: diag.SeverityWarning,
		Code:     res.Verdict.Code(),
		Span:     x.Pos,
		Args:     []string{res.Example},
	}.WithPrimarySpan(x.Scrutinee.Span(), "unhandled: "+res.Example).
		WithHelp("add an arm for '"+res.Example+"' or a discard arm '_'"), msg, res.Example)
}

// reportSubsumed flags arms no input reaches. skip is an arm index exempt
// from the check, or -1.
func (w *walker) reportSubsumed(d *dag.Dag, skip int) {
	if !w.opts.ReportSubsumed || w.state.Unreachable {
		return
	}
	for _, i := range d.Subsumed() {
		if i == skip {
			continue
		}
		span := d.Arms[i].Pos
		w.report(diag.Diagnostic{
			Stage:    diag.StagePatterns,
			Severity: diag.SeverityWarning,
			Code:     diag.CodePatternArmSubsumed,
			Span:     span,
		}.WithPrimarySpan(span, "never matches"), "the pattern has already been handled by a previous arm")
	}
}

func isArms(x *bound.IsPattern) []dag.Arm {
	return []dag.Arm{{Pattern: x.Pattern, Pos: x.Pattern.Span()}}
}

func switchExprArms(x *bound.SwitchExpr) ([]dag.Arm, []bound.Expr) {
	arms := make([]dag.Arm, len(x.Arms))
	whens := make([]bound.Expr, len(x.Arms))
	for i, a := range x.Arms {
		arms[i] = dag.Arm{Pattern: a.Pattern, HasWhen: a.When != nil, Pos: a.Pos}
		whens[i] = a.When
	}
	return arms, whens
}

// switchArms flattens the case labels of x into arms. section maps each arm
// to its section; skip is the index of the default arm, or -1.
func switchArms(x *bound.Switch) (arms []dag.Arm, whens []bound.Expr, section []int, skip int) {
	var def *bound.SwitchLabel
	defSection := -1
	for si, sec := range x.Sections {
		for _, l := range sec.Labels {
			if l.Pattern == nil {
				def, defSection = l, si
				continue
			}
			arms = append(arms, dag.Arm{Pattern: l.Pattern, HasWhen: l.When != nil, Pos: l.Pos})
			whens = append(whens, l.When)
			section = append(section, si)
		}
	}
	skip = -1
	if def != nil {
		// default is tried after every case label wherever it is written.
		skip = len(arms)
		arms = append(arms, dag.Arm{Pattern: &bound.DiscardPattern{Pos: def.Pos}, Pos: def.Pos})
		whens = append(whens, nil)
		section = append(section, defSection)
	}
	return arms, whens, section, skip
}

func (w *walker) visitSwitch(x *bound.Switch) {
	sv := w.visitExpr(x.Scrutinee)

	arms, whens, section, skip := switchArms(x)
	d := dag.Build(x.Scrutinee.Type(), arms, w.opts.Relation)
	m := w.match(sv, d, whens)
	w.reportSubsumed(d, skip)

	target := w.pushTarget(false)
	after := m.failState()
	for si, sec := range x.Sections {
		in := w.unreachable()
		for ai, s := range section {
			if s == si {
				in.Join(m.leafState(ai))
			}
		}
		w.state = in
		for _, st := range sec.Body {
			w.visitStmt(st)
		}
		after.Join(w.state)
	}
	w.popTarget()
	after.Join(target.breaks)
	w.state = after
}

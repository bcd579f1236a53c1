package dag

import (
	"sort"
	"strconv"
	"strings"

	"github.com/malphas-lang/nullflow/internal/bound"
)

// Build compiles arms, in declaration order, against a value of type input.
// The first arm that matches wins. rel answers subtype questions; nil means
// bound.Hierarchy.
func Build(input *bound.TypeRef, arms []Arm, rel bound.TypeRelation) *Dag {
	if rel == nil {
		rel = bound.Hierarchy{}
	}
	b := &builder{
		rel:       rel,
		d:         &Dag{Input: input, Root: NoNode, Fail: NoNode, explicitNull: map[TempID]bool{}},
		tempIndex: map[tempKey]TempID{},
		nodeIndex: map[string]NodeID{},
		leaves:    map[int]NodeID{},
	}
	b.d.Temps = []Temp{{ID: InputTemp, Kind: TempInput, Parent: noTemp, Type: input}}

	init := &state{evaluated: map[TempID]bool{InputTemp: true}}
	for i, a := range arms {
		var binds []Binding
		f := b.compile(a.Pattern, InputTemp, &binds)
		b.arms = append(b.arms, a)
		b.bindings = append(b.bindings, binds)
		init.arms = append(init.arms, armState{arm: i, f: f})
		b.d.Arms = append(b.d.Arms, ArmInfo{Leaf: NoNode, HasWhen: a.HasWhen, Bindings: binds, Pos: a.Pos})
	}

	if input.CanBeNull() && b.testsInput(init) {
		root := Test{Kind: TestNull, Temp: InputTemp}
		id := b.alloc(Node{Kind: KindTest, Test: root, Synthetic: true})
		t := b.resolve(init.assume(b, root, true))
		f := b.resolve(init.assume(b, root, false))
		b.d.Nodes[id].True, b.d.Nodes[id].False = t, f
		b.d.Root = id
	} else {
		b.d.Root = b.resolve(init)
	}

	for len(b.work) > 0 {
		p := b.work[len(b.work)-1]
		b.work = b.work[:len(b.work)-1]
		b.expand(p.id, p.st)
	}

	b.collectBindingEvals()
	return b.d
}

type tempKey struct {
	parent  TempID
	kind    TempKind
	member  *bound.Symbol
	index   int
	fromEnd bool
	owner   *bound.TypeDef
}

type armState struct {
	arm int
	f   *formula
}

// state is what remains to be decided at one point of the automaton: the
// residual formula of every arm still in play and the temps already
// evaluated on the way here.
type state struct {
	arms      []armState
	evaluated map[TempID]bool
}

type pending struct {
	id NodeID
	st *state
}

type builder struct {
	rel       bound.TypeRelation
	d         *Dag
	arms      []Arm
	bindings  [][]Binding
	tempIndex map[tempKey]TempID
	nodeIndex map[string]NodeID
	leaves    map[int]NodeID
	work      []pending
}

// Temps

func (b *builder) temp(k tempKey, typ *bound.TypeRef) TempID {
	if id, ok := b.tempIndex[k]; ok {
		return id
	}
	id := TempID(len(b.d.Temps))
	b.d.Temps = append(b.d.Temps, Temp{
		ID:      id,
		Kind:    k.kind,
		Parent:  k.parent,
		Member:  k.member,
		Index:   k.index,
		FromEnd: k.fromEnd,
		Owner:   k.owner,
		Type:    typ,
	})
	b.tempIndex[k] = id
	return id
}

func (b *builder) tempType(t TempID) *bound.TypeRef { return b.d.Temps[t].Type }

// Pattern compilation

func (b *builder) nullTest(t TempID) *formula {
	if !b.tempType(t).CanBeNull() {
		return falseF
	}
	return testF(Test{Kind: TestNull, Temp: t})
}

func (b *builder) notNull(t TempID) *formula { return notF(b.nullTest(t)) }

func (b *builder) typeTest(t TempID, typ *bound.TypeRef) *formula {
	if tt := b.tempType(t); tt != nil && b.rel.IsSubtype(tt, typ) {
		return b.notNull(t)
	}
	return testF(Test{Kind: TestType, Temp: t, Type: typ})
}

func bind(binds *[]Binding, local *bound.Symbol, t TempID) {
	if binds != nil && local != nil {
		*binds = append(*binds, Binding{Local: local, Temp: t})
	}
}

// compile translates p, matched against temp t, into a formula. Bindings are
// collected only where a match guarantees they are assigned, so binds is nil
// under `not` and `or`.
func (b *builder) compile(p bound.Pattern, t TempID, binds *[]Binding) *formula {
	switch p := p.(type) {
	case nil, *bound.DiscardPattern:
		return trueF

	case *bound.VarPattern:
		bind(binds, p.Local, t)
		return trueF

	case *bound.TypePattern:
		bind(binds, p.Local, t)
		return b.typeTest(t, p.T)

	case *bound.ConstantPattern:
		if p.Null {
			b.d.explicitNull[t] = true
			return b.nullTest(t)
		}
		return testF(Test{Kind: TestConstant, Temp: t, Value: p.Value})

	case *bound.RelationalPattern:
		return testF(Test{Kind: TestRelational, Temp: t, Value: p.Value, Op: p.Op})

	case *bound.RecursivePattern:
		var parts []*formula
		narrowed := b.tempType(t)
		if p.T != nil {
			parts = append(parts, b.typeTest(t, p.T))
			narrowed = p.T
		} else {
			parts = append(parts, b.notNull(t))
		}
		for i, sub := range p.Positional {
			var child TempID
			if narrowed.IsTuple() {
				var et *bound.TypeRef
				if i < len(narrowed.Elems) {
					et = narrowed.Elems[i]
				}
				child = b.temp(tempKey{parent: t, kind: TempTupleElement, index: i}, et)
			} else {
				var et *bound.TypeRef
				var owner *bound.TypeDef
				if narrowed != nil && narrowed.Def != nil {
					owner = narrowed.Def
					if i < len(owner.Deconstruct) {
						et = owner.Deconstruct[i]
					}
				}
				child = b.temp(tempKey{parent: t, kind: TempDeconstruct, index: i, owner: owner}, et)
			}
			parts = append(parts, b.compile(sub, child, binds))
		}
		for _, prop := range p.Properties {
			child := b.temp(tempKey{parent: t, kind: TempProperty, member: prop.Member}, prop.Member.Type)
			parts = append(parts, b.compile(prop.Pattern, child, binds))
		}
		bind(binds, p.Local, t)
		return andF(parts...)

	case *bound.ListPattern:
		parts := []*formula{b.notNull(t)}
		n := len(p.Elems)
		length := b.temp(tempKey{parent: t, kind: TempListLength}, bound.Named(bound.IntDef, bound.NotAnnotated))
		if p.SliceAt < 0 {
			parts = append(parts, testF(Test{Kind: TestConstant, Temp: length, Value: n}))
		} else {
			parts = append(parts, testF(Test{Kind: TestRelational, Temp: length, Value: n - 1, Op: bound.RelGreaterEq}))
		}
		for i, sub := range p.Elems {
			if i == p.SliceAt {
				continue
			}
			k := tempKey{parent: t, kind: TempListElement, index: i}
			if p.SliceAt >= 0 && i > p.SliceAt {
				k.index, k.fromEnd = n-i, true
			}
			parts = append(parts, b.compile(sub, b.temp(k, p.Elem), binds))
		}
		bind(binds, p.Local, t)
		return andF(parts...)

	case *bound.NotPattern:
		return notF(b.compile(p.Pattern, t, nil))

	case *bound.AndPattern:
		return andF(b.compile(p.Left, t, binds), b.compile(p.Right, t, binds))

	case *bound.OrPattern:
		return orF(b.compile(p.Left, t, nil), b.compile(p.Right, t, nil))
	}
	return falseF
}

func (b *builder) testsInput(st *state) bool {
	found := false
	for _, a := range st.arms {
		a.f.tests(func(t Test) {
			if t.Temp == InputTemp {
				found = true
			}
		})
	}
	return found
}

// Implication

// implied reports what knowing fact == outcome says about t.
func (b *builder) implied(fact Test, outcome bool, t Test) (bool, bool) {
	if fact.Temp != t.Temp {
		return false, false
	}
	if fact.key() == t.key() {
		return outcome, true
	}
	if outcome {
		switch {
		case fact.Kind == TestNull:
			// Null fails every test that requires a value.
			return false, true
		case t.Kind == TestNull:
			return false, true
		case fact.Kind == TestType && t.Kind == TestType:
			if b.rel.IsSubtype(fact.Type, t.Type) {
				return true, true
			}
			if b.rel.Disjoint(fact.Type, t.Type) {
				return false, true
			}
		case fact.Kind == TestConstant && t.Kind == TestConstant:
			// Keys differ, so the constants do.
			return false, true
		}
		return false, false
	}
	if fact.Kind == TestType && t.Kind == TestType && b.rel.IsSubtype(t.Type, fact.Type) {
		return false, true
	}
	return false, false
}

// States

func (st *state) assume(b *builder, fact Test, outcome bool) *state {
	eval := func(t Test) (bool, bool) { return b.implied(fact, outcome, t) }
	next := &state{evaluated: st.evaluated}
	for _, a := range st.arms {
		f := a.f.decide(eval)
		if f == falseF {
			continue
		}
		next.arms = append(next.arms, armState{arm: a.arm, f: f})
	}
	return next
}

func (st *state) withEvaluated(t TempID) *state {
	ev := make(map[TempID]bool, len(st.evaluated)+1)
	for k := range st.evaluated {
		ev[k] = true
	}
	ev[t] = true
	return &state{arms: st.arms, evaluated: ev}
}

func (st *state) withoutFirst() *state {
	return &state{arms: st.arms[1:], evaluated: st.evaluated}
}

// key renders the state canonically. Only evaluated temps that a remaining
// arm can still use are part of the key, so states that differ only in
// irrelevant evaluations share one node.
func (b *builder) key(st *state) string {
	relevant := map[TempID]bool{}
	mark := func(t TempID) {
		for ; t != noTemp && !relevant[t]; t = b.d.Temps[t].Parent {
			relevant[t] = true
		}
	}
	var sb strings.Builder
	for _, a := range st.arms {
		sb.WriteString(strconv.Itoa(a.arm))
		sb.WriteString(":")
		sb.WriteString(a.f.key)
		sb.WriteString(";")
		a.f.tests(func(t Test) { mark(t.Temp) })
		for _, bd := range b.bindings[a.arm] {
			mark(bd.Temp)
		}
	}
	var ev []int
	for t := range st.evaluated {
		if relevant[t] {
			ev = append(ev, int(t))
		}
	}
	sort.Ints(ev)
	sb.WriteString("ev")
	for _, t := range ev {
		sb.WriteString(",")
		sb.WriteString(strconv.Itoa(t))
	}
	return sb.String()
}

// unevaluated returns the outermost ancestor of t, t included, that has not
// been evaluated yet, or noTemp.
func (b *builder) unevaluated(st *state, t TempID) TempID {
	missing := noTemp
	for ; t != noTemp && !st.evaluated[t]; t = b.d.Temps[t].Parent {
		missing = t
	}
	return missing
}

func (b *builder) pendingBinding(st *state, arm int) TempID {
	for _, bd := range b.bindings[arm] {
		if t := b.unevaluated(st, bd.Temp); t != noTemp {
			return t
		}
	}
	return noTemp
}

// Nodes

func (b *builder) alloc(n Node) NodeID {
	n.ID = NodeID(len(b.d.Nodes))
	b.d.Nodes = append(b.d.Nodes, n)
	return n.ID
}

func (b *builder) leaf(arm int) NodeID {
	if id, ok := b.leaves[arm]; ok {
		return id
	}
	id := b.alloc(Node{Kind: KindLeaf, Arm: arm, True: NoNode, False: NoNode, Next: NoNode})
	b.leaves[arm] = id
	if arm == FailArm {
		b.d.Fail = id
	} else {
		b.d.Arms[arm].Leaf = id
	}
	return id
}

// resolve returns the node for st, queueing it for expansion the first time
// the state is seen.
func (b *builder) resolve(st *state) NodeID {
	if len(st.arms) == 0 {
		return b.leaf(FailArm)
	}
	first := st.arms[0]
	if first.f == trueF && !b.arms[first.arm].HasWhen && b.pendingBinding(st, first.arm) == noTemp {
		return b.leaf(first.arm)
	}
	k := b.key(st)
	if id, ok := b.nodeIndex[k]; ok {
		return id
	}
	id := b.alloc(Node{True: NoNode, False: NoNode, Next: NoNode, Eval: noTemp})
	b.nodeIndex[k] = id
	b.work = append(b.work, pending{id: id, st: st})
	return id
}

func (b *builder) expand(id NodeID, st *state) {
	first := st.arms[0]

	if first.f == trueF {
		if t := b.pendingBinding(st, first.arm); t != noTemp {
			b.emitEval(id, st, t)
			return
		}
		leaf := b.leaf(first.arm)
		rest := b.resolve(st.withoutFirst())
		n := &b.d.Nodes[id]
		n.Kind, n.Arm, n.True, n.False = KindGuard, first.arm, leaf, rest
		return
	}

	test, _ := first.f.firstTest()
	if t := b.unevaluated(st, test.Temp); t != noTemp {
		b.emitEval(id, st, t)
		return
	}
	onTrue := b.resolve(st.assume(b, test, true))
	onFalse := b.resolve(st.assume(b, test, false))
	n := &b.d.Nodes[id]
	n.Kind, n.Test, n.True, n.False = KindTest, test, onTrue, onFalse
}

func (b *builder) emitEval(id NodeID, st *state, t TempID) {
	next := b.resolve(st.withEvaluated(t))
	n := &b.d.Nodes[id]
	n.Kind, n.Eval, n.Next = KindEval, t, next
}

func (b *builder) collectBindingEvals() {
	for i := range b.d.Arms {
		want := map[TempID]bool{}
		for _, bd := range b.d.Arms[i].Bindings {
			want[bd.Temp] = true
		}
		if len(want) == 0 {
			continue
		}
		for id := range b.d.Nodes {
			n := &b.d.Nodes[id]
			if n.Kind == KindEval && want[n.Eval] {
				b.d.Arms[i].BindingEvals = append(b.d.Arms[i].BindingEvals, n.ID)
			}
		}
	}
}

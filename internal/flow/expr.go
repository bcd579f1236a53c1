package flow

import (
	"fmt"
	"strings"

	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/dag"
	"github.com/malphas-lang/nullflow/internal/diag"
	"github.com/malphas-lang/nullflow/internal/nullstate"
	"github.com/malphas-lang/nullflow/internal/slots"
)

func (w *walker) visitExpr(e bound.Expr) value {
	if e == nil {
		return valueOf(nullstate.MaybeNull, nil)
	}
	if !w.enter(e) {
		return valueOf(nullstate.MaybeNull, e.Type())
	}
	defer w.leave()

	switch x := e.(type) {
	case *bound.Local:
		slot := w.alloc.Root(x.Symbol)
		return value{state: w.state.Get(slot), slot: slot, typ: x.Symbol.Type}

	case *bound.MemberAccess:
		return w.visitMember(x)

	case *bound.ElementAccess:
		recv := w.visitExpr(x.Receiver)
		w.dereference(recv, x.Receiver)
		w.visitExpr(x.Index)
		return w.access(x, recv, -1)

	case *bound.TupleElement:
		tuple := w.visitExpr(x.Tuple)
		return w.access(x, tuple, x.Index)

	case *bound.Literal:
		if x.Null {
			return valueOf(nullstate.KnownNull, x.T)
		}
		return valueOf(nullstate.NotNull, x.T)

	case *bound.DefaultValue:
		if x.T.CanBeNull() {
			return valueOf(nullstate.KnownNull, x.T)
		}
		return valueOf(nullstate.NotNull, x.T)

	case *bound.TupleLiteral:
		v := valueOf(nullstate.NotNull, x.T)
		for _, el := range x.Elems {
			ev := w.visitExpr(el)
			ev.state = w.current(ev)
			v.elems = append(v.elems, ev)
		}
		return v

	case *bound.New:
		return w.visitNew(x)

	case *bound.Call:
		return w.visitCall(x)

	case *bound.Assign:
		return w.visitAssign(x)

	case *bound.Conversion:
		return w.visitConversion(x)

	case *bound.Binary:
		if x.Op == bound.OpArith {
			w.visitExpr(x.Left)
			w.visitExpr(x.Right)
			return valueOf(nullstate.Initial(x.T), x.T)
		}
		return w.condValue(x, x.T)

	case *bound.Not:
		return w.condValue(x, x.T)

	case *bound.IsPattern:
		return w.condValue(x, x.T)

	case *bound.Suppress:
		w.visitExpr(x.Operand)
		return valueOf(nullstate.NotNull, x.Type())

	case *bound.Conditional:
		return w.visitConditional(x)

	case *bound.Coalesce:
		return w.visitCoalesce(x)

	case *bound.ConditionalAccess:
		return w.visitConditionalAccess(x)

	case *bound.ReceiverPlaceholder:
		v, ok := w.receivers[x.Receiver]
		if !ok {
			w.invariant(x, "receiver placeholder outside its conditional access")
			return valueOf(nullstate.MaybeNull, x.Type())
		}
		return v

	case *bound.SwitchExpr:
		return w.visitSwitchExpr(x)

	case *bound.ThrowExpr:
		w.visitExpr(x.Operand)
		w.state = w.unreachable()
		return valueOf(nullstate.NotNull, x.T)
	}

	w.log.Debug("unsupported expression", "type", fmt.Sprintf("%T", e))
	return valueOf(nullstate.Initial(e.Type()), e.Type())
}

// condValue evaluates a boolean expression for its value and merges its
// branch states.
func (w *walker) condValue(e bound.Expr, typ *bound.TypeRef) value {
	t, f := w.visitCondition(e)
	t.Join(f)
	w.state = t
	return valueOf(nullstate.NotNull, typ)
}

// access finishes a member, element or tuple element read. tupleIndex is the
// element index for tuple element reads and -1 otherwise.
func (w *walker) access(e bound.Expr, recv value, tupleIndex int) value {
	typ := e.Type()
	if slot, ok := w.alloc.SlotOf(e); ok {
		return value{state: w.state.Get(slot), slot: slot, typ: typ}
	}
	if tupleIndex >= 0 && tupleIndex < len(recv.elems) {
		return recv.elems[tupleIndex]
	}
	return valueOf(nullstate.Initial(typ), typ)
}

func (w *walker) visitMember(x *bound.MemberAccess) value {
	if x.Receiver == nil {
		slot := w.alloc.Root(x.Member)
		return value{state: w.state.Get(slot), slot: slot, typ: x.Member.Type}
	}
	recv := w.visitExpr(x.Receiver)
	if recv.typ.IsNullableValue() {
		// Members of a nullable value type are safe to read, except Value.
		if x.Member.Name == "Value" {
			w.unwrap(recv, x.Receiver)
			return valueOf(nullstate.NotNull, x.Member.Type)
		}
		return valueOf(nullstate.Initial(x.Member.Type), x.Member.Type)
	}
	w.dereference(recv, x.Receiver)
	return w.access(x, recv, -1)
}

// dereference checks a receiver about to be dereferenced. After the warning
// the receiver is assumed non-null so one mistake is reported once.
func (w *walker) dereference(v value, recv bound.Expr) {
	if recv == nil || (v.typ.IsValueType() && !v.typ.IsNullableValue()) {
		return
	}
	if !w.current(v).MayBeNull() {
		return
	}
	name := w.describe(recv, v)
	w.warn(diag.CodeNullDereference, recv.Span(), []string{name}, "may be null here",
		"dereference of a possibly null reference '%s'", name)
	w.learn(v, nullstate.NotNull)
}

// unwrap checks a nullable value type read as its underlying type.
func (w *walker) unwrap(v value, e bound.Expr) {
	if w.current(v).MayBeNull() {
		name := w.describe(e, v)
		w.warn(diag.CodeNullUnwrap, e.Span(), []string{name}, "may have no value",
			"nullable value '%s' may be null", name)
	}
	w.learn(v, nullstate.NotNull)
}

func (w *walker) visitNew(x *bound.New) value {
	if x.Sig != nil {
		w.visitArgs(x.Sig.Params, x.Args, x.T.Name())
	} else {
		for _, a := range x.Args {
			w.visitExpr(a)
		}
	}
	v := valueOf(nullstate.NotNull, x.T)
	for _, in := range x.Inits {
		iv := w.visitExpr(in.Value)
		iv.state = w.current(iv)
		if nonNullTarget(in.Member.Type) && iv.state.MayBeNull() {
			w.warn(diag.CodeNullAssignment, in.Value.Span(), []string{in.Member.Name}, "may be null here",
				"possible null reference assignment to '%s'", in.Member.Name)
		}
		v.inits = append(v.inits, memberValue{member: in.Member, val: iv})
	}
	return v
}

func (w *walker) visitCall(x *bound.Call) value {
	sig := x.Sig
	if sig == nil {
		sig = &bound.Signature{Name: "<unknown>"}
	}
	params := sig.Params
	var recv value
	if x.Receiver != nil {
		recv = w.visitExpr(x.Receiver)
		if sig.Extension {
			if len(params) > 0 {
				w.checkArgument(recv, x.Receiver, params[0], sig.Name)
				params = params[1:]
			}
		} else {
			w.dereference(recv, x.Receiver)
		}
	}
	w.visitArgs(params, x.Args, sig.Name)

	// An opaque call may rewrite anything reachable from its receiver.
	if x.Receiver != nil && recv.hasSlot() && !sig.Pure && !sig.Extension && !w.state.Unreachable {
		w.invalidate(recv.slot)
	}
	if sig.Result == nil {
		return valueOf(nullstate.NotNull, nil)
	}
	return valueOf(nullstate.Initial(sig.Result), sig.Result)
}

func (w *walker) visitArgs(params []*bound.Symbol, args []bound.Expr, callee string) {
	for i, a := range args {
		var p *bound.Symbol
		if i < len(params) {
			p = params[i]
		}
		v := w.visitExpr(a)
		if p == nil {
			continue
		}
		if p.RefKind != bound.RefOut {
			w.checkArgument(v, a, p, callee)
		}
		if p.RefKind != bound.RefRef && p.RefKind != bound.RefOut {
			continue
		}
		if v.hasSlot() && !w.state.Unreachable {
			w.assign(v.slot, valueOf(nullstate.Initial(p.Type), p.Type))
		} else {
			w.overwriteElements(a)
		}
	}
}

func (w *walker) checkArgument(v value, arg bound.Expr, p *bound.Symbol, callee string) {
	if !nonNullTarget(p.Type) || !w.current(v).MayBeNull() {
		return
	}
	w.warn(diag.CodeNullArgument, arg.Span(), []string{p.Name, callee}, "may be null here",
		"possible null reference argument for parameter '%s' in '%s'", p.Name, callee)
}

// visitTarget evaluates the receivers of an assignment target and returns
// the target's slot.
func (w *walker) visitTarget(e bound.Expr) value {
	typ := e.Type()
	switch x := e.(type) {
	case *bound.Local:
		return value{slot: w.alloc.Root(x.Symbol), typ: typ}
	case *bound.MemberAccess:
		if x.Receiver != nil {
			recv := w.visitExpr(x.Receiver)
			w.dereference(recv, x.Receiver)
		}
	case *bound.ElementAccess:
		recv := w.visitExpr(x.Receiver)
		w.dereference(recv, x.Receiver)
		w.visitExpr(x.Index)
	case *bound.TupleElement:
		w.visitExpr(x.Tuple)
	default:
		w.visitExpr(e)
		return valueOf(nullstate.MaybeNull, typ)
	}
	if slot, ok := w.alloc.SlotOf(e); ok {
		return value{slot: slot, typ: typ}
	}
	return valueOf(nullstate.MaybeNull, typ)
}

func (w *walker) visitAssign(x *bound.Assign) value {
	target := w.visitTarget(x.Target)
	v := w.visitExpr(x.Value)
	v.state = w.current(v)
	if nonNullTarget(target.typ) && v.state.MayBeNull() {
		name := w.describe(x.Target, target)
		w.warn(diag.CodeNullAssignment, x.Value.Span(), []string{name}, "may be null here",
			"possible null reference assignment to '%s'", name)
	}
	if target.hasSlot() && !w.state.Unreachable {
		w.assign(target.slot, v)
	} else {
		w.overwriteElements(x.Target)
	}
	return value{state: v.state, slot: target.slot, typ: target.typ}
}

func (w *walker) visitConversion(x *bound.Conversion) value {
	v := w.visitExpr(x.Operand)
	if x.As {
		return w.visitAs(x, v)
	}
	switch w.opts.Classifier.Classify(x) {
	case bound.ClassIdentity, bound.ClassReferencePreserving:
		v.typ = x.T
		return v
	case bound.ClassLifted:
		if v.typ.IsNullableValue() && !x.T.IsNullableValue() {
			w.unwrap(v, x.Operand)
			return valueOf(nullstate.NotNull, x.T)
		}
		return valueOf(w.current(v), x.T)
	}
	switch {
	case x.Kind == bound.ConvUnboxing && x.T.IsValueType() && !x.T.IsNullableValue():
		w.unwrap(v, x.Operand)
		return valueOf(nullstate.NotNull, x.T)
	case x.Kind == bound.ConvBoxing:
		return valueOf(w.current(v), x.T)
	}
	return valueOf(nullstate.Initial(x.T), x.T)
}

// visitAs evaluates `v as T`. Identity and implicit reference conversions
// cannot fail and keep v's state; boxing fails only for a null nullable
// value. Every other reference conversion may yield null.
func (w *walker) visitAs(x *bound.Conversion, v value) value {
	if !x.T.IsReference() {
		return valueOf(nullstate.Initial(x.T), x.T)
	}
	switch x.Kind {
	case bound.ConvIdentity, bound.ConvImplicitReference:
		return valueOf(w.current(v), x.T)
	case bound.ConvBoxing:
		if v.typ.IsNullableValue() {
			return valueOf(w.current(v), x.T)
		}
		if v.typ.IsValueType() {
			return valueOf(nullstate.NotNull, x.T)
		}
	}
	return valueOf(nullstate.MaybeNull, x.T)
}

func (w *walker) visitConditional(x *bound.Conditional) value {
	t, f := w.visitCondition(x.Cond)

	w.state = t
	tv := w.visitExpr(x.Then)
	ts, thenState := w.current(tv), w.state

	w.state = f
	fv := w.visitExpr(x.Else)
	fs := w.current(fv)

	var s nullstate.State
	switch {
	case thenState.Unreachable:
		s = fs
	case w.state.Unreachable:
		s = ts
	default:
		s = nullstate.Join(ts, fs)
	}
	w.state.Join(thenState)
	return valueOf(s, x.T)
}

func (w *walker) visitCoalesce(x *bound.Coalesce) value {
	lv := w.visitExpr(x.Left)
	ls := w.current(lv)

	nonNull := w.state.Clone()
	if ls == nullstate.KnownNull {
		nonNull = w.unreachable()
	} else if lv.hasSlot() && !nonNull.Unreachable {
		nonNull.Set(lv.slot, nullstate.NotNull)
	}
	if ls == nullstate.NotNull {
		w.state = w.unreachable()
	} else {
		w.learn(lv, nullstate.KnownNull)
	}

	rv := w.visitExpr(x.Right)
	rs := w.current(rv)
	w.state.Join(nonNull)

	switch ls {
	case nullstate.NotNull:
		return valueOf(nullstate.NotNull, x.T)
	case nullstate.KnownNull:
		return valueOf(rs, x.T)
	}
	return valueOf(nullstate.Join(nullstate.NotNull, rs), x.T)
}

func (w *walker) visitConditionalAccess(x *bound.ConditionalAccess) value {
	rv := w.visitExpr(x.Receiver)
	rs := w.current(rv)
	if rv.typ.IsNullableValue() {
		rv.typ = rv.typ.NonNullable()
	}

	onNull := w.state.Clone()
	if rs == nullstate.NotNull {
		onNull = w.unreachable()
	} else if rv.hasSlot() && !onNull.Unreachable {
		onNull.Set(rv.slot, nullstate.KnownNull)
	}
	if rs == nullstate.KnownNull {
		w.state = w.unreachable()
	} else {
		w.learn(rv, nullstate.NotNull)
	}

	inner := rv
	inner.state = nullstate.NotNull
	w.receivers[x.Receiver] = inner
	av := w.visitExpr(x.Access)
	as := w.current(av)
	delete(w.receivers, x.Receiver)

	accessed := !w.state.Unreachable
	w.state.Join(onNull)

	switch {
	case !accessed || rs == nullstate.KnownNull:
		return valueOf(nullstate.KnownNull, x.T)
	case rs == nullstate.NotNull:
		return valueOf(as, x.T)
	}
	return valueOf(nullstate.Join(nullstate.KnownNull, as), x.T)
}

// describe names an expression in a message: its slot path when it has one,
// source-like text otherwise.
func (w *walker) describe(e bound.Expr, v value) string {
	if v.hasSlot() {
		return w.alloc.Path(v.slot)
	}
	return exprText(e, 8)
}

func exprText(e bound.Expr, budget int) string {
	if budget == 0 {
		return "..."
	}
	budget--
	switch x := e.(type) {
	case *bound.Local:
		return x.Symbol.Name
	case *bound.MemberAccess:
		if x.Receiver == nil {
			return x.Member.Name
		}
		return exprText(x.Receiver, budget) + "." + x.Member.Name
	case *bound.ElementAccess:
		return exprText(x.Receiver, budget) + "[" + exprText(x.Index, budget) + "]"
	case *bound.TupleElement:
		return fmt.Sprintf("%s.Item%d", exprText(x.Tuple, budget), x.Index+1)
	case *bound.Call:
		name := "<call>"
		if x.Sig != nil {
			name = x.Sig.Name
		}
		if x.Receiver == nil {
			return name + "(...)"
		}
		return exprText(x.Receiver, budget) + "." + name + "(...)"
	case *bound.Conversion:
		return exprText(x.Operand, budget)
	case *bound.Suppress:
		return exprText(x.Operand, budget) + "!"
	case *bound.ReceiverPlaceholder:
		return exprText(x.Receiver, budget)
	case *bound.ConditionalAccess:
		recv := exprText(x.Receiver, budget)
		return recv + "?" + strings.TrimPrefix(exprText(x.Access, budget), recv)
	case *bound.Literal:
		if x.Null {
			return "null"
		}
		return dag.FormatConstant(x.Value)
	case *bound.New:
		return "new " + x.T.Name() + "(...)"
	}
	return "expression"
}

func learnIn(m *nullstate.StateMap, v value, s nullstate.State) {
	if v.slot != slots.NoSlot && !m.Unreachable {
		m.Set(v.slot, s)
	}
}

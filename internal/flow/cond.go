package flow

import (
	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/nullstate"
	"github.com/malphas-lang/nullflow/internal/slots"
)

// visitCondition evaluates a boolean expression and returns the states in
// which it is true and false. w.state is consumed.
func (w *walker) visitCondition(e bound.Expr) (whenTrue, whenFalse *nullstate.StateMap) {
	switch x := e.(type) {
	case *bound.Binary:
		switch x.Op {
		case bound.OpAnd, bound.OpOr:
			if !w.enter(x) {
				return w.state, w.state.Clone()
			}
			defer w.leave()
			return w.visitJunction(x)
		case bound.OpEq, bound.OpNotEq:
			if !w.enter(x) {
				return w.state, w.state.Clone()
			}
			defer w.leave()
			return w.visitEquality(x)
		}

	case *bound.Not:
		if !w.enter(x) {
			return w.state, w.state.Clone()
		}
		defer w.leave()
		t, f := w.visitCondition(x.Operand)
		return f, t

	case *bound.IsPattern:
		if !w.enter(x) {
			return w.state, w.state.Clone()
		}
		defer w.leave()
		return w.visitIsPattern(x)

	case *bound.Literal:
		if b, ok := x.Value.(bool); ok {
			w.record(x)
			if b {
				return w.state, w.unreachable()
			}
			return w.unreachable(), w.state
		}
	}

	w.visitExpr(e)
	return w.state, w.state.Clone()
}

// visitJunction handles a chain of && or || left to right. Each operand runs
// in the state where the previous ones did not decide the result.
func (w *walker) visitJunction(x *bound.Binary) (*nullstate.StateMap, *nullstate.StateMap) {
	and := x.Op == bound.OpAnd
	decided := w.unreachable()
	for _, op := range junctionOperands(x) {
		t, f := w.visitCondition(op)
		if and {
			decided.Join(f)
			w.state = t
		} else {
			decided.Join(t)
			w.state = f
		}
	}
	if and {
		return w.state, decided
	}
	return decided, w.state
}

// junctionOperands flattens nested uses of x's operator in source order.
func junctionOperands(x *bound.Binary) []bound.Expr {
	var out []bound.Expr
	stack := []bound.Expr{x}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if b, ok := e.(*bound.Binary); ok && b.Op == x.Op {
			stack = append(stack, b.Right, b.Left)
			continue
		}
		out = append(out, e)
	}
	return out
}

func (w *walker) visitEquality(x *bound.Binary) (*nullstate.StateMap, *nullstate.StateMap) {
	lv := w.visitExpr(x.Left)
	rv := w.visitExpr(x.Right)
	ls, rs := w.current(lv), w.current(rv)

	eq := w.state.Clone()
	ne := w.state
	switch {
	case bound.IsNullLiteral(x.Right) || rs == nullstate.KnownNull:
		w.narrowNull(eq, ne, lv, x.Left)
	case bound.IsNullLiteral(x.Left) || ls == nullstate.KnownNull:
		w.narrowNull(eq, ne, rv, x.Right)
	default:
		// Equal to a non-null value means non-null.
		if rs == nullstate.NotNull {
			w.narrowNonNull(eq, lv, x.Left)
		}
		if ls == nullstate.NotNull {
			w.narrowNonNull(eq, rv, x.Right)
		}
	}
	if x.Op == bound.OpNotEq {
		return ne, eq
	}
	return eq, ne
}

// narrowNull splits on `e == null`.
func (w *walker) narrowNull(isNull, notNull *nullstate.StateMap, v value, e bound.Expr) {
	learnIn(isNull, v, nullstate.KnownNull)
	w.narrowNonNull(notNull, v, e)
}

func (w *walker) narrowNonNull(m *nullstate.StateMap, v value, e bound.Expr) {
	if m.Unreachable {
		return
	}
	learnIn(m, v, nullstate.NotNull)
	for _, s := range w.accessWitnesses(e) {
		m.Set(s, nullstate.NotNull)
	}
}

// accessWitnesses returns the slots that must be non-null when e produced a
// non-null value: every receiver and every access along a conditional
// access chain, and the operand of an `as` conversion.
func (w *walker) accessWitnesses(e bound.Expr) []slots.SlotID {
	var out []slots.SlotID
	for {
		switch x := w.alloc.Strip(e).(type) {
		case *bound.ConditionalAccess:
			if s, ok := w.alloc.SlotOf(x.Access); ok {
				out = append(out, s)
			}
			if s, ok := w.alloc.SlotOf(x.Receiver); ok {
				out = append(out, s)
			}
			e = x.Receiver
		case *bound.Conversion:
			if !x.As {
				return out
			}
			if s, ok := w.alloc.SlotOf(x.Operand); ok {
				out = append(out, s)
			}
			e = x.Operand
		default:
			return out
		}
	}
}

package flow

import (
	"fmt"

	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/diag"
	"github.com/malphas-lang/nullflow/internal/nullstate"
)

func (w *walker) visitStmt(s bound.Stmt) {
	if b, ok := s.(*bound.Block); s == nil || (ok && b == nil) {
		return
	}
	if !w.enter(s) {
		return
	}
	defer w.leave()

	switch x := s.(type) {
	case *bound.Block:
		for _, st := range x.Stmts {
			w.visitStmt(st)
		}

	case *bound.LocalDecl:
		slot := w.alloc.Root(x.Symbol)
		if x.Init == nil {
			w.invalidate(slot)
			w.state.Delete(slot)
			return
		}
		v := w.visitExpr(x.Init)
		v.state = w.current(v)
		if nonNullTarget(x.Symbol.Type) && v.state.MayBeNull() {
			w.warn(diag.CodeNullAssignment, x.Init.Span(), []string{x.Symbol.Name}, "may be null here",
				"possible null reference assignment to '%s'", x.Symbol.Name)
		}
		if !w.state.Unreachable {
			w.assign(slot, v)
		}

	case *bound.ExprStmt:
		w.visitExpr(x.X)

	case *bound.If:
		t, f := w.visitCondition(x.Cond)
		w.state = t
		w.visitStmt(x.Then)
		afterThen := w.state
		w.state = f
		w.visitStmt(x.Else)
		w.state.Join(afterThen)

	case *bound.While:
		w.loop(x, w.whilePass(x.Cond, x.Body, nil))

	case *bound.DoWhile:
		w.loop(x, w.doWhilePass(x))

	case *bound.For:
		for _, st := range x.Init {
			w.visitStmt(st)
		}
		w.loop(x, w.whilePass(x.Cond, x.Body, x.Post))

	case *bound.Foreach:
		coll := w.visitExpr(x.Collection)
		w.dereference(coll, x.Collection)
		w.loop(x, w.foreachPass(x))

	case *bound.Return:
		if x.Value != nil {
			v := w.visitExpr(x.Value)
			if nonNullTarget(w.m.Return) && w.current(v).MayBeNull() {
				w.warn(diag.CodeNullReturn, x.Value.Span(), nil, "may be null here",
					"possible null reference return")
			}
		}
		w.state = w.unreachable()

	case *bound.Throw:
		w.visitExpr(x.Value)
		w.state = w.unreachable()

	case *bound.Try:
		w.visitTry(x)

	case *bound.Switch:
		w.visitSwitch(x)

	case *bound.Break:
		t := w.innermost(false)
		if t == nil {
			w.invariant(x, "break outside a loop or switch")
		} else {
			t.breaks.Join(w.state)
		}
		w.state = w.unreachable()

	case *bound.Continue:
		t := w.innermost(true)
		if t == nil {
			w.invariant(x, "continue outside a loop")
		} else {
			t.continues.Join(w.state)
		}
		w.state = w.unreachable()

	default:
		w.log.Debug("unsupported statement", "type", fmt.Sprintf("%T", s))
	}
}

// loopPass runs one iteration from head and returns the state leaving the
// loop and the state flowing back to the head.
type loopPass func(head *nullstate.StateMap) (exit, back *nullstate.StateMap)

// loop iterates pass silently until the head state stops changing. Past
// MaxLoopIterations every slot that still changes is widened to maybe-null.
// A final pass from the stable head reports diagnostics.
func (w *walker) loop(n bound.Node, pass loopPass) {
	entry := w.state
	head := entry.Clone()

	w.rep.Mute()
	for iter := 1; ; iter++ {
		w.stats.LoopPasses++
		_, back := pass(head.Clone())
		next := entry.Clone()
		next.Join(back)
		if next.Equal(head) {
			break
		}
		if iter < w.opts.MaxLoopIterations {
			head = next
			continue
		}
		changed := head.Widen(next)
		if changed == 0 {
			break
		}
		w.stats.LoopWidenings += changed
		w.log.Debug("loop widened", "span", n.Span().String(), "slots", changed, "iteration", iter)
	}
	w.rep.Unmute()

	w.stats.LoopPasses++
	exit, _ := pass(head)
	w.state = exit
}

func (w *walker) whilePass(cond bound.Expr, body bound.Stmt, post []bound.Expr) loopPass {
	return func(head *nullstate.StateMap) (*nullstate.StateMap, *nullstate.StateMap) {
		w.state = head
		target := w.pushTarget(true)
		defer w.popTarget()

		var t, f *nullstate.StateMap
		if cond == nil {
			t, f = w.state, w.unreachable()
		} else {
			t, f = w.visitCondition(cond)
		}
		w.state = t
		w.visitStmt(body)
		w.state.Join(target.continues)
		for _, p := range post {
			w.visitExpr(p)
		}
		f.Join(target.breaks)
		return f, w.state
	}
}

func (w *walker) doWhilePass(x *bound.DoWhile) loopPass {
	return func(head *nullstate.StateMap) (*nullstate.StateMap, *nullstate.StateMap) {
		w.state = head
		target := w.pushTarget(true)
		defer w.popTarget()

		w.visitStmt(x.Body)
		w.state.Join(target.continues)
		t, f := w.visitCondition(x.Cond)
		f.Join(target.breaks)
		return f, t
	}
}

func (w *walker) foreachPass(x *bound.Foreach) loopPass {
	return func(head *nullstate.StateMap) (*nullstate.StateMap, *nullstate.StateMap) {
		exit := head.Clone()
		w.state = head
		target := w.pushTarget(true)
		defer w.popTarget()

		if x.Var != nil && !w.state.Unreachable {
			w.assign(w.alloc.Root(x.Var), valueOf(nullstate.Initial(x.Var.Type), x.Var.Type))
		}
		w.visitStmt(x.Body)
		w.state.Join(target.continues)
		exit.Join(target.breaks)
		return exit, w.state
	}
}

// visitTry walks a try statement. A catch may start after any prefix of the
// try block ran, so it starts from the state before the block with every
// slot the block assigned widened to maybe-null and every slot it reset
// joined with its declared state.
func (w *walker) visitTry(x *bound.Try) {
	catchEntry := w.state.Clone()
	frame := newTryFrame()
	w.tries = append(w.tries, frame)
	w.visitStmt(x.Body)
	w.tries = w.tries[:len(w.tries)-1]
	after := w.state

	if !catchEntry.Unreachable {
		for s := range frame.reset {
			catchEntry.Set(s, nullstate.Join(catchEntry.Get(s), w.declared(s)))
		}
		for s := range frame.assigned {
			catchEntry.Set(s, nullstate.MaybeNull)
			for _, d := range w.alloc.Descendants(s) {
				catchEntry.Set(d, nullstate.MaybeNull)
			}
		}
	}

	for _, c := range x.Catches {
		w.state = catchEntry.Clone()
		if c.Var != nil && !w.state.Unreachable {
			w.assign(w.alloc.Root(c.Var), valueOf(nullstate.NotNull, c.Var.Type))
		}
		if c.Filter != nil {
			t, _ := w.visitCondition(c.Filter)
			w.state = t
		}
		w.visitStmt(c.Body)
		after.Join(w.state)
	}

	if x.Finally == nil {
		w.state = after
		return
	}
	// Report from every way into the finally block, then continue from the
	// normal completion only.
	w.state = after.Clone()
	w.state.Join(catchEntry)
	w.visitStmt(x.Finally)

	w.state = after
	w.rep.Mute()
	w.visitStmt(x.Finally)
	w.rep.Unmute()
}

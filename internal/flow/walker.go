package flow

import (
	"fmt"
	"log/slog"

	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/diag"
	"github.com/malphas-lang/nullflow/internal/nullstate"
	"github.com/malphas-lang/nullflow/internal/slots"
)

// value is the abstract result of an expression.
type value struct {
	state nullstate.State
	slot  slots.SlotID
	typ   *bound.TypeRef
	// elems holds the element values of a tuple literal.
	elems []value
	// inits holds object initializer entries of a creation expression.
	inits []memberValue
}

type memberValue struct {
	member *bound.Symbol
	val    value
}

func valueOf(s nullstate.State, typ *bound.TypeRef) value {
	return value{state: s, slot: slots.NoSlot, typ: typ}
}

func (v value) hasSlot() bool { return v.slot != slots.NoSlot }

// jumpTarget collects the states flowing to the end of a loop or switch.
type jumpTarget struct {
	loop      bool
	breaks    *nullstate.StateMap
	continues *nullstate.StateMap
}

// tryFrame collects the slots a try block wrote. assigned slots took a new
// value; reset slots went back to their declared state through an
// invalidation.
type tryFrame struct {
	assigned map[slots.SlotID]bool
	reset    map[slots.SlotID]bool
}

func newTryFrame() *tryFrame {
	return &tryFrame{assigned: make(map[slots.SlotID]bool), reset: make(map[slots.SlotID]bool)}
}

type walker struct {
	opts  Options
	m     *bound.Method
	alloc *slots.Allocator
	rep   *diag.Reporter
	log   *slog.Logger

	state *nullstate.StateMap
	depth int

	targets []*jumpTarget
	tries   []*tryFrame
	// receivers maps a conditional access receiver to its value inside the
	// access.
	receivers map[bound.Expr]value

	stats    Stats
	recorded map[bound.Node]*nullstate.StateMap
}

func newWalker(m *bound.Method, opts Options) *walker {
	w := &walker{
		opts:      opts,
		m:         m,
		alloc:     slots.NewAllocator(opts.MaxSlotDepth, opts.Classifier),
		rep:       diag.NewReporter(),
		log:       opts.Logger.With("method", m.Name),
		receivers: make(map[bound.Expr]value),
	}
	if opts.RecordStates {
		w.recorded = make(map[bound.Node]*nullstate.StateMap)
	}
	w.state = w.fresh()
	return w
}

// declared is the default of every state map: a slot nobody wrote holds the
// state its declared type allows.
func (w *walker) declared(id slots.SlotID) nullstate.State {
	s := w.alloc.Slot(id)
	if s.Disc.Kind == slots.DiscRoot && s.Disc.Symbol.Kind == bound.SymThis {
		return nullstate.NotNull
	}
	return nullstate.Initial(s.Type)
}

func (w *walker) fresh() *nullstate.StateMap { return nullstate.New(w.declared) }

func (w *walker) unreachable() *nullstate.StateMap { return nullstate.NewUnreachable(w.declared) }

func (w *walker) run() {
	if w.m.This != nil {
		w.alloc.Root(w.m.This)
	}
	for _, p := range w.m.Params {
		w.alloc.Root(p)
	}
	if w.m.Body == nil {
		return
	}
	w.log.Debug("walking body", "params", len(w.m.Params))
	w.visitStmt(w.m.Body)
}

// enter guards recursion depth and must be paired with leave when it returns
// true. When it returns false the caller skips the subtree; every tracked slot is then reset to maybe-null since the
// skipped code may have written any of them.
func (w *walker) enter(n bound.Node) bool {
	w.depth++
	if w.depth <= w.opts.MaxWalkDepth {
		w.record(n)
		return true
	}
	w.depth--
	w.stats.Truncated++
	w.log.Debug("walk depth exceeded", "span", n.Span().String(), "limit", w.opts.MaxWalkDepth)
	if !w.state.Unreachable {
		for id := 0; id < w.alloc.Len(); id++ {
			w.state.Set(slots.SlotID(id), nullstate.MaybeNull)
			for _, f := range w.tries {
				f.assigned[slots.SlotID(id)] = true
			}
		}
	}
	return false
}

func (w *walker) leave() { w.depth-- }

// record keeps the state before n. Silent passes are not recorded, so a
// node keeps the state of the pass that reports on it.
func (w *walker) record(n bound.Node) {
	if w.recorded != nil && !w.rep.Muted() {
		w.recorded[n] = w.state.Clone()
	}
}

// invariant reports an internal inconsistency. Strict mode aborts the body;
// otherwise the finding is logged and dropped.
func (w *walker) invariant(at bound.Node, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	var span diag.Span
	if at != nil {
		span = at.Span()
	}
	if w.opts.Strict {
		panic(&InvariantError{Method: w.m.Name, Span: span, Msg: msg})
	}
	w.log.Warn("invariant violated", "span", span.String(), "detail", msg)
}

// warn reports a flow finding.
func (w *walker) warn(code diag.Code, span diag.Span, args []string, label string, format string, a ...any) {
	d := diag.Diagnostic{
		Stage:    diag.StageFlow,
		Severity: diag.SeverityWarning,
		Code:     code,
		Span:     span,
		Args:     args,
	}
	if label != "" {
		d = d.WithPrimarySpan(span, label)
	}
	w.report(d, format, a...)
}

// report adds d unless the current point is unreachable.
func (w *walker) report(d diag.Diagnostic, format string, a ...any) {
	if w.state.Unreachable {
		return
	}
	d.Message = fmt.Sprintf(format, a...)
	w.rep.Add(d)
}

// current reads the state of v's slot, falling back to v's own state.
func (w *walker) current(v value) nullstate.State {
	if v.hasSlot() {
		return w.state.Get(v.slot)
	}
	return v.state
}

// learn records that the slot behind v holds s.
func (w *walker) learn(v value, s nullstate.State) {
	if v.hasSlot() && !w.state.Unreachable {
		w.state.Set(v.slot, s)
	}
}

// invalidate resets every slot extending id to its declared state.
func (w *walker) invalidate(id slots.SlotID) {
	for _, d := range w.alloc.Descendants(id) {
		for _, f := range w.tries {
			f.reset[d] = true
		}
		w.state.Delete(d)
	}
}

// overwriteElements handles a write through e when e is an element access
// with an index that has no slot: any tracked constant-index element of the
// same receiver may be the one written.
func (w *walker) overwriteElements(e bound.Expr) {
	ea, ok := e.(*bound.ElementAccess)
	if !ok || w.state.Unreachable {
		return
	}
	if _, ok := w.alloc.SlotOf(ea); ok {
		return
	}
	recv, ok := w.alloc.SlotOf(ea.Receiver)
	if !ok {
		return
	}
	for _, c := range w.alloc.Children(recv) {
		if w.alloc.Slot(c).Disc.Kind != slots.DiscElement {
			continue
		}
		for _, f := range w.tries {
			f.assigned[c] = true
		}
		w.invalidate(c)
		w.state.Delete(c)
	}
}

// assign writes v into slot: descendants of the slot are reset, then
// inherit whatever is known about the children of v's own slot and the
// entries of an object initializer.
func (w *walker) assign(slot slots.SlotID, v value) {
	for _, f := range w.tries {
		f.assigned[slot] = true
	}
	w.invalidate(slot)
	w.state.Set(slot, v.state)

	if v.hasSlot() && v.slot != slot {
		type pair struct{ from, to slots.SlotID }
		stack := []pair{{v.slot, slot}}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, c := range w.alloc.Children(p.from) {
				cs := w.alloc.Slot(c)
				to, ok := w.alloc.Extend(p.to, cs.Disc, cs.Type)
				if !ok {
					continue
				}
				w.state.Set(to, w.state.Get(c))
				stack = append(stack, pair{c, to})
			}
		}
	}
	for i, e := range v.elems {
		var typ *bound.TypeRef
		if v.typ != nil && i < len(v.typ.Elems) {
			typ = v.typ.Elems[i]
		}
		if to, ok := w.alloc.Extend(slot, slots.TupleElem(i), typ); ok {
			w.assign(to, e)
		}
	}
	for _, mi := range v.inits {
		if to, ok := w.alloc.Extend(slot, slots.Member(mi.member), mi.member.Type); ok {
			w.assign(to, mi.val)
		}
	}
}

// nonNullTarget reports whether storing null into a location of type t
// deserves a warning.
func nonNullTarget(t *bound.TypeRef) bool {
	return t.IsReference() && t.Nullability == bound.NotAnnotated
}

func (w *walker) pushTarget(loop bool) *jumpTarget {
	t := &jumpTarget{loop: loop, breaks: w.unreachable(), continues: w.unreachable()}
	w.targets = append(w.targets, t)
	return t
}

func (w *walker) popTarget() {
	w.targets = w.targets[:len(w.targets)-1]
}

func (w *walker) innermost(loop bool) *jumpTarget {
	for i := len(w.targets) - 1; i >= 0; i-- {
		if !loop || w.targets[i].loop {
			return w.targets[i]
		}
	}
	return nil
}

package flow_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/dag"
	"github.com/malphas-lang/nullflow/internal/diag"
	"github.com/malphas-lang/nullflow/internal/flow"
	"github.com/malphas-lang/nullflow/internal/nullstate"
)

func analyze(t *testing.T, m *bound.Method) *flow.Result {
	t.Helper()
	opts := flow.DefaultOptions()
	opts.RecordStates = true
	opts.Strict = true
	res, err := flow.Analyze(m, opts)
	require.NoError(t, err)
	return res
}

func TestIsNullNarrowsBothBranches(t *testing.T) {
	b := &tb{}
	s := b.param("s", stringQ)
	inThen := b.do(b.call(b.ref(s), toString))
	inElse := b.do(b.call(b.ref(s), toString))
	m := b.method(nil, []*bound.Symbol{s},
		b.ifElse(b.is(b.ref(s), nullP()), inThen, inElse),
	)

	res := analyze(t, m)
	slot := res.Slots.Root(s)

	st, ok := res.StateOf(slot, inThen)
	require.True(t, ok)
	assert.Equal(t, nullstate.KnownNull, st)
	st, ok = res.StateOf(slot, inElse)
	require.True(t, ok)
	assert.Equal(t, nullstate.NotNull, st)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.CodeNullDereference, res.Diagnostics[0].Code)
	assert.Equal(t, inThen.X.(*bound.Call).Receiver.Span(), res.Diagnostics[0].Span)
	assert.Equal(t, []string{"s"}, res.Diagnostics[0].Args)
}

func TestBranchesJoin(t *testing.T) {
	b := &tb{}
	s := b.param("s", stringQ)

	oneSided := b.method(nil, []*bound.Symbol{s},
		b.ifElse(b.cond(), b.assign(b.ref(s), b.str("x")), nil),
		b.do(b.call(b.ref(s), toString)),
	)
	assert.Equal(t, []diag.Code{diag.CodeNullDereference}, codes(analyze(t, oneSided).Diagnostics))

	bothSides := b.method(nil, []*bound.Symbol{s},
		b.ifElse(b.cond(), b.assign(b.ref(s), b.str("x")), b.assign(b.ref(s), b.str("y"))),
		b.do(b.call(b.ref(s), toString)),
	)
	assert.Empty(t, analyze(t, bothSides).Diagnostics)
}

func TestDereferenceWarnsOnce(t *testing.T) {
	b := &tb{}
	s := b.param("s", stringQ)
	m := b.method(nil, []*bound.Symbol{s},
		b.do(b.call(b.ref(s), toString)),
		b.do(b.call(b.ref(s), toString)),
	)
	assert.Len(t, analyze(t, m).Diagnostics, 1)
}

func TestSlotDepthBound(t *testing.T) {
	b := &tb{}
	n := b.param("n", nodeT)

	// Four member accesses exceed the depth bound, so the pattern's fact
	// about n.Next.Next.Next.Next is not kept.
	deep := props(nodeNext, props(nodeNext, props(nodeNext, props(nodeNext, nullP()))))
	chain := bound.Expr(b.ref(n))
	for i := 0; i < 4; i++ {
		chain = b.member(chain, nodeNext)
	}
	m := b.method(nil, []*bound.Symbol{n},
		b.ifElse(b.is(b.ref(n), deep), b.do(b.call(chain, toString)), nil),
	)
	assert.Empty(t, analyze(t, m).Diagnostics)

	shallow := b.method(nil, []*bound.Symbol{n},
		b.ifElse(b.is(b.ref(n), props(nodeNext, nullP())),
			b.do(b.call(b.member(b.ref(n), nodeNext), toString)), nil),
	)
	ds := analyze(t, shallow).Diagnostics
	require.Len(t, ds, 1)
	assert.Equal(t, []string{"n.Next"}, ds[0].Args)
}

func TestLoopReachesFixedPoint(t *testing.T) {
	b := &tb{}
	s := b.sym("s", stringQ)
	loop := &bound.While{
		Cond: b.cond(),
		Body: b.block(
			b.do(b.call(b.ref(s), toString)),
			b.assign(b.ref(s), b.null()),
		),
		Pos: b.pos(),
	}
	m := b.method(nil, nil, b.decl(s, b.str("a")), loop)

	res := analyze(t, m)
	require.Len(t, res.Diagnostics, 1, "the second iteration sees the null")
	assert.Equal(t, diag.CodeNullDereference, res.Diagnostics[0].Code)
	assert.Greater(t, res.Stats.LoopPasses, 1)
	assert.Zero(t, res.Stats.LoopWidenings)
}

func TestLoopWideningAtCap(t *testing.T) {
	b := &tb{}
	s := b.sym("s", stringQ)
	after := b.do(b.call(b.ref(s), toString))
	m := b.method(nil, nil,
		b.decl(s, b.str("a")),
		&bound.While{Cond: b.cond(), Body: b.assign(b.ref(s), b.null()), Pos: b.pos()},
		after,
	)

	opts := flow.DefaultOptions()
	opts.MaxLoopIterations = 1
	res, err := flow.Analyze(m, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.LoopWidenings)
	assert.Equal(t, []diag.Code{diag.CodeNullDereference}, codes(res.Diagnostics))
}

func TestBreakAndContinueReachLoopExit(t *testing.T) {
	b := &tb{}
	s := b.sym("s", stringQ)
	loop := &bound.While{
		Cond: b.cond(),
		Body: b.block(
			b.assign(b.ref(s), b.null()),
			b.ifElse(b.cond(), &bound.Break{Pos: b.pos()}, nil),
			b.assign(b.ref(s), b.str("b")),
			b.ifElse(b.cond(), &bound.Continue{Pos: b.pos()}, nil),
		),
		Pos: b.pos(),
	}
	after := b.do(b.call(b.ref(s), toString))
	m := b.method(nil, nil, b.decl(s, b.str("a")), loop, after)

	ds := analyze(t, m).Diagnostics
	require.Len(t, ds, 1)
	assert.Equal(t, after.X.(*bound.Call).Receiver.Span(), ds[0].Span, "break carries the null out")
}

func TestCatchSeesWidenedAssignments(t *testing.T) {
	b := &tb{}
	s := b.sym("s", stringQ)
	inCatch := b.do(b.call(b.ref(s), toString))
	m := b.method(nil, nil,
		b.decl(s, b.str("a")),
		&bound.Try{
			Body:    b.block(b.assign(b.ref(s), b.null()), b.assign(b.ref(s), b.str("b"))),
			Catches: []*bound.Catch{{Body: b.block(inCatch), Pos: b.pos()}},
			Pos:     b.pos(),
		},
		b.do(b.call(b.ref(s), toString)),
	)

	ds := analyze(t, m).Diagnostics
	require.Len(t, ds, 1)
	assert.Equal(t, inCatch.X.(*bound.Call).Receiver.Span(), ds[0].Span)
}

func TestCatchSeesCallInvalidations(t *testing.T) {
	b := &tb{}
	l := b.param("l", linkT)
	mayThrow := &bound.Signature{Name: "MayThrow", Static: true}
	inCatch := b.do(b.call(b.member(b.ref(l), linkNext), toString))
	m := b.method(nil, []*bound.Symbol{l},
		b.ifElse(b.ne(b.member(b.ref(l), linkNext), b.null()), b.block(
			&bound.Try{
				Body:    b.block(b.do(b.call(b.ref(l), mutate)), b.do(b.call(nil, mayThrow))),
				Catches: []*bound.Catch{{Body: b.block(inCatch), Pos: b.pos()}},
				Pos:     b.pos(),
			},
		), nil),
	)

	res := analyze(t, m)
	st, ok := res.StateOfExpr(b.member(b.ref(l), linkNext), inCatch)
	require.True(t, ok)
	assert.Equal(t, nullstate.MaybeNull, st)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, []string{"l.Next"}, res.Diagnostics[0].Args)
}

func TestFinallyStatesComeFromReportingPass(t *testing.T) {
	b := &tb{}
	s := b.sym("s", stringQ)
	inFinally := b.do(b.call(b.ref(s), toString))
	m := b.method(nil, nil,
		b.decl(s, b.str("a")),
		&bound.Try{
			Body:    b.block(b.assign(b.ref(s), b.null()), b.assign(b.ref(s), b.str("b"))),
			Finally: b.block(inFinally),
			Pos:     b.pos(),
		},
	)

	res := analyze(t, m)
	st, ok := res.StateOf(res.Slots.Root(s), inFinally)
	require.True(t, ok)
	assert.Equal(t, nullstate.MaybeNull, st, "the finally block is entered from the throwing paths too")
	assert.Len(t, res.Diagnostics, 1)
}

func TestIndexedWriteInvalidatesElements(t *testing.T) {
	fill := &bound.Signature{
		Name:   "Fill",
		Params: []*bound.Symbol{{Name: "slot", Kind: bound.SymParam, Type: stringQ, RefKind: bound.RefRef}},
		Static: true,
	}
	tests := []struct {
		name  string
		write func(b *tb, a, i *bound.Symbol) bound.Stmt
		want  int
	}{
		{
			name: "variable index",
			write: func(b *tb, a, i *bound.Symbol) bound.Stmt {
				return b.assign(b.index(b.ref(a), b.ref(i), stringQ), b.null())
			},
			want: 1,
		},
		{
			name: "other constant index",
			write: func(b *tb, a, i *bound.Symbol) bound.Stmt {
				return b.assign(b.index(b.ref(a), b.lit(1, intT), stringQ), b.null())
			},
			want: 0,
		},
		{
			name: "ref argument with variable index",
			write: func(b *tb, a, i *bound.Symbol) bound.Stmt {
				return b.do(b.call(nil, fill, b.index(b.ref(a), b.ref(i), stringQ)))
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &tb{}
			a := b.param("a", arrayT)
			i := b.param("i", intT)
			first := func() bound.Expr { return b.index(b.ref(a), b.lit(0, intT), stringQ) }
			m := b.method(nil, []*bound.Symbol{a, i},
				b.ifElse(b.ne(first(), b.null()), b.block(
					tt.write(b, a, i),
					b.do(b.call(first(), toString)),
				), nil),
			)

			ds := analyze(t, m).Diagnostics
			require.Len(t, ds, tt.want)
			for _, d := range ds {
				assert.Equal(t, diag.CodeNullDereference, d.Code)
				assert.Equal(t, []string{"a[0]"}, d.Args)
			}
		})
	}
}

func TestConversions(t *testing.T) {
	deref := func(b *tb, e bound.Expr) bound.Stmt { return b.do(b.call(e, toString)) }
	guarded := func(b *tb, p *bound.Symbol, then bound.Stmt) bound.Stmt {
		return b.ifElse(b.ne(b.ref(p), b.null()), then, nil)
	}
	tests := []struct {
		name  string
		param *bound.TypeRef
		body  func(b *tb, p *bound.Symbol) bound.Stmt
		want  int
	}{
		{
			name:  "user-defined to a nullable target",
			param: stringT,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				return deref(b, b.conv(b.ref(p), bound.ConvUserDefined, linkQ))
			},
			want: 1,
		},
		{
			name:  "user-defined to a non-null target",
			param: stringQ,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				return deref(b, b.conv(b.ref(p), bound.ConvUserDefined, linkT))
			},
		},
		{
			name:  "boxing a checked nullable value",
			param: intQ,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				return guarded(b, p, deref(b, b.conv(b.ref(p), bound.ConvBoxing, objectQ)))
			},
		},
		{
			name:  "boxing an unchecked nullable value",
			param: intQ,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				return deref(b, b.conv(b.ref(p), bound.ConvBoxing, objectQ))
			},
			want: 1,
		},
		{
			name:  "reference conversion keeps a narrowing",
			param: stringQ,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				return guarded(b, p, deref(b, b.conv(b.ref(p), bound.ConvImplicitReference, objectQ)))
			},
		},
		{
			name:  "narrowing through a reference conversion",
			param: stringQ,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				c := b.ne(b.conv(b.ref(p), bound.ConvImplicitReference, objectQ), b.null())
				return b.ifElse(c, deref(b, b.ref(p)), nil)
			},
		},
		{
			name:  "reference conversion of a maybe-null value",
			param: stringQ,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				return deref(b, b.conv(b.ref(p), bound.ConvImplicitReference, objectQ))
			},
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &tb{}
			p := b.param("p", tt.param)
			m := b.method(nil, []*bound.Symbol{p}, tt.body(b, p))
			assert.Len(t, analyze(t, m).Diagnostics, tt.want)
		})
	}
}

func TestAsOperator(t *testing.T) {
	deref := func(b *tb, e bound.Expr) bound.Stmt { return b.do(b.call(e, toString)) }
	tests := []struct {
		name  string
		param *bound.TypeRef
		body  func(b *tb, p *bound.Symbol) bound.Stmt
		want  int
	}{
		{
			name:  "explicit reference may fail",
			param: objectT,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				return deref(b, b.as(b.ref(p), bound.ConvExplicitReference, linkT))
			},
			want: 1,
		},
		{
			name:  "implicit reference keeps a non-null operand",
			param: stringT,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				return deref(b, b.as(b.ref(p), bound.ConvImplicitReference, objectQ))
			},
		},
		{
			name:  "implicit reference keeps a maybe-null operand",
			param: stringQ,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				return deref(b, b.as(b.ref(p), bound.ConvImplicitReference, objectQ))
			},
			want: 1,
		},
		{
			name:  "boxing a plain value",
			param: intT,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				return deref(b, b.as(b.ref(p), bound.ConvBoxing, objectQ))
			},
		},
		{
			name:  "non-null result narrows the operand",
			param: objectQ,
			body: func(b *tb, p *bound.Symbol) bound.Stmt {
				c := b.ne(b.as(b.ref(p), bound.ConvExplicitReference, linkQ), b.null())
				return b.ifElse(c, deref(b, b.ref(p)), deref(b, b.ref(p)))
			},
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &tb{}
			p := b.param("p", tt.param)
			m := b.method(nil, []*bound.Symbol{p}, tt.body(b, p))
			assert.Len(t, analyze(t, m).Diagnostics, tt.want)
		})
	}
}

func TestAssignmentInvalidatesDescendants(t *testing.T) {
	b := &tb{}
	l := b.param("l", linkT)
	other := b.param("other", linkT)

	build := func(reassign bool) *bound.Method {
		then := []bound.Stmt{}
		if reassign {
			then = append(then, b.assign(b.ref(l), b.ref(other)))
		}
		then = append(then, b.do(b.call(b.member(b.ref(l), linkNext), toString)))
		return b.method(nil, []*bound.Symbol{l, other},
			b.ifElse(b.ne(b.member(b.ref(l), linkNext), b.null()), b.block(then...), nil),
		)
	}

	assert.Empty(t, analyze(t, build(false)).Diagnostics)
	ds := analyze(t, build(true)).Diagnostics
	require.Len(t, ds, 1)
	assert.Equal(t, []string{"l.Next"}, ds[0].Args)
}

func TestOpaqueCallInvalidatesReceiverPaths(t *testing.T) {
	b := &tb{}
	l := b.param("l", linkT)
	build := func(sig *bound.Signature) *bound.Method {
		return b.method(nil, []*bound.Symbol{l},
			b.ifElse(b.ne(b.member(b.ref(l), linkNext), b.null()), b.block(
				b.do(b.call(b.ref(l), sig)),
				b.do(b.call(b.member(b.ref(l), linkNext), toString)),
			), nil),
		)
	}

	assert.Len(t, analyze(t, build(mutate)).Diagnostics, 1)
	assert.Empty(t, analyze(t, build(&bound.Signature{Name: "Peek", Pure: true})).Diagnostics)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	b := &tb{}
	s := b.param("s", stringQ)
	m := b.method(stringT, []*bound.Symbol{s},
		b.do(b.call(b.ref(s), toString)),
		b.assign(b.ref(s), b.null()),
		b.ret(b.ref(s)),
	)
	first := analyze(t, m)
	second := analyze(t, m)
	assert.Empty(t, cmp.Diff(first.Diagnostics, second.Diagnostics))
	assert.Equal(t, first.Stats, second.Stats)
}

func TestSwitchExpressionMissingNull(t *testing.T) {
	b := &tb{}
	o := b.param("o", objectQ)
	r := b.sym("r", intT)
	sw := b.switchExpr(b.ref(o), intT,
		b.arm(&bound.TypePattern{T: stringT}, b.lit(1, intT)),
		b.arm(&bound.TypePattern{T: objectT}, b.lit(2, intT)),
	)
	m := b.method(nil, []*bound.Symbol{o}, b.decl(r, sw))

	ds := analyze(t, m).Diagnostics
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeSwitchNotExhaustiveForNull, ds[0].Code)
	assert.Equal(t, diag.StagePatterns, ds[0].Stage)
	assert.Equal(t, []string{"null"}, ds[0].Args)
	assert.Equal(t, sw.Pos, ds[0].Span)
}

func TestSwitchExpressionTupleCounterExample(t *testing.T) {
	b := &tb{}
	x := b.param("a", objectQ)
	y := b.param("b", objectQ)
	tuple := &bound.TupleLiteral{Elems: []bound.Expr{b.ref(x), b.ref(y)}, T: bound.Tuple(objectQ, objectQ), Pos: b.pos()}
	sw := b.switchExpr(tuple, intT,
		b.arm(&bound.RecursivePattern{Positional: []bound.Pattern{nullP(), &bound.ConstantPattern{Value: 2}}}, b.lit(1, intT)),
		b.arm(&bound.RecursivePattern{Positional: []bound.Pattern{notNullP(), notNullP()}}, b.lit(2, intT)),
	)
	m := b.method(nil, []*bound.Symbol{x, y}, b.do(sw))

	ds := analyze(t, m).Diagnostics
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeSwitchNotExhaustiveForNull, ds[0].Code)
	assert.Equal(t, []string{"(null, _)"}, ds[0].Args)
}

func TestSwitchExpressionOnNonNullInput(t *testing.T) {
	b := &tb{}
	s := b.param("s", stringQ)
	sw := b.switchExpr(b.ref(s), intT, b.arm(&bound.TypePattern{T: stringT}, b.lit(1, intT)))
	m := b.method(nil, []*bound.Symbol{s},
		b.ifElse(b.ne(b.ref(s), b.null()), b.do(sw), nil),
	)
	assert.Empty(t, analyze(t, m).Diagnostics)
}

func TestSwitchExpressionArmStates(t *testing.T) {
	b := &tb{}
	s := b.param("s", stringQ)
	r := b.sym("r", stringT)
	// s switch { null => "none", _ => s }
	sw := b.switchExpr(b.ref(s), stringT,
		b.arm(nullP(), b.str("none")),
		b.arm(&bound.DiscardPattern{}, b.ref(s)),
	)
	m := b.method(nil, []*bound.Symbol{s}, b.decl(r, sw))
	assert.Empty(t, analyze(t, m).Diagnostics, "the discard arm only sees non-null s")
}

func TestSubsumedArm(t *testing.T) {
	b := &tb{}
	o := b.param("o", objectQ)
	late := b.arm(&bound.TypePattern{T: stringT}, b.lit(2, intT))
	m := b.method(nil, []*bound.Symbol{o},
		b.do(b.switchExpr(b.ref(o), intT, b.arm(&bound.DiscardPattern{}, b.lit(1, intT)), late)),
	)

	ds := analyze(t, m).Diagnostics
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodePatternArmSubsumed, ds[0].Code)
	assert.Equal(t, late.Pos, ds[0].Span)

	opts := flow.DefaultOptions()
	opts.ReportSubsumed = false
	res, err := flow.Analyze(m, opts)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
}

func TestSwitchStatementJoinsSections(t *testing.T) {
	b := &tb{}
	o := b.param("o", objectQ)
	sw := &bound.Switch{
		Scrutinee: b.ref(o),
		Sections: []*bound.SwitchSection{
			{Labels: []*bound.SwitchLabel{{Pattern: nullP(), Pos: b.pos()}}, Body: []bound.Stmt{b.ret(nil)}},
			{Labels: []*bound.SwitchLabel{{Pos: b.pos()}}, Body: []bound.Stmt{&bound.Break{Pos: b.pos()}}},
		},
		Pos: b.pos(),
	}
	m := b.method(nil, []*bound.Symbol{o}, sw, b.do(b.call(b.ref(o), toString)))
	assert.Empty(t, analyze(t, m).Diagnostics)
}

func TestPatternBindings(t *testing.T) {
	b := &tb{}
	l := b.param("l", linkQ)

	n := b.sym("n", linkQ)
	varBinding := b.method(nil, []*bound.Symbol{l},
		b.ifElse(b.is(b.ref(l), props(linkNext, &bound.VarPattern{Local: n})),
			b.do(b.call(b.ref(n), toString)), nil),
	)
	ds := analyze(t, varBinding).Diagnostics
	require.Len(t, ds, 1)
	assert.Equal(t, []string{"n"}, ds[0].Args)

	k := b.sym("k", linkT)
	checked := b.method(nil, []*bound.Symbol{l},
		b.ifElse(b.is(b.ref(l), props(linkNext, &bound.RecursivePattern{Local: k})),
			b.do(b.call(b.ref(k), toString)), nil),
	)
	assert.Empty(t, analyze(t, checked).Diagnostics)
}

func TestConditionalAccessAndCoalesce(t *testing.T) {
	b := &tb{}
	l := b.param("l", linkQ)
	recv := b.ref(l)
	access := &bound.ConditionalAccess{
		Receiver: recv,
		Access:   b.member(&bound.ReceiverPlaceholder{Receiver: recv, Pos: b.pos()}, linkNext),
		T:        linkQ,
		Pos:      b.pos(),
	}
	m := b.method(nil, []*bound.Symbol{l},
		b.ifElse(b.ne(access, b.null()), b.block(
			b.do(b.call(b.ref(l), toString)),
			b.do(b.call(b.member(b.ref(l), linkNext), toString)),
		), nil),
	)
	assert.Empty(t, analyze(t, m).Diagnostics)

	p := b.param("p", stringQ)
	q := b.param("q", stringQ)
	x := b.sym("x", stringT)
	y := b.sym("y", stringT)
	coalesce := b.method(nil, []*bound.Symbol{p, q},
		b.decl(x, &bound.Coalesce{Left: b.ref(p), Right: b.str("d"), T: stringT, Pos: b.pos()}),
		b.decl(y, &bound.Coalesce{Left: b.ref(p), Right: b.ref(q), T: stringQ, Pos: b.pos()}),
	)
	ds := analyze(t, coalesce).Diagnostics
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeNullAssignment, ds[0].Code)
	assert.Equal(t, []string{"y"}, ds[0].Args)
}

func TestReturnArgumentAndUnwrap(t *testing.T) {
	b := &tb{}
	p := b.param("p", stringQ)
	n := b.param("n", intQ)
	target := &bound.Symbol{Name: "value", Kind: bound.SymParam, Type: stringT}
	use := &bound.Signature{Name: "Use", Params: []*bound.Symbol{target}, Static: true}

	m := b.method(stringT, []*bound.Symbol{p, n},
		b.do(b.call(nil, use, b.ref(p))),
		b.do(&bound.Conversion{Operand: b.ref(n), Kind: bound.ConvExplicitNullable, T: intT, Explicit: true, Pos: b.pos()}),
		b.ret(b.ref(p)),
	)

	assert.Equal(t, []diag.Code{diag.CodeNullArgument, diag.CodeNullUnwrap, diag.CodeNullReturn},
		codes(analyze(t, m).Diagnostics))
}

func TestUnreachableCodeIsSilent(t *testing.T) {
	b := &tb{}
	s := b.param("s", stringQ)
	m := b.method(nil, []*bound.Symbol{s},
		b.ret(nil),
		b.do(b.call(b.ref(s), toString)),
	)
	assert.Empty(t, analyze(t, m).Diagnostics)
}

func TestStrictInvariant(t *testing.T) {
	b := &tb{}
	m := b.method(nil, nil, &bound.Break{Pos: b.pos()})

	opts := flow.DefaultOptions()
	opts.Strict = true
	_, err := flow.Analyze(m, opts)
	var ie *flow.InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Contains(t, ie.Msg, "break outside")

	opts.Strict = false
	res, err := flow.Analyze(m, opts)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
}

func TestWalkDepthGuard(t *testing.T) {
	b := &tb{}
	s := b.param("s", stringQ)
	var e bound.Expr = b.ref(s)
	for i := 0; i < 64; i++ {
		e = &bound.Not{Operand: e, T: boolT, Pos: b.pos()}
	}
	m := b.method(nil, []*bound.Symbol{s}, b.do(e))

	opts := flow.DefaultOptions()
	opts.MaxWalkDepth = 16
	res, err := flow.Analyze(m, opts)
	require.NoError(t, err)
	assert.Positive(t, res.Stats.Truncated)
}

func TestGuardedArmLeavesGap(t *testing.T) {
	b := &tb{}
	s := b.param("s", stringQ)
	guarded := b.arm(notNullP(), b.lit(1, intT))
	guarded.When = b.cond()
	sw := b.switchExpr(b.ref(s), intT, guarded, b.arm(nullP(), b.lit(0, intT)))
	m := b.method(nil, []*bound.Symbol{s}, b.do(sw))

	ds := analyze(t, m).Diagnostics
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeSwitchNotExhaustiveWithWhen, ds[0].Code)
	assert.Equal(t, []string{"not null"}, ds[0].Args)
}

func TestDagsListsConstructsInSourceOrder(t *testing.T) {
	b := &tb{}
	o := b.param("o", objectQ)
	sw := &bound.Switch{
		Scrutinee: b.ref(o),
		Sections: []*bound.SwitchSection{
			{Labels: []*bound.SwitchLabel{{Pos: b.pos()}}, Body: []bound.Stmt{&bound.Break{Pos: b.pos()}}},
			{Labels: []*bound.SwitchLabel{{Pattern: nullP(), Pos: b.pos()}}, Body: []bound.Stmt{b.ret(nil)}},
		},
		Pos: b.pos(),
	}
	is := b.is(b.ref(o), &bound.TypePattern{T: stringT})
	m := b.method(nil, []*bound.Symbol{o},
		b.ifElse(is, b.do(b.switchExpr(b.ref(o), intT, b.arm(&bound.DiscardPattern{}, b.lit(1, intT)))), nil),
		sw,
	)

	cs := flow.Dags(m, nil)
	require.Len(t, cs, 3)
	assert.Equal(t, []string{"is", "switch expression", "switch statement"},
		[]string{cs[0].Kind, cs[1].Kind, cs[2].Kind})
	assert.Equal(t, is.Pos, cs[0].Pos)

	// default is the last arm whatever its position.
	last := cs[2].Dag.Arms[len(cs[2].Dag.Arms)-1]
	assert.Equal(t, sw.Sections[0].Labels[0].Pos, last.Pos)
	assert.Equal(t, dag.NoNode, cs[2].Dag.Fail)
}

package exhaust_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/dag"
	"github.com/malphas-lang/nullflow/internal/diag"
	"github.com/malphas-lang/nullflow/internal/exhaust"
	"github.com/malphas-lang/nullflow/internal/nullstate"
)

var (
	objectQ = bound.Named(bound.ObjectDef, bound.Annotated)
	stringQ = bound.Named(bound.StringDef, bound.Annotated)
	intT    = bound.Named(bound.IntDef, bound.NotAnnotated)

	nullP    = &bound.ConstantPattern{Null: true}
	notNullP = &bound.RecursivePattern{}
)

func arms(ps ...bound.Pattern) []dag.Arm {
	out := make([]dag.Arm, len(ps))
	for i, p := range ps {
		out[i] = dag.Arm{Pattern: p}
	}
	return out
}

func tuple(ps ...bound.Pattern) *bound.RecursivePattern {
	return &bound.RecursivePattern{Positional: ps}
}

func inputState(s nullstate.State) exhaust.Input {
	return exhaust.Input{State: func(t dag.TempID) nullstate.State {
		if t == dag.InputTemp {
			return s
		}
		return nullstate.MaybeNull
	}}
}

func TestTupleNullCombinationsAreExhaustive(t *testing.T) {
	d := dag.Build(bound.Tuple(objectQ, objectQ), arms(
		tuple(nullP, nullP),
		tuple(nullP, notNullP),
		tuple(notNullP, nullP),
		tuple(notNullP, notNullP),
	), nil)

	res := exhaust.Check(d, exhaust.Input{})
	assert.Equal(t, exhaust.Exhaustive, res.Verdict)
	assert.Empty(t, res.Example)
}

func TestMissingNullCombinationCounterExample(t *testing.T) {
	d := dag.Build(bound.Tuple(objectQ, objectQ), arms(
		tuple(nullP, &bound.ConstantPattern{Value: 2}),
		tuple(notNullP, notNullP),
	), nil)

	res := exhaust.Check(d, exhaust.Input{})
	assert.Equal(t, exhaust.NotExhaustiveForNull, res.Verdict)
	assert.Equal(t, "(null, _)", res.Example)
	assert.Equal(t, diag.CodeSwitchNotExhaustiveForNull, res.Verdict.Code())
	require.NotEmpty(t, res.Path)
	last := res.Path[len(res.Path)-1]
	assert.True(t, d.Node(d.Node(last.Node).False).IsFail() || d.Node(d.Node(last.Node).True).IsFail())
}

func TestGuardedNullArmIsWeaker(t *testing.T) {
	d := dag.Build(objectQ, []dag.Arm{{Pattern: nullP, HasWhen: true}, {Pattern: notNullP}}, nil)

	res := exhaust.Check(d, inputState(nullstate.MaybeNull))
	assert.Equal(t, exhaust.NotExhaustiveForNullWithWhen, res.Verdict)
	assert.Equal(t, "null", res.Example)
	assert.Equal(t, diag.CodeSwitchNotExhaustiveForNullWithWhen, res.Verdict.Code())
}

func TestNonNullInputSkipsNullEdge(t *testing.T) {
	d := dag.Build(stringQ, arms(&bound.TypePattern{T: bound.Named(bound.StringDef, bound.NotAnnotated)}), nil)
	require.NotEqual(t, dag.NoNode, d.Fail)

	assert.Equal(t, exhaust.Exhaustive, exhaust.Check(d, inputState(nullstate.NotNull)).Verdict)

	res := exhaust.Check(d, inputState(nullstate.MaybeNull))
	assert.Equal(t, exhaust.NotExhaustiveForNull, res.Verdict)
	assert.Equal(t, "null", res.Example)
}

func TestExplicitNullPatternKeepsNullEdge(t *testing.T) {
	d := dag.Build(stringQ, []dag.Arm{{Pattern: nullP, HasWhen: true}, {Pattern: notNullP}}, nil)

	res := exhaust.Check(d, inputState(nullstate.NotNull))
	assert.Equal(t, exhaust.NotExhaustiveForNullWithWhen, res.Verdict)
}

func TestNonNullValueMissing(t *testing.T) {
	d := dag.Build(intT, arms(&bound.ConstantPattern{Value: 1}, &bound.ConstantPattern{Value: 2}), nil)

	res := exhaust.Check(d, exhaust.Input{})
	assert.Equal(t, exhaust.NotExhaustive, res.Verdict)
	assert.Equal(t, "_", res.Example)
	assert.Equal(t, diag.CodeSwitchNotExhaustive, res.Verdict.Code())
}

func TestNonNullBeatsNull(t *testing.T) {
	d := dag.Build(objectQ, arms(&bound.TypePattern{T: bound.Named(bound.StringDef, bound.NotAnnotated)}), nil)

	res := exhaust.Check(d, inputState(nullstate.MaybeNull))
	assert.Equal(t, exhaust.NotExhaustive, res.Verdict, "a missing non-null value is reported before null")
	assert.Equal(t, "not null", res.Example)
}

func TestPropertyCounterExample(t *testing.T) {
	node := &bound.TypeDef{Name: "Node", Kind: bound.KindClass, Base: bound.ObjectDef}
	next := &bound.Symbol{Name: "Next", Kind: bound.SymField, Type: bound.Named(node, bound.Annotated)}
	node.Members = []*bound.Symbol{next}
	p := &bound.RecursivePattern{Properties: []*bound.PropertySubpattern{{Member: next, Pattern: nullP}}}

	d := dag.Build(bound.Named(node, bound.Annotated), arms(p, nullP), nil)
	res := exhaust.Check(d, inputState(nullstate.MaybeNull))
	assert.Equal(t, exhaust.NotExhaustive, res.Verdict)
	assert.Equal(t, "{ Next: not null }", res.Example)
}

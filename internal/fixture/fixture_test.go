package fixture_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/diag"
	"github.com/malphas-lang/nullflow/internal/fixture"
	"github.com/malphas-lang/nullflow/internal/flow"
)

const linked = `
types:
  - name: Node
    members:
      - {name: Next, type: "Node?"}
      - {name: Pair, type: "(object?, int)"}
methods:
  - name: M
    params: [{name: n, type: "Node?"}]
    returns: Node
    body:
      - decl: {name: x, init: n}
      - if:
          cond: {is: {of: x, pattern: {decl: {type: Node, name: y}}}}
          then:
            - return: y
      - return: {bang: x}
`

func TestDecodeResolvesSymbols(t *testing.T) {
	u, err := fixture.Decode("linked.yaml", []byte(linked))
	require.NoError(t, err)
	assert.Equal(t, "linked", u.Name)
	require.Len(t, u.Types, 1)
	require.Len(t, u.Methods, 1)

	node := u.Types[0]
	assert.Equal(t, bound.KindClass, node.Kind)
	assert.Same(t, bound.ObjectDef, node.Base)
	assert.Equal(t, "Node?", node.Member("Next").Type.String())
	assert.Same(t, node, node.Member("Next").Type.Def)
	assert.Equal(t, "(object?, int)", node.Member("Pair").Type.String())

	m := u.Methods[0]
	assert.Equal(t, "Node", m.Return.String())
	n := m.Params[0]

	decl := m.Body.Stmts[0].(*bound.LocalDecl)
	assert.Same(t, n, decl.Init.(*bound.Local).Symbol)
	assert.Equal(t, "Node?", decl.Symbol.Type.String(), "declarations without a type take the initializer's")

	is := m.Body.Stmts[1].(*bound.If).Cond.(*bound.IsPattern)
	assert.Same(t, decl.Symbol, is.Operand.(*bound.Local).Symbol)
	tp := is.Pattern.(*bound.TypePattern)
	ret := m.Body.Stmts[1].(*bound.If).Then.(*bound.Block).Stmts[0].(*bound.Return)
	assert.Same(t, tp.Local, ret.Value.(*bound.Local).Symbol, "pattern variables are visible after the pattern")
}

func TestDecodeTypes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"int?", "int?"},
		{"string", "string"},
		{"(object?, object?)", "(object?, object?)"},
		{"(int, (string?, object))?", "(int, (string?, object))?"},
		{" ( int , bool ) ", "(int, bool)"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			src := "methods:\n  - name: M\n    params: [{name: p, type: \"" + tt.in + "\"}]\n"
			u, err := fixture.Decode("t.yaml", []byte(src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.Methods[0].Params[0].Type.String())
		})
	}
}

func TestDecodeSpans(t *testing.T) {
	u, err := fixture.Decode("linked.yaml", []byte(linked))
	require.NoError(t, err)
	m := u.Methods[0]
	assert.Equal(t, diag.Span{Filename: "linked.yaml", Line: 8, Column: 5}, m.Pos)

	decl := m.Body.Stmts[0].(*bound.LocalDecl)
	assert.Equal(t, 12, decl.Pos.Line)
	assert.Equal(t, 9, decl.Pos.Column)
	init := decl.Init.(*bound.Local)
	assert.Equal(t, diag.Span{Filename: "linked.yaml", Line: 12, Column: 31}, init.Pos)
}

const downcast = `
types:
  - name: Node
methods:
  - name: M
    params: [{name: o, type: "object?"}]
    body:
      - if:
          cond: {ne: [{as: {of: o, to: Node}}, null]}
          then:
            - expr: {call: {on: o, method: ToString}}
          else:
            - expr: {call: {on: o, method: ToString}}
`

func TestDecodeAs(t *testing.T) {
	u, err := fixture.Decode("downcast.yaml", []byte(downcast))
	require.NoError(t, err)
	m := u.Methods[0]

	cond := m.Body.Stmts[0].(*bound.If).Cond.(*bound.Binary)
	conv := cond.Left.(*bound.Conversion)
	assert.True(t, conv.As)
	assert.True(t, conv.Explicit)
	assert.Equal(t, bound.ConvExplicitReference, conv.Kind)
	assert.Equal(t, "Node", conv.T.String())

	res, err := flow.Analyze(m, flow.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1, "only the else branch dereferences a maybe-null o")
	assert.Equal(t, 13, res.Diagnostics[0].Span.Line)
	assert.Equal(t, []string{"o"}, res.Diagnostics[0].Args)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{
			name: "unknown type",
			src:  "methods:\n  - name: M\n    params: [{name: p, type: Widget}]\n",
			line: 3,
			msg:  "unknown type Widget",
		},
		{
			name: "undefined name",
			src:  "methods:\n  - name: M\n    body:\n      - expr: q\n",
			line: 4,
			msg:  "undefined name q",
		},
		{
			name: "unknown member",
			src:  "methods:\n  - name: M\n    params: [{name: s, type: string}]\n    body:\n      - expr: {member: {of: s, name: Size}}\n",
			line: 5,
			msg:  "has no member Size",
		},
		{
			name: "unknown key",
			src:  "methods:\n  - name: M\n    bodee: []\n",
			line: 3,
			msg:  `unknown key "bodee"`,
		},
		{
			name: "bad statement",
			src:  "methods:\n  - name: M\n    body:\n      - loop: {}\n",
			line: 4,
			msg:  `unknown statement kind "loop"`,
		},
		{
			name: "unbalanced tuple",
			src:  "methods:\n  - name: M\n    params: [{name: p, type: \"(int, int\"}]\n",
			line: 3,
			msg:  "unbalanced parentheses",
		},
		{
			name: "unknown method",
			src:  "methods:\n  - name: M\n    params: [{name: s, type: string}]\n    body:\n      - expr: {call: {on: s, method: Trim}}\n",
			line: 5,
			msg:  "unknown method Trim",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixture.Decode("bad.yaml", []byte(tt.src))
			require.Error(t, err)
			var fe *fixture.Error
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.line, fe.Span.Line)
			assert.Contains(t, fe.Msg, tt.msg)
		})
	}
}

func TestDecodeReportsEveryError(t *testing.T) {
	src := "methods:\n  - name: M\n    params: [{name: p, type: A}, {name: q, type: B}]\n"
	_, err := fixture.Decode("bad.yaml", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type A")
	assert.Contains(t, err.Error(), "unknown type B")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := fixture.Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

// TestFixtures analyzes every method of the testdata units.
func TestFixtures(t *testing.T) {
	tests := []struct {
		file string
		want map[string][]string
	}{
		{
			file: "deref.yaml",
			want: map[string][]string{
				"Guarded":   nil,
				"Unguarded": {"NULL_DEREFERENCE@23:29(n)"},
				"NextHop":   {"NULL_RETURN@34:23()"},
			},
		},
		{
			file: "patterns.yaml",
			want: map[string][]string{
				"MissingNull": {"SWITCH_NOT_EXHAUSTIVE_FOR_NULL@8:11(null)"},
				"TupleGap":    {"SWITCH_NOT_EXHAUSTIVE_FOR_NULL@18:11((null, _))"},
				"Subsumed":    {"PATTERN_ARM_SUBSUMED@32:17()"},
				"Sections":    nil,
			},
		},
		{
			file: "loops.yaml",
			want: map[string][]string{
				"Walk":    {"NULL_DEREFERENCE@15:27(cur)"},
				"Recover": {"NULL_DEREFERENCE@28:37(t)"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			u, err := fixture.Load(filepath.Join("testdata", tt.file))
			require.NoError(t, err)
			require.Len(t, u.Methods, len(tt.want))
			for _, m := range u.Methods {
				res, err := flow.Analyze(m, flow.DefaultOptions())
				require.NoError(t, err)
				var got []string
				for _, d := range res.Diagnostics {
					got = append(got, d.Key())
				}
				if diff := cmp.Diff(tt.want[m.Name], got); diff != "" {
					t.Errorf("%s diagnostics mismatch (-want +got):\n%s", m.Name, diff)
				}
			}
		})
	}
}

package flow_test

import (
	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/diag"
)

var (
	boolT   = bound.Named(bound.BoolDef, bound.NotAnnotated)
	intT    = bound.Named(bound.IntDef, bound.NotAnnotated)
	intQ    = bound.Named(bound.IntDef, bound.Annotated)
	stringT = bound.Named(bound.StringDef, bound.NotAnnotated)
	stringQ = bound.Named(bound.StringDef, bound.Annotated)
	objectT = bound.Named(bound.ObjectDef, bound.NotAnnotated)
	objectQ = bound.Named(bound.ObjectDef, bound.Annotated)

	toString = &bound.Signature{Name: "ToString", Result: stringT, Pure: true}
)

// linkDef is `class Link { Link? Next; void Mutate(); }`.
var (
	linkDef  = &bound.TypeDef{Name: "Link", Kind: bound.KindClass, Base: bound.ObjectDef}
	linkT    = bound.Named(linkDef, bound.NotAnnotated)
	linkQ    = bound.Named(linkDef, bound.Annotated)
	linkNext = &bound.Symbol{Name: "Next", Kind: bound.SymField, Type: linkQ}
	mutate   = &bound.Signature{Name: "Mutate"}
)

// nodeDef is `class Node { Node Next; }` without annotations on Next.
var (
	nodeDef  = &bound.TypeDef{Name: "Node", Kind: bound.KindClass, Base: bound.ObjectDef}
	nodeT    = bound.Named(nodeDef, bound.NotAnnotated)
	nodeNext = &bound.Symbol{Name: "Next", Kind: bound.SymField, Type: nodeT}
)

// arrayDef stands in for `string?[]`.
var (
	arrayDef = &bound.TypeDef{Name: "string?[]", Kind: bound.KindClass, Base: bound.ObjectDef}
	arrayT   = bound.Named(arrayDef, bound.NotAnnotated)
)

func init() {
	linkDef.Members = []*bound.Symbol{linkNext}
	nodeDef.Members = []*bound.Symbol{nodeNext}
}

// tb builds bound trees with distinct source positions.
type tb struct {
	line int
}

func (b *tb) pos() diag.Span {
	b.line++
	return diag.Span{Filename: "test.cs", Line: b.line, Column: 1}
}

func (b *tb) param(name string, t *bound.TypeRef) *bound.Symbol {
	return &bound.Symbol{Name: name, Kind: bound.SymParam, Type: t, Pos: b.pos()}
}

func (b *tb) sym(name string, t *bound.TypeRef) *bound.Symbol {
	return &bound.Symbol{Name: name, Kind: bound.SymLocal, Type: t, Pos: b.pos()}
}

func (b *tb) ref(s *bound.Symbol) *bound.Local {
	return &bound.Local{Symbol: s, Pos: b.pos()}
}

func (b *tb) member(recv bound.Expr, m *bound.Symbol) *bound.MemberAccess {
	return &bound.MemberAccess{Receiver: recv, Member: m, Pos: b.pos()}
}

func (b *tb) call(recv bound.Expr, sig *bound.Signature, args ...bound.Expr) *bound.Call {
	return &bound.Call{Receiver: recv, Sig: sig, Args: args, Pos: b.pos()}
}

func (b *tb) index(recv, idx bound.Expr, elem *bound.TypeRef) *bound.ElementAccess {
	return &bound.ElementAccess{Receiver: recv, Index: idx, Elem: elem, Pos: b.pos()}
}

func (b *tb) conv(e bound.Expr, kind bound.ConversionKind, to *bound.TypeRef) *bound.Conversion {
	return &bound.Conversion{Operand: e, Kind: kind, T: to, Pos: b.pos()}
}

func (b *tb) as(e bound.Expr, kind bound.ConversionKind, to *bound.TypeRef) *bound.Conversion {
	return &bound.Conversion{Operand: e, Kind: kind, T: to, Explicit: true, As: true, Pos: b.pos()}
}

func (b *tb) null() *bound.Literal {
	return &bound.Literal{Null: true, Pos: b.pos()}
}

func (b *tb) lit(v any, t *bound.TypeRef) *bound.Literal {
	return &bound.Literal{Value: v, T: t, Pos: b.pos()}
}

func (b *tb) str(s string) *bound.Literal { return b.lit(s, stringT) }

func (b *tb) cond() *bound.Literal {
	// A boolean the analysis cannot decide.
	return &bound.Literal{Value: "cond", T: boolT, Pos: b.pos()}
}

func (b *tb) eq(l, r bound.Expr) *bound.Binary {
	return &bound.Binary{Op: bound.OpEq, Left: l, Right: r, T: boolT, Pos: b.pos()}
}

func (b *tb) ne(l, r bound.Expr) *bound.Binary {
	return &bound.Binary{Op: bound.OpNotEq, Left: l, Right: r, T: boolT, Pos: b.pos()}
}

func (b *tb) is(e bound.Expr, p bound.Pattern) *bound.IsPattern {
	return &bound.IsPattern{Operand: e, Pattern: p, T: boolT, Pos: b.pos()}
}

func (b *tb) assign(target, v bound.Expr) *bound.ExprStmt {
	return b.do(&bound.Assign{Target: target, Value: v, Pos: b.pos()})
}

func (b *tb) do(e bound.Expr) *bound.ExprStmt {
	return &bound.ExprStmt{X: e, Pos: b.pos()}
}

func (b *tb) decl(s *bound.Symbol, init bound.Expr) *bound.LocalDecl {
	return &bound.LocalDecl{Symbol: s, Init: init, Pos: b.pos()}
}

func (b *tb) block(stmts ...bound.Stmt) *bound.Block {
	return &bound.Block{Stmts: stmts, Pos: b.pos()}
}

func (b *tb) ifElse(c bound.Expr, then, els bound.Stmt) *bound.If {
	return &bound.If{Cond: c, Then: then, Else: els, Pos: b.pos()}
}

func (b *tb) ret(e bound.Expr) *bound.Return {
	return &bound.Return{Value: e, Pos: b.pos()}
}

func (b *tb) method(ret *bound.TypeRef, params []*bound.Symbol, stmts ...bound.Stmt) *bound.Method {
	return &bound.Method{Name: "M", Params: params, Return: ret, Body: b.block(stmts...), Pos: b.pos()}
}

func (b *tb) arm(p bound.Pattern, v bound.Expr) *bound.SwitchArm {
	return &bound.SwitchArm{Pattern: p, Value: v, Pos: b.pos()}
}

func (b *tb) switchExpr(s bound.Expr, t *bound.TypeRef, arms ...*bound.SwitchArm) *bound.SwitchExpr {
	return &bound.SwitchExpr{Scrutinee: s, Arms: arms, T: t, Pos: b.pos()}
}

func nullP() *bound.ConstantPattern { return &bound.ConstantPattern{Null: true} }

func notNullP() *bound.RecursivePattern { return &bound.RecursivePattern{} }

func props(m *bound.Symbol, p bound.Pattern) *bound.RecursivePattern {
	return &bound.RecursivePattern{Properties: []*bound.PropertySubpattern{{Member: m, Pattern: p}}}
}

func codes(ds []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, len(ds))
	for i, d := range ds {
		out[i] = d.Code
	}
	return out
}

package bound

import "github.com/malphas-lang/nullflow/internal/diag"

// Pattern is a bound pattern.
type Pattern interface {
	Node
	patternNode()
}

// DiscardPattern is `_`; it matches everything, including null.
type DiscardPattern struct {
	Pos diag.Span
}

// VarPattern is `var x`; it matches everything and binds Local.
type VarPattern struct {
	Local *Symbol
	Pos   diag.Span
}

// TypePattern is `T` or the declaration pattern `T x` when Local is set.
// It never matches null.
type TypePattern struct {
	T     *TypeRef
	Local *Symbol
	Pos   diag.Span
}

// ConstantPattern matches a constant. Null is the `null` pattern.
type ConstantPattern struct {
	Value any
	Null  bool
	Pos   diag.Span
}

// RelationalOp is the operator of a relational pattern.
type RelationalOp string

const (
	RelLess      RelationalOp = "<"
	RelLessEq    RelationalOp = "<="
	RelGreater   RelationalOp = ">"
	RelGreaterEq RelationalOp = ">="
)

// RelationalPattern is `< 3` and friends. It never matches null.
type RelationalPattern struct {
	Op    RelationalOp
	Value any
	Pos   diag.Span
}

// PropertySubpattern is one `Member: Pattern` entry.
type PropertySubpattern struct {
	Member  *Symbol
	Pattern Pattern
	Pos     diag.Span
}

// RecursivePattern is `T (positional) { properties } x`. Every part is
// optional; the empty form `{}` matches any non-null value.
type RecursivePattern struct {
	T          *TypeRef
	Positional []Pattern
	Properties []*PropertySubpattern
	Local      *Symbol
	Pos        diag.Span
}

// ListPattern is `[p0, p1, .., pn]`. SliceAt is the index of the `..`
// element or -1.
type ListPattern struct {
	Elems   []Pattern
	SliceAt int
	Elem    *TypeRef
	Local   *Symbol
	Pos     diag.Span
}

// NotPattern is `not P`.
type NotPattern struct {
	Pattern Pattern
	Pos     diag.Span
}

// AndPattern is `L and R`.
type AndPattern struct {
	Left  Pattern
	Right Pattern
	Pos   diag.Span
}

// OrPattern is `L or R`.
type OrPattern struct {
	Left  Pattern
	Right Pattern
	Pos   diag.Span
}

func (p *DiscardPattern) Span() diag.Span     { return p.Pos }
func (p *VarPattern) Span() diag.Span         { return p.Pos }
func (p *TypePattern) Span() diag.Span        { return p.Pos }
func (p *ConstantPattern) Span() diag.Span    { return p.Pos }
func (p *RelationalPattern) Span() diag.Span  { return p.Pos }
func (p *PropertySubpattern) Span() diag.Span { return p.Pos }
func (p *RecursivePattern) Span() diag.Span   { return p.Pos }
func (p *ListPattern) Span() diag.Span        { return p.Pos }
func (p *NotPattern) Span() diag.Span         { return p.Pos }
func (p *AndPattern) Span() diag.Span         { return p.Pos }
func (p *OrPattern) Span() diag.Span          { return p.Pos }

func (*DiscardPattern) patternNode()    {}
func (*VarPattern) patternNode()        {}
func (*TypePattern) patternNode()       {}
func (*ConstantPattern) patternNode()   {}
func (*RelationalPattern) patternNode() {}
func (*RecursivePattern) patternNode()  {}
func (*ListPattern) patternNode()       {}
func (*NotPattern) patternNode()        {}
func (*AndPattern) patternNode()        {}
func (*OrPattern) patternNode()         {}

// IsIrrefutable reports whether p matches every input, null included.
func IsIrrefutable(p Pattern) bool {
	switch p := p.(type) {
	case nil, *DiscardPattern, *VarPattern:
		return true
	case *AndPattern:
		return IsIrrefutable(p.Left) && IsIrrefutable(p.Right)
	case *OrPattern:
		return IsIrrefutable(p.Left) || IsIrrefutable(p.Right)
	default:
		return false
	}
}

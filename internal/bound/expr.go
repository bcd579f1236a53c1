package bound

import "github.com/malphas-lang/nullflow/internal/diag"

// Expr is a bound expression.
type Expr interface {
	Node
	Type() *TypeRef
	exprNode()
}

// Local references a local, parameter or `this`.
type Local struct {
	Symbol *Symbol
	Pos    diag.Span
}

// MemberAccess is `Receiver.Member`. Receiver is nil for static members.
type MemberAccess struct {
	Receiver Expr
	Member   *Symbol
	Pos      diag.Span
}

// ElementAccess is `Receiver[Index]`.
type ElementAccess struct {
	Receiver Expr
	Index    Expr
	Elem     *TypeRef
	Pos      diag.Span
}

// TupleElement is `Tuple.ItemN`; Index is zero based.
type TupleElement struct {
	Tuple Expr
	Index int
	Pos   diag.Span
}

// Literal is a constant. A nil Value with Null set is the null literal.
type Literal struct {
	Value any
	Null  bool
	T     *TypeRef
	Pos   diag.Span
}

// TupleLiteral is `(e0, e1, ...)`.
type TupleLiteral struct {
	Elems []Expr
	T     *TypeRef
	Pos   diag.Span
}

// DefaultValue is `default(T)` or a target-typed `default`.
type DefaultValue struct {
	T   *TypeRef
	Pos diag.Span
}

// MemberInit is one `Member = Value` entry of an object initializer.
type MemberInit struct {
	Member *Symbol
	Value  Expr
}

// New is an object creation, including target-typed `new()`.
type New struct {
	T     *TypeRef
	Sig   *Signature // constructor, may be nil
	Args  []Expr
	Inits []*MemberInit
	Pos   diag.Span
}

// Call is a method invocation. Receiver is nil for static calls.
type Call struct {
	Receiver Expr
	Sig      *Signature
	Args     []Expr
	Pos      diag.Span
}

// Assign is `Target = Value`.
type Assign struct {
	Target Expr
	Value  Expr
	Pos    diag.Span
}

// ConversionKind is the binder's classification of a conversion.
type ConversionKind int

const (
	ConvIdentity ConversionKind = iota
	ConvImplicitReference
	ConvExplicitReference
	ConvBoxing
	ConvUnboxing
	ConvImplicitNullable // S -> S?
	ConvExplicitNullable // S? -> S
	ConvNumeric
	ConvUserDefined
)

func (k ConversionKind) String() string {
	switch k {
	case ConvIdentity:
		return "identity"
	case ConvImplicitReference:
		return "implicit reference"
	case ConvExplicitReference:
		return "explicit reference"
	case ConvBoxing:
		return "boxing"
	case ConvUnboxing:
		return "unboxing"
	case ConvImplicitNullable:
		return "implicit nullable"
	case ConvExplicitNullable:
		return "explicit nullable"
	case ConvNumeric:
		return "numeric"
	case ConvUserDefined:
		return "user-defined"
	default:
		return "unknown"
	}
}

// Conversion converts Operand to T.
type Conversion struct {
	Operand Expr
	Kind    ConversionKind
	T       *TypeRef
	// Explicit is set for casts written in source.
	Explicit bool
	// As marks the `as` operator: a conversion that fails yields null
	// instead of throwing.
	As       bool
	Pos      diag.Span
}

// BinaryOp is a binary operator.
type BinaryOp int

const (
	OpAnd BinaryOp = iota // &&
	OpOr                  // ||
	OpEq                  // ==
	OpNotEq               // !=
	OpArith               // any other operator; operands are values
)

// Binary is a binary operator expression.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	T     *TypeRef
	Pos   diag.Span
}

// Not is logical negation.
type Not struct {
	Operand Expr
	T       *TypeRef
	Pos     diag.Span
}

// Suppress is the null-forgiving operator `Operand!`.
type Suppress struct {
	Operand Expr
	Pos     diag.Span
}

// Conditional is `Cond ? Then : Else`.
type Conditional struct {
	Cond Expr
	Then Expr
	Else Expr
	T    *TypeRef
	Pos  diag.Span
}

// Coalesce is `Left ?? Right`.
type Coalesce struct {
	Left  Expr
	Right Expr
	T     *TypeRef
	Pos   diag.Span
}

// ConditionalAccess is `Receiver?.<Access>`. Access refers to the receiver
// through a ReceiverPlaceholder.
type ConditionalAccess struct {
	Receiver Expr
	Access   Expr
	T        *TypeRef
	Pos      diag.Span
}

// ReceiverPlaceholder stands for the receiver inside a conditional access.
type ReceiverPlaceholder struct {
	Receiver Expr
	Pos      diag.Span
}

// IsPattern is `Operand is Pattern`.
type IsPattern struct {
	Operand Expr
	Pattern Pattern
	T       *TypeRef
	Pos     diag.Span
}

// SwitchArm is one `Pattern when When => Value` arm.
type SwitchArm struct {
	Pattern Pattern
	When    Expr
	Value   Expr
	Pos     diag.Span
}

// SwitchExpr is `Scrutinee switch { arms }`.
type SwitchExpr struct {
	Scrutinee Expr
	Arms      []*SwitchArm
	T         *TypeRef
	Pos       diag.Span
}

// ThrowExpr is a throw expression.
type ThrowExpr struct {
	Operand Expr
	T       *TypeRef
	Pos     diag.Span
}

func (e *Local) Span() diag.Span               { return e.Pos }
func (e *MemberAccess) Span() diag.Span        { return e.Pos }
func (e *ElementAccess) Span() diag.Span       { return e.Pos }
func (e *TupleElement) Span() diag.Span        { return e.Pos }
func (e *Literal) Span() diag.Span             { return e.Pos }
func (e *TupleLiteral) Span() diag.Span        { return e.Pos }
func (e *DefaultValue) Span() diag.Span        { return e.Pos }
func (e *New) Span() diag.Span                 { return e.Pos }
func (e *Call) Span() diag.Span                { return e.Pos }
func (e *Assign) Span() diag.Span              { return e.Pos }
func (e *Conversion) Span() diag.Span          { return e.Pos }
func (e *Binary) Span() diag.Span              { return e.Pos }
func (e *Not) Span() diag.Span                 { return e.Pos }
func (e *Suppress) Span() diag.Span            { return e.Pos }
func (e *Conditional) Span() diag.Span         { return e.Pos }
func (e *Coalesce) Span() diag.Span            { return e.Pos }
func (e *ConditionalAccess) Span() diag.Span   { return e.Pos }
func (e *ReceiverPlaceholder) Span() diag.Span { return e.Pos }
func (e *IsPattern) Span() diag.Span           { return e.Pos }
func (e *SwitchExpr) Span() diag.Span          { return e.Pos }
func (e *ThrowExpr) Span() diag.Span           { return e.Pos }

func (e *Local) Type() *TypeRef        { return e.Symbol.Type }
func (e *MemberAccess) Type() *TypeRef { return e.Member.Type }
func (e *ElementAccess) Type() *TypeRef {
	return e.Elem
}
func (e *TupleElement) Type() *TypeRef {
	t := e.Tuple.Type()
	if t.IsTuple() && e.Index < len(t.Elems) {
		return t.Elems[e.Index]
	}
	return nil
}
func (e *Literal) Type() *TypeRef      { return e.T }
func (e *TupleLiteral) Type() *TypeRef { return e.T }
func (e *DefaultValue) Type() *TypeRef { return e.T }
func (e *New) Type() *TypeRef          { return e.T }
func (e *Call) Type() *TypeRef {
	if e.Sig == nil {
		return nil
	}
	return e.Sig.Result
}
func (e *Assign) Type() *TypeRef              { return e.Target.Type() }
func (e *Conversion) Type() *TypeRef          { return e.T }
func (e *Binary) Type() *TypeRef              { return e.T }
func (e *Not) Type() *TypeRef                 { return e.T }
func (e *Suppress) Type() *TypeRef            { return e.Operand.Type().NonNullable() }
func (e *Conditional) Type() *TypeRef         { return e.T }
func (e *Coalesce) Type() *TypeRef            { return e.T }
func (e *ConditionalAccess) Type() *TypeRef   { return e.T }
func (e *ReceiverPlaceholder) Type() *TypeRef { return e.Receiver.Type().NonNullable() }
func (e *IsPattern) Type() *TypeRef           { return e.T }
func (e *SwitchExpr) Type() *TypeRef          { return e.T }
func (e *ThrowExpr) Type() *TypeRef           { return e.T }

func (*Local) exprNode()               {}
func (*MemberAccess) exprNode()        {}
func (*ElementAccess) exprNode()       {}
func (*TupleElement) exprNode()        {}
func (*Literal) exprNode()             {}
func (*TupleLiteral) exprNode()        {}
func (*DefaultValue) exprNode()        {}
func (*New) exprNode()                 {}
func (*Call) exprNode()                {}
func (*Assign) exprNode()              {}
func (*Conversion) exprNode()          {}
func (*Binary) exprNode()              {}
func (*Not) exprNode()                 {}
func (*Suppress) exprNode()            {}
func (*Conditional) exprNode()         {}
func (*Coalesce) exprNode()            {}
func (*ConditionalAccess) exprNode()   {}
func (*ReceiverPlaceholder) exprNode() {}
func (*IsPattern) exprNode()           {}
func (*SwitchExpr) exprNode()          {}
func (*ThrowExpr) exprNode()           {}

// IsNullLiteral reports whether e is the null literal, possibly behind
// conversions.
func IsNullLiteral(e Expr) bool {
	for {
		switch x := e.(type) {
		case *Literal:
			return x.Null
		case *Conversion:
			e = x.Operand
		default:
			return false
		}
	}
}

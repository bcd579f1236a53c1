// Package bound defines the bound, fully typed tree the flow analysis runs
// over. The binder that produces it lives outside this module; tests and the
// fixture decoder build trees directly.
package bound

import "github.com/malphas-lang/nullflow/internal/diag"

// Node is implemented by every bound node.
type Node interface {
	Span() diag.Span
}

// SymbolKind classifies a symbol.
type SymbolKind int

const (
	SymLocal SymbolKind = iota
	SymParam
	SymThis
	SymField
	SymProperty
)

func (k SymbolKind) String() string {
	switch k {
	case SymLocal:
		return "local"
	case SymParam:
		return "parameter"
	case SymThis:
		return "this"
	case SymField:
		return "field"
	case SymProperty:
		return "property"
	default:
		return "unknown"
	}
}

// RefKind is the passing mode of a parameter.
type RefKind int

const (
	RefNone RefKind = iota
	RefRef
	RefOut
	RefIn
)

// Symbol is a local, parameter or member. Symbols are compared by identity.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	Type    *TypeRef
	RefKind RefKind // parameters only
	Static  bool    // members only
	Pos     diag.Span
}

// IsMember reports whether the symbol is a field or property.
func (s *Symbol) IsMember() bool {
	return s.Kind == SymField || s.Kind == SymProperty
}

func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Name
}

// Signature describes a called method.
type Signature struct {
	Name   string
	Params []*Symbol
	Result *TypeRef // nil for void
	Static bool
	// Extension methods take their receiver as the first argument, so calling
	// one on null is not a dereference.
	Extension bool
	// Pure methods do not mutate their receiver.
	Pure bool
}

// Method is one method body to analyze.
type Method struct {
	Name   string
	This   *Symbol
	Params []*Symbol
	Return *TypeRef // nil for void
	Body   *Block
	Pos    diag.Span
}

func (m *Method) Span() diag.Span { return m.Pos }

// Unit is a collection of method bodies analyzed together.
type Unit struct {
	Name    string
	Types   []*TypeDef
	Methods []*Method
}

// Method looks up a method by name.
func (u *Unit) Method(name string) *Method {
	for _, m := range u.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

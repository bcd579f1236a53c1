package bound

import "strings"

// TypeKind classifies a type definition.
type TypeKind int

const (
	KindClass TypeKind = iota
	KindInterface
	KindStruct // value type
	KindTuple
)

// Nullability is the declared annotation on a type reference.
type Nullability int

const (
	// NotAnnotated is `T` in an enabled nullable context.
	NotAnnotated Nullability = iota
	// Annotated is `T?`.
	Annotated
	// Oblivious comes from code compiled without nullable annotations.
	Oblivious
)

// TypeDef is a named type definition supplied by the binder.
type TypeDef struct {
	Name       string
	Kind       TypeKind
	Base       *TypeDef
	Interfaces []*TypeDef
	Sealed     bool
	Members    []*Symbol
	// Deconstruct lists the element types produced by positional patterns
	// on this type, in order.
	Deconstruct []*TypeRef
}

// Member looks up a field or property by name, including inherited members.
func (d *TypeDef) Member(name string) *Symbol {
	for def := d; def != nil; def = def.Base {
		for _, m := range def.Members {
			if m.Name == name {
				return m
			}
		}
	}
	return nil
}

// TypeRef is a use of a type with its nullable annotation.
type TypeRef struct {
	Def         *TypeDef
	Nullability Nullability
	// Elems holds tuple element types when Def.Kind == KindTuple.
	Elems []*TypeRef
}

// Named builds a reference to def with the given annotation.
func Named(def *TypeDef, n Nullability) *TypeRef {
	return &TypeRef{Def: def, Nullability: n}
}

// Tuple builds a tuple type reference.
func Tuple(elems ...*TypeRef) *TypeRef {
	return &TypeRef{Def: TupleDef, Elems: elems}
}

// TupleDef is the shared definition behind every tuple type.
var TupleDef = &TypeDef{Name: "tuple", Kind: KindTuple}

// IsTuple reports whether t is a tuple type.
func (t *TypeRef) IsTuple() bool {
	return t != nil && t.Def != nil && t.Def.Kind == KindTuple
}

// IsValueType reports whether values of t are stored inline (structs and
// tuples, including their nullable forms).
func (t *TypeRef) IsValueType() bool {
	return t != nil && t.Def != nil && (t.Def.Kind == KindStruct || t.Def.Kind == KindTuple)
}

// IsNullableValue reports whether t is `S?` for a value type S.
func (t *TypeRef) IsNullableValue() bool {
	return t.IsValueType() && t.Nullability == Annotated
}

// IsReference reports whether t is a class or interface type.
func (t *TypeRef) IsReference() bool {
	return t != nil && t.Def != nil && (t.Def.Kind == KindClass || t.Def.Kind == KindInterface)
}

// CanBeNull reports whether a value of t can hold null at runtime.
func (t *TypeRef) CanBeNull() bool {
	if t == nil {
		return true
	}
	return t.IsReference() || t.IsNullableValue()
}

// NonNullable returns t without its annotation.
func (t *TypeRef) NonNullable() *TypeRef {
	if t == nil || t.Nullability == NotAnnotated {
		return t
	}
	c := *t
	c.Nullability = NotAnnotated
	return &c
}

// Member looks up a member of the referenced type.
func (t *TypeRef) Member(name string) *Symbol {
	if t == nil || t.Def == nil {
		return nil
	}
	return t.Def.Member(name)
}

// Name returns the definition name without annotation.
func (t *TypeRef) Name() string {
	if t == nil || t.Def == nil {
		return "?"
	}
	return t.Def.Name
}

func (t *TypeRef) String() string {
	if t == nil {
		return "<unknown>"
	}
	var sb strings.Builder
	if t.IsTuple() {
		sb.WriteString("(")
		for i, e := range t.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.String())
		}
		sb.WriteString(")")
	} else {
		sb.WriteString(t.Name())
	}
	if t.Nullability == Annotated {
		sb.WriteString("?")
	}
	return sb.String()
}

// SameType reports whether a and b refer to the same type, ignoring
// annotations.
func SameType(a, b *TypeRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.IsTuple() && b.IsTuple() {
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !SameType(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	}
	return a.Def == b.Def
}

// TypeRelation answers subtype questions for pattern tests. It is supplied by
// the binder; Hierarchy is the default.
type TypeRelation interface {
	// IsSubtype reports whether every non-null value of sub is also a value
	// of super.
	IsSubtype(sub, super *TypeRef) bool
	// Disjoint reports whether no non-null value can belong to both types.
	Disjoint(a, b *TypeRef) bool
}

// Hierarchy implements TypeRelation over TypeDef base and interface links.
// A definition named "object" is the root of every type.
type Hierarchy struct{}

func (Hierarchy) IsSubtype(sub, super *TypeRef) bool {
	if sub == nil || super == nil || sub.Def == nil || super.Def == nil {
		return false
	}
	if SameType(sub, super) {
		return true
	}
	if super.Def.Name == "object" {
		return true
	}
	return derives(sub.Def, super.Def)
}

func derives(sub, super *TypeDef) bool {
	seen := map[*TypeDef]bool{}
	stack := []*TypeDef{sub}
	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if d == nil || seen[d] {
			continue
		}
		if d == super {
			return true
		}
		seen[d] = true
		stack = append(stack, d.Base)
		stack = append(stack, d.Interfaces...)
	}
	return false
}

func (h Hierarchy) Disjoint(a, b *TypeRef) bool {
	if a == nil || b == nil || a.Def == nil || b.Def == nil {
		return false
	}
	if h.IsSubtype(a, b) || h.IsSubtype(b, a) {
		return false
	}
	// An unrelated interface may still be implemented by a subclass unless
	// the class is sealed.
	if a.Def.Kind == KindInterface {
		return b.Def.Sealed || b.IsValueType()
	}
	if b.Def.Kind == KindInterface {
		return a.Def.Sealed || a.IsValueType()
	}
	return true
}

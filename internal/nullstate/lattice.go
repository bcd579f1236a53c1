// Package nullstate implements the nullable lattice and the per-program-point
// state maps the flow walker threads through a method body.
package nullstate

import "github.com/malphas-lang/nullflow/internal/bound"

// State is the nullable state of one slot.
type State uint8

const (
	// NotNull: the value is known to be non-null.
	NotNull State = iota
	// MaybeNull: the value may be null.
	MaybeNull
	// KnownNull is produced by a successful null test or a null literal.
	// Dereference treats it like MaybeNull; exhaustiveness uses it to know
	// which inputs were proven null.
	KnownNull
)

// Names used for nullable value types. The lattice is the same.
const (
	HasValue     = NotNull
	MaybeNoValue = MaybeNull
)

func (s State) String() string {
	switch s {
	case NotNull:
		return "not-null"
	case MaybeNull:
		return "maybe-null"
	case KnownNull:
		return "null"
	default:
		return "invalid"
	}
}

// MayBeNull reports whether a dereference of a value in state s can fail.
func (s State) MayBeNull() bool { return s != NotNull }

// Join is the least upper bound: equal states join to themselves, anything
// else joins to MaybeNull.
func Join(a, b State) State {
	if a == b {
		return a
	}
	return MaybeNull
}

// Initial returns the declared state of a value of type t.
func Initial(t *bound.TypeRef) State {
	if t == nil {
		return MaybeNull
	}
	if t.IsNullableValue() {
		return MaybeNoValue
	}
	if t.IsReference() && t.Nullability == bound.Annotated {
		return MaybeNull
	}
	return NotNull
}

// Check is the kind of test a narrowing comes from.
type Check int

const (
	CheckNull Check = iota
	CheckType
	CheckConstant
	CheckRelational
)

func (c Check) String() string {
	switch c {
	case CheckNull:
		return "null"
	case CheckType:
		return "type"
	case CheckConstant:
		return "constant"
	case CheckRelational:
		return "relational"
	default:
		return "unknown"
	}
}

// Narrow refines s by the outcome of a test. A null test that succeeds gives
// KnownNull and one that fails gives NotNull. Type, constant and relational
// tests only match non-null values, so success gives NotNull and failure
// teaches nothing.
func Narrow(s State, c Check, outcome bool) State {
	if c == CheckNull {
		if outcome {
			return KnownNull
		}
		return NotNull
	}
	if outcome {
		return NotNull
	}
	return s
}

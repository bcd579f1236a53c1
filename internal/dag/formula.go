package dag

import "strings"

type formulaKind int

const (
	fTrue formulaKind = iota
	fFalse
	fTest
	fNot
	fAnd
	fOr
)

// formula is a boolean combination of tests. Formulas are immutable; key is
// a canonical rendering used to hash-cons automaton states.
type formula struct {
	kind formulaKind
	test Test
	kids []*formula
	key  string
}

var (
	trueF  = &formula{kind: fTrue, key: "T"}
	falseF = &formula{kind: fFalse, key: "F"}
)

func constF(b bool) *formula {
	if b {
		return trueF
	}
	return falseF
}

func testF(t Test) *formula {
	return &formula{kind: fTest, test: t, key: t.key()}
}

func notF(f *formula) *formula {
	switch f.kind {
	case fTrue:
		return falseF
	case fFalse:
		return trueF
	case fNot:
		return f.kids[0]
	}
	return &formula{kind: fNot, kids: []*formula{f}, key: "!" + f.key}
}

func andF(fs ...*formula) *formula { return junction(fAnd, fs) }
func orF(fs ...*formula) *formula  { return junction(fOr, fs) }

// junction builds a flattened n-ary and/or, folding constants.
func junction(kind formulaKind, fs []*formula) *formula {
	unit, zero := trueF, falseF
	if kind == fOr {
		unit, zero = falseF, trueF
	}
	var kids []*formula
	for _, f := range fs {
		switch {
		case f == unit:
			continue
		case f == zero:
			return zero
		case f.kind == kind:
			kids = append(kids, f.kids...)
		default:
			kids = append(kids, f)
		}
	}
	switch len(kids) {
	case 0:
		return unit
	case 1:
		return kids[0]
	}
	keys := make([]string, len(kids))
	for i, k := range kids {
		keys[i] = k.key
	}
	op := "&"
	if kind == fOr {
		op = "|"
	}
	return &formula{kind: kind, kids: kids, key: op + "(" + strings.Join(keys, ",") + ")"}
}

// decide substitutes every test whose outcome eval knows.
func (f *formula) decide(eval func(Test) (bool, bool)) *formula {
	switch f.kind {
	case fTrue, fFalse:
		return f
	case fTest:
		if v, ok := eval(f.test); ok {
			return constF(v)
		}
		return f
	case fNot:
		k := f.kids[0].decide(eval)
		if k == f.kids[0] {
			return f
		}
		return notF(k)
	}
	kids := make([]*formula, len(f.kids))
	changed := false
	for i, k := range f.kids {
		kids[i] = k.decide(eval)
		changed = changed || kids[i] != k
	}
	if !changed {
		return f
	}
	return junction(f.kind, kids)
}

// firstTest returns the leftmost test, which is the next one to evaluate.
func (f *formula) firstTest() (Test, bool) {
	switch f.kind {
	case fTest:
		return f.test, true
	case fNot, fAnd, fOr:
		return f.kids[0].firstTest()
	}
	return Test{}, false
}

// tests calls fn for every test in f.
func (f *formula) tests(fn func(Test)) {
	stack := []*formula{f}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.kind == fTest {
			fn(cur.test)
			continue
		}
		stack = append(stack, cur.kids...)
	}
}

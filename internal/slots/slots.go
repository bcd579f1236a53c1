// Package slots assigns stable identifiers to trackable expression paths.
//
// A slot is either a root (a local, parameter, `this`, static member or
// pattern-bound variable) or the extension of a parent slot by a member,
// tuple element or constant-index element access. One Allocator serves one
// method body; the same path always yields the same SlotID and paths deeper
// than the configured maximum yield no slot.
package slots

import (
	"fmt"
	"strings"

	"github.com/malphas-lang/nullflow/internal/bound"
)

// SlotID identifies a slot within one Allocator.
type SlotID int

// NoSlot is the parent of root slots.
const NoSlot SlotID = -1

// DiscKind says how a slot extends its parent.
type DiscKind int

const (
	DiscRoot DiscKind = iota
	DiscMember
	DiscTupleElement
	DiscElement
)

// Discriminator distinguishes the children of one parent.
type Discriminator struct {
	Kind   DiscKind
	Symbol *bound.Symbol // root and member slots
	Index  int           // tuple element and element slots
}

// Member is the discriminator of a field or property access.
func Member(sym *bound.Symbol) Discriminator {
	return Discriminator{Kind: DiscMember, Symbol: sym}
}

// TupleElem is the discriminator of tuple element i.
func TupleElem(i int) Discriminator {
	return Discriminator{Kind: DiscTupleElement, Index: i}
}

// Elem is the discriminator of a constant-index element access.
func Elem(i int) Discriminator {
	return Discriminator{Kind: DiscElement, Index: i}
}

// Slot is the metadata of an allocated slot.
type Slot struct {
	ID     SlotID
	Parent SlotID
	Disc   Discriminator
	Type   *bound.TypeRef
	Depth  int
}

type slotKey struct {
	parent SlotID
	disc   Discriminator
}

// Allocator hands out slots for one method body. It is not safe for
// concurrent use.
type Allocator struct {
	maxDepth   int
	classifier bound.ConversionClassifier
	slots    []Slot
	index    map[slotKey]SlotID
	children map[SlotID][]SlotID
}

// NewAllocator creates an allocator that refuses paths longer than maxDepth.
// Conversions are looked through when c classifies them as identity or
// reference preserving; a nil c uses bound.DefaultClassifier.
func NewAllocator(maxDepth int, c bound.ConversionClassifier) *Allocator {
	if maxDepth < 1 {
		maxDepth = 1
	}
	if c == nil {
		c = bound.DefaultClassifier{}
	}
	return &Allocator{
		maxDepth:   maxDepth,
		classifier: c,
		index:      make(map[slotKey]SlotID),
		children:   make(map[SlotID][]SlotID),
	}
}

// MaxDepth returns the configured depth limit.
func (a *Allocator) MaxDepth() int { return a.maxDepth }

// Len returns the number of allocated slots.
func (a *Allocator) Len() int { return len(a.slots) }

// Root returns the slot of a variable symbol.
func (a *Allocator) Root(sym *bound.Symbol) SlotID {
	id, _ := a.intern(NoSlot, Discriminator{Kind: DiscRoot, Symbol: sym}, sym.Type, 1)
	return id
}

// Extend returns the child of parent selected by d, allocating it on first
// use. It reports false when the child would exceed the depth limit.
func (a *Allocator) Extend(parent SlotID, d Discriminator, typ *bound.TypeRef) (SlotID, bool) {
	if !a.valid(parent) {
		return NoSlot, false
	}
	depth := a.slots[parent].Depth + 1
	if depth > a.maxDepth {
		return NoSlot, false
	}
	return a.intern(parent, d, typ, depth)
}

func (a *Allocator) intern(parent SlotID, d Discriminator, typ *bound.TypeRef, depth int) (SlotID, bool) {
	key := slotKey{parent: parent, disc: d}
	if id, ok := a.index[key]; ok {
		return id, true
	}
	id := SlotID(len(a.slots))
	a.slots = append(a.slots, Slot{ID: id, Parent: parent, Disc: d, Type: typ, Depth: depth})
	a.index[key] = id
	if parent != NoSlot {
		a.children[parent] = append(a.children[parent], id)
	}
	return id, true
}

func (a *Allocator) valid(id SlotID) bool {
	return id >= 0 && int(id) < len(a.slots)
}

// Slot returns the metadata of id.
func (a *Allocator) Slot(id SlotID) Slot {
	if !a.valid(id) {
		return Slot{ID: NoSlot, Parent: NoSlot}
	}
	return a.slots[id]
}

// Type returns the declared type of id.
func (a *Allocator) Type(id SlotID) *bound.TypeRef {
	return a.Slot(id).Type
}

// SlotOf returns the slot for a trackable expression. Call results,
// non-constant indexes and over-deep paths have no slot.
func (a *Allocator) SlotOf(e bound.Expr) (SlotID, bool) {
	type step struct {
		disc Discriminator
		typ  *bound.TypeRef
	}
	// Peel the access chain down to its root, then extend back up.
	var path []step
	var root SlotID = NoSlot
	for root == NoSlot {
		switch x := e.(type) {
		case *bound.Local:
			root = a.Root(x.Symbol)
		case *bound.MemberAccess:
			if x.Receiver == nil {
				root = a.Root(x.Member)
				break
			}
			path = append(path, step{Member(x.Member), x.Member.Type})
			e = x.Receiver
		case *bound.TupleElement:
			path = append(path, step{TupleElem(x.Index), x.Type()})
			e = x.Tuple
		case *bound.ElementAccess:
			idx, ok := constIndex(x.Index)
			if !ok {
				return NoSlot, false
			}
			path = append(path, step{Elem(idx), x.Elem})
			e = x.Receiver
		case *bound.Conversion:
			if !a.Transparent(x) {
				return NoSlot, false
			}
			e = x.Operand
		case *bound.Suppress:
			e = x.Operand
		case *bound.ReceiverPlaceholder:
			e = x.Receiver
		default:
			return NoSlot, false
		}
		if len(path) >= a.maxDepth {
			return NoSlot, false
		}
	}
	id := root
	for i := len(path) - 1; i >= 0; i-- {
		var ok bool
		id, ok = a.Extend(id, path[i].disc, path[i].typ)
		if !ok {
			return NoSlot, false
		}
	}
	return id, true
}

// Transparent reports whether the result of c is its operand under another
// type. An `as` conversion never is, since it may produce null.
func (a *Allocator) Transparent(c *bound.Conversion) bool {
	if c.As {
		return false
	}
	switch a.classifier.Classify(c) {
	case bound.ClassIdentity, bound.ClassReferencePreserving:
		return true
	}
	return false
}

// Strip removes the transparent conversions around e.
func (a *Allocator) Strip(e bound.Expr) bound.Expr {
	for {
		c, ok := e.(*bound.Conversion)
		if !ok || !a.Transparent(c) {
			return e
		}
		e = c.Operand
	}
}

func constIndex(e bound.Expr) (int, bool) {
	lit, ok := e.(*bound.Literal)
	if !ok || lit.Null {
		return 0, false
	}
	switch v := lit.Value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

// Descendants returns every slot that extends id, excluding id itself.
func (a *Allocator) Descendants(id SlotID) []SlotID {
	var out []SlotID
	stack := append([]SlotID(nil), a.children[id]...)
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, s)
		stack = append(stack, a.children[s]...)
	}
	return out
}

// Children returns the direct children of id in allocation order.
func (a *Allocator) Children(id SlotID) []SlotID {
	return a.children[id]
}

// Path renders id as source text, e.g. `n.Next.Next` or `t.Item1`.
func (a *Allocator) Path(id SlotID) string {
	if !a.valid(id) {
		return "<no slot>"
	}
	var parts []string
	for cur := id; cur != NoSlot; cur = a.slots[cur].Parent {
		s := a.slots[cur]
		switch s.Disc.Kind {
		case DiscRoot:
			parts = append(parts, s.Disc.Symbol.Name)
		case DiscMember:
			parts = append(parts, "."+s.Disc.Symbol.Name)
		case DiscTupleElement:
			parts = append(parts, fmt.Sprintf(".Item%d", s.Disc.Index+1))
		case DiscElement:
			parts = append(parts, fmt.Sprintf("[%d]", s.Disc.Index))
		}
	}
	var sb strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		sb.WriteString(parts[i])
	}
	return sb.String()
}

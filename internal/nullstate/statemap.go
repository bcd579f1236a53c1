package nullstate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/malphas-lang/nullflow/internal/slots"
)

// Defaults supplies the declared state of slots with no entry.
type Defaults func(id slots.SlotID) State

// StateMap maps slots to their nullable state at one program point. Slots
// without an entry hold their declared state. An unreachable map is the
// bottom element of the join.
type StateMap struct {
	states      map[slots.SlotID]State
	defaults    Defaults
	Unreachable bool
}

// New creates a reachable map with no entries.
func New(defaults Defaults) *StateMap {
	if defaults == nil {
		defaults = func(slots.SlotID) State { return MaybeNull }
	}
	return &StateMap{states: make(map[slots.SlotID]State), defaults: defaults}
}

// NewUnreachable creates the bottom map.
func NewUnreachable(defaults Defaults) *StateMap {
	m := New(defaults)
	m.Unreachable = true
	return m
}

// Clone creates a deep copy of the map.
func (m *StateMap) Clone() *StateMap {
	states := make(map[slots.SlotID]State, len(m.states))
	for k, v := range m.states {
		states[k] = v
	}
	return &StateMap{states: states, defaults: m.defaults, Unreachable: m.Unreachable}
}

// Get returns the state of id.
func (m *StateMap) Get(id slots.SlotID) State {
	if s, ok := m.states[id]; ok {
		return s
	}
	return m.defaults(id)
}

// Set records the state of id.
func (m *StateMap) Set(id slots.SlotID, s State) {
	m.states[id] = s
}

// Delete forgets what was learned about id; it reads as declared again.
func (m *StateMap) Delete(id slots.SlotID) {
	delete(m.states, id)
}

// Len returns the number of explicit entries.
func (m *StateMap) Len() int { return len(m.states) }

// Slots returns the slots with explicit entries in ascending order.
func (m *StateMap) Slots() []slots.SlotID {
	ids := make([]slots.SlotID, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *StateMap) union(other *StateMap) map[slots.SlotID]struct{} {
	keys := make(map[slots.SlotID]struct{}, len(m.states)+len(other.states))
	for k := range m.states {
		keys[k] = struct{}{}
	}
	for k := range other.states {
		keys[k] = struct{}{}
	}
	return keys
}

// Join merges other into m (control flow join).
func (m *StateMap) Join(other *StateMap) {
	if other.Unreachable {
		return
	}
	if m.Unreachable {
		*m = *other.Clone()
		return
	}
	for id := range m.union(other) {
		m.states[id] = Join(m.Get(id), other.Get(id))
	}
}

// Widen joins other into m, forcing every slot whose state differs to
// MaybeNull. It returns the number of slots that changed.
func (m *StateMap) Widen(other *StateMap) int {
	if other.Unreachable {
		return 0
	}
	if m.Unreachable {
		*m = *other.Clone()
		return len(m.states)
	}
	changed := 0
	for id := range m.union(other) {
		if a, b := m.Get(id), other.Get(id); a != b {
			m.states[id] = MaybeNull
			if a != MaybeNull {
				changed++
			}
		}
	}
	return changed
}

// Equal reports whether both maps give every slot the same state.
func (m *StateMap) Equal(other *StateMap) bool {
	if m.Unreachable || other.Unreachable {
		return m.Unreachable == other.Unreachable
	}
	for id := range m.union(other) {
		if m.Get(id) != other.Get(id) {
			return false
		}
	}
	return true
}

// Format renders the map using name to print slots.
func (m *StateMap) Format(name func(slots.SlotID) string) string {
	if m.Unreachable {
		return "  (UNREACHABLE)"
	}
	if len(m.states) == 0 {
		return "  {}"
	}
	var sb strings.Builder
	for i, id := range m.Slots() {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "  %s: %s", name(id), m.states[id])
	}
	return sb.String()
}

func (m *StateMap) String() string {
	return m.Format(func(id slots.SlotID) string { return fmt.Sprintf("#%d", id) })
}

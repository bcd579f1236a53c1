package fixture

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/malphas-lang/nullflow/internal/bound"
)

var stringType = bound.Named(bound.StringDef, bound.NotAnnotated)

// toString is available on every receiver.
var toString = &bound.Signature{Name: "ToString", Result: stringType, Pure: true}

// typeDefs declares every type before resolving members so definitions can
// refer to each other in any order.
func (d *decoder) typeDefs(n *yaml.Node) []*bound.TypeDef {
	items := d.list(n, "types")
	defs := make([]*bound.TypeDef, len(items))
	fields := make([]map[string]*yaml.Node, len(items))
	for i, tn := range items {
		f := d.fields(tn, "type", "name", "kind", "base", "interfaces", "sealed", "members", "methods", "deconstruct")
		fields[i] = f
		def := &bound.TypeDef{Name: d.str(f["name"], "type name"), Sealed: d.flag(f["sealed"], "sealed")}
		switch k := d.str(f["kind"], "kind"); k {
		case "", "class":
			def.Kind = bound.KindClass
			def.Base = bound.ObjectDef
		case "interface":
			def.Kind = bound.KindInterface
		case "struct":
			def.Kind = bound.KindStruct
		default:
			d.errorf(f["kind"], "unknown type kind %q", k)
		}
		switch {
		case def.Name == "":
			d.errorf(tn, "type needs a name")
		case bound.Builtin(def.Name) != nil || d.types[def.Name] != nil:
			d.errorf(tn, "type %s is already defined", def.Name)
		default:
			d.types[def.Name] = def
		}
		defs[i] = def
	}

	for i, def := range defs {
		f := fields[i]
		if bn := f["base"]; !isNull(bn) {
			if base := d.typeRef(bn); base != nil {
				def.Base = base.Def
			}
		}
		for _, in := range d.list(f["interfaces"], "interfaces") {
			if t := d.typeRef(in); t != nil {
				def.Interfaces = append(def.Interfaces, t.Def)
			}
		}
		for _, mn := range d.list(f["members"], "members") {
			def.Members = append(def.Members, d.member(mn))
		}
		for _, en := range d.list(f["deconstruct"], "deconstruct") {
			def.Deconstruct = append(def.Deconstruct, d.typeRef(en))
		}
		sigs := make(map[string]*bound.Signature)
		for _, sn := range d.list(f["methods"], "methods") {
			if sig := d.signature(sn, def); sig != nil {
				sigs[sig.Name] = sig
			}
		}
		d.methods[def] = sigs
	}
	return defs
}

func (d *decoder) member(n *yaml.Node) *bound.Symbol {
	f := d.fields(n, "member", "name", "type", "kind", "static")
	s := &bound.Symbol{
		Name:   d.str(f["name"], "member name"),
		Kind:   bound.SymField,
		Type:   d.typeRef(f["type"]),
		Static: d.flag(f["static"], "static"),
		Pos:    d.span(n),
	}
	switch k := d.str(f["kind"], "member kind"); k {
	case "", "field":
	case "property":
		s.Kind = bound.SymProperty
	default:
		d.errorf(f["kind"], "unknown member kind %q", k)
	}
	return s
}

// lookupMethod finds name on def or its bases.
func (d *decoder) lookupMethod(def *bound.TypeDef, name string) *bound.Signature {
	for ; def != nil; def = def.Base {
		if sig, ok := d.methods[def][name]; ok {
			return sig
		}
	}
	return nil
}

func (d *decoder) typeRef(n *yaml.Node) *bound.TypeRef {
	if isNull(n) {
		d.errorf(n, "missing type")
		return nil
	}
	s := d.str(n, "type")
	t, bad := d.parseType(strings.TrimSpace(s))
	if bad != "" {
		d.errorf(n, "%s in type %q", bad, s)
		return nil
	}
	return t
}

// parseType parses `Name`, `Name?`, `(T1, T2)` and `(T1, T2)?`. It returns
// a description of the problem when s is malformed.
func (d *decoder) parseType(s string) (*bound.TypeRef, string) {
	n := bound.NotAnnotated
	if strings.HasSuffix(s, "?") {
		n = bound.Annotated
		s = strings.TrimSpace(strings.TrimSuffix(s, "?"))
	}
	if strings.HasPrefix(s, "(") {
		if !strings.HasSuffix(s, ")") {
			return nil, "unbalanced parentheses"
		}
		parts, ok := splitTopLevel(s[1 : len(s)-1])
		if !ok || len(parts) < 2 {
			return nil, "a tuple needs at least two elements"
		}
		elems := make([]*bound.TypeRef, len(parts))
		for i, p := range parts {
			e, bad := d.parseType(strings.TrimSpace(p))
			if bad != "" {
				return nil, bad
			}
			elems[i] = e
		}
		t := bound.Tuple(elems...)
		t.Nullability = n
		return t, ""
	}
	if s == "" {
		return nil, "empty name"
	}
	def := bound.Builtin(s)
	if def == nil {
		def = d.types[s]
	}
	if def == nil {
		return nil, "unknown type " + s
	}
	return bound.Named(def, n), ""
}

// splitTopLevel splits on commas outside nested parentheses.
func splitTopLevel(s string) ([]string, bool) {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, false
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, false
	}
	return append(parts, s[start:]), true
}

// annotated returns t marked nullable.
func annotated(t *bound.TypeRef) *bound.TypeRef {
	if t == nil || t.Nullability == bound.Annotated {
		return t
	}
	c := *t
	c.Nullability = bound.Annotated
	return &c
}

// join picks the type of an expression with two result branches. A null
// literal branch has no type and makes the other branch nullable.
func join(a, b *bound.TypeRef) *bound.TypeRef {
	switch {
	case a == nil:
		return annotated(b)
	case b == nil:
		return annotated(a)
	case b.Nullability == bound.Annotated:
		return annotated(a)
	}
	return a
}

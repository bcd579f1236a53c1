package fixture

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/diag"
)

// pattern decodes a pattern matched against a value of type in. Scalars are
// shorthand: `_` discards, null and numbers are constants, and any other
// name is a type pattern. `{}` matches any non-null value.
func (d *decoder) pattern(n *yaml.Node, in *bound.TypeRef) bound.Pattern {
	if n == nil {
		return &bound.DiscardPattern{}
	}
	pos := d.span(n)
	if n.Kind == yaml.ScalarNode {
		switch {
		case n.Tag == "!!null":
			return &bound.ConstantPattern{Null: true, Pos: pos}
		case n.Value == "_":
			return &bound.DiscardPattern{Pos: pos}
		case n.Tag == "!!int" || n.Tag == "!!bool":
			return &bound.ConstantPattern{Value: d.constant(n), Pos: pos}
		}
		return &bound.TypePattern{T: d.typeRef(n), Pos: pos}
	}
	if n.Kind == yaml.MappingNode && len(n.Content) == 0 {
		return &bound.RecursivePattern{Pos: pos}
	}

	kind, v, ok := d.single(n, "pattern")
	if !ok {
		return &bound.DiscardPattern{Pos: pos}
	}
	switch kind {
	case "var":
		return &bound.VarPattern{Local: d.bindLocal(v, in), Pos: pos}
	case "decl":
		f := d.fields(v, "declaration pattern", "type", "name")
		t := d.typeRef(f["type"])
		return &bound.TypePattern{T: t, Local: d.bindLocal(f["name"], t), Pos: pos}
	case "const":
		return &bound.ConstantPattern{Value: d.constant(v), Pos: pos}
	case "rel":
		f := d.fields(v, "relational pattern", "op", "value")
		op := bound.RelationalOp(d.str(f["op"], "op"))
		switch op {
		case bound.RelLess, bound.RelLessEq, bound.RelGreater, bound.RelGreaterEq:
		default:
			d.errorf(v, "unknown relational operator %q", op)
		}
		return &bound.RelationalPattern{Op: op, Value: d.constant(f["value"]), Pos: pos}
	case "rec":
		return d.recursive(v, in, pos)
	case "list":
		f := d.fields(v, "list pattern", "elems", "slice", "elem", "name")
		p := &bound.ListPattern{Elem: d.typeRef(f["elem"]), SliceAt: -1, Pos: pos}
		if sn := f["slice"]; sn != nil {
			i, err := strconv.Atoi(d.str(sn, "slice"))
			if err != nil {
				d.errorf(sn, "slice must be an index")
			}
			p.SliceAt = i
		}
		for _, en := range d.list(f["elems"], "elems") {
			p.Elems = append(p.Elems, d.pattern(en, p.Elem))
		}
		if p.SliceAt > len(p.Elems) {
			d.errorf(v, "slice index out of range")
		}
		if nn := f["name"]; nn != nil {
			p.Local = d.bindLocal(nn, in.NonNullable())
		}
		return p
	case "not":
		return &bound.NotPattern{Pattern: d.pattern(v, in), Pos: pos}
	case "and", "or":
		ops := d.list(v, kind)
		if len(ops) < 2 {
			d.errorf(v, "%s takes at least two patterns", kind)
			return &bound.DiscardPattern{Pos: pos}
		}
		p := d.pattern(ops[0], in)
		for _, on := range ops[1:] {
			r := d.pattern(on, in)
			if kind == "and" {
				p = &bound.AndPattern{Left: p, Right: r, Pos: pos}
			} else {
				p = &bound.OrPattern{Left: p, Right: r, Pos: pos}
			}
		}
		return p
	}
	d.errorf(n, "unknown pattern kind %q", kind)
	return &bound.DiscardPattern{Pos: pos}
}

func (d *decoder) recursive(v *yaml.Node, in *bound.TypeRef, pos diag.Span) bound.Pattern {
	f := d.fields(v, "recursive pattern", "type", "positional", "props", "name")
	p := &bound.RecursivePattern{Pos: pos}
	narrowed := in.NonNullable()
	if tn := f["type"]; tn != nil {
		p.T = d.typeRef(tn)
		narrowed = p.T.NonNullable()
	}
	for i, en := range d.list(f["positional"], "positional") {
		var et *bound.TypeRef
		switch {
		case narrowed.IsTuple() && i < len(narrowed.Elems):
			et = narrowed.Elems[i]
		case narrowed != nil && narrowed.Def != nil && i < len(narrowed.Def.Deconstruct):
			et = narrowed.Def.Deconstruct[i]
		default:
			d.errorf(en, "type %s has no element %d to deconstruct", narrowed, i)
		}
		p.Positional = append(p.Positional, d.pattern(en, et))
	}
	if pn := f["props"]; !isNull(pn) {
		if pn.Kind != yaml.MappingNode {
			d.errorf(pn, "props must be a mapping of member to pattern")
		} else {
			for i := 0; i+1 < len(pn.Content); i += 2 {
				kn := pn.Content[i]
				m := d.memberOf(narrowed, kn.Value, kn)
				if m == nil {
					continue
				}
				p.Properties = append(p.Properties, &bound.PropertySubpattern{
					Member:  m,
					Pattern: d.pattern(pn.Content[i+1], m.Type),
					Pos:     d.span(kn),
				})
			}
		}
	}
	if nn := f["name"]; nn != nil {
		p.Local = d.bindLocal(nn, narrowed)
	}
	return p
}

// bindLocal declares a pattern variable in the current scope.
func (d *decoder) bindLocal(n *yaml.Node, t *bound.TypeRef) *bound.Symbol {
	name := d.str(n, "name")
	if name == "" {
		d.errorf(n, "pattern variable needs a name")
		return nil
	}
	s := &bound.Symbol{Name: name, Kind: bound.SymLocal, Type: t, Pos: d.span(n)}
	d.declare(s)
	return s
}

// constant decodes an int, bool or string constant.
func (d *decoder) constant(n *yaml.Node) any {
	if isNull(n) || n.Kind != yaml.ScalarNode {
		d.errorf(n, "constant must be a scalar")
		return nil
	}
	switch n.Tag {
	case "!!int":
		i, err := strconv.Atoi(n.Value)
		if err != nil {
			d.errorf(n, "invalid integer %q", n.Value)
		}
		return i
	case "!!bool":
		return n.Value == "true"
	}
	return n.Value
}

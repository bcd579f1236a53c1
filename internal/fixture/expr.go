package fixture

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/malphas-lang/nullflow/internal/bound"
)

var (
	intType  = bound.Named(bound.IntDef, bound.NotAnnotated)
	boolType = bound.Named(bound.BoolDef, bound.NotAnnotated)
)

// bad stands in for an expression that failed to decode.
func (d *decoder) bad(n *yaml.Node) bound.Expr {
	return &bound.Literal{Null: true, Pos: d.span(n)}
}

// expr decodes an expression. Scalars are shorthand: null is the null
// literal, numbers and booleans are literals, and a bare name is a local.
func (d *decoder) expr(n *yaml.Node) bound.Expr {
	if n == nil {
		return nil
	}
	pos := d.span(n)
	if n.Kind == yaml.ScalarNode {
		switch n.Tag {
		case "!!null":
			return &bound.Literal{Null: true, Pos: pos}
		case "!!int":
			return d.intLit(n)
		case "!!bool":
			return &bound.Literal{Value: n.Value == "true", T: boolType, Pos: pos}
		}
		sym := d.lookup(n.Value)
		if sym == nil {
			d.errorf(n, "undefined name %s", n.Value)
			return d.bad(n)
		}
		return &bound.Local{Symbol: sym, Pos: pos}
	}

	kind, v, ok := d.single(n, "expression")
	if !ok {
		return d.bad(n)
	}
	switch kind {
	case "int":
		return d.intLit(v)
	case "string":
		return &bound.Literal{Value: d.str(v, "string"), T: stringType, Pos: pos}
	case "opaque":
		// A value the analysis cannot see through, such as a call to an
		// unknown pure function.
		t := d.typeRef(v)
		return &bound.Call{Sig: &bound.Signature{Name: "opaque", Result: t, Static: true, Pure: true}, Pos: pos}
	case "default":
		return &bound.DefaultValue{T: d.typeRef(v), Pos: pos}
	case "tuple":
		x := &bound.TupleLiteral{Pos: pos}
		var elems []*bound.TypeRef
		for _, en := range d.list(v, "tuple") {
			e := d.expr(en)
			x.Elems = append(x.Elems, e)
			elems = append(elems, e.Type())
		}
		if len(elems) < 2 {
			d.errorf(v, "a tuple needs at least two elements")
		}
		x.T = bound.Tuple(elems...)
		return x
	case "member":
		f := d.fields(v, "member", "of", "name")
		recv := d.expr(f["of"])
		name := d.str(f["name"], "member name")
		if recv == nil {
			d.errorf(v, "member %s needs a receiver", name)
			return d.bad(n)
		}
		m := d.memberOf(recv.Type(), name, v)
		if m == nil {
			return d.bad(n)
		}
		return &bound.MemberAccess{Receiver: recv, Member: m, Pos: pos}
	case "elem":
		f := d.fields(v, "element access", "of", "index", "type")
		return &bound.ElementAccess{Receiver: d.required(f["of"], v, "of"), Index: d.required(f["index"], v, "index"), Elem: d.typeRef(f["type"]), Pos: pos}
	case "item":
		f := d.fields(v, "tuple element", "of", "index")
		tuple := d.required(f["of"], v, "of")
		i, err := strconv.Atoi(d.str(f["index"], "index"))
		if err != nil || !tuple.Type().IsTuple() || i < 0 || i >= len(tuple.Type().Elems) {
			d.errorf(v, "tuple element index out of range")
			return d.bad(n)
		}
		return &bound.TupleElement{Tuple: tuple, Index: i, Pos: pos}
	case "new":
		return d.newExpr(v, n)
	case "call":
		return d.call(v, n)
	case "assign":
		f := d.fields(v, "assignment", "to", "value")
		return &bound.Assign{Target: d.required(f["to"], v, "to"), Value: d.required(f["value"], v, "value"), Pos: pos}
	case "convert", "as":
		return d.conversion(kind, v, n)
	case "eq", "ne", "and", "or", "arith":
		return d.binary(kind, v, n)
	case "not":
		return &bound.Not{Operand: d.expr(v), T: boolType, Pos: pos}
	case "bang":
		return &bound.Suppress{Operand: d.expr(v), Pos: pos}
	case "cond":
		f := d.fields(v, "conditional", "if", "then", "else", "type")
		x := &bound.Conditional{
			Cond: d.required(f["if"], v, "if"),
			Then: d.required(f["then"], v, "then"),
			Else: d.required(f["else"], v, "else"),
			Pos:  pos,
		}
		if tn := f["type"]; tn != nil {
			x.T = d.typeRef(tn)
		} else {
			x.T = join(x.Then.Type(), x.Else.Type())
		}
		return x
	case "coalesce":
		ops := d.list(v, "coalesce")
		if len(ops) != 2 {
			d.errorf(v, "coalesce takes two operands")
			return d.bad(n)
		}
		x := &bound.Coalesce{Left: d.expr(ops[0]), Right: d.expr(ops[1]), Pos: pos}
		x.T = x.Right.Type()
		if x.T == nil {
			x.T = annotated(x.Left.Type())
		}
		return x
	case "access":
		f := d.fields(v, "conditional access", "of", "then")
		recv := d.required(f["of"], v, "of")
		d.receivers = append(d.receivers, recv)
		access := d.required(f["then"], v, "then")
		d.receivers = d.receivers[:len(d.receivers)-1]
		return &bound.ConditionalAccess{Receiver: recv, Access: access, T: annotated(access.Type()), Pos: pos}
	case "recv":
		if len(d.receivers) == 0 {
			d.errorf(n, "recv outside a conditional access")
			return d.bad(n)
		}
		return &bound.ReceiverPlaceholder{Receiver: d.receivers[len(d.receivers)-1], Pos: pos}
	case "is":
		f := d.fields(v, "is", "of", "pattern")
		op := d.required(f["of"], v, "of")
		return &bound.IsPattern{Operand: op, Pattern: d.pattern(f["pattern"], op.Type()), T: boolType, Pos: pos}
	case "switch":
		return d.switchExpr(v, n)
	case "throw":
		return &bound.ThrowExpr{Operand: d.expr(v), Pos: pos}
	}
	d.errorf(n, "unknown expression kind %q", kind)
	return d.bad(n)
}

// required decodes a mandatory operand, reporting it at parent when absent.
func (d *decoder) required(n, parent *yaml.Node, key string) bound.Expr {
	if n == nil {
		d.errorf(parent, "missing %s", key)
		return d.bad(parent)
	}
	return d.expr(n)
}

func (d *decoder) intLit(n *yaml.Node) bound.Expr {
	i, err := strconv.Atoi(d.str(n, "int"))
	if err != nil {
		d.errorf(n, "invalid integer %q", n.Value)
	}
	return &bound.Literal{Value: i, T: intType, Pos: d.span(n)}
}

func (d *decoder) memberOf(t *bound.TypeRef, name string, at *yaml.Node) *bound.Symbol {
	m := t.Member(name)
	if m == nil {
		d.errorf(at, "type %s has no member %s", t, name)
	}
	return m
}

func (d *decoder) newExpr(v, n *yaml.Node) bound.Expr {
	f := d.fields(v, "new", "type", "args", "init")
	x := &bound.New{T: d.typeRef(f["type"]), Pos: d.span(n)}
	for _, an := range d.list(f["args"], "args") {
		x.Args = append(x.Args, d.expr(an))
	}
	if in := f["init"]; !isNull(in) {
		if in.Kind != yaml.MappingNode {
			d.errorf(in, "init must be a mapping of member to value")
			return x
		}
		for i := 0; i+1 < len(in.Content); i += 2 {
			m := d.memberOf(x.T, in.Content[i].Value, in.Content[i])
			if m == nil {
				continue
			}
			x.Inits = append(x.Inits, &bound.MemberInit{Member: m, Value: d.expr(in.Content[i+1])})
		}
	}
	return x
}

func (d *decoder) call(v, n *yaml.Node) bound.Expr {
	f := d.fields(v, "call", "on", "method", "args")
	name := d.str(f["method"], "method")
	x := &bound.Call{Pos: d.span(n)}
	if on := f["on"]; on != nil {
		x.Receiver = d.expr(on)
		if t := x.Receiver.Type(); t != nil {
			x.Sig = d.lookupMethod(t.Def, name)
		}
		if x.Sig == nil {
			if sig := d.functions[name]; sig != nil && sig.Extension {
				x.Sig = sig
			}
		}
		if x.Sig == nil && name == toString.Name {
			x.Sig = toString
		}
	} else {
		x.Sig = d.functions[name]
	}
	if x.Sig == nil {
		d.errorf(v, "unknown method %s", name)
	}
	for _, an := range d.list(f["args"], "args") {
		x.Args = append(x.Args, d.expr(an))
	}
	return x
}

var conversionKinds = map[string]bound.ConversionKind{
	"identity":           bound.ConvIdentity,
	"implicit reference": bound.ConvImplicitReference,
	"explicit reference": bound.ConvExplicitReference,
	"boxing":             bound.ConvBoxing,
	"unboxing":           bound.ConvUnboxing,
	"implicit nullable":  bound.ConvImplicitNullable,
	"explicit nullable":  bound.ConvExplicitNullable,
	"numeric":            bound.ConvNumeric,
	"user-defined":       bound.ConvUserDefined,
}

// conversion decodes `convert` and `as`. An `as` is always explicit and
// defaults to an explicit reference conversion.
func (d *decoder) conversion(form string, v, n *yaml.Node) bound.Expr {
	allowed := []string{"of", "to", "kind", "explicit"}
	if form == "as" {
		allowed = allowed[:3]
	}
	f := d.fields(v, form, allowed...)
	x := &bound.Conversion{
		Operand:  d.required(f["of"], v, "of"),
		T:        d.typeRef(f["to"]),
		Explicit: form == "as" || d.flag(f["explicit"], "explicit"),
		As:       form == "as",
		Pos:      d.span(n),
	}
	k := d.str(f["kind"], "conversion kind")
	if k == "" && x.As {
		k = "explicit reference"
	}
	kind, ok := conversionKinds[k]
	if !ok {
		d.errorf(v, "unknown conversion kind %q", k)
	}
	x.Kind = kind
	return x
}

// binary decodes an operator over a list of operands. `and` and `or` fold
// more than two operands to the left.
func (d *decoder) binary(kind string, v, n *yaml.Node) bound.Expr {
	ops := d.list(v, kind)
	if len(ops) < 2 || (len(ops) > 2 && kind != "and" && kind != "or") {
		d.errorf(v, "wrong number of operands for %s", kind)
		return d.bad(n)
	}
	op, t := bound.OpArith, intType
	switch kind {
	case "eq":
		op, t = bound.OpEq, boolType
	case "ne":
		op, t = bound.OpNotEq, boolType
	case "and":
		op, t = bound.OpAnd, boolType
	case "or":
		op, t = bound.OpOr, boolType
	}
	x := d.expr(ops[0])
	for _, on := range ops[1:] {
		x = &bound.Binary{Op: op, Left: x, Right: d.expr(on), T: t, Pos: d.span(n)}
	}
	return x
}

func (d *decoder) switchExpr(v, n *yaml.Node) bound.Expr {
	f := d.fields(v, "switch", "on", "arms", "type")
	x := &bound.SwitchExpr{Scrutinee: d.required(f["on"], v, "on"), Pos: d.span(n)}
	in := x.Scrutinee.Type()
	var t *bound.TypeRef
	typed := false
	for _, an := range d.list(f["arms"], "arms") {
		af := d.fields(an, "arm", "pattern", "when", "value")
		d.push()
		arm := &bound.SwitchArm{Pattern: d.pattern(af["pattern"], in), Pos: d.span(an)}
		if wn := af["when"]; wn != nil {
			arm.When = d.expr(wn)
		}
		arm.Value = d.required(af["value"], an, "value")
		d.pop()
		x.Arms = append(x.Arms, arm)
		if _, throws := arm.Value.(*bound.ThrowExpr); throws {
			continue
		}
		if !typed {
			t, typed = arm.Value.Type(), true
		} else {
			t = join(t, arm.Value.Type())
		}
	}
	if tn := f["type"]; tn != nil {
		t = d.typeRef(tn)
	}
	x.T = t
	return x
}

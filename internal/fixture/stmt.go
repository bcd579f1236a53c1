package fixture

import (
	"gopkg.in/yaml.v3"

	"github.com/malphas-lang/nullflow/internal/bound"
)

var objectType = bound.Named(bound.ObjectDef, bound.NotAnnotated)

// block decodes items in a fresh scope.
func (d *decoder) block(at *yaml.Node, items []*yaml.Node) *bound.Block {
	d.push()
	defer d.pop()
	b := &bound.Block{Pos: d.span(at)}
	for _, sn := range items {
		if s := d.stmt(sn); s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}
	return b
}

func (d *decoder) body(n, parent *yaml.Node) *bound.Block {
	if n == nil {
		return &bound.Block{Pos: d.span(parent)}
	}
	return d.block(n, d.list(n, "body"))
}

func (d *decoder) stmt(n *yaml.Node) bound.Stmt {
	pos := d.span(n)
	if n.Kind == yaml.ScalarNode {
		switch n.Value {
		case "break":
			return &bound.Break{Pos: pos}
		case "continue":
			return &bound.Continue{Pos: pos}
		case "return":
			return &bound.Return{Pos: pos}
		}
		d.errorf(n, "unknown statement %q", n.Value)
		return nil
	}

	kind, v, ok := d.single(n, "statement")
	if !ok {
		return nil
	}
	switch kind {
	case "decl":
		return d.decl(v, n)
	case "expr":
		return &bound.ExprStmt{X: d.expr(v), Pos: pos}
	case "block":
		return d.block(v, d.list(v, "block"))
	case "if":
		f := d.fields(v, "if", "cond", "then", "else")
		s := &bound.If{Cond: d.required(f["cond"], v, "cond"), Then: d.body(f["then"], v), Pos: pos}
		if en := f["else"]; en != nil {
			s.Else = d.body(en, v)
		}
		return s
	case "while":
		f := d.fields(v, "while", "cond", "body")
		return &bound.While{Cond: d.required(f["cond"], v, "cond"), Body: d.body(f["body"], v), Pos: pos}
	case "do":
		f := d.fields(v, "do", "body", "cond")
		s := &bound.DoWhile{Body: d.body(f["body"], v), Pos: pos}
		s.Cond = d.required(f["cond"], v, "cond")
		return s
	case "for":
		return d.forStmt(v, n)
	case "foreach":
		f := d.fields(v, "foreach", "name", "type", "in", "body")
		d.push()
		defer d.pop()
		s := &bound.Foreach{Collection: d.required(f["in"], v, "in"), Pos: pos}
		s.Var = &bound.Symbol{Name: d.str(f["name"], "name"), Kind: bound.SymLocal, Type: d.typeRef(f["type"]), Pos: pos}
		d.declare(s.Var)
		s.Body = d.body(f["body"], v)
		return s
	case "return":
		s := &bound.Return{Pos: pos}
		if !isNull(v) {
			s.Value = d.expr(v)
		}
		return s
	case "throw":
		s := &bound.Throw{Pos: pos}
		if !isNull(v) {
			s.Value = d.expr(v)
		}
		return s
	case "try":
		return d.try(v, n)
	case "switch":
		return d.switchStmt(v, n)
	}
	d.errorf(n, "unknown statement kind %q", kind)
	return nil
}

func (d *decoder) decl(v, n *yaml.Node) bound.Stmt {
	f := d.fields(v, "declaration", "name", "type", "init")
	s := &bound.LocalDecl{Pos: d.span(n)}
	if in := f["init"]; in != nil {
		s.Init = d.expr(in)
	}
	sym := &bound.Symbol{Name: d.str(f["name"], "name"), Kind: bound.SymLocal, Pos: d.span(n)}
	switch {
	case f["type"] != nil:
		sym.Type = d.typeRef(f["type"])
	case s.Init != nil && s.Init.Type() != nil:
		sym.Type = s.Init.Type()
	default:
		d.errorf(v, "cannot infer the type of %s", sym.Name)
	}
	if sym.Name == "" {
		d.errorf(v, "declaration needs a name")
	}
	d.declare(sym)
	s.Symbol = sym
	return s
}

func (d *decoder) forStmt(v, n *yaml.Node) bound.Stmt {
	f := d.fields(v, "for", "init", "cond", "post", "body")
	d.push()
	defer d.pop()
	s := &bound.For{Pos: d.span(n)}
	for _, in := range d.list(f["init"], "init") {
		if st := d.stmt(in); st != nil {
			s.Init = append(s.Init, st)
		}
	}
	if cn := f["cond"]; cn != nil {
		s.Cond = d.expr(cn)
	}
	for _, pn := range d.list(f["post"], "post") {
		s.Post = append(s.Post, d.expr(pn))
	}
	s.Body = d.body(f["body"], v)
	return s
}

func (d *decoder) try(v, n *yaml.Node) bound.Stmt {
	f := d.fields(v, "try", "body", "catch", "finally")
	s := &bound.Try{Body: d.body(f["body"], v), Pos: d.span(n)}
	for _, cn := range d.list(f["catch"], "catch") {
		cf := d.fields(cn, "catch", "name", "type", "when", "body")
		d.push()
		c := &bound.Catch{Pos: d.span(cn)}
		if name := d.str(cf["name"], "name"); name != "" {
			t := objectType
			if tn := cf["type"]; tn != nil {
				t = d.typeRef(tn)
			}
			c.Var = &bound.Symbol{Name: name, Kind: bound.SymLocal, Type: t, Pos: d.span(cn)}
			d.declare(c.Var)
		}
		if wn := cf["when"]; wn != nil {
			c.Filter = d.expr(wn)
		}
		c.Body = d.body(cf["body"], cn)
		d.pop()
		s.Catches = append(s.Catches, c)
	}
	if fn := f["finally"]; fn != nil {
		s.Finally = d.body(fn, v)
	}
	return s
}

// switchStmt decodes sections whose labels are `default` or a mapping with
// a pattern and an optional when clause.
func (d *decoder) switchStmt(v, n *yaml.Node) bound.Stmt {
	f := d.fields(v, "switch", "on", "sections")
	s := &bound.Switch{Scrutinee: d.required(f["on"], v, "on"), Pos: d.span(n)}
	in := s.Scrutinee.Type()
	for _, sn := range d.list(f["sections"], "sections") {
		sf := d.fields(sn, "section", "cases", "body")
		d.push()
		sec := &bound.SwitchSection{Pos: d.span(sn)}
		for _, ln := range d.list(sf["cases"], "cases") {
			l := &bound.SwitchLabel{Pos: d.span(ln)}
			if ln.Kind == yaml.ScalarNode && ln.Value == "default" {
				sec.Labels = append(sec.Labels, l)
				continue
			}
			lf := d.fields(ln, "case", "pattern", "when")
			l.Pattern = d.pattern(lf["pattern"], in)
			if wn := lf["when"]; wn != nil {
				l.When = d.expr(wn)
			}
			sec.Labels = append(sec.Labels, l)
		}
		if len(sec.Labels) == 0 {
			d.errorf(sn, "section needs at least one case")
		}
		for _, bn := range d.list(sf["body"], "body") {
			if st := d.stmt(bn); st != nil {
				sec.Body = append(sec.Body, st)
			}
		}
		d.pop()
		s.Sections = append(s.Sections, sec)
	}
	return s
}

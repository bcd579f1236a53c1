// Package fixture decodes bound units written as YAML. It stands in for a
// binder in tests and in the nullflow tool.
//
// Every tree node is a single-key mapping naming its kind:
//
//	methods:
//	  - name: M
//	    params: [{name: s, type: string?}]
//	    body:
//	      - expr: {call: {on: s, method: ToString}}
//
// Types are written as strings such as `Node?`, `int?` or
// `(object?, object?)`. The YAML position of a node becomes its span.
package fixture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/malphas-lang/nullflow/internal/bound"
	"github.com/malphas-lang/nullflow/internal/diag"
)

// Error is a decoding error at a position in the fixture.
type Error struct {
	Span diag.Span
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Span.Filename, e.Span.Line, e.Span.Column, e.Msg)
}

// Load reads and decodes a fixture file.
func Load(path string) (*bound.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Decode(path, data)
}

// Decode decodes a fixture. Every error found is returned, joined.
func Decode(filename string, data []byte) (*bound.Unit, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: failed to parse fixture: %w", filename, err)
	}
	d := newDecoder(filename)
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if len(doc.Content) == 0 {
		return &bound.Unit{Name: name}, nil
	}
	u := d.unit(doc.Content[0], name)
	if len(d.errs) > 0 {
		return nil, errors.Join(d.errs...)
	}
	return u, nil
}

// decoder holds the definitions and scopes seen so far. Errors are
// collected rather than returned so one pass reports every mistake.
type decoder struct {
	file      string
	types     map[string]*bound.TypeDef
	methods   map[*bound.TypeDef]map[string]*bound.Signature
	functions map[string]*bound.Signature
	scope     *scope
	this      *bound.Symbol
	// receivers is the stack of enclosing conditional access receivers.
	receivers []bound.Expr
	errs      []error
}

func newDecoder(file string) *decoder {
	return &decoder{
		file:      file,
		types:     make(map[string]*bound.TypeDef),
		methods:   make(map[*bound.TypeDef]map[string]*bound.Signature),
		functions: make(map[string]*bound.Signature),
	}
}

type scope struct {
	parent *scope
	syms   map[string]*bound.Symbol
}

func (d *decoder) push() { d.scope = &scope{parent: d.scope, syms: make(map[string]*bound.Symbol)} }
func (d *decoder) pop()  { d.scope = d.scope.parent }

func (d *decoder) declare(s *bound.Symbol) {
	d.scope.syms[s.Name] = s
}

func (d *decoder) lookup(name string) *bound.Symbol {
	if name == "this" {
		return d.this
	}
	for s := d.scope; s != nil; s = s.parent {
		if sym, ok := s.syms[name]; ok {
			return sym
		}
	}
	return nil
}

func (d *decoder) span(n *yaml.Node) diag.Span {
	if n == nil {
		return diag.Span{Filename: d.file}
	}
	return diag.Span{Filename: d.file, Line: n.Line, Column: n.Column}
}

func (d *decoder) errorf(n *yaml.Node, format string, a ...any) {
	d.errs = append(d.errs, &Error{Span: d.span(n), Msg: fmt.Sprintf(format, a...)})
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// single splits a single-key mapping into its key and value.
func (d *decoder) single(n *yaml.Node, what string) (string, *yaml.Node, bool) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		d.errorf(n, "%s must be a single-key mapping", what)
		return "", nil, false
	}
	return n.Content[0].Value, n.Content[1], true
}

// fields returns the values of a mapping, reporting keys outside allowed.
func (d *decoder) fields(n *yaml.Node, what string, allowed ...string) map[string]*yaml.Node {
	out := make(map[string]*yaml.Node)
	if isNull(n) {
		return out
	}
	if n.Kind != yaml.MappingNode {
		d.errorf(n, "%s must be a mapping", what)
		return out
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		known := false
		for _, a := range allowed {
			if k.Value == a {
				known = true
				break
			}
		}
		if !known {
			d.errorf(k, "unknown key %q in %s", k.Value, what)
			continue
		}
		out[k.Value] = n.Content[i+1]
	}
	return out
}

// list returns the items of a sequence; a missing node is empty.
func (d *decoder) list(n *yaml.Node, what string) []*yaml.Node {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		d.errorf(n, "%s must be a sequence", what)
		return nil
	}
	return n.Content
}

func (d *decoder) str(n *yaml.Node, what string) string {
	if isNull(n) {
		return ""
	}
	if n.Kind != yaml.ScalarNode {
		d.errorf(n, "%s must be a scalar", what)
		return ""
	}
	return n.Value
}

func (d *decoder) flag(n *yaml.Node, what string) bool {
	if isNull(n) {
		return false
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		d.errorf(n, "%s must be a boolean", what)
	}
	return b
}

func (d *decoder) unit(n *yaml.Node, name string) *bound.Unit {
	f := d.fields(n, "unit", "unit", "types", "functions", "methods")
	if v := d.str(f["unit"], "unit"); v != "" {
		name = v
	}
	u := &bound.Unit{Name: name}
	u.Types = d.typeDefs(f["types"])
	for _, fn := range d.list(f["functions"], "functions") {
		sig := d.signature(fn, nil)
		if sig == nil {
			continue
		}
		sig.Static = !sig.Extension
		d.functions[sig.Name] = sig
	}
	for _, mn := range d.list(f["methods"], "methods") {
		if m := d.method(mn); m != nil {
			u.Methods = append(u.Methods, m)
		}
	}
	return u
}

func (d *decoder) method(n *yaml.Node) *bound.Method {
	f := d.fields(n, "method", "name", "this", "params", "returns", "body")
	name := d.str(f["name"], "method name")
	if name == "" {
		d.errorf(n, "method needs a name")
		return nil
	}
	d.scope = nil
	d.push()
	defer d.pop()

	m := &bound.Method{Name: name, Pos: d.span(n)}
	d.this = nil
	if tn := f["this"]; !isNull(tn) {
		m.This = &bound.Symbol{Name: "this", Kind: bound.SymThis, Type: d.typeRef(tn), Pos: d.span(tn)}
		d.this = m.This
	}
	for _, pn := range d.list(f["params"], "params") {
		p := d.param(pn)
		m.Params = append(m.Params, p)
		d.declare(p)
	}
	if rn := f["returns"]; !isNull(rn) {
		m.Return = d.typeRef(rn)
	}
	body := f["body"]
	if body == nil {
		body = n
	}
	m.Body = d.block(body, d.list(f["body"], "body"))
	return m
}

func (d *decoder) param(n *yaml.Node) *bound.Symbol {
	f := d.fields(n, "parameter", "name", "type", "ref")
	p := &bound.Symbol{
		Name: d.str(f["name"], "parameter name"),
		Kind: bound.SymParam,
		Type: d.typeRef(f["type"]),
		Pos:  d.span(n),
	}
	switch r := d.str(f["ref"], "ref"); r {
	case "":
	case "ref":
		p.RefKind = bound.RefRef
	case "out":
		p.RefKind = bound.RefOut
	case "in":
		p.RefKind = bound.RefIn
	default:
		d.errorf(f["ref"], "unknown ref kind %q", r)
	}
	return p
}

// signature decodes a method signature. owner is nil for free functions.
func (d *decoder) signature(n *yaml.Node, owner *bound.TypeDef) *bound.Signature {
	f := d.fields(n, "signature", "name", "params", "result", "pure", "static", "extension")
	sig := &bound.Signature{
		Name:      d.str(f["name"], "signature name"),
		Pure:      d.flag(f["pure"], "pure"),
		Static:    d.flag(f["static"], "static"),
		Extension: d.flag(f["extension"], "extension"),
	}
	if sig.Name == "" {
		d.errorf(n, "signature needs a name")
		return nil
	}
	if sig.Extension && owner != nil {
		d.errorf(n, "extension %s must be declared under functions", sig.Name)
	}
	for _, pn := range d.list(f["params"], "params") {
		sig.Params = append(sig.Params, d.param(pn))
	}
	if rn := f["result"]; !isNull(rn) {
		sig.Result = d.typeRef(rn)
	}
	return sig
}

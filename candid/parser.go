package candid

import (
	"fmt"
	"math/big"
	"strings"
)

type definition struct {
	name string
	typ  Type
	pos  int
}

type schema struct {
	defs    []definition
	imports []string
	actor   *Service
}

type parseError struct {
	pos int
	msg string
}

func (e *parseError) Error() string {
	return e.msg
}

type parser struct {
	toks []token
	pos  int
}

func parse(src string) (*schema, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.program()
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return &parseError{pos: t.pos, msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) isIdent(s string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == s
}

func (p *parser) expect(s string) error {
	t := p.next()
	if t.kind != tokPunct || t.text != s {
		return p.errorf(t, "expected '%s', found %s", s, t)
	}
	return nil
}

func (p *parser) program() (*schema, error) {
	out := &schema{}
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return out, nil
		case p.isPunct(";"):
			p.next()
		case p.isIdent("type"):
			p.next()
			name := p.next()
			if name.kind != tokIdent || isKeyword(name.text) {
				return nil, p.errorf(name, "expected type name, found %s", name)
			}
			if err := p.expect("="); err != nil {
				return nil, err
			}
			typ, err := p.dataType()
			if err != nil {
				return nil, err
			}
			out.defs = append(out.defs, definition{name: name.text, typ: typ, pos: name.pos})
		case p.isIdent("import"):
			p.next()
			path := p.next()
			if path.kind != tokText {
				return nil, p.errorf(path, "expected import path, found %s", path)
			}
			out.imports = append(out.imports, path.text)
		case p.isIdent("service"):
			if out.actor != nil {
				return nil, p.errorf(t, "duplicate service definition")
			}
			actor, err := p.actor()
			if err != nil {
				return nil, err
			}
			out.actor = actor
		default:
			return nil, p.errorf(t, "unexpected %s", t)
		}
	}
}

// actor parses "service [name] : [(args) ->] ({ methods } | name)".
func (p *parser) actor() (*Service, error) {
	p.next()
	if p.peek().kind == tokIdent {
		p.next()
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	if p.isPunct("(") {
		if _, err := p.argTypes(); err != nil {
			return nil, err
		}
		if err := p.expect("->"); err != nil {
			return nil, err
		}
	}
	if p.peek().kind == tokIdent {
		// service : Name; refers to a service type definition
		ref := p.next()
		return &Service{Methods: []Method{{Name: "", Type: &Ref{Name: ref.text}}}}, nil
	}
	return p.actorType()
}

func (p *parser) actorType() (*Service, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	out := &Service{}
	for !p.isPunct("}") {
		nameTok := p.next()
		if nameTok.kind != tokIdent && nameTok.kind != tokText {
			return nil, p.errorf(nameTok, "expected method name, found %s", nameTok)
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		var mt Type
		if p.peek().kind == tokIdent && !p.isIdent("func") {
			mt = &Ref{Name: p.next().text}
		} else {
			if p.isIdent("func") {
				p.next()
			}
			f, err := p.funcType()
			if err != nil {
				return nil, err
			}
			mt = f
		}
		out.Methods = append(out.Methods, Method{Name: nameTok.text, Type: mt})
		if p.isPunct(";") {
			p.next()
			continue
		}
		if !p.isPunct("}") {
			t := p.peek()
			return nil, p.errorf(t, "expected ';' or '}', found %s", t)
		}
	}
	p.next()
	return out, nil
}

func (p *parser) funcType() (*Func, error) {
	args, err := p.argTypes()
	if err != nil {
		return nil, err
	}
	if err := p.expect("->"); err != nil {
		return nil, err
	}
	rets, err := p.argTypes()
	if err != nil {
		return nil, err
	}
	f := &Func{Args: args, Rets: rets}
	for p.isIdent("query") || p.isIdent("oneway") || p.isIdent("composite_query") {
		f.Annotations = append(f.Annotations, p.next().text)
	}
	return f, nil
}

// argTypes parses "( [name :] type, ... )".
func (p *parser) argTypes() ([]Type, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var out []Type
	for !p.isPunct(")") {
		t := p.peek()
		if (t.kind == tokIdent || t.kind == tokText) && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == ":" {
			p.next()
			p.next()
		}
		typ, err := p.dataType()
		if err != nil {
			return nil, err
		}
		out = append(out, typ)
		if p.isPunct(",") {
			p.next()
			continue
		}
		if !p.isPunct(")") {
			t := p.peek()
			return nil, p.errorf(t, "expected ',' or ')', found %s", t)
		}
	}
	p.next()
	return out, nil
}

func (p *parser) dataType() (Type, error) {
	t := p.next()
	if t.kind != tokIdent {
		return nil, p.errorf(t, "expected type, found %s", t)
	}
	switch {
	case IsPrimitive(t.text):
		return &Prim{Name: t.text}, nil
	case t.text == "blob":
		return &Vec{Elem: &Prim{Name: Nat8}}, nil
	case t.text == "opt":
		elem, err := p.dataType()
		if err != nil {
			return nil, err
		}
		return &Opt{Elem: elem}, nil
	case t.text == "vec":
		elem, err := p.dataType()
		if err != nil {
			return nil, err
		}
		return &Vec{Elem: elem}, nil
	case t.text == "record":
		fields, err := p.fields(false)
		if err != nil {
			return nil, err
		}
		return &Record{Fields: fields}, nil
	case t.text == "variant":
		fields, err := p.fields(true)
		if err != nil {
			return nil, err
		}
		return &Variant{Fields: fields}, nil
	case t.text == "func":
		return p.funcType()
	case t.text == "service":
		return p.actorType()
	case isKeyword(t.text):
		return nil, p.errorf(t, "unexpected keyword '%s'", t.text)
	}
	return &Ref{Name: t.text}, nil
}

func (p *parser) fields(variant bool) ([]Field, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	var out []Field
	next := uint32(0)
	seen := make(map[uint32]string)
	for !p.isPunct("}") {
		var f Field
		t := p.peek()
		labelled := p.peekAt(1).kind == tokPunct && p.peekAt(1).text == ":"
		switch {
		case t.kind == tokNat && labelled:
			p.next()
			p.next()
			id, err := parseNat(t.text)
			if err != nil || !id.IsUint64() || id.Uint64() > 0xffffffff {
				return nil, p.errorf(t, "invalid field id %s", t.text)
			}
			f.ID = uint32(id.Uint64())
			typ, err := p.dataType()
			if err != nil {
				return nil, err
			}
			f.Type = typ
		case (t.kind == tokIdent || t.kind == tokText) && labelled:
			p.next()
			p.next()
			f.Name = t.text
			f.ID = Hash(t.text)
			typ, err := p.dataType()
			if err != nil {
				return nil, err
			}
			f.Type = typ
		case variant && (t.kind == tokIdent || t.kind == tokText):
			p.next()
			f.Name = t.text
			f.ID = Hash(t.text)
			f.Type = &Prim{Name: Null}
		case variant && t.kind == tokNat:
			p.next()
			id, err := parseNat(t.text)
			if err != nil || !id.IsUint64() || id.Uint64() > 0xffffffff {
				return nil, p.errorf(t, "invalid field id %s", t.text)
			}
			f.ID = uint32(id.Uint64())
			f.Type = &Prim{Name: Null}
		default:
			typ, err := p.dataType()
			if err != nil {
				return nil, err
			}
			f.ID = next
			f.Type = typ
		}
		if prev, dup := seen[f.ID]; dup {
			return nil, p.errorf(t, "duplicate field '%s' (id %d collides with '%s')", displayName(f), f.ID, prev)
		}
		seen[f.ID] = displayName(f)
		next = f.ID + 1
		out = append(out, f)

		if p.isPunct(";") {
			p.next()
			continue
		}
		if !p.isPunct("}") {
			t := p.peek()
			return nil, p.errorf(t, "expected ';' or '}', found %s", t)
		}
	}
	p.next()
	return out, nil
}

func displayName(f Field) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("%d", f.ID)
}

func parseNat(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.ReplaceAll(s, "_", ""), 0)
	if !ok {
		return nil, fmt.Errorf("invalid number %s", s)
	}
	return n, nil
}

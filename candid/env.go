package candid

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jshufro/componentgen/errdefs"
)

// Env is a type-checked set of named types, plus the service the schema
// declares, if any.
type Env struct {
	types map[string]Type
	order []string
	actor *Service
}

// Resolver turns schema text into a type environment. NativeResolver is the
// built-in implementation; tests and callers embedding other tooling can
// supply their own.
type Resolver interface {
	Resolve(schema string) (*Env, error)
}

// NativeResolver parses and type-checks schemas in-process.
type NativeResolver struct{}

// Resolve implements Resolver.
func (NativeResolver) Resolve(src string) (*Env, error) {
	s, err := parse(src)
	if err != nil {
		return nil, schemaError(src, err)
	}

	env := &Env{types: make(map[string]Type), actor: s.actor}
	for _, d := range s.defs {
		if _, dup := env.types[d.name]; dup {
			return nil, &errdefs.SignatureParseError{Signature: "schema", Fragment: d.name, Reason: "type is defined more than once"}
		}
		env.types[d.name] = d.typ
		env.order = append(env.order, d.name)
	}
	if err := env.check(); err != nil {
		return nil, err
	}
	return env, nil
}

func schemaError(src string, err error) error {
	var pe *parseError
	if errors.As(err, &pe) {
		return &errdefs.SignatureParseError{Signature: "schema", Fragment: snippet(src, pe.pos), Reason: pe.msg}
	}
	return &errdefs.SignatureParseError{Signature: "schema", Reason: err.Error()}
}

func snippet(src string, pos int) string {
	start := pos
	end := pos + 24
	if end > len(src) {
		end = len(src)
	}
	if start > end {
		start = end
	}
	return src[start:end]
}

// Names lists the defined types in definition order.
func (e *Env) Names() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Lookup returns the definition of a named type.
func (e *Env) Lookup(name string) (Type, bool) {
	t, ok := e.types[name]
	return t, ok
}

// Resolve follows references until it reaches a structural type.
func (e *Env) Resolve(t Type) (Type, error) {
	seen := make(map[string]bool)
	for {
		ref, ok := t.(*Ref)
		if !ok {
			return t, nil
		}
		if seen[ref.Name] {
			return nil, &errdefs.SignatureParseError{Signature: "schema", Fragment: ref.Name, Reason: "type alias refers to itself"}
		}
		seen[ref.Name] = true
		next, ok := e.types[ref.Name]
		if !ok {
			return nil, &errdefs.SignatureParseError{Signature: "schema", Fragment: ref.Name, Reason: "unbound type identifier"}
		}
		t = next
	}
}

// Service returns the declared service, resolving a service reference.
func (e *Env) Service() (*Service, bool) {
	if e.actor == nil {
		return nil, false
	}
	if len(e.actor.Methods) == 1 && e.actor.Methods[0].Name == "" {
		resolved, err := e.Resolve(e.actor.Methods[0].Type)
		if err != nil {
			return nil, false
		}
		s, ok := resolved.(*Service)
		return s, ok
	}
	return e.actor, true
}

// Method finds a method of the declared service.
func (e *Env) Method(name string) (*Func, error) {
	svc, ok := e.Service()
	if !ok {
		return nil, &errdefs.SignatureParseError{Signature: name, Reason: "schema declares no service"}
	}
	for _, m := range svc.Methods {
		if m.Name != name {
			continue
		}
		resolved, err := e.Resolve(m.Type)
		if err != nil {
			return nil, err
		}
		f, ok := resolved.(*Func)
		if !ok {
			return nil, &errdefs.SignatureParseError{Signature: name, Reason: fmt.Sprintf("%s is not a function type", m.Type)}
		}
		return f, nil
	}
	return nil, &errdefs.SignatureParseError{Signature: name, Reason: "method is not declared by the service"}
}

func (e *Env) check() error {
	names := make([]string, 0, len(e.types))
	for n := range e.types {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if _, err := e.Resolve(&Ref{Name: n}); err != nil {
			return err
		}
		if err := e.checkType(e.types[n]); err != nil {
			return err
		}
	}
	if e.actor != nil {
		if err := e.checkType(e.actor); err != nil {
			return err
		}
	}
	return nil
}

func (e *Env) checkType(t Type) error {
	switch t := t.(type) {
	case *Prim:
		return nil
	case *Ref:
		if _, ok := e.types[t.Name]; !ok {
			return &errdefs.SignatureParseError{Signature: "schema", Fragment: t.Name, Reason: "unbound type identifier"}
		}
		return nil
	case *Opt:
		return e.checkType(t.Elem)
	case *Vec:
		return e.checkType(t.Elem)
	case *Record:
		for _, f := range t.Fields {
			if err := e.checkType(f.Type); err != nil {
				return err
			}
		}
	case *Variant:
		for _, f := range t.Fields {
			if err := e.checkType(f.Type); err != nil {
				return err
			}
		}
	case *Func:
		for _, a := range t.Args {
			if err := e.checkType(a); err != nil {
				return err
			}
		}
		for _, r := range t.Rets {
			if err := e.checkType(r); err != nil {
				return err
			}
		}
	case *Service:
		for _, m := range t.Methods {
			if err := e.checkType(m.Type); err != nil {
				return err
			}
		}
	}
	return nil
}

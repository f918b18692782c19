package candid

import (
	"fmt"
	"sort"
	"strings"
)

// Type is a node of the interface-schema type grammar.
type Type interface {
	String() string
	isType()
}

// Primitive type names.
const (
	Nat       = "nat"
	Nat8      = "nat8"
	Nat16     = "nat16"
	Nat32     = "nat32"
	Nat64     = "nat64"
	Int       = "int"
	Int8      = "int8"
	Int16     = "int16"
	Int32     = "int32"
	Int64     = "int64"
	Float32   = "float32"
	Float64   = "float64"
	Text      = "text"
	Bool      = "bool"
	Null      = "null"
	Reserved  = "reserved"
	Empty     = "empty"
	Principal = "principal"
)

// Wire codes of the primitive types.
var primCodes = map[string]int64{
	Null:      -1,
	Bool:      -2,
	Nat:       -3,
	Int:       -4,
	Nat8:      -5,
	Nat16:     -6,
	Nat32:     -7,
	Nat64:     -8,
	Int8:      -9,
	Int16:     -10,
	Int32:     -11,
	Int64:     -12,
	Float32:   -13,
	Float64:   -14,
	Text:      -15,
	Reserved:  -16,
	Empty:     -17,
	Principal: -24,
}

const (
	optCode     = -18
	vecCode     = -19
	recordCode  = -20
	variantCode = -21
)

// IsPrimitive reports whether name is a primitive type keyword.
func IsPrimitive(name string) bool {
	_, ok := primCodes[name]
	return ok
}

// Prim is a primitive type.
type Prim struct {
	Name string
}

// Opt is an optional value.
type Opt struct {
	Elem Type
}

// Vec is a sequence.
type Vec struct {
	Elem Type
}

// Field is a record field or variant alternative. Positional fields have
// no Name; their ID is their position.
type Field struct {
	Name string
	ID   uint32
	Type Type
}

// Record is a product of fields.
type Record struct {
	Fields []Field
}

// Variant is a tagged union.
type Variant struct {
	Fields []Field
}

// Ref is a reference to a named type.
type Ref struct {
	Name string
}

// Func is a function reference type.
type Func struct {
	Args        []Type
	Rets        []Type
	Annotations []string
}

// Method is one entry of a service type.
type Method struct {
	Name string
	Type Type // *Func or *Ref
}

// Service is an actor reference type.
type Service struct {
	Methods []Method
}

func (*Prim) isType()    {}
func (*Opt) isType()     {}
func (*Vec) isType()     {}
func (*Record) isType()  {}
func (*Variant) isType() {}
func (*Ref) isType()     {}
func (*Func) isType()    {}
func (*Service) isType() {}

func (t *Prim) String() string { return t.Name }
func (t *Opt) String() string  { return "opt " + t.Elem.String() }
func (t *Vec) String() string  { return "vec " + t.Elem.String() }
func (t *Ref) String() string  { return t.Name }

func (t *Record) String() string {
	return "record " + fieldsString(t.Fields, false)
}

func (t *Variant) String() string {
	return "variant " + fieldsString(t.Fields, true)
}

func (t *Func) String() string {
	s := "func " + typesString(t.Args) + " -> " + typesString(t.Rets)
	for _, a := range t.Annotations {
		s += " " + a
	}
	return s
}

func (t *Service) String() string {
	parts := make([]string, 0, len(t.Methods))
	for _, m := range t.Methods {
		mt := m.Type.String()
		mt = strings.TrimPrefix(mt, "func ")
		parts = append(parts, quoteName(m.Name)+" : "+mt)
	}
	if len(parts) == 0 {
		return "service {}"
	}
	return "service { " + strings.Join(parts, "; ") + " }"
}

// IsTuple reports whether every field is positional, in order from zero.
func (t *Record) IsTuple() bool {
	if len(t.Fields) == 0 {
		return false
	}
	for i, f := range t.Fields {
		if f.Name != "" || f.ID != uint32(i) {
			return false
		}
	}
	return true
}

// Sorted returns the fields ordered by id, the order used on the wire.
func sortedFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func fieldsString(fields []Field, variant bool) string {
	if len(fields) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(fields))
	for i, f := range fields {
		switch {
		case f.Name == "" && !variant && f.ID == uint32(i):
			parts = append(parts, f.Type.String())
		case f.Name == "":
			parts = append(parts, fmt.Sprintf("%d : %s", f.ID, f.Type))
		case variant && isNull(f.Type):
			parts = append(parts, quoteName(f.Name))
		default:
			parts = append(parts, quoteName(f.Name)+" : "+f.Type.String())
		}
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

func typesString(ts []Type) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, t.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func isNull(t Type) bool {
	p, ok := t.(*Prim)
	return ok && p.Name == Null
}

func quoteName(name string) string {
	if isIdent(name) && !isKeyword(name) {
		return name
	}
	return `"` + escapeText(name) + `"`
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Hash is the field id of a named field.
func Hash(name string) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*223 + uint32(name[i])
	}
	return h
}

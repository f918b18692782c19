package candid

import (
	"fmt"
	"math/big"
	"strings"
)

// Value is a typed interface-schema value, used for call arguments.
type Value interface {
	// Type is the schema type of the value.
	Type() Type
	// String is the textual form of the value.
	String() string
}

// TextValue is a text value.
type TextValue string

// BoolValue is a bool value.
type BoolValue bool

// Nat64Value is a nat64 value.
type Nat64Value uint64

// Nat32Value is a nat32 value.
type Nat32Value uint32

// Nat8Value is a nat8 value.
type Nat8Value uint8

// NatValue is an unbounded natural number.
type NatValue struct {
	*big.Int
}

// NullValue is the null value.
type NullValue struct{}

// PrincipalValue is a principal in its binary form.
type PrincipalValue []byte

// OptValue is an optional value. A nil Value is none; Elem types it.
type OptValue struct {
	Elem  Type
	Value Value
}

// VecValue is a sequence of values of type Elem.
type VecValue struct {
	Elem   Type
	Values []Value
}

// FieldValue is one field of a record value.
type FieldValue struct {
	Name  string
	Value Value
}

// RecordValue is a record with named fields.
type RecordValue struct {
	Fields []FieldValue
}

// VariantValue selects one alternative of a variant type.
type VariantValue struct {
	Alternatives []Field
	Index        int
	Value        Value
}

// BigNat copies n into a NatValue.
func BigNat(n *big.Int) NatValue {
	return NatValue{Int: new(big.Int).Set(n)}
}

// Some wraps v in an optional.
func Some(v Value) OptValue {
	return OptValue{Elem: v.Type(), Value: v}
}

// None is an empty optional of type elem.
func None(elem Type) OptValue {
	return OptValue{Elem: elem}
}

// Enum builds a variant of null alternatives and selects name.
func Enum(name string, names ...string) (VariantValue, error) {
	out := VariantValue{Index: -1}
	for _, n := range names {
		if n == name {
			out.Index = len(out.Alternatives)
		}
		out.Alternatives = append(out.Alternatives, Field{Name: n, ID: Hash(n), Type: &Prim{Name: Null}})
	}
	if out.Index < 0 {
		return VariantValue{}, fmt.Errorf("%s is not one of %s", name, strings.Join(names, ", "))
	}
	out.Value = NullValue{}
	return out, nil
}

func (TextValue) Type() Type      { return &Prim{Name: Text} }
func (BoolValue) Type() Type      { return &Prim{Name: Bool} }
func (Nat64Value) Type() Type     { return &Prim{Name: Nat64} }
func (Nat32Value) Type() Type     { return &Prim{Name: Nat32} }
func (Nat8Value) Type() Type      { return &Prim{Name: Nat8} }
func (NatValue) Type() Type       { return &Prim{Name: Nat} }
func (NullValue) Type() Type      { return &Prim{Name: Null} }
func (PrincipalValue) Type() Type { return &Prim{Name: Principal} }
func (v OptValue) Type() Type     { return &Opt{Elem: v.Elem} }
func (v VecValue) Type() Type     { return &Vec{Elem: v.Elem} }

func (v RecordValue) Type() Type {
	fields := make([]Field, 0, len(v.Fields))
	for _, f := range v.Fields {
		fields = append(fields, Field{Name: f.Name, ID: Hash(f.Name), Type: f.Value.Type()})
	}
	return &Record{Fields: fields}
}

func (v VariantValue) Type() Type {
	return &Variant{Fields: v.Alternatives}
}

func (v TextValue) String() string  { return `"` + escapeText(string(v)) + `"` }
func (v BoolValue) String() string  { return fmt.Sprintf("%t", bool(v)) }
func (v Nat64Value) String() string { return fmt.Sprintf("%d : nat64", uint64(v)) }
func (v Nat32Value) String() string { return fmt.Sprintf("%d : nat32", uint32(v)) }
func (v Nat8Value) String() string  { return fmt.Sprintf("%d : nat8", uint8(v)) }
func (v NatValue) String() string   { return v.Int.String() }
func (NullValue) String() string    { return "null" }

func (v PrincipalValue) String() string {
	return fmt.Sprintf("principal \"%s\"", FormatPrincipal(v))
}

func (v OptValue) String() string {
	if v.Value == nil {
		return "null"
	}
	return "opt " + v.Value.String()
}

func (v VecValue) String() string {
	if len(v.Values) == 0 {
		return "vec {}"
	}
	parts := make([]string, 0, len(v.Values))
	for _, e := range v.Values {
		parts = append(parts, e.String())
	}
	return "vec { " + strings.Join(parts, "; ") + " }"
}

func (v RecordValue) String() string {
	if len(v.Fields) == 0 {
		return "record {}"
	}
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, quoteName(f.Name)+" = "+f.Value.String())
	}
	return "record { " + strings.Join(parts, "; ") + " }"
}

func (v VariantValue) String() string {
	alt := v.Alternatives[v.Index]
	if _, ok := v.Value.(NullValue); ok {
		return "variant { " + quoteName(alt.Name) + " }"
	}
	return "variant { " + quoteName(alt.Name) + " = " + v.Value.String() + " }"
}

// Format renders an argument sequence in textual form, e.g. ("a", 1 : nat64).
func Format(args ...Value) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

package oracle

import (
	"fmt"

	"github.com/jshufro/componentgen/errdefs"
)

// Conversion turns a value of a schema primitive type into the argument of
// an oracle update, as a Go expression.
type Conversion struct {
	From string
	To   Kind
	// Fallible expressions return (value, error).
	Fallible bool

	build func(lib func(string) string, v string) string
}

// Expr is the Go expression converting v. lib qualifies identifiers of the
// runtime support package.
func (c Conversion) Expr(lib func(name string) string, v string) string {
	return c.build(lib, v)
}

type rule struct {
	fallible bool
	build    func(lib func(string) string, v string, bits int, exp int) string
}

func call(fn string, args ...interface{}) func(lib func(string) string, v string, bits int, exp int) string {
	return func(lib func(string) string, v string, bits int, exp int) string {
		s := lib(fn) + "(" + v
		for _, a := range args {
			switch a {
			case "bits":
				s += fmt.Sprintf(", %d", bits)
			case "exp":
				s += fmt.Sprintf(", %d", exp)
			}
		}
		return s + ")"
	}
}

func cast(typ string, fn string) func(lib func(string) string, v string, bits int, exp int) string {
	return func(lib func(string) string, v string, bits int, exp int) string {
		if fn == "" {
			return typ + "(" + v + ")"
		}
		return lib(fn) + "(" + typ + "(" + v + "))"
	}
}

var (
	unsigned = []string{"nat8", "nat16", "nat32", "nat64"}
	signed   = []string{"int8", "int16", "int32", "int64"}
	floats   = []string{"float32", "float64"}
)

// conversions to big oracles (uint128, uint256), keyed by source primitive
var bigRules = func() map[string]rule {
	m := map[string]rule{
		"nat":  {true, call("FitBig", "bits")},
		"int":  {true, call("FitBig", "bits")},
		"text": {true, call("ParseBig", "bits")},
	}
	for _, p := range unsigned {
		m[p] = rule{false, cast("uint64", "BigFromUint64")}
	}
	for _, p := range signed {
		m[p] = rule{true, func(lib func(string) string, v string, bits int, exp int) string {
			return fmt.Sprintf("%s(int64(%s), %d)", lib("BigFromInt64"), v, bits)
		}}
	}
	for _, p := range floats {
		m[p] = rule{true, func(lib func(string) string, v string, bits int, exp int) string {
			return fmt.Sprintf("%s(float64(%s), %d, %d)", lib("ScaleFloat"), v, exp, bits)
		}}
	}
	return m
}()

var uint64Rules = func() map[string]rule {
	m := map[string]rule{
		"nat":  {true, call("FitUint64")},
		"int":  {true, call("FitUint64")},
		"text": {true, call("ParseUint64")},
	}
	for _, p := range unsigned {
		m[p] = rule{false, cast("uint64", "")}
	}
	for _, p := range signed {
		m[p] = rule{true, cast("int64", "Int64ToUint64")}
	}
	for _, p := range floats {
		m[p] = rule{true, func(lib func(string) string, v string, bits int, exp int) string {
			return fmt.Sprintf("%s(float64(%s), %d)", lib("ScaleFloatUint64"), v, exp)
		}}
	}
	return m
}()

var stringRules = map[string]rule{
	"text": {false, func(lib func(string) string, v string, bits int, exp int) string { return v }},
}

// Convert looks up the conversion from a schema primitive to an oracle kind.
// exponent scales floating point values by 10^exponent. Combinations without
// a conversion are a ConversionError.
func Convert(from string, to Kind, exponent int) (Conversion, error) {
	var rules map[string]rule
	bits := 0
	switch to {
	case Uint256:
		rules, bits = bigRules, 256
	case Uint128:
		rules, bits = bigRules, 128
	case Uint64:
		rules = uint64Rules
	case String:
		rules = stringRules
	default:
		return Conversion{}, &errdefs.ConversionError{From: from, To: string(to), Reason: "unknown oracle type"}
	}
	r, ok := rules[from]
	if !ok {
		return Conversion{}, &errdefs.ConversionError{From: from, To: string(to), Reason: "no conversion defined"}
	}
	return Conversion{
		From:     from,
		To:       to,
		Fallible: r.fallible,
		build: func(lib func(string) string, v string) string {
			return r.build(lib, v, bits, exponent)
		},
	}, nil
}

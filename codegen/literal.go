package codegen

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jshufro/componentgen/abisig"
	"github.com/jshufro/componentgen/candid"
	"github.com/jshufro/componentgen/errdefs"
	"github.com/jshufro/componentgen/gosrc"
	"github.com/jshufro/componentgen/manifest"
)

type targetClass int

const (
	classUint targetClass = iota
	classInt
	classBig
	classBigSigned
	classUint256
	classAddress
	classBytes
	classBool
	classText
	classFloat
	classPrincipal
)

// target is a Go type a literal argument is coerced into.
type target struct {
	name   string
	class  targetClass
	bits   int // zero for unbounded integers
	goType string
}

type coercion func(f *gosrc.File, l manifest.Literal, t target) (string, error)

// coercions lists every supported literal kind and target pair. Anything
// missing is a ConversionError.
var coercions = map[manifest.LiteralKind]map[targetClass]coercion{
	manifest.LiteralInt: {
		classUint:      intCast,
		classInt:       intCast,
		classBig:       bigConst,
		classBigSigned: bigConst,
		classUint256:   bigConst,
		classFloat:     floatConst,
	},
	manifest.LiteralString: {
		classUint:      intCast,
		classInt:       intCast,
		classBig:       bigConst,
		classBigSigned: bigConst,
		classUint256:   bigConst,
		classAddress:   addressConst,
		classBytes:     bytesConst,
		classText:      textConst,
		classPrincipal: principalConst,
	},
	manifest.LiteralFloat: {
		classFloat: floatConst,
	},
	manifest.LiteralBool: {
		classBool: boolConst,
	},
}

func conversionError(l manifest.Literal, t target, reason string) error {
	return &errdefs.ConversionError{
		From:   fmt.Sprintf("%s literal '%s'", l.Kind, l.Raw),
		To:     t.name,
		Reason: reason,
	}
}

// coerce renders literal l as a Go expression of type t.
func coerce(f *gosrc.File, l manifest.Literal, t target) (string, error) {
	c, ok := coercions[l.Kind][t.class]
	if !ok {
		return "", conversionError(l, t, "no conversion defined")
	}
	return c(f, l, t)
}

func literalInt(l manifest.Literal, t target) (*big.Int, error) {
	if l.Kind == manifest.LiteralInt {
		n, err := l.Int()
		if err != nil {
			return nil, conversionError(l, t, err.Error())
		}
		return n, nil
	}
	n, ok := new(big.Int).SetString(strings.TrimSpace(l.Raw), 0)
	if !ok {
		return nil, conversionError(l, t, "not an integer")
	}
	return n, nil
}

func fits(n *big.Int, bits int, signed bool) bool {
	if bits == 0 {
		return signed || n.Sign() >= 0
	}
	if !signed {
		return n.Sign() >= 0 && n.BitLen() <= bits
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	return n.Cmp(limit) < 0 && n.Cmp(new(big.Int).Neg(limit)) >= 0
}

func intCast(f *gosrc.File, l manifest.Literal, t target) (string, error) {
	n, err := literalInt(l, t)
	if err != nil {
		return "", err
	}
	if !fits(n, t.bits, t.class == classInt) {
		return "", conversionError(l, t, "out of range")
	}
	return fmt.Sprintf("%s(%s)", t.goType, n), nil
}

func bigConst(f *gosrc.File, l manifest.Literal, t target) (string, error) {
	n, err := literalInt(l, t)
	if err != nil {
		return "", err
	}
	if !fits(n, t.bits, t.class == classBigSigned) {
		return "", conversionError(l, t, "out of range")
	}
	fn := "MustBig"
	if t.class == classUint256 {
		fn = "MustUint256"
	}
	return fmt.Sprintf("%s(%q)", f.Lib(fn), n.String()), nil
}

func floatConst(f *gosrc.File, l manifest.Literal, t target) (string, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(l.Raw, "_", ""), 64)
	if err != nil {
		return "", conversionError(l, t, "not a finite number")
	}
	return fmt.Sprintf("%s(%s)", t.goType, strconv.FormatFloat(v, 'g', -1, 64)), nil
}

func boolConst(f *gosrc.File, l manifest.Literal, t target) (string, error) {
	v, err := strconv.ParseBool(strings.ToLower(l.Raw))
	if err != nil {
		return "", conversionError(l, t, "not a boolean")
	}
	return strconv.FormatBool(v), nil
}

func textConst(f *gosrc.File, l manifest.Literal, t target) (string, error) {
	return strconv.Quote(l.Raw), nil
}

func addressConst(f *gosrc.File, l manifest.Literal, t target) (string, error) {
	if !common.IsHexAddress(l.Raw) {
		return "", conversionError(l, t, "not a 20 byte hex address")
	}
	return fmt.Sprintf("%s(%q)", f.Ident(gosrc.CommonImportPath, "HexToAddress"), l.Raw), nil
}

func bytesConst(f *gosrc.File, l manifest.Literal, t target) (string, error) {
	if _, err := hexutil.Decode(l.Raw); err != nil {
		return "", conversionError(l, t, "not 0x prefixed hex")
	}
	return fmt.Sprintf("%s(%q)", f.Ident(gosrc.CommonImportPath, "FromHex"), l.Raw), nil
}

func principalConst(f *gosrc.File, l manifest.Literal, t target) (string, error) {
	if !candid.IsPrincipal(l.Raw) {
		return "", conversionError(l, t, "not a principal")
	}
	return fmt.Sprintf("%s(%q)", f.Lib("MustPrincipal"), l.Raw), nil
}

// abiTarget is the coercion target of a contract argument declared as
// declared. Integers are bounded by the declared width, not the width of
// the Go type holding them.
func abiTarget(t abisig.TargetType, declared string) target {
	out := target{name: t.ABIType(), bits: t.Bits(), goType: t.GoName()}
	if bits, _, ok := abisig.IntWidth(declared); ok && bits < out.bits {
		out.name = declared
		out.bits = bits
	}
	switch t {
	case abisig.Address:
		out.class = classAddress
	case abisig.Bytes:
		out.class = classBytes
	case abisig.Bool:
		out.class = classBool
	case abisig.String:
		out.class = classText
	case abisig.Uint128:
		out.class = classBig
	case abisig.Int128:
		out.class = classBigSigned
	case abisig.Uint256:
		out.class = classUint256
	default:
		if t.Signed() {
			out.class = classInt
		} else {
			out.class = classUint
		}
	}
	return out
}

var candidTargets = map[string]target{
	candid.Nat8:      {class: classUint, bits: 8, goType: "uint8"},
	candid.Nat16:     {class: classUint, bits: 16, goType: "uint16"},
	candid.Nat32:     {class: classUint, bits: 32, goType: "uint32"},
	candid.Nat64:     {class: classUint, bits: 64, goType: "uint64"},
	candid.Int8:      {class: classInt, bits: 8, goType: "int8"},
	candid.Int16:     {class: classInt, bits: 16, goType: "int16"},
	candid.Int32:     {class: classInt, bits: 32, goType: "int32"},
	candid.Int64:     {class: classInt, bits: 64, goType: "int64"},
	candid.Nat:       {class: classBig},
	candid.Int:       {class: classBigSigned},
	candid.Float32:   {class: classFloat, goType: "float32"},
	candid.Float64:   {class: classFloat, goType: "float64"},
	candid.Text:      {class: classText},
	candid.Bool:      {class: classBool},
	candid.Principal: {class: classPrincipal},
}

// candidTarget is the coercion target of a canister argument. Only
// primitive types have a literal form.
func candidTarget(m *candid.CanisterMethodIdentifier, t candid.Type) (target, error) {
	resolved, err := m.Resolve(t)
	if err != nil {
		return target{}, err
	}
	if p, ok := resolved.(*candid.Prim); ok {
		if out, ok := candidTargets[p.Name]; ok {
			out.name = p.Name
			return out, nil
		}
	}
	return target{}, &errdefs.UnsupportedTypeError{Type: resolved.String(), Context: "literal argument"}
}

// jsonLiteral renders a JSON-RPC parameter, keeping the literal's own type.
func jsonLiteral(f *gosrc.File, l manifest.Literal) (string, error) {
	switch l.Kind {
	case manifest.LiteralString:
		return strconv.Quote(l.Raw), nil
	case manifest.LiteralBool:
		return boolConst(f, l, target{name: "bool"})
	case manifest.LiteralFloat:
		return floatConst(f, l, target{name: "float64", goType: "float64"})
	case manifest.LiteralInt:
		t := target{name: "int64", class: classInt, bits: 64, goType: "int64"}
		n, err := literalInt(l, t)
		if err != nil {
			return "", err
		}
		if n.IsInt64() {
			return fmt.Sprintf("int64(%s)", n), nil
		}
		return bigConst(f, l, target{name: "int", class: classBigSigned})
	}
	return "", &errdefs.ConversionError{From: l.Kind.String(), To: "JSON value"}
}

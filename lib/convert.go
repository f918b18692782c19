package lib

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ConversionError is returned when a value does not fit the requested type.
type ConversionError struct {
	Value interface{}
	To    string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %v (%T) to %s", e.Value, e.Value, e.To)
}

// asBig widens any integer value decoded from the ABI.
func asBig(v interface{}) (*big.Int, bool) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return n, true
	case *uint256.Int:
		if n == nil {
			return nil, false
		}
		return n.ToBig(), true
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Int).SetUint64(n), true
	case uint:
		return new(big.Int).SetUint64(uint64(n)), true
	case int8:
		return big.NewInt(int64(n)), true
	case int16:
		return big.NewInt(int64(n)), true
	case int32:
		return big.NewInt(int64(n)), true
	case int64:
		return big.NewInt(n), true
	case int:
		return big.NewInt(int64(n)), true
	}
	return nil, false
}

func toUint(v interface{}, bits int, to string) (uint64, error) {
	n, ok := asBig(v)
	if !ok || n.Sign() < 0 || n.BitLen() > bits {
		return 0, &ConversionError{Value: v, To: to}
	}
	return n.Uint64(), nil
}

func toInt(v interface{}, bits int, to string) (int64, error) {
	n, ok := asBig(v)
	if !ok || !n.IsInt64() {
		return 0, &ConversionError{Value: v, To: to}
	}
	i := n.Int64()
	if bits < 64 && (i < -(1<<(bits-1)) || i >= 1<<(bits-1)) {
		return 0, &ConversionError{Value: v, To: to}
	}
	return i, nil
}

func ToUint16(v interface{}) (uint16, error) {
	n, err := toUint(v, 16, "uint16")
	return uint16(n), err
}

func ToUint32(v interface{}) (uint32, error) {
	n, err := toUint(v, 32, "uint32")
	return uint32(n), err
}

func ToUint64(v interface{}) (uint64, error) {
	return toUint(v, 64, "uint64")
}

func ToInt16(v interface{}) (int16, error) {
	n, err := toInt(v, 16, "int16")
	return int16(n), err
}

func ToInt32(v interface{}) (int32, error) {
	n, err := toInt(v, 32, "int32")
	return int32(n), err
}

func ToInt64(v interface{}) (int64, error) {
	return toInt(v, 64, "int64")
}

// ToBig copies any integer into a big.Int.
func ToBig(v interface{}) (*big.Int, error) {
	n, ok := asBig(v)
	if !ok {
		return nil, &ConversionError{Value: v, To: "*big.Int"}
	}
	return new(big.Int).Set(n), nil
}

func ToUint256(v interface{}) (*uint256.Int, error) {
	n, ok := asBig(v)
	if !ok || n.Sign() < 0 {
		return nil, &ConversionError{Value: v, To: "*uint256.Int"}
	}
	out, overflow := uint256.FromBig(n)
	if overflow {
		return nil, &ConversionError{Value: v, To: "*uint256.Int"}
	}
	return out, nil
}

func ToAddress(v interface{}) (common.Address, error) {
	switch a := v.(type) {
	case common.Address:
		return a, nil
	case string:
		if common.IsHexAddress(a) {
			return common.HexToAddress(a), nil
		}
	}
	return common.Address{}, &ConversionError{Value: v, To: "common.Address"}
}

// ToAddressText is the checksummed hex form of an address value.
func ToAddressText(v interface{}) (string, error) {
	a, err := ToAddress(v)
	if err != nil {
		return "", err
	}
	return a.Hex(), nil
}

func ToBytes(v interface{}) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return nil, &ConversionError{Value: v, To: "[]byte"}
}

func ToBool(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, &ConversionError{Value: v, To: "bool"}
}

func ToString(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", &ConversionError{Value: v, To: "string"}
}

// BigFromUint64 widens an unsigned integer.
func BigFromUint64(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

// BigFromInt64 widens a signed integer into an unsigned value of the given width.
func BigFromInt64(v int64, bits int) (*big.Int, error) {
	return FitBig(big.NewInt(v), bits)
}

// FitBig checks that n is non-negative and fits in bits.
func FitBig(n *big.Int, bits int) (*big.Int, error) {
	if n == nil || n.Sign() < 0 || n.BitLen() > bits {
		return nil, &ConversionError{Value: n, To: fmt.Sprintf("uint%d", bits)}
	}
	return new(big.Int).Set(n), nil
}

// FitUint64 narrows n to a uint64.
func FitUint64(n *big.Int) (uint64, error) {
	if n == nil || !n.IsUint64() {
		return 0, &ConversionError{Value: n, To: "uint64"}
	}
	return n.Uint64(), nil
}

// Int64ToUint64 rejects negative values.
func Int64ToUint64(v int64) (uint64, error) {
	if v < 0 {
		return 0, &ConversionError{Value: v, To: "uint64"}
	}
	return uint64(v), nil
}

// ParseBig parses decimal or 0x/0o/0b prefixed text as an unsigned integer
// of the given width.
func ParseBig(s string, bits int) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok {
		return nil, &ConversionError{Value: s, To: fmt.Sprintf("uint%d", bits)}
	}
	return FitBig(n, bits)
}

// ParseUint64 parses text like ParseBig into a uint64.
func ParseUint64(s string) (uint64, error) {
	n, err := ParseBig(s, 64)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// ScaleFloat multiplies f by 10^exp and truncates it to an unsigned integer
// of the given width.
func ScaleFloat(f float64, exp int, bits int) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil, &ConversionError{Value: f, To: fmt.Sprintf("uint%d", bits)}
	}
	scaled := new(big.Float).SetPrec(256).SetFloat64(f)
	scale := new(big.Float).SetPrec(256).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
	n, _ := scaled.Mul(scaled, scale).Int(nil)
	return FitBig(n, bits)
}

// ScaleFloatUint64 is ScaleFloat into a uint64.
func ScaleFloatUint64(f float64, exp int) (uint64, error) {
	n, err := ScaleFloat(f, exp, 64)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// PackArg converts a value of a generated Go type to the representation the
// ABI encoder expects for t. Integers of any width are accepted and range checked.
func PackArg(t abi.Type, v interface{}) (interface{}, error) {
	switch t.T {
	case abi.UintTy, abi.IntTy:
		n, ok := asBig(v)
		if !ok {
			return nil, &ConversionError{Value: v, To: t.String()}
		}
		if t.T == abi.UintTy && (n.Sign() < 0 || n.BitLen() > t.Size) {
			return nil, &ConversionError{Value: v, To: t.String()}
		}
		if t.T == abi.IntTy && n.BitLen() >= t.Size && !(n.Sign() < 0 && isMinInt(n, t.Size)) {
			return nil, &ConversionError{Value: v, To: t.String()}
		}
		goType := t.GetType()
		if goType == reflect.TypeOf(&big.Int{}) {
			return new(big.Int).Set(n), nil
		}
		if t.T == abi.UintTy {
			return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
		}
		return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
	case abi.AddressTy:
		return ToAddress(v)
	case abi.BoolTy:
		return ToBool(v)
	case abi.StringTy:
		return ToString(v)
	case abi.BytesTy:
		return ToBytes(v)
	}
	return v, nil
}

func isMinInt(n *big.Int, bits int) bool {
	min := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	return new(big.Int).Neg(n).Cmp(min) == 0
}

// PackArgs converts every argument of a method call with PackArg.
func PackArgs(args abi.Arguments, values []interface{}) ([]interface{}, error) {
	if len(args) != len(values) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(args), len(values))
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		packed, err := PackArg(args[i].Type, v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = packed
	}
	return out, nil
}

// MustBig parses an integer constant of generated code.
func MustBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		panic(fmt.Sprintf("invalid integer constant %q", s))
	}
	return n
}

// MustUint256 parses an unsigned 256 bit constant of generated code.
func MustUint256(s string) *uint256.Int {
	n, err := ToUint256(MustBig(s))
	if err != nil {
		panic(err)
	}
	return n
}

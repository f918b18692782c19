package abisig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/jshufro/componentgen/errdefs"
)

// TargetType is the Go-side scalar an ABI primitive maps to.
type TargetType int

const (
	Address TargetType = iota
	Bytes
	Bool
	String
	Uint16
	Uint32
	Uint64
	Uint128
	Int16
	Int32
	Int64
	Int128
	// Uint256 is the big-unsigned special case, rendered as *uint256.Int.
	Uint256
)

const (
	bigImportPath     = "math/big"
	commonImportPath  = "github.com/ethereum/go-ethereum/common"
	uint256ImportPath = "github.com/holiman/uint256"
)

type targetInfo struct {
	name      string
	abiType   string
	pkg       string
	goName    string
	pointer   bool
	converter string
}

var targets = map[TargetType]targetInfo{
	Address: {"address", "address", commonImportPath, "Address", false, "ToAddress"},
	Bytes:   {"bytes", "bytes", "", "[]byte", false, "ToBytes"},
	Bool:    {"bool", "bool", "", "bool", false, "ToBool"},
	String:  {"string", "string", "", "string", false, "ToString"},
	Uint16:  {"u16", "uint16", "", "uint16", false, "ToUint16"},
	Uint32:  {"u32", "uint32", "", "uint32", false, "ToUint32"},
	Uint64:  {"u64", "uint64", "", "uint64", false, "ToUint64"},
	Uint128: {"u128", "uint128", bigImportPath, "Int", true, "ToBig"},
	Int16:   {"i16", "int16", "", "int16", false, "ToInt16"},
	Int32:   {"i32", "int32", "", "int32", false, "ToInt32"},
	Int64:   {"i64", "int64", "", "int64", false, "ToInt64"},
	Int128:  {"i128", "int128", bigImportPath, "Int", true, "ToBig"},
	Uint256: {"u256", "uint256", uint256ImportPath, "Int", true, "ToUint256"},
}

func (t TargetType) info() targetInfo {
	info, ok := targets[t]
	if !ok {
		panic(fmt.Sprintf("abisig: unknown target type %d", int(t)))
	}
	return info
}

func (t TargetType) String() string {
	return t.info().name
}

// ABIType is the canonical ABI spelling of the type. Parsing it yields t again.
func (t TargetType) ABIType() string {
	return t.info().abiType
}

// GoImportPath is the package declaring the Go type, empty for builtins.
func (t TargetType) GoImportPath() string {
	return t.info().pkg
}

// GoName is the unqualified Go type name.
func (t TargetType) GoName() string {
	return t.info().goName
}

// GoPointer reports whether values are held by pointer.
func (t TargetType) GoPointer() bool {
	return t.info().pointer
}

// Converter names the lib function turning a decoded ABI value into this type.
func (t TargetType) Converter() string {
	return t.info().converter
}

// Bits is the integer width of the type, 0 for non-integers.
func (t TargetType) Bits() int {
	switch t {
	case Uint16, Int16:
		return 16
	case Uint32, Int32:
		return 32
	case Uint64, Int64:
		return 64
	case Uint128, Int128:
		return 128
	case Uint256:
		return 256
	}
	return 0
}

// Signed reports whether the type is a signed integer.
func (t TargetType) Signed() bool {
	switch t {
	case Int16, Int32, Int64, Int128:
		return true
	}
	return false
}

var intPattern = regexp.MustCompile(`^(u?)int([0-9]*)$`)

// IntWidth is the declared width of an ABI integer type name, 256 for the
// bare spellings. ok is false for anything that is not an integer name.
func IntWidth(t string) (bits int, signed bool, ok bool) {
	m := intPattern.FindStringSubmatch(strings.TrimSpace(t))
	if m == nil {
		return 0, false, false
	}
	bits = 256
	if m[2] != "" {
		var err error
		if bits, err = strconv.Atoi(m[2]); err != nil {
			return 0, false, false
		}
	}
	return bits, m[1] == "", true
}

// MapABIType maps one ABI primitive type name to its target type. Names
// that are not ABI types are a SignatureParseError; real types without a
// Go mapping are an UnsupportedTypeError.
func MapABIType(t string) (TargetType, error) {
	t = strings.TrimSpace(t)
	if t == "" {
		return 0, &errdefs.SignatureParseError{Signature: t, Reason: "empty type"}
	}

	if bits, signed, ok := IntWidth(t); ok {
		if bits < 1 || bits > 256 {
			return 0, &errdefs.UnsupportedTypeError{Type: t, Context: "integer width must be within 1..256"}
		}
		return IntBucket(signed, bits)
	}

	if strings.ContainsAny(t, "[]") {
		return 0, &errdefs.UnsupportedTypeError{Type: t, Context: "arrays must be flattened"}
	}
	if strings.ContainsAny(t, "()") || t == "tuple" {
		return 0, &errdefs.UnsupportedTypeError{Type: t, Context: "tuples must be flattened"}
	}

	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		return 0, &errdefs.SignatureParseError{Signature: t, Fragment: t, Reason: "not an ABI type"}
	}
	switch typ.T {
	case abi.AddressTy:
		return Address, nil
	case abi.BytesTy:
		return Bytes, nil
	case abi.BoolTy:
		return Bool, nil
	case abi.StringTy:
		return String, nil
	case abi.FixedBytesTy:
		return 0, &errdefs.UnsupportedTypeError{Type: t, Context: "fixed bytes"}
	}
	return 0, &errdefs.UnsupportedTypeError{Type: t}
}

// IntBucket picks the target type for an ABI integer of the given width.
func IntBucket(signed bool, bits int) (TargetType, error) {
	switch {
	case bits < 1 || bits > 256:
		return 0, &errdefs.UnsupportedTypeError{Type: fmt.Sprintf("int%d", bits), Context: "integer width must be within 1..256"}
	case bits <= 16:
		if signed {
			return Int16, nil
		}
		return Uint16, nil
	case bits <= 32:
		if signed {
			return Int32, nil
		}
		return Uint32, nil
	case bits <= 64:
		if signed {
			return Int64, nil
		}
		return Uint64, nil
	case bits <= 128:
		if signed {
			return Int128, nil
		}
		return Uint128, nil
	}
	if signed {
		return 0, &errdefs.UnsupportedTypeError{Type: fmt.Sprintf("int%d", bits), Context: "signed integers wider than 128 bits"}
	}
	return Uint256, nil
}

// normalize spells the implicit integer widths out, so selectors hash the
// same way solc does.
func normalize(t string) string {
	switch t {
	case "uint":
		return "uint256"
	case "int":
		return "int256"
	}
	return t
}

package candid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
)

var magic = []byte("DIDL")

// Encode produces the binary message for an argument sequence.
func Encode(args ...Value) ([]byte, error) {
	e := &encoder{index: make(map[string]int64)}
	refs := make([]int64, 0, len(args))
	for _, a := range args {
		ref, err := e.typeRef(a.Type())
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	var out bytes.Buffer
	out.Write(magic)
	out.Write(binary.AppendUvarint(nil, uint64(len(e.table))))
	for _, entry := range e.table {
		out.Write(entry)
	}
	out.Write(binary.AppendUvarint(nil, uint64(len(refs))))
	for _, r := range refs {
		out.Write(appendSleb(nil, r))
	}
	for _, a := range args {
		b, err := e.value(nil, a)
		if err != nil {
			return nil, err
		}
		out.Write(b)
	}
	return out.Bytes(), nil
}

type encoder struct {
	table [][]byte
	index map[string]int64
}

// typeRef returns the primitive code of t, or its index in the type table.
func (e *encoder) typeRef(t Type) (int64, error) {
	if p, ok := t.(*Prim); ok {
		code, ok := primCodes[p.Name]
		if !ok {
			return 0, fmt.Errorf("unknown primitive %s", p.Name)
		}
		return code, nil
	}

	key := t.String()
	if i, ok := e.index[key]; ok {
		return i, nil
	}
	i := int64(len(e.table))
	e.index[key] = i
	e.table = append(e.table, nil)

	var entry []byte
	switch t := t.(type) {
	case *Opt:
		ref, err := e.typeRef(t.Elem)
		if err != nil {
			return 0, err
		}
		entry = appendSleb(appendSleb(nil, optCode), ref)
	case *Vec:
		ref, err := e.typeRef(t.Elem)
		if err != nil {
			return 0, err
		}
		entry = appendSleb(appendSleb(nil, vecCode), ref)
	case *Record, *Variant:
		code := int64(recordCode)
		var fields []Field
		if r, ok := t.(*Record); ok {
			fields = r.Fields
		} else {
			code = variantCode
			fields = t.(*Variant).Fields
		}
		entry = appendSleb(nil, code)
		entry = binary.AppendUvarint(entry, uint64(len(fields)))
		for _, f := range sortedFields(fields) {
			ref, err := e.typeRef(f.Type)
			if err != nil {
				return 0, err
			}
			entry = binary.AppendUvarint(entry, uint64(f.ID))
			entry = appendSleb(entry, ref)
		}
	default:
		return 0, fmt.Errorf("cannot encode values of type %s", t)
	}
	e.table[i] = entry
	return i, nil
}

func (e *encoder) value(b []byte, v Value) ([]byte, error) {
	switch v := v.(type) {
	case TextValue:
		b = binary.AppendUvarint(b, uint64(len(v)))
		return append(b, v...), nil
	case BoolValue:
		if v {
			return append(b, 1), nil
		}
		return append(b, 0), nil
	case Nat64Value:
		return binary.LittleEndian.AppendUint64(b, uint64(v)), nil
	case Nat32Value:
		return binary.LittleEndian.AppendUint32(b, uint32(v)), nil
	case Nat8Value:
		return append(b, byte(v)), nil
	case NatValue:
		if v.Int == nil || v.Sign() < 0 {
			return nil, fmt.Errorf("nat value must be non-negative")
		}
		return appendBigLeb(b, v.Int), nil
	case NullValue:
		return b, nil
	case PrincipalValue:
		b = append(b, 1)
		b = binary.AppendUvarint(b, uint64(len(v)))
		return append(b, v...), nil
	case OptValue:
		if v.Value == nil {
			return append(b, 0), nil
		}
		return e.value(append(b, 1), v.Value)
	case VecValue:
		b = binary.AppendUvarint(b, uint64(len(v.Values)))
		var err error
		for _, elem := range v.Values {
			if b, err = e.value(b, elem); err != nil {
				return nil, err
			}
		}
		return b, nil
	case RecordValue:
		byName := make(map[string]Value, len(v.Fields))
		fields := make([]Field, 0, len(v.Fields))
		for _, f := range v.Fields {
			byName[f.Name] = f.Value
			fields = append(fields, Field{Name: f.Name, ID: Hash(f.Name)})
		}
		var err error
		for _, f := range sortedFields(fields) {
			if b, err = e.value(b, byName[f.Name]); err != nil {
				return nil, err
			}
		}
		return b, nil
	case VariantValue:
		if v.Index < 0 || v.Index >= len(v.Alternatives) {
			return nil, fmt.Errorf("variant index %d out of range", v.Index)
		}
		selected := v.Alternatives[v.Index].ID
		for i, f := range sortedFields(v.Alternatives) {
			if f.ID == selected {
				b = binary.AppendUvarint(b, uint64(i))
				break
			}
		}
		return e.value(b, v.Value)
	}
	return nil, fmt.Errorf("cannot encode value %T", v)
}

func appendSleb(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func appendBigLeb(b []byte, n *big.Int) []byte {
	v := new(big.Int).Set(n)
	mask := big.NewInt(0x7f)
	for {
		c := byte(new(big.Int).And(v, mask).Uint64())
		v.Rsh(v, 7)
		if v.Sign() == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

package typenc

import (
	"fmt"
	"reflect"
	"strconv"
)

// PointerSize is the size in bytes of addresses on the supported targets.
const PointerSize = 8

const (
	// MaxCount is the largest array length or bit field width Parse accepts.
	MaxCount = 1<<31 - 1
	// MaxSize is the largest size in bytes of a type Parse accepts.
	MaxSize = 1<<31 - 1
)

// Size returns the size in bytes of a value of type t on a 64-bit Darwin
// target. Bit fields report the bytes needed to hold their bits. Void and
// incomplete structures have size 0.
func (t *Type) Size() int {
	switch t.Tag {
	case 'c', 'C', 'B':
		return 1
	case 's', 'S':
		return 2
	case 'i', 'I', 'l', 'L', 'f':
		return 4
	case 'q', 'Q', 'd':
		return 8
	case '*', '@', '#', ':', '^', '?':
		return PointerSize
	case '[':
		return t.Len * t.Elem.Size()
	case '{':
		off, align := 0, 1
		for _, f := range t.Fields {
			a := f.Align()
			if a > align {
				align = a
			}
			off = roundUp(off, a) + f.Size()
		}
		return roundUp(off, align)
	case '(':
		size, align := 0, 1
		for _, f := range t.Fields {
			if s := f.Size(); s > size {
				size = s
			}
			if a := f.Align(); a > align {
				align = a
			}
		}
		return roundUp(size, align)
	case 'b':
		return (t.Len + 7) / 8
	}
	return 0
}

// Align returns the alignment in bytes of a value of type t.
func (t *Type) Align() int {
	switch t.Tag {
	case '[':
		return t.Elem.Align()
	case '{', '(':
		align := 1
		for _, f := range t.Fields {
			if a := f.Align(); a > align {
				align = a
			}
		}
		return align
	case 'v':
		return 1
	}
	if s := t.Size(); s > 0 {
		return s
	}
	return 1
}

func roundUp(n, a int) int {
	return (n + a - 1) / a * a
}

var (
	int8Type    = reflect.TypeOf(int8(0))
	uint8Type   = reflect.TypeOf(uint8(0))
	int16Type   = reflect.TypeOf(int16(0))
	uint16Type  = reflect.TypeOf(uint16(0))
	int32Type   = reflect.TypeOf(int32(0))
	uint32Type  = reflect.TypeOf(uint32(0))
	int64Type   = reflect.TypeOf(int64(0))
	uint64Type  = reflect.TypeOf(uint64(0))
	float32Type = reflect.TypeOf(float32(0))
	float64Type = reflect.TypeOf(float64(0))
	boolType    = reflect.TypeOf(false)
	uintptrType = reflect.TypeOf(uintptr(0))
)

// GoType returns a Go type with the same size and layout as t. Structures
// become struct types with fields named F0, F1, and so on; unions become
// arrays of their most aligned member's width. Void, bit fields, and
// structures without fields have no Go equivalent.
func (t *Type) GoType() (reflect.Type, error) {
	switch t.Tag {
	case 'c':
		return int8Type, nil
	case 'C':
		return uint8Type, nil
	case 's':
		return int16Type, nil
	case 'S':
		return uint16Type, nil
	case 'i', 'l':
		return int32Type, nil
	case 'I', 'L':
		return uint32Type, nil
	case 'q':
		return int64Type, nil
	case 'Q':
		return uint64Type, nil
	case 'f':
		return float32Type, nil
	case 'd':
		return float64Type, nil
	case 'B':
		return boolType, nil
	case '*', '@', '#', ':', '^', '?':
		return uintptrType, nil
	case '[':
		elem, err := t.Elem.GoType()
		if err != nil {
			return nil, err
		}
		if es := t.Elem.Size(); t.Len < 0 || es > 0 && t.Len > MaxSize/es {
			return nil, fmt.Errorf("typenc: array %s is too large", t.Enc)
		}
		return reflect.ArrayOf(t.Len, elem), nil
	case '{':
		if len(t.Fields) == 0 {
			return nil, fmt.Errorf("typenc: structure %s has no known fields", t.Name)
		}
		if t.Size() > MaxSize {
			return nil, fmt.Errorf("typenc: structure %s is too large", t.Name)
		}
		fields := make([]reflect.StructField, len(t.Fields))
		for i, f := range t.Fields {
			ft, err := f.GoType()
			if err != nil {
				return nil, err
			}
			fields[i] = reflect.StructField{Name: "F" + strconv.Itoa(i), Type: ft}
		}
		return reflect.StructOf(fields), nil
	case '(':
		if len(t.Fields) == 0 {
			return nil, fmt.Errorf("typenc: union %s has no known fields", t.Name)
		}
		if t.Size() > MaxSize {
			return nil, fmt.Errorf("typenc: union %s is too large", t.Name)
		}
		var word reflect.Type
		switch a := t.Align(); a {
		case 1:
			word = uint8Type
		case 2:
			word = uint16Type
		case 4:
			word = uint32Type
		default:
			word = uint64Type
		}
		return reflect.ArrayOf(t.Size()/int(word.Size()), word), nil
	}
	return nil, fmt.Errorf("typenc: no Go type for %q", t.Enc)
}
